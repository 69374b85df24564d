package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/api/handlers"
	"github.com/linesmerrill/grievance-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	flags := pflag.NewFlagSet("grievance-api", pflag.ExitOnError)
	port := flags.String("port", a.Config.Port, "port to listen on (overrides PORT)")
	env := flags.String("env", a.Config.Env, "local, development or production (overrides ENV)")
	categories := flags.String("categories", a.Config.CategoriesFile, "yaml file listing report categories (overrides CATEGORIES_FILE)")
	_ = flags.Parse(os.Args[1:])

	if *env != a.Config.Env {
		a.Config.Env = *env
		if err := config.SetLogger(*env); err != nil {
			zap.S().Warnw("keeping current logger", "env", *env, "error", err)
		}
	}
	a.Config.Port = *port
	a.Config.CategoriesFile = *categories

	//initialize database and router
	if err := a.Initialize(); err != nil {
		zap.S().Fatalw("failed to start", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infow("grievance-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.S().Warnw("server shutdown", "error", err)
	}
	if err := a.Close(ctx); err != nil {
		zap.S().Warnw("failed to disconnect from database", "error", err)
	}
	_ = zap.L().Sync()
}
