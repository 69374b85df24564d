package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a new zap logger for the given environment. "local" gives the
// terse example logger, "development" a debug level console logger and
// "production" (or empty) a json logger at info level.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "local":
		return zap.NewExample(), nil
	case "development", "dev":
		return zap.NewDevelopment()
	case "production", "prod", "":
		return zap.NewProduction()
	}
	return nil, fmt.Errorf("unknown logging environment %q", env)
}
