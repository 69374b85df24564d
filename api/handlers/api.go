package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/api/scheduler"
	"github.com/linesmerrill/grievance-api/assignment"
	"github.com/linesmerrill/grievance-api/broadcaster"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/notify"
)

const requestTimeout = 30 * time.Second

// App stores the router and db connection, so it can be reused
type App struct {
	Router     *mux.Router
	Config     config.Config
	Hub        *broadcaster.Broadcaster
	Scheduler  *scheduler.Scheduler
	categories *config.Categories
	client     databases.ClientHelper
	dbHelper   databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	users := databases.NewUserDatabase(a.dbHelper)
	reports := databases.NewReportDatabase(a.dbHelper)
	history := databases.NewHistoryDatabase(a.dbHelper)
	dir := databases.NewDirectory(users)
	if a.categories == nil {
		a.categories = config.NewCategories(config.DefaultCategories...)
	}

	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: users}
	m.SetupGoGuardian()

	a.Hub = broadcaster.New(a.Config.SessionBuffer)
	machine := lifecycle.NewMachine(reports, dir, a.Hub,
		lifecycle.WithHistory(history),
		lifecycle.WithCategories(a.categories),
		lifecycle.WithRetries(a.Config.StaleWriteRetries),
	)

	var mailer scheduler.Mailer
	if a.Config.SendgridAPIKey != "" {
		sg := notify.NewSendGridMailer(a.Config.SendgridAPIKey, dir, a.Config.MailFrom, a.Config.BaseURL)
		a.Hub.OnEvent(sg.HandleEvent)
		mailer = sg
	} else {
		zap.S().Warn("SENDGRID_API_KEY not set, email notifications disabled")
	}
	a.Scheduler = scheduler.NewScheduler(a.Config.DigestSchedule, reports, dir, a.Hub, mailer,
		databases.NewSchedulerLockDatabase(a.dbHelper))

	report := Report{Machine: machine, Assigner: assignment.NewResolver(machine, dir), Roles: dir, History: history}
	u := User{DB: users, Roles: dir}
	o := Officer{Directory: dir, Store: reports}
	c := Category{Set: a.categories}
	b := Broadcast{DB: databases.NewBroadcastDatabase(a.dbHelper), Hub: a.Hub, Roles: dir}
	rt := Realtime{Hub: a.Hub, Tickets: api.NewTicketIssuer(a.Config.JWTSecret, time.Minute), Roles: dir}
	media := Media{Cloudinary: a.Config.Cloudinary}
	metrics := MetricsHandler{Collector: api.GetMetrics(), Hub: a.Hub, Roles: dir}

	protected := func(h http.HandlerFunc) http.Handler {
		return api.Middleware(api.TimeoutMiddleware(requestTimeout)(h))
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/users", api.OptionalMiddleware(api.TimeoutMiddleware(requestTimeout)(http.HandlerFunc(u.UserCreateHandler)))).Methods("POST")
	apiCreate.Handle("/users/me", protected(u.CurrentUserHandler)).Methods("GET")

	apiCreate.Handle("/categories", protected(c.CategoriesHandler)).Methods("GET")

	apiCreate.Handle("/reports", protected(report.CreateReportHandler)).Methods("POST")
	apiCreate.Handle("/reports", protected(report.ReportsHandler)).Methods("GET")
	apiCreate.Handle("/reports/{report_id}", protected(report.ReportByIDHandler)).Methods("GET")
	apiCreate.Handle("/reports/{report_id}", protected(report.DeleteReportHandler)).Methods("DELETE")
	apiCreate.Handle("/reports/{report_id}/assign", protected(report.AssignReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/start", protected(report.StartReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/resolve", protected(report.ResolveReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/reopen", protected(report.ReopenReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/urgency", protected(report.UrgencyHandler)).Methods("PUT")
	apiCreate.Handle("/reports/{report_id}/history", protected(report.ReportHistoryHandler)).Methods("GET")
	apiCreate.Handle("/stats", protected(report.StatsHandler)).Methods("GET")

	apiCreate.Handle("/officers/workload", protected(o.WorkloadHandler)).Methods("GET")

	apiCreate.Handle("/broadcasts", protected(b.CreateBroadcastHandler)).Methods("POST")
	apiCreate.Handle("/broadcasts", protected(b.BroadcastsHandler)).Methods("GET")

	apiCreate.Handle("/realtime/ticket", protected(rt.TicketHandler)).Methods("GET")
	// the websocket authenticates with its ticket and must outlive the request timeout
	apiCreate.Handle("/realtime", http.HandlerFunc(rt.WebSocketHandler)).Methods("GET")

	apiCreate.Handle("/media/signature", protected(media.SignatureHandler)).Methods("GET")
	apiCreate.Handle("/metrics", protected(metrics.GetMetricsDashboard)).Methods("GET")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	api.SetQueryTimeout(a.Config.QueryTimeout)

	categories, err := config.LoadCategories(a.Config.CategoriesFile)
	if err != nil {
		zap.S().With(err).Error("failed to load categories")
		return err
	}
	a.categories = categories

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	zap.S().Info("grievance-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	return nil
}

// Close stops background work and disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
