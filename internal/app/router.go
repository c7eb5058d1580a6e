package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dealdesk/dealdesk/internal/contacts"
	"github.com/dealdesk/dealdesk/internal/dashboard"
	"github.com/dealdesk/dealdesk/internal/deals"
	"github.com/dealdesk/dealdesk/internal/notifications"
	"github.com/dealdesk/dealdesk/internal/observability"
	"github.com/dealdesk/dealdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	DealsHandler         *deals.Handler
	ContactsHandler      *contacts.Handler
	DashboardHandler     *dashboard.Handler
	NotificationsHandler *notifications.Handler
	JobsHandler          *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	mwConfig := MiddlewareConfig{Logger: params.Logger, Config: params.Config}
	if params.Metrics != nil {
		mwConfig.Metrics = params.Metrics
	}
	for _, mw := range MiddlewareStack(mwConfig) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireOwner)
		if params.DealsHandler != nil {
			r.Route("/deals", params.DealsHandler.MountRoutes)
		}
		if params.ContactsHandler != nil {
			r.Route("/contacts", params.ContactsHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
	})

	return r
}
