package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quinisports/quinisports/internal/auth"
	"github.com/quinisports/quinisports/internal/businesses"
	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/prizes"
	"github.com/quinisports/quinisports/internal/products"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/sports"
	"github.com/quinisports/quinisports/internal/subscriptions"
	"github.com/quinisports/quinisports/internal/users"
	"github.com/quinisports/quinisports/internal/view"
	"github.com/quinisports/quinisports/jobs"
	"github.com/quinisports/quinisports/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *guard.Guard
	Metrics        *observability.Metrics

	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	BusinessHandler     *businesses.Handler
	ProductHandler      *products.Handler
	PrizeHandler        *prizes.Handler
	SportHandler        *sports.Handler
	SubscriptionHandler *subscriptions.Handler
	ImageHandler        *images.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with QuiniSports defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := params.Guard
	if g == nil {
		g = guard.New(guard.Config{}, logger, params.Metrics)
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		GateOpen:       g.GateOpen,
	}) {
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

	pages := &adminPages{logger: logger, templates: params.Templates, csrf: params.CSRFManager, guard: g}
	r.Get(guard.DefaultMaintenancePath, pages.maintenance)
	r.With(g.Authenticated(guard.ModePage)).Get("/qs-admin", pages.dashboard)
	r.With(g.Authenticated(guard.ModePage)).Get("/qs-admin/{section}", pages.section)

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		params.AuthHandler.MountLoginPage(r)
		params.AuthHandler.MountSessionRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(g.Gate(guard.ModeAPI))
		if params.UsersHandler != nil {
			r.Route("/api/employee", params.UsersHandler.MountEmployeeRoutes)
			r.Route("/api/admin", params.UsersHandler.MountAdminRoutes)
		}
		if params.BusinessHandler != nil {
			r.Route("/api/business", params.BusinessHandler.MountRoutes)
			params.BusinessHandler.MountPublicAPI(r)
		}
		if params.ProductHandler != nil {
			r.Route("/api/product", params.ProductHandler.MountRoutes)
			r.Route("/api/product-type", params.ProductHandler.MountTypeRoutes)
		}
		if params.PrizeHandler != nil {
			r.Route("/api/prize", params.PrizeHandler.MountRoutes)
		}
		if params.SportHandler != nil {
			r.Route("/api/sport", params.SportHandler.MountSportRoutes)
			r.Route("/api/tournament", params.SportHandler.MountTournamentRoutes)
		}
		if params.SubscriptionHandler != nil {
			r.Route("/api/subscription", params.SubscriptionHandler.MountRoutes)
		}
		if params.ImageHandler != nil {
			r.Route("/api/images", params.ImageHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.With(g.Authenticated(guard.ModeAPI)).Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.BusinessHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(g.Gate(guard.ModePage))
			params.BusinessHandler.MountPublicPages(r)
		})
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
