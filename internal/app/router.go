package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/flaelle/flaelle/internal/audit/http"
	"github.com/flaelle/flaelle/internal/auth"
	"github.com/flaelle/flaelle/internal/catalog"
	"github.com/flaelle/flaelle/internal/costing"
	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/observability"
	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/purchasing"
	"github.com/flaelle/flaelle/internal/reports"
	"github.com/flaelle/flaelle/internal/shared"
	"github.com/flaelle/flaelle/jobs"
	"github.com/flaelle/flaelle/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	AuthHandler     *auth.Handler
	AuditHandler    *audithttp.Handler
	CatalogHandler  *catalog.Handler
	UploadHandler   *catalog.UploadHandler
	LedgerHandler   *inventory.Handler
	CostingHandler  *costing.Handler
	ReportsHandler  *reports.Handler
	ReportsCache    *reports.Cache
	PurchaseHandler *purchasing.Handler
	RendererHandler *report.Handler
	JobHandler      *jobs.StatusHandler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Flaelle defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	csrf := CSRFMiddleware(params.CSRFManager, params.Logger)

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				params.AuthHandler.MountRoutes(r, auth.RequireSession, csrf)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession, csrf)
			if params.ReportsCache != nil {
				r.Use(params.ReportsCache.InvalidateOnWrite)
			}

			if params.CatalogHandler != nil {
				r.Route("/products", params.CatalogHandler.MountProductRoutes)
			}
			r.Route("/shipments", func(r chi.Router) {
				if params.CatalogHandler != nil {
					params.CatalogHandler.MountShipmentRoutes(r)
				}
				if params.LedgerHandler != nil {
					params.LedgerHandler.MountShipmentRoutes(r)
				}
				if params.CostingHandler != nil {
					params.CostingHandler.MountRoutes(r)
				}
			})
			if params.LedgerHandler != nil {
				params.LedgerHandler.MountRoutes(r)
			}
			if params.UploadHandler != nil {
				params.UploadHandler.MountRoutes(r)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
			if params.PurchaseHandler != nil {
				r.Route("/purchase-orders", params.PurchaseHandler.MountRoutes)
			}
			if params.RendererHandler != nil {
				r.Route("/renderer", params.RendererHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit", params.AuditHandler.MountRoutes)
			}
		})
	})

	return r
}
