package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/insights"
	"github.com/greenstock-ops/greenstock/internal/inventory"
	"github.com/greenstock-ops/greenstock/internal/masterdata/catalog"
	"github.com/greenstock-ops/greenstock/internal/masterdata/employees"
	"github.com/greenstock-ops/greenstock/internal/masterdata/suppliers"
	"github.com/greenstock-ops/greenstock/internal/masterdata/zones"
	"github.com/greenstock-ops/greenstock/internal/observability"
	"github.com/greenstock-ops/greenstock/internal/procurement"
	"github.com/greenstock-ops/greenstock/internal/rbac"
	"github.com/greenstock-ops/greenstock/internal/stockaudit"
	"github.com/greenstock-ops/greenstock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	InventoryHandler   *inventory.Handler
	AuditHandler       *stockaudit.Handler
	ProcurementHandler *procurement.Handler
	SupplierHandler    *suppliers.Handler
	ZoneHandler        *zones.Handler
	CatalogHandler     *catalog.Handler
	EmployeeHandler    *employees.Handler
	RoleHandler        *rbac.Handler
	ActivityHandler    *activity.Handler
	InsightsHandler    *insights.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Greenstock defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/inventory", params.InventoryHandler.Routes())
		r.Mount("/audits", params.AuditHandler.Routes())
		r.Mount("/purchase-requests", params.ProcurementHandler.Routes())
		r.Route("/suppliers", params.SupplierHandler.MountRoutes)
		r.Route("/zones", params.ZoneHandler.MountRoutes)
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
		r.Route("/employees", params.EmployeeHandler.MountRoutes)
		r.Mount("/roles", params.RoleHandler.Routes())
		r.Mount("/activity", params.ActivityHandler.Routes())
		r.Mount("/insights", params.InsightsHandler.Routes())
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
