package insights

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenstock-ops/greenstock/internal/platform/httpx"
	"github.com/greenstock-ops/greenstock/internal/rbac"
)

// Handler serves the dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// Routes mounts the insights API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.rbac.RequireAny(rbac.PermInventoryManage, rbac.PermPurchasesView))
	r.Get("/summary", h.summary)
	return r
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	bypass := r.URL.Query().Get("refresh") == "true"
	summary, err := h.service.Load(r.Context(), bypass)
	if err != nil {
		h.logger.Error("load insights summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
