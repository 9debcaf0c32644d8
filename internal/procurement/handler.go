package procurement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/greenstock-ops/greenstock/internal/platform/httpx"
	"github.com/greenstock-ops/greenstock/internal/rbac"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Handler serves the purchase request HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// Routes mounts the procurement API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPurchasesView, rbac.PermInventoryManage))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryManage))
		r.Post("/", h.create)
		r.Post("/{id}/status", h.changeStatus)
		r.Post("/{id}/reception", h.verifyReception)
	})

	return r
}

type createPayload struct {
	ProductID    int64   `json:"productId" validate:"required,gt=0"`
	SupplierID   int64   `json:"supplierId" validate:"required,gt=0"`
	Quantity     int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice    float64 `json:"unitPrice" validate:"gte=0"`
	Observations string  `json:"observations" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pr, err := h.service.Create(r.Context(), CreateInput{
		ProductID:    payload.ProductID,
		SupplierID:   payload.SupplierID,
		Quantity:     payload.Quantity,
		UnitPrice:    payload.UnitPrice,
		Observations: payload.Observations,
		ActorID:      shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("create purchase request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	pr, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Status: Status(q.Get("status"))}
	filter.SupplierID, _ = strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	requests, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": requests,
		"total": total,
	})
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=DRAFT SENT ACCEPTED IN_PROCESS CANCELLED"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var payload statusPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pr, err := h.service.ChangeStatus(r.Context(), id, Status(payload.Status), shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

type receptionPayload struct {
	ReceivedQty   int64   `json:"receivedQty" validate:"required,gt=0"`
	FinalPrice    float64 `json:"finalPrice" validate:"gte=0"`
	InvoiceNumber string  `json:"invoiceNumber" validate:"max=100"`
}

func (h *Handler) verifyReception(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var payload receptionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pr, err := h.service.VerifyReception(r.Context(), id, ReceptionInput{
		ReceivedQty:   payload.ReceivedQty,
		FinalPrice:    payload.FinalPrice,
		InvoiceNumber: payload.InvoiceNumber,
		ActorID:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("verify reception", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path parameter id must be a positive integer")
		return 0, false
	}
	return id, true
}
