package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/greenstock-ops/greenstock/internal/platform/httpx"
	"github.com/greenstock-ops/greenstock/internal/rbac"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Handler serves the inventory HTTP API.
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

// Routes mounts the inventory API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryManage, rbac.PermPurchasesView))
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/products/low-stock", h.listLowStock)
		r.Get("/entries", h.listEntries)
		r.Get("/entries/{id}", h.getEntry)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryManage))
		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Post("/products/{id}/suspend", h.suspendProduct)
		r.Post("/products/{id}/reactivate", h.reactivateProduct)
		r.Post("/products/{id}/recompute", h.recomputeQuantity)
		r.Post("/entries", h.createEntry)
		r.Put("/entries/{id}", h.updateEntry)
		r.Delete("/entries/{id}", h.deleteEntry)
	})

	return r
}

type productPayload struct {
	Name             string  `json:"name" validate:"required,min=1,max=200"`
	SourceMode       string  `json:"sourceMode" validate:"required,oneof=OWN SUPPLIER"`
	Category         string  `json:"category" validate:"max=100"`
	Quantity         int64   `json:"quantity"`
	ReorderThreshold int64   `json:"reorderThreshold" validate:"gte=0"`
	Price            float64 `json:"price" validate:"gte=0"`
	CatalogItemID    int64   `json:"catalogItemId"`
	SupplierID       int64   `json:"supplierId"`
	ZoneID           int64   `json:"zoneId"`
	Unit             string  `json:"unit" validate:"max=30"`
	Description      string  `json:"description"`
}

func (p productPayload) toDomain() Product {
	return Product{
		Name:             p.Name,
		SourceMode:       SourceMode(p.SourceMode),
		Category:         p.Category,
		Quantity:         p.Quantity,
		ReorderThreshold: p.ReorderThreshold,
		Price:            p.Price,
		CatalogItemID:    p.CatalogItemID,
		SupplierID:       p.SupplierID,
		ZoneID:           p.ZoneID,
		Unit:             p.Unit,
		Description:      p.Description,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateProduct(r.Context(), payload.toDomain(), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateProduct(r.Context(), id, payload.toDomain(), shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{
		Search:     q.Get("search"),
		SourceMode: SourceMode(q.Get("mode")),
		LowStock:   q.Get("low_stock") == "true",
	}
	filter.ZoneID, _ = strconv.ParseInt(q.Get("zone_id"), 10, 64)
	filter.SupplierID, _ = strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	if v := q.Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": products,
		"total": total,
	})
}

func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListLowStock(r.Context())
	if err != nil {
		h.logger.Error("list low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products})
}

func (h *Handler) suspendProduct(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) reactivateProduct(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.SetProductActive(r.Context(), id, active, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recomputeQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	quantity, err := h.service.RecomputeQuantity(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"productId": id, "quantity": quantity})
}

type entryPayload struct {
	ProductID     int64   `json:"productId" validate:"required,gt=0"`
	SupplierID    int64   `json:"supplierId"`
	Quantity      int64   `json:"quantity" validate:"required,gt=0"`
	UnitCost      float64 `json:"unitCost" validate:"gte=0"`
	InvoiceNumber string  `json:"invoiceNumber" validate:"max=100"`
	Note          string  `json:"note"`
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), EntryInput{
		ProductID:      payload.ProductID,
		SupplierID:     payload.SupplierID,
		Quantity:       payload.Quantity,
		UnitCost:       payload.UnitCost,
		InvoiceNumber:  payload.InvoiceNumber,
		Note:           payload.Note,
		ActorID:        shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this request was already processed")
			return
		}
		h.logger.Error("create entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	updated, err := h.service.UpdateEntry(r.Context(), id, UpdateEntryInput{
		Quantity:      payload.Quantity,
		UnitCost:      payload.UnitCost,
		InvoiceNumber: payload.InvoiceNumber,
		Note:          payload.Note,
		ActorID:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter EntryFilter
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
	filter.SupplierID, _ = strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	entries, total, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": total,
	})
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path parameter id must be a positive integer")
		return 0, false
	}
	return id, true
}
