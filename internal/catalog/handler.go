package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

// CatalogService is the subset of Service used by the HTTP layer.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]inventory.Product, int, error)
	GetProduct(ctx context.Context, id string) (inventory.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (inventory.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductUpdate) (inventory.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListShipments(ctx context.Context, filter ShipmentFilter) ([]inventory.Shipment, int, error)
	GetShipment(ctx context.Context, id string) (inventory.Shipment, error)
	CreateShipment(ctx context.Context, in ShipmentInput) (inventory.Shipment, error)
	UpdateShipment(ctx context.Context, id string, in ShipmentUpdate) (inventory.Shipment, error)
	ArchiveShipment(ctx context.Context, id string) (inventory.Shipment, error)
}

// Handler wires catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service CatalogService
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service CatalogService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountProductRoutes registers product routes.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	r.Get("/{id}", h.getProduct)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deleteProduct)
}

// MountShipmentRoutes registers shipment routes. Deletion belongs to the ledger.
func (h *Handler) MountShipmentRoutes(r chi.Router) {
	r.Get("/", h.listShipments)
	r.Post("/", h.createShipment)
	r.Get("/{id}", h.getShipment)
	r.Put("/{id}", h.updateShipment)
	r.Post("/{id}/archive", h.archiveShipment)
}

type listResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{
		ShipmentID: q.Get("shipment_id"),
		Search:     strings.TrimSpace(q.Get("search")),
		Page:       shared.PageFromQuery(q),
	}
	items, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[inventory.Product]{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, "get product", err, slog.String("product_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	h.logger.Info("product created", slog.String("product_id", p.ID), slog.String("name", p.Name))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in ProductUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update product", err, slog.String("product_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, "delete product", err, slog.String("product_id", id))
		return
	}
	h.logger.Info("product deleted", slog.String("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ShipmentFilter{
		Status: inventory.ShipmentStatus(q.Get("status")),
		Page:   shared.PageFromQuery(q),
	}
	items, total, err := h.service.ListShipments(r.Context(), filter)
	if err != nil {
		h.fail(w, "list shipments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[inventory.Shipment]{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.service.GetShipment(r.Context(), id)
	if err != nil {
		h.fail(w, "get shipment", err, slog.String("shipment_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var in ShipmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.CreateShipment(r.Context(), in)
	if err != nil {
		h.fail(w, "create shipment", err)
		return
	}
	h.logger.Info("shipment created", slog.String("shipment_id", s.ID), slog.String("name", s.Name))
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) updateShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in ShipmentUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.UpdateShipment(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update shipment", err, slog.String("shipment_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) archiveShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.service.ArchiveShipment(r.Context(), id)
	if err != nil {
		h.fail(w, "archive shipment", err, slog.String("shipment_id", id))
		return
	}
	h.logger.Info("shipment archived", slog.String("shipment_id", id))
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, append(attrs, slog.Any("error", err))...)
	} else {
		h.logger.Info(op+" rejected", append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
