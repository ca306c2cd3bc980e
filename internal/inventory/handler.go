package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

// IdempotencyHeader lets clients make sale and purchase requests replay-safe.
const IdempotencyHeader = "Idempotency-Key"

// LedgerService is the subset of Service used by the HTTP layer.
type LedgerService interface {
	RecordSale(ctx context.Context, input SaleInput) (SaleRecord, error)
	RecordPurchase(ctx context.Context, input PurchaseInput) (PurchaseRecord, error)
	DeleteShipmentCascade(ctx context.Context, shipmentID, actor string) (CascadeResult, error)
	Reset(ctx context.Context, actor string) (ResetResult, error)
	ListSales(ctx context.Context, filter RecordFilter) ([]SaleRecord, int, error)
	ListPurchases(ctx context.Context, filter RecordFilter) ([]PurchaseRecord, int, error)
}

// Handler wires HTTP endpoints for the ledger.
type Handler struct {
	logger  *slog.Logger
	service LedgerService
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service LedgerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions/sale", h.handleSale)
	r.Post("/transactions/purchase", h.handlePurchase)
	r.Get("/sales", h.listSales)
	r.Get("/purchases", h.listPurchases)
	r.Delete("/reset", h.handleReset)
}

// MountShipmentRoutes registers the cascade delete on the shipments router.
func (h *Handler) MountShipmentRoutes(r chi.Router) {
	r.Delete("/{id}", h.handleDeleteShipment)
}

type listResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleSale(w http.ResponseWriter, r *http.Request) {
	var input SaleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	input.Actor = shared.ActorFromContext(r.Context())
	record, err := h.service.RecordSale(r.Context(), input)
	if err != nil {
		h.fail(w, "record sale", err, slog.String("product_id", input.ProductID), slog.Int("quantity", input.Quantity))
		return
	}
	h.logger.Info("sale recorded",
		slog.String("sale_id", record.ID),
		slog.String("product_id", record.ProductID),
		slog.Int("quantity", record.Quantity),
		slog.String("profit", record.Profit.String()))
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var input PurchaseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	input.Actor = shared.ActorFromContext(r.Context())
	record, err := h.service.RecordPurchase(r.Context(), input)
	if err != nil {
		h.fail(w, "record purchase", err, slog.String("product_id", input.ProductID), slog.Int("quantity", input.Quantity))
		return
	}
	h.logger.Info("purchase recorded",
		slog.String("purchase_id", record.ID),
		slog.String("product_id", record.ProductID),
		slog.Int("quantity", record.Quantity))
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecordFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, total, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[SaleRecord]{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecordFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, total, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		h.fail(w, "list purchases", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[PurchaseRecord]{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) handleDeleteShipment(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "id")
	result, err := h.service.DeleteShipmentCascade(r.Context(), shipmentID, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "delete shipment", err, slog.String("shipment_id", shipmentID))
		return
	}
	h.logger.Info("shipment deleted",
		slog.String("shipment_id", shipmentID),
		slog.Int("products", result.Products),
		slog.Int("sales", result.Sales),
		slog.Int("purchases", result.Purchases))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reset(r.Context(), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "reset inventory", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, append(attrs, slog.Any("error", err))...)
	} else {
		h.logger.Info(op+" rejected", append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}

func parseRecordFilter(r *http.Request) (RecordFilter, error) {
	q := r.URL.Query()
	filter := RecordFilter{
		ShipmentID: q.Get("shipment_id"),
		ProductID:  q.Get("product_id"),
		Page:       shared.PageFromQuery(q),
	}
	problems := &shared.ValidationError{}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.DateOnly, v)
		if err != nil {
			problems.Add("from", "must be a YYYY-MM-DD date")
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			problems.Add("to", "must be a YYYY-MM-DD date")
		} else {
			filter.To = to.AddDate(0, 0, 1)
		}
	}
	return filter, problems.OrNil()
}
