package costing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

// DistributionService is the subset of Service used by the HTTP layer.
type DistributionService interface {
	DistributeCosts(ctx context.Context, shipmentID, actor string) (Result, error)
	PreviewDistribution(ctx context.Context, shipmentID string) (Result, error)
}

// Handler exposes distribution endpoints.
type Handler struct {
	logger  *slog.Logger
	service DistributionService
}

// NewHandler constructs costing handler.
func NewHandler(logger *slog.Logger, service DistributionService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers distribution routes on the shipments router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}/distribution", h.handlePreview)
	r.Post("/{id}/distribution", h.handleDistribute)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "id")
	result, err := h.service.PreviewDistribution(r.Context(), shipmentID)
	if err != nil {
		h.fail(w, "preview distribution", err, slog.String("shipment_id", shipmentID))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "id")
	result, err := h.service.DistributeCosts(r.Context(), shipmentID, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "distribute costs", err, slog.String("shipment_id", shipmentID))
		return
	}
	h.logger.Info("costs distributed",
		slog.String("shipment_id", shipmentID),
		slog.Int("products", len(result.Allocations)),
		slog.String("coefficient", result.Coefficient.String()))
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
