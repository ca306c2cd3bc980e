package purchasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
)

// OrderService is the subset of Service used by the HTTP layer.
type OrderService interface {
	RenderPDF(ctx context.Context, in OrderInput) (Order, []byte, error)
	Email(ctx context.Context, in EmailInput) (Order, error)
}

// Handler serves purchase order endpoints.
type Handler struct {
	logger  *slog.Logger
	service OrderService
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service OrderService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/pdf", h.pdf)
	r.Post("/email", h.email)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	var in OrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, pdf, err := h.service.RenderPDF(r.Context(), in)
	if err != nil {
		h.fail(w, "render purchase order", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+order.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type emailResponse struct {
	Status string `json:"status"`
	Order  Order  `json:"order"`
}

func (h *Handler) email(w http.ResponseWriter, r *http.Request) {
	var in EmailInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Email(r.Context(), in)
	if err != nil {
		h.fail(w, "email purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, emailResponse{Status: "queued", Order: order})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, append(attrs, slog.Any("error", err))...)
	} else {
		h.logger.Info(op+" rejected", append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}
