package reports

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService is the subset of Service used by the HTTP layer.
type ReportService interface {
	Dashboard(ctx context.Context, filter Filter) (Dashboard, error)
	Shipments(ctx context.Context) (ShipmentReport, error)
	ExportData(ctx context.Context, filter Filter) (Dashboard, ShipmentReport, []SaleRow, error)
}

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	now     func() time.Time
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
	r.Get("/shipments", h.handleShipments)
	r.Get("/export.xlsx", h.handleExport)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dashboard, err := h.service.Dashboard(r.Context(), filter)
	if err != nil {
		h.fail(w, "reports summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleShipments(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Shipments(r.Context())
	if err != nil {
		h.fail(w, "reports shipments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dashboard, shipments, sales, err := h.service.ExportData(r.Context(), filter)
	if err != nil {
		h.fail(w, "reports export", err)
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, dashboard, shipments, sales); err != nil {
		h.fail(w, "reports export", err)
		return
	}
	filename := "flaelle-report-" + h.now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var filter Filter
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
