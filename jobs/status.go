package jobs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/flaelle/flaelle/internal/platform/httpx"
)

// QueueInspector reads queue counters; *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueStatus is the body of GET /jobs/health.
type QueueStatus struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
}

// StatusHandler reports the backlog of the default queue.
type StatusHandler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

func NewStatusHandler(inspector QueueInspector, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{inspector: inspector, logger: logger}
}

// MountRoutes attaches GET /health.
func (h *StatusHandler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *StatusHandler) health(w http.ResponseWriter, r *http.Request) {
	status := QueueStatus{Queue: QueueDefault}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, status)
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	switch {
	case errors.Is(err, asynq.ErrQueueNotFound):
		// Nothing has been enqueued yet.
	case err != nil:
		h.logger.Warn("jobs queue status", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unreachable")
		return
	case info != nil:
		status.Pending = info.Pending
		status.Active = info.Active
		status.Retry = info.Retry
		status.Archived = info.Archived
	}
	httpx.JSON(w, http.StatusOK, status)
}
