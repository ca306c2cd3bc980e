package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 5

// WorkerConfig wires the mail and idempotency cleanup jobs to Redis.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Mail        *MailJob
	Cleanup     *IdempotencyCleanupJob
	// CleanupCron schedules idempotency:cleanup; empty leaves it to manual triggers.
	CleanupCron  string
	CleanupAfter time.Duration
}

// Worker consumes mail:send and idempotency:cleanup from the default queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker registers both jobs and, when CleanupCron is set, the cleanup schedule.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Mail == nil || cfg.Cleanup == nil {
		return nil, errors.New("jobs: mail and cleanup jobs are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSendEmail, cfg.Mail.Handle)
	mux.HandleFunc(TaskIdempotencyCleanup, cfg.Cleanup.Handle)

	w := &Worker{
		server: asynq.NewServer(cfg.RedisOpts, asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{QueueDefault: 1},
		}),
		mux:    mux,
		logger: logger,
	}
	if cfg.CleanupCron == "" {
		return w, nil
	}
	task, err := NewIdempotencyCleanupTask(cfg.CleanupAfter)
	if err != nil {
		return nil, err
	}
	w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := w.scheduler.Register(cfg.CleanupCron, task, asynq.MaxRetry(3), asynq.Unique(time.Hour)); err != nil {
		return nil, fmt.Errorf("jobs: schedule cleanup %q: %w", cfg.CleanupCron, err)
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled, then drains and stops.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
	}
	w.logger.Info("jobs worker running", slog.Bool("cleanup_scheduled", w.scheduler != nil))

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	return ctx.Err()
}
