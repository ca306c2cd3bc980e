package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	olderThan time.Duration
	removed   int64
	err       error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.removed, f.err
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &fakeCleaner{removed: 3}
	job := NewIdempotencyCleanupJob(store, nil, nil)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, TaskIdempotencyCleanup, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, store.olderThan)

	store.err = errors.New("db gone")
	require.ErrorContains(t, job.Handle(context.Background(), task), "db gone")
}

func TestIdempotencyCleanupRejectsBadPayload(t *testing.T) {
	store := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(store, nil, nil)

	for _, body := range []string{"nope", `{"older_than":0}`} {
		err := job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(body)))
		require.ErrorIs(t, err, asynq.SkipRetry)
	}
	require.Zero(t, store.olderThan)
}
