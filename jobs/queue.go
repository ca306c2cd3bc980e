package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// MailQueue enqueues mail:send tasks for the worker.
type MailQueue struct {
	client *asynq.Client
}

// NewMailQueue connects lazily to the Redis behind redisOpts.
func NewMailQueue(redisOpts asynq.RedisClientOpt) *MailQueue {
	return &MailQueue{client: asynq.NewClient(redisOpts)}
}

// EnqueueSendEmail validates payload and queues it.
func (q *MailQueue) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return nil, err
	}
	return q.client.EnqueueContext(ctx, task)
}

func (q *MailQueue) Close() error {
	return q.client.Close()
}
