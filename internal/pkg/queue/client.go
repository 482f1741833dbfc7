package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/hibiken/asynq"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits jobs to the queue.
type Client struct {
	client   enqueuer
	closer   func() error
	queue    string
	maxRetry int
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, queue string, maxRetry int) *Client {
	client := asynq.NewClient(redisOpts)
	return newClient(client, client.Close, queue, maxRetry)
}

func newClient(e enqueuer, closer func() error, queue string, maxRetry int) *Client {
	if queue == "" {
		queue = QueueDefault
	}
	return &Client{client: e, closer: closer, queue: queue, maxRetry: maxRetry}
}

// EnqueueViolationAlert implements timesheet.ViolationAlerter. Alerts for the
// same timesheet, zone and reading time are deduplicated for an hour.
func (c *Client) EnqueueViolationAlert(ctx context.Context, alert timesheet.ViolationAlert) error {
	task, err := NewViolationAlertTask(alert)
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("%s:%s:%s:%d", alert.TimesheetID, alert.ZoneID, alert.Kind, alert.RecordedAt.Unix())
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.TaskID(taskID),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue violation alert: %w", err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
