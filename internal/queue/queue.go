// Package queue wraps asynq task enqueueing for the render pipeline.
// Payloads carry the retry base delay so the worker side can compute
// exponential backoff without a shared config dependency.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskRender          = "record:render"
	TaskRenderScheduled = "record:render:scheduled"
	TaskPublish         = "record:publish"

	DefaultQueue = "renders"
)

// ErrDuplicateTask is returned when a task with the same task ID is
// already pending or in flight.
var ErrDuplicateTask = errors.New("queue: duplicate task")

// RenderPayload is the body of render tasks. Publish selects whether a
// successful render flows into the publish phase.
type RenderPayload struct {
	RecordID    string `json:"record_id"`
	Publish     bool   `json:"publish"`
	BaseDelayMs int    `json:"base_delay_ms"`
}

type PublishPayload struct {
	RecordID    string `json:"record_id"`
	BaseDelayMs int    `json:"base_delay_ms"`
}

type Options struct {
	// MaxAttempts counts total attempts including the first one.
	MaxAttempts int
	BaseDelay   time.Duration
	// RemoveOnComplete drops the task on success instead of retaining it.
	RemoveOnComplete bool
	Retention        time.Duration
	// TaskID makes the enqueue idempotent: a second enqueue with the
	// same ID while the first is pending returns ErrDuplicateTask.
	TaskID string
	Queue  string
}

type Enqueuer interface {
	EnqueueRender(ctx context.Context, kind string, p RenderPayload, opts Options) (string, error)
	EnqueuePublish(ctx context.Context, p PublishPayload, opts Options) (string, error)
}

type Client struct {
	client *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

func (c *Client) Close() error { return c.client.Close() }

func (c *Client) EnqueueRender(ctx context.Context, kind string, p RenderPayload, opts Options) (string, error) {
	if kind != TaskRender && kind != TaskRenderScheduled {
		return "", fmt.Errorf("queue: %q is not a render task kind", kind)
	}
	p.BaseDelayMs = int(opts.BaseDelay / time.Millisecond)
	return c.enqueue(ctx, kind, p, opts)
}

func (c *Client) EnqueuePublish(ctx context.Context, p PublishPayload, opts Options) (string, error) {
	p.BaseDelayMs = int(opts.BaseDelay / time.Millisecond)
	return c.enqueue(ctx, TaskPublish, p, opts)
}

func (c *Client) enqueue(ctx context.Context, kind string, payload any, opts Options) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	asynqOpts := buildOptions(opts)
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(kind, body), asynqOpts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return "", ErrDuplicateTask
		}
		return "", err
	}
	return info.ID, nil
}

func buildOptions(opts Options) []asynq.Option {
	queue := opts.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	out := []asynq.Option{asynq.Queue(queue)}

	if opts.MaxAttempts > 0 {
		// asynq counts retries after the first attempt.
		out = append(out, asynq.MaxRetry(opts.MaxAttempts-1))
	}
	if opts.TaskID != "" {
		out = append(out, asynq.TaskID(opts.TaskID))
	}
	if !opts.RemoveOnComplete && opts.Retention > 0 {
		out = append(out, asynq.Retention(opts.Retention))
	}
	return out
}

// RetryDelay computes exponential backoff from the base delay embedded
// in the task payload. It is plugged into the asynq server as
// RetryDelayFunc, which passes n as the number of retries already
// performed: the failure of attempt n+1 waits base * 2^n.
func RetryDelay(n int, _ error, task *asynq.Task) time.Duration {
	var envelope struct {
		BaseDelayMs int `json:"base_delay_ms"`
	}
	_ = json.Unmarshal(task.Payload(), &envelope)

	base := time.Duration(envelope.BaseDelayMs) * time.Millisecond
	if base <= 0 {
		base = 5 * time.Second
	}
	if n < 0 {
		n = 0
	}
	if n > 20 {
		n = 20
	}
	return base << n
}
