package gojob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDBatchLinks = "smileid.links.batch"

	paramUsers = "users"
)

// RetryPolicy bounds how often a failed batch is requeued.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NackOptions returns the nack for a failed attempt. Delay doubles per
// attempt from BaseDelay and is capped at MaxDelay.
func (p RetryPolicy) NackOptions(attempt int, reason string) queue.NackOptions {
	out := queue.NackOptions{
		Requeue: true,
		Reason:  strings.TrimSpace(reason),
	}
	if p.BaseDelay > 0 {
		delay := p.BaseDelay
		for i := 1; i < attempt && (p.MaxDelay <= 0 || delay < p.MaxDelay); i++ {
			delay *= 2
		}
		out.Delay = delay
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.DeadLetter = p.DeadLetterOnMax
	}
	return out
}

// NewBatchMessage wraps users into a go-job execution message.
func NewBatchMessage(users []core.BatchUser, idempotencyKey string) (*job.ExecutionMessage, error) {
	if len(users) == 0 {
		return nil, core.NewBadInputError("gojob: at least one user is required", nil)
	}
	copied := make([]core.BatchUser, len(users))
	copy(copied, users)
	return &job.ExecutionMessage{
		JobID:          JobIDBatchLinks,
		ScriptPath:     JobIDBatchLinks,
		Parameters:     map[string]any{paramUsers: copied},
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}, nil
}

// DecodeBatchUsers reads the users parameter. Messages that went through a
// JSON backed queue carry generic maps, so those are re-decoded.
func DecodeBatchUsers(msg *job.ExecutionMessage) ([]core.BatchUser, error) {
	if msg == nil {
		return nil, core.NewBadInputError("gojob: execution message is required", nil)
	}
	if strings.TrimSpace(msg.JobID) != JobIDBatchLinks {
		return nil, core.NewBadInputError("gojob: unexpected job id", map[string]any{"job_id": msg.JobID})
	}
	raw, ok := msg.Parameters[paramUsers]
	if !ok || raw == nil {
		return nil, core.NewBadInputError("gojob: users parameter is required", nil)
	}
	if users, ok := raw.([]core.BatchUser); ok {
		return users, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, core.NewDecodeError(err, "gojob: encode users parameter")
	}
	var users []core.BatchUser
	if err := json.Unmarshal(encoded, &users); err != nil {
		return nil, core.NewDecodeError(err, "gojob: decode users parameter")
	}
	return users, nil
}

// Enqueue schedules a batch run.
func Enqueue(ctx context.Context, enqueuer queue.Enqueuer, users []core.BatchUser, idempotencyKey string) error {
	if enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := NewBatchMessage(users, idempotencyKey)
	if err != nil {
		return err
	}
	return enqueuer.Enqueue(ctx, msg)
}

type BatchIssuer interface {
	CreateMultiplePersonalLinks(ctx context.Context, users []core.BatchUser) ([]core.BatchLinkResult, error)
}

type BatchWorker struct {
	issuer   BatchIssuer
	policy   RetryPolicy
	logger   core.Logger
	onResult func(ctx context.Context, results []core.BatchLinkResult) error
}

type WorkerOption func(*BatchWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *BatchWorker) {
		w.policy = policy
	}
}

func WithLogger(logger core.Logger) WorkerOption {
	return func(w *BatchWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResultHandler receives the per-user results of every completed run.
func WithResultHandler(fn func(ctx context.Context, results []core.BatchLinkResult) error) WorkerOption {
	return func(w *BatchWorker) {
		w.onResult = fn
	}
}

func NewBatchWorker(issuer BatchIssuer, opts ...WorkerOption) *BatchWorker {
	w := &BatchWorker{issuer: issuer}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Process runs one delivery. Undecodable messages are dead-lettered since a
// retry cannot fix them; issuer errors are nacked under the retry policy.
// Per-user failures inside a finished run are reported, not retried.
func (w *BatchWorker) Process(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if w == nil || w.issuer == nil {
		return fmt.Errorf("gojob: batch issuer is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	users, err := DecodeBatchUsers(delivery.Message())
	if err != nil {
		if nackErr := delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()}); nackErr != nil {
			return nackErr
		}
		return err
	}

	results, err := w.issuer.CreateMultiplePersonalLinks(ctx, users)
	if err != nil {
		core.LogWithFields(ctx, w.logger, "warn", "batch link run failed", map[string]any{
			"attempt":   attempt,
			"users":     len(users),
			"completed": len(results),
			"error":     err.Error(),
		})
		if nackErr := delivery.Nack(ctx, w.policy.NackOptions(attempt, err.Error())); nackErr != nil {
			return nackErr
		}
		return err
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	core.LogWithFields(ctx, w.logger, "info", "batch link run completed", map[string]any{
		"users":  len(users),
		"failed": failed,
	})
	if w.onResult != nil {
		if err := w.onResult(ctx, results); err != nil {
			core.LogWithFields(ctx, w.logger, "warn", "batch result handler failed", map[string]any{"error": err.Error()})
		}
	}
	return delivery.Ack(ctx)
}

// LoggingHook reports go-job worker lifecycle events.
type LoggingHook struct {
	Logger core.Logger
}

func (h LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, "debug", "batch job started", event)
}

func (h LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, "info", "batch job succeeded", event)
}

func (h LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "error", "batch job failed", event)
}

func (h LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "warn", "batch job retry scheduled", event)
}

func (h LoggingHook) log(ctx context.Context, level, message string, event worker.Event) {
	core.LogWithFields(ctx, h.Logger, level, message, eventFields(event))
}

func eventFields(event worker.Event) map[string]any {
	fields := map[string]any{"attempt": event.Attempt}
	msg := event.Message
	if msg == nil && event.Delivery != nil {
		msg = event.Delivery.Message()
	}
	if msg != nil {
		fields["job_id"] = msg.JobID
		if msg.IdempotencyKey != "" {
			fields["idempotency_key"] = msg.IdempotencyKey
		}
	}
	if event.Delay > 0 {
		fields["delay_ms"] = event.Delay.Milliseconds()
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	return fields
}

var _ worker.Hook = LoggingHook{}
