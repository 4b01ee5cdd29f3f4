package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"
)

const SurfaceSmileID = "smileid"

type Handler interface {
	Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// Processor turns a raw callback into a dispatched VerificationRecord.
//
// Status codes follow the callback contract: 401 when the signature check
// fails, 400 when the body is not a JSON object, 500 when the sink fails or
// panics, 200 otherwise.
// A callback whose replay key was already claimed is acknowledged with 200 and
// not dispatched again.
type Processor struct {
	Verifier  Verifier
	Sink      core.OutcomeSink
	Ledger    core.ReplayLedger
	ReplayTTL time.Duration
	Logger    core.Logger
	Observer  core.Observer
	Now       func() time.Time
}

type ProcessorOption func(*Processor)

func WithReplayLedger(ledger core.ReplayLedger, ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.Ledger = ledger
		if ttl > 0 {
			p.ReplayTTL = ttl
		}
	}
}

func WithLogger(logger core.Logger) ProcessorOption {
	return func(p *Processor) {
		p.Logger = logger
		p.Observer.Logger = logger
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) ProcessorOption {
	return func(p *Processor) {
		if metrics != nil {
			p.Observer.Metrics = metrics
		}
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.Now = now
		}
	}
}

func NewProcessor(verifier Verifier, sink core.OutcomeSink, opts ...ProcessorOption) *Processor {
	p := &Processor{
		Verifier:  verifier,
		Sink:      sink,
		ReplayTTL: 24 * time.Hour,
		Observer:  core.NewObserver(nil, nil),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.Sink == nil {
		p.Sink = NewLoggingSink(p.Logger)
	}
	return p
}

func (p *Processor) Handle(ctx context.Context, req core.InboundRequest) (result core.InboundResult, err error) {
	if p == nil {
		return core.InboundResult{}, fmt.Errorf("webhooks: processor is not configured")
	}
	startedAt := time.Now()
	fields := map[string]any{"surface": surface(req)}
	defer func() {
		fields["status_code"] = result.StatusCode
		if result.Outcome != "" {
			fields["outcome"] = string(result.Outcome)
		}
		p.Observer.Observe(ctx, startedAt, "webhook.process", err, fields)
	}()

	payload, err := DecodePayload(req.Body)
	if err != nil {
		return failed(http.StatusInternalServerError, "decode"), err
	}

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			return failed(http.StatusUnauthorized, "signature"), err
		}
	}

	record := Normalize(payload, p.now())
	fields["job_id"] = record.JobID
	fields["user_id"] = record.UserID
	fields["result_code"] = record.ResultCode

	metadata := map[string]any{
		"job_id":  record.JobID,
		"user_id": record.UserID,
	}
	claimedKey := ""
	if key := ReplayKey(record); key != "" && p.Ledger != nil {
		claimed, claimErr := p.Ledger.Claim(ctx, key, p.ReplayTTL)
		if claimErr != nil {
			return failed(http.StatusInternalServerError, "replay"), claimErr
		}
		if !claimed {
			metadata["deduped"] = true
			return core.InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Outcome:    record.Outcome,
				Record:     &record,
				Metadata:   metadata,
			}, nil
		}
		claimedKey = key
	}

	if err := p.dispatch(ctx, record); err != nil {
		p.release(ctx, claimedKey)
		return failed(http.StatusInternalServerError, "dispatch"), err
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Outcome:    record.Outcome,
		Record:     &record,
		Metadata:   metadata,
	}, nil
}

func (p *Processor) dispatch(ctx context.Context, record core.VerificationRecord) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = core.NewInternalError(nil, fmt.Sprintf("webhooks: outcome sink panicked: %v", recovered))
		}
	}()
	return Dispatch(ctx, p.Sink, record)
}

func (p *Processor) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	releaser, ok := p.Ledger.(core.ReplayReleaser)
	if !ok {
		return
	}
	if err := releaser.Release(ctx, key); err != nil {
		core.LogWithFields(ctx, p.Logger, "warn", "release replay claim failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// ReplayKey identifies one delivery of one job result. Callbacks without a
// job id are never deduplicated.
func ReplayKey(record core.VerificationRecord) string {
	jobID := strings.TrimSpace(record.JobID)
	if jobID == "" {
		jobID = strings.TrimSpace(record.SmileJobID)
	}
	if jobID == "" {
		return ""
	}
	return jobID + ":" + record.ResultCode
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func failed(status int, stage string) core.InboundResult {
	return core.InboundResult{
		Accepted:   false,
		StatusCode: status,
		Metadata: map[string]any{
			"rejected": true,
			"stage":    stage,
		},
	}
}

func surface(req core.InboundRequest) string {
	if value := strings.TrimSpace(req.Surface); value != "" {
		return value
	}
	return SurfaceSmileID
}

var _ Handler = (*Processor)(nil)
