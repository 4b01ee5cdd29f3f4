package webhooks

import (
	"context"
	"errors"

	"github.com/afrimobile/go-smileid/core"
)

// Dispatch routes record to the sink method matching its outcome.
func Dispatch(ctx context.Context, sink core.OutcomeSink, record core.VerificationRecord) error {
	if sink == nil {
		return nil
	}
	switch record.Outcome {
	case core.OutcomeSuccess:
		return sink.Success(ctx, record)
	case core.OutcomeFailure:
		return sink.Failure(ctx, record)
	default:
		return sink.Other(ctx, record)
	}
}

// LoggingSink reports each outcome to the logger and nothing else.
type LoggingSink struct {
	Logger core.Logger
}

func NewLoggingSink(logger core.Logger) LoggingSink {
	return LoggingSink{Logger: logger}
}

func (s LoggingSink) Success(ctx context.Context, record core.VerificationRecord) error {
	core.LogWithFields(ctx, s.Logger, "info", "verification successful", recordFields(record))
	return nil
}

func (s LoggingSink) Failure(ctx context.Context, record core.VerificationRecord) error {
	core.LogWithFields(ctx, s.Logger, "warn", "verification failed", recordFields(record))
	return nil
}

func (s LoggingSink) Other(ctx context.Context, record core.VerificationRecord) error {
	core.LogWithFields(ctx, s.Logger, "info", "verification result received", recordFields(record))
	return nil
}

func recordFields(record core.VerificationRecord) map[string]any {
	fields := map[string]any{
		"user_id":     record.UserID,
		"job_id":      record.JobID,
		"result_code": record.ResultCode,
		"result_text": record.ResultText,
		"outcome":     string(record.Outcome),
	}
	if record.SmileJobID != "" {
		fields["smile_job_id"] = record.SmileJobID
	}
	if record.Confidence != nil {
		fields["confidence"] = record.Confidence
	}
	return fields
}

// MultiSink fans a record out to every sink in order and joins their errors.
type MultiSink []core.OutcomeSink

func (m MultiSink) Success(ctx context.Context, record core.VerificationRecord) error {
	return m.each(ctx, record)
}

func (m MultiSink) Failure(ctx context.Context, record core.VerificationRecord) error {
	return m.each(ctx, record)
}

func (m MultiSink) Other(ctx context.Context, record core.VerificationRecord) error {
	return m.each(ctx, record)
}

func (m MultiSink) each(ctx context.Context, record core.VerificationRecord) error {
	var errs []error
	for _, sink := range m {
		if err := Dispatch(ctx, sink, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFuncs adapts plain functions to OutcomeSink. Nil hooks are skipped.
type SinkFuncs struct {
	OnSuccess func(ctx context.Context, record core.VerificationRecord) error
	OnFailure func(ctx context.Context, record core.VerificationRecord) error
	OnOther   func(ctx context.Context, record core.VerificationRecord) error
}

func (s SinkFuncs) Success(ctx context.Context, record core.VerificationRecord) error {
	return call(ctx, s.OnSuccess, record)
}

func (s SinkFuncs) Failure(ctx context.Context, record core.VerificationRecord) error {
	return call(ctx, s.OnFailure, record)
}

func (s SinkFuncs) Other(ctx context.Context, record core.VerificationRecord) error {
	return call(ctx, s.OnOther, record)
}

func call(ctx context.Context, fn func(context.Context, core.VerificationRecord) error, record core.VerificationRecord) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, record)
}

var (
	_ core.OutcomeSink = LoggingSink{}
	_ core.OutcomeSink = MultiSink(nil)
	_ core.OutcomeSink = SinkFuncs{}
)
