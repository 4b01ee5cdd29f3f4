package webhooks

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/afrimobile/go-smileid/core"
)

const (
	testPartnerID = "partner-123"
	testSecret    = "secret-abc"
	testTimestamp = "2026-02-13T12:00:00.000Z"
)

type recordingSink struct {
	success []core.VerificationRecord
	failure []core.VerificationRecord
	other   []core.VerificationRecord
	err     error
	panic   bool
}

func (s *recordingSink) Success(_ context.Context, record core.VerificationRecord) error {
	if s.panic {
		panic("boom")
	}
	s.success = append(s.success, record)
	return s.err
}

func (s *recordingSink) Failure(_ context.Context, record core.VerificationRecord) error {
	s.failure = append(s.failure, record)
	return s.err
}

func (s *recordingSink) Other(_ context.Context, record core.VerificationRecord) error {
	s.other = append(s.other, record)
	return s.err
}

func (s *recordingSink) total() int {
	return len(s.success) + len(s.failure) + len(s.other)
}

func fixedNow() time.Time {
	return time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
}

func newTestProcessor(t *testing.T, sink core.OutcomeSink, requireSignature bool, opts ...ProcessorOption) *Processor {
	t.Helper()
	verifier := NewSignatureVerifier(core.Credentials{PartnerID: testPartnerID, SecretKey: testSecret}, requireSignature)
	opts = append([]ProcessorOption{WithClock(fixedNow)}, opts...)
	return NewProcessor(verifier, sink, opts...)
}

func signedHeaders(t *testing.T) map[string]string {
	t.Helper()
	signature, err := core.Sign(testSecret, testTimestamp, testPartnerID)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return map[string]string{
		"X-Signature": signature,
		"X-Timestamp": testTimestamp,
	}
}

func TestProcessorDispatchesByResultCode(t *testing.T) {
	cases := []struct {
		name string
		body string
		want core.Outcome
	}{
		{name: "success", body: `{"job_id":"job-1","user_id":"u1","result_code":"2814"}`, want: core.OutcomeSuccess},
		{name: "failure", body: `{"job_id":"job-2","user_id":"u1","ResultCode":"2815"}`, want: core.OutcomeFailure},
		{name: "other", body: `{"job_id":"job-3","user_id":"u1","result_code":"1020"}`, want: core.OutcomeOther},
		{name: "missing code", body: `{"job_id":"job-4","user_id":"u1"}`, want: core.OutcomeOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			processor := newTestProcessor(t, sink, false)

			result, err := processor.Handle(context.Background(), core.InboundRequest{
				Headers: signedHeaders(t),
				Body:    []byte(tc.body),
			})
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			if result.StatusCode != http.StatusOK || !result.Accepted {
				t.Fatalf("expected accepted 200, got %+v", result)
			}
			if result.Outcome != tc.want {
				t.Fatalf("expected outcome %q, got %q", tc.want, result.Outcome)
			}
			total := len(sink.success) + len(sink.failure) + len(sink.other)
			if total != 1 {
				t.Fatalf("expected exactly one dispatch, got %d", total)
			}
		})
	}
}

func TestProcessorRejectsBadSignature(t *testing.T) {
	sink := &recordingSink{}
	processor := newTestProcessor(t, sink, false)

	headers := signedHeaders(t)
	headers["X-Signature"] = "forged"
	result, err := processor.Handle(context.Background(), core.InboundRequest{
		Headers: headers,
		Body:    []byte(`{"job_id":"job-1","result_code":"2814"}`),
	})
	if err == nil {
		t.Fatalf("expected signature error")
	}
	if result.StatusCode != http.StatusUnauthorized || result.Accepted {
		t.Fatalf("expected rejected 401, got %+v", result)
	}
	if core.HTTPStatus(err) != http.StatusUnauthorized {
		t.Fatalf("expected error to map to 401, got %d", core.HTTPStatus(err))
	}
	if len(sink.success) != 0 {
		t.Fatalf("expected no dispatch after rejected signature")
	}
}

func TestProcessorAcceptsFallbackHeaderNames(t *testing.T) {
	sink := &recordingSink{}
	processor := newTestProcessor(t, sink, true)

	signed := signedHeaders(t)
	result, err := processor.Handle(context.Background(), core.InboundRequest{
		Headers: map[string]string{
			"signature": signed["X-Signature"],
			"timestamp": signed["X-Timestamp"],
		},
		Body: []byte(`{"job_id":"job-1","result_code":"2814"}`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.StatusCode != http.StatusOK || len(sink.success) != 1 {
		t.Fatalf("expected fallback headers to verify, got %+v", result)
	}
}

func TestProcessorSignatureModes(t *testing.T) {
	body := []byte(`{"job_id":"job-1","result_code":"2814"}`)

	lenient := newTestProcessor(t, &recordingSink{}, false)
	result, err := lenient.Handle(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Signature": "only-signature"},
		Body:    body,
	})
	if err != nil || result.StatusCode != http.StatusOK {
		t.Fatalf("expected lenient mode to skip verification, got %+v err=%v", result, err)
	}

	strict := newTestProcessor(t, &recordingSink{}, true)
	result, err = strict.Handle(context.Background(), core.InboundRequest{Body: body})
	if err == nil || result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected strict mode to reject unsigned callback, got %+v err=%v", result, err)
	}
}

func TestProcessorFailsMalformedBody(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `{not json`} {
		sink := &recordingSink{}
		processor := newTestProcessor(t, sink, false)

		result, err := processor.Handle(context.Background(), core.InboundRequest{Body: []byte(raw)})
		if err == nil {
			t.Fatalf("expected decode error for %q", raw)
		}
		if result.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500 for %q, got %d", raw, result.StatusCode)
		}
		if result.Accepted || sink.total() != 0 {
			t.Fatalf("expected nothing dispatched for %q", raw)
		}
	}
}

func TestProcessorSinkFailures(t *testing.T) {
	body := []byte(`{"job_id":"job-1","result_code":"2814"}`)

	failing := newTestProcessor(t, &recordingSink{err: errors.New("db down")}, false)
	result, err := failing.Handle(context.Background(), core.InboundRequest{Body: body})
	if err == nil || result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on sink error, got %+v err=%v", result, err)
	}

	panicking := newTestProcessor(t, &recordingSink{panic: true}, false)
	result, err = panicking.Handle(context.Background(), core.InboundRequest{Body: body})
	if err == nil || result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on sink panic, got %+v err=%v", result, err)
	}
	if core.HTTPStatus(err) != http.StatusInternalServerError {
		t.Fatalf("expected panic to map to internal error, got %d", core.HTTPStatus(err))
	}
}

func TestProcessorDedupesReplayedCallbacks(t *testing.T) {
	sink := &recordingSink{}
	ledger := core.NewMemoryReplayLedger(time.Hour, 16)
	ledger.Now = fixedNow
	processor := newTestProcessor(t, sink, false, WithReplayLedger(ledger, time.Hour))

	req := core.InboundRequest{Body: []byte(`{"job_id":"job-1","result_code":"2814"}`)}
	if _, err := processor.Handle(context.Background(), req); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := processor.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if result.StatusCode != http.StatusOK || result.Metadata["deduped"] != true {
		t.Fatalf("expected deduped 200, got %+v", result)
	}
	if len(sink.success) != 1 {
		t.Fatalf("expected a single dispatch, got %d", len(sink.success))
	}
}

func TestProcessorReleasesClaimWhenDispatchFails(t *testing.T) {
	sink := &recordingSink{err: errors.New("database unavailable")}
	ledger := core.NewMemoryReplayLedger(time.Hour, 16)
	ledger.Now = fixedNow
	processor := newTestProcessor(t, sink, false, WithReplayLedger(ledger, time.Hour))

	req := core.InboundRequest{Body: []byte(`{"job_id":"job-2","result_code":"2815"}`)}
	if _, err := processor.Handle(context.Background(), req); err == nil {
		t.Fatalf("expected sink error on first delivery")
	}
	if ledger.Len() != 0 {
		t.Fatalf("expected failed delivery to release its claim, ledger has %d keys", ledger.Len())
	}

	sink.err = nil
	result, err := processor.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if result.Metadata["deduped"] == true || len(sink.failure) != 2 {
		t.Fatalf("expected redelivery to be dispatched, got %+v (failures=%d)", result, len(sink.failure))
	}
}

func TestNormalizeCollapsesFieldVariants(t *testing.T) {
	payload, err := DecodePayload([]byte(`{
		"job_id": "job-9",
		"ResultCode": "2815",
		"ResultText": "Document expired",
		"confidence": 87.5,
		"partner_params": {"user_id": "user-7", "job_type": 11},
		"Actions": {"Liveness_Check": "Passed"}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	record := Normalize(payload, fixedNow())

	if record.UserID != "user-7" {
		t.Fatalf("expected user id from partner params, got %q", record.UserID)
	}
	if record.ResultCode != "2815" || record.ResultText != "Document expired" {
		t.Fatalf("expected capitalized variants to be read, got %+v", record)
	}
	if record.Outcome != core.OutcomeFailure {
		t.Fatalf("expected failure outcome, got %q", record.Outcome)
	}
	if record.Confidence != 87.5 {
		t.Fatalf("expected numeric confidence, got %#v", record.Confidence)
	}
	if record.Actions["Liveness_Check"] != "Passed" {
		t.Fatalf("expected actions to be kept, got %#v", record.Actions)
	}
	if !record.ReceivedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected received at %v", record.ReceivedAt)
	}
}

func TestNormalizeClassifiesAcrossCodeSpellings(t *testing.T) {
	cases := []struct {
		body        string
		wantOutcome core.Outcome
		wantCode    string
	}{
		{`{"job_id":"j1","result_code":"0810","ResultCode":"2814"}`, core.OutcomeSuccess, "2814"},
		{`{"job_id":"j2","result_code":"2815","ResultCode":"2814"}`, core.OutcomeSuccess, "2814"},
		{`{"job_id":"j3","result_code":"1020","ResultCode":"2815"}`, core.OutcomeFailure, "2815"},
		{`{"job_id":"j4","result_code":"1020","ResultCode":"0810"}`, core.OutcomeOther, "1020"},
	}
	for _, tc := range cases {
		payload, err := DecodePayload([]byte(tc.body))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.body, err)
		}
		record := Normalize(payload, fixedNow())
		if record.Outcome != tc.wantOutcome || record.ResultCode != tc.wantCode {
			t.Fatalf("%s: expected %s/%s, got %s/%s", tc.body, tc.wantOutcome, tc.wantCode, record.Outcome, record.ResultCode)
		}
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{err: errors.New("notify failed")}
	var called bool
	sink := MultiSink{first, second, SinkFuncs{OnFailure: func(context.Context, core.VerificationRecord) error {
		called = true
		return nil
	}}}

	err := Dispatch(context.Background(), sink, core.VerificationRecord{Outcome: core.OutcomeFailure})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(first.failure) != 1 || len(second.failure) != 1 || !called {
		t.Fatalf("expected every sink to receive the record")
	}
}
