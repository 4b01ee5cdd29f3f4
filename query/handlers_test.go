package query

import (
	"context"
	"testing"

	"github.com/afrimobile/go-smileid/core"
	goerrors "github.com/goliatone/go-errors"
)

type stubLinkInfoReader struct {
	got string
}

func (s *stubLinkInfoReader) GetLinkInfo(_ context.Context, linkID string) (core.ProviderResponse, error) {
	s.got = linkID
	return core.ProviderResponse{"ref_id": linkID, "is_active": true}, nil
}

type stubIssuedLinkReader struct{}

func (stubIssuedLinkReader) ListByUser(_ context.Context, userID string, limit int) ([]core.IssuedLink, error) {
	out := []core.IssuedLink{{LinkID: "a", UserID: userID}, {LinkID: "b", UserID: userID}}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type stubOutcomeReader struct{}

func (stubOutcomeReader) GetOutcome(_ context.Context, jobID string) (core.VerificationRecord, error) {
	return core.VerificationRecord{JobID: jobID, Outcome: core.OutcomeSuccess}, nil
}

func TestLinkInfoQuery_Delegates(t *testing.T) {
	reader := &stubLinkInfoReader{}
	out, err := NewLinkInfoQuery(reader).Query(context.Background(), LinkInfoMessage{LinkID: "lnk_1"})
	if err != nil {
		t.Fatalf("query link info: %v", err)
	}
	if reader.got != "lnk_1" || out["ref_id"] != "lnk_1" {
		t.Fatalf("unexpected link info: %#v", out)
	}
}

func TestListLinksQuery_Delegates(t *testing.T) {
	out, err := NewListLinksQuery(stubIssuedLinkReader{}).Query(context.Background(), ListLinksMessage{UserID: "u1", Limit: 1})
	if err != nil {
		t.Fatalf("query links: %v", err)
	}
	if len(out) != 1 || out[0].UserID != "u1" {
		t.Fatalf("unexpected links: %#v", out)
	}
}

func TestGetOutcomeQuery_Delegates(t *testing.T) {
	out, err := NewGetOutcomeQuery(stubOutcomeReader{}).Query(context.Background(), GetOutcomeMessage{JobID: "job-1"})
	if err != nil {
		t.Fatalf("query outcome: %v", err)
	}
	if out.JobID != "job-1" || out.Outcome != core.OutcomeSuccess {
		t.Fatalf("unexpected outcome: %#v", out)
	}
}

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var q *GetOutcomeQuery
	_, err := q.Query(context.Background(), GetOutcomeMessage{JobID: "job-1"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ErrorInternal, rich.TextCode)
	}
}

func TestMessages_ValidateRequiredFields(t *testing.T) {
	for name, msg := range map[string]interface{ Validate() error }{
		"link info": LinkInfoMessage{},
		"list":      ListLinksMessage{},
		"limit":     ListLinksMessage{UserID: "u1", Limit: -1},
		"outcome":   GetOutcomeMessage{JobID: "  "},
	} {
		if err := msg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
