package smileid

import (
	"context"
	"testing"

	smileidcommand "github.com/afrimobile/go-smileid/command"
	"github.com/afrimobile/go-smileid/core"
	smileidquery "github.com/afrimobile/go-smileid/query"
	gocmd "github.com/goliatone/go-command"
)

type stubFacadeService struct {
	lastUpdateLinkID string
}

func (s *stubFacadeService) CreateSingleUseLink(_ context.Context, req core.LinkRequest) (core.LinkResult, error) {
	return core.LinkResult{Success: true, LinkID: "lnk_1", UserID: req.UserID}, nil
}

func (s *stubFacadeService) CreateMultiplePersonalLinks(_ context.Context, users []core.BatchUser) ([]core.BatchLinkResult, error) {
	out := make([]core.BatchLinkResult, 0, len(users))
	for _, user := range users {
		out = append(out, core.BatchLinkResult{UserID: user.UserID})
	}
	return out, nil
}

func (s *stubFacadeService) UpdateLink(_ context.Context, linkID string, _ map[string]any) (core.ProviderResponse, error) {
	s.lastUpdateLinkID = linkID
	return core.ProviderResponse{"success": true}, nil
}

func (s *stubFacadeService) GetLinkInfo(_ context.Context, linkID string) (core.ProviderResponse, error) {
	return core.ProviderResponse{"ref_id": linkID}, nil
}

type stubOutcomeReader struct{}

func (stubOutcomeReader) GetOutcome(_ context.Context, jobID string) (core.VerificationRecord, error) {
	return core.VerificationRecord{JobID: jobID, Outcome: core.OutcomeFailure}, nil
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{}, WithOutcomeReader(stubOutcomeReader{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.CreateLink == nil || commands.BatchLinks == nil || commands.UpdateLink == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.LinkInfo == nil || queries.ListLinks == nil || queries.GetOutcome == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc, WithOutcomeReader(stubOutcomeReader{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.ProviderResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().UpdateLink.Execute(ctx, smileidcommand.UpdateLinkMessage{
		LinkID:  "lnk_7",
		Updates: map[string]any{"is_active": false},
	}); err != nil {
		t.Fatalf("execute update command: %v", err)
	}
	if svc.lastUpdateLinkID != "lnk_7" {
		t.Fatalf("unexpected update delegation payload")
	}
	if stored, ok := collector.Load(); !ok || stored["success"] != true {
		t.Fatalf("expected update response to be stored, got %#v", stored)
	}

	outcome, err := facade.Queries().GetOutcome.Query(context.Background(), smileidquery.GetOutcomeMessage{JobID: "job-1"})
	if err != nil {
		t.Fatalf("query outcome: %v", err)
	}
	if outcome.JobID != "job-1" || outcome.Outcome != core.OutcomeFailure {
		t.Fatalf("unexpected outcome query result: %#v", outcome)
	}

	if _, err := facade.Queries().ListLinks.Query(context.Background(), smileidquery.ListLinksMessage{UserID: "u1"}); err == nil {
		t.Fatalf("expected missing link reader to be reported")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
