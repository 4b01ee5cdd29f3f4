package query

import (
	"context"

	"github.com/afrimobile/go-smileid/core"
)

type LinkInfoReader interface {
	GetLinkInfo(ctx context.Context, linkID string) (core.ProviderResponse, error)
}

type IssuedLinkReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]core.IssuedLink, error)
}

type OutcomeReader interface {
	GetOutcome(ctx context.Context, jobID string) (core.VerificationRecord, error)
}

type LinkInfoQuery struct {
	reader LinkInfoReader
}

func NewLinkInfoQuery(reader LinkInfoReader) *LinkInfoQuery {
	return &LinkInfoQuery{reader: reader}
}

func (q *LinkInfoQuery) Query(ctx context.Context, msg LinkInfoMessage) (core.ProviderResponse, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: link info reader is required")
	}
	return q.reader.GetLinkInfo(ctx, msg.LinkID)
}

type ListLinksQuery struct {
	reader IssuedLinkReader
}

func NewListLinksQuery(reader IssuedLinkReader) *ListLinksQuery {
	return &ListLinksQuery{reader: reader}
}

func (q *ListLinksQuery) Query(ctx context.Context, msg ListLinksMessage) ([]core.IssuedLink, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: issued link reader is required")
	}
	return q.reader.ListByUser(ctx, msg.UserID, msg.Limit)
}

type GetOutcomeQuery struct {
	reader OutcomeReader
}

func NewGetOutcomeQuery(reader OutcomeReader) *GetOutcomeQuery {
	return &GetOutcomeQuery{reader: reader}
}

func (q *GetOutcomeQuery) Query(ctx context.Context, msg GetOutcomeMessage) (core.VerificationRecord, error) {
	if q == nil || q.reader == nil {
		return core.VerificationRecord{}, queryDependencyError("query: outcome reader is required")
	}
	return q.reader.GetOutcome(ctx, msg.JobID)
}
