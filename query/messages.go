package query

import (
	"strings"
)

const (
	TypeLinkInfo   = "smileid.query.link.info"
	TypeListLinks  = "smileid.query.link.list"
	TypeGetOutcome = "smileid.query.outcome.get"
)

type LinkInfoMessage struct {
	LinkID string
}

func (LinkInfoMessage) Type() string { return TypeLinkInfo }

func (m LinkInfoMessage) Validate() error {
	if strings.TrimSpace(m.LinkID) == "" {
		return queryValidationError("link_id", "link id is required")
	}
	return nil
}

type ListLinksMessage struct {
	UserID string
	Limit  int
}

func (ListLinksMessage) Type() string { return TypeListLinks }

func (m ListLinksMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type GetOutcomeMessage struct {
	JobID string
}

func (GetOutcomeMessage) Type() string { return TypeGetOutcome }

func (m GetOutcomeMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return queryValidationError("job_id", "job id is required")
	}
	return nil
}
