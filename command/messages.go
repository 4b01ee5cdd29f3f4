package command

import (
	"fmt"
	"strings"

	"github.com/afrimobile/go-smileid/core"
)

const (
	TypeCreateLink  = "smileid.command.link.create"
	TypeBatchLinks  = "smileid.command.link.batch"
	TypeUpdateLink  = "smileid.command.link.update"
	maxBatchEntries = 1000
)

type CreateLinkMessage struct {
	Request core.LinkRequest
}

func (CreateLinkMessage) Type() string { return TypeCreateLink }

func (m CreateLinkMessage) Validate() error {
	for i, spec := range m.Request.IDTypes {
		if strings.TrimSpace(spec.Country) == "" || strings.TrimSpace(spec.IDType) == "" {
			return commandValidationError(fmt.Sprintf("id_types[%d]", i), "country and id_type are required")
		}
	}
	return nil
}

type BatchLinksMessage struct {
	Users []core.BatchUser
}

func (BatchLinksMessage) Type() string { return TypeBatchLinks }

func (m BatchLinksMessage) Validate() error {
	if len(m.Users) == 0 {
		return commandValidationError("users", "at least one user is required")
	}
	if len(m.Users) > maxBatchEntries {
		return commandValidationError("users", fmt.Sprintf("at most %d users per batch", maxBatchEntries))
	}
	return nil
}

type UpdateLinkMessage struct {
	LinkID  string
	Updates map[string]any
}

func (UpdateLinkMessage) Type() string { return TypeUpdateLink }

func (m UpdateLinkMessage) Validate() error {
	if strings.TrimSpace(m.LinkID) == "" {
		return commandValidationError("link_id", "link id is required")
	}
	if len(m.Updates) == 0 {
		return commandValidationError("updates", "at least one field to update is required")
	}
	return nil
}
