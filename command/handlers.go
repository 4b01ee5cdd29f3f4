package command

import (
	"context"

	"github.com/afrimobile/go-smileid/core"
	gocmd "github.com/goliatone/go-command"
)

// LinkService is the mutating half of the link issuer.
type LinkService interface {
	CreateSingleUseLink(ctx context.Context, req core.LinkRequest) (core.LinkResult, error)
	CreateMultiplePersonalLinks(ctx context.Context, users []core.BatchUser) ([]core.BatchLinkResult, error)
	UpdateLink(ctx context.Context, linkID string, updates map[string]any) (core.ProviderResponse, error)
}

type CreateLinkCommand struct {
	service LinkService
}

func NewCreateLinkCommand(service LinkService) *CreateLinkCommand {
	return &CreateLinkCommand{service: service}
}

func (c *CreateLinkCommand) Execute(ctx context.Context, msg CreateLinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.CreateSingleUseLink(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type BatchLinksCommand struct {
	service LinkService
}

func NewBatchLinksCommand(service LinkService) *BatchLinksCommand {
	return &BatchLinksCommand{service: service}
}

// Execute stores the per-user results even when the batch stopped early.
func (c *BatchLinksCommand) Execute(ctx context.Context, msg BatchLinksMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.CreateMultiplePersonalLinks(ctx, msg.Users)
	if out != nil {
		storeResult(ctx, out)
	}
	return err
}

type UpdateLinkCommand struct {
	service LinkService
}

func NewUpdateLinkCommand(service LinkService) *UpdateLinkCommand {
	return &UpdateLinkCommand{service: service}
}

func (c *UpdateLinkCommand) Execute(ctx context.Context, msg UpdateLinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.UpdateLink(ctx, msg.LinkID, msg.Updates)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
