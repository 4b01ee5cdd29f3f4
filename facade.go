package smileid

import (
	"fmt"

	smileidcommand "github.com/afrimobile/go-smileid/command"
	smileidquery "github.com/afrimobile/go-smileid/query"
)

type CommandQueryService interface {
	smileidcommand.LinkService
	smileidquery.LinkInfoReader
}

type Commands struct {
	CreateLink *smileidcommand.CreateLinkCommand
	BatchLinks *smileidcommand.BatchLinksCommand
	UpdateLink *smileidcommand.UpdateLinkCommand
}

type Queries struct {
	LinkInfo   *smileidquery.LinkInfoQuery
	ListLinks  *smileidquery.ListLinksQuery
	GetOutcome *smileidquery.GetOutcomeQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	linkReader    smileidquery.IssuedLinkReader
	outcomeReader smileidquery.OutcomeReader
}

func WithIssuedLinkReader(reader smileidquery.IssuedLinkReader) FacadeOption {
	return func(options *facadeOptions) {
		options.linkReader = reader
	}
}

func WithOutcomeReader(reader smileidquery.OutcomeReader) FacadeOption {
	return func(options *facadeOptions) {
		options.outcomeReader = reader
	}
}

// NewFacade binds the go-command handlers to service. Stored-link and outcome
// readers default to service itself when it implements them; otherwise the
// matching queries report a missing dependency.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("smileid: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.linkReader == nil {
		cfg.linkReader, _ = service.(smileidquery.IssuedLinkReader)
	}
	if cfg.outcomeReader == nil {
		cfg.outcomeReader, _ = service.(smileidquery.OutcomeReader)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateLink: smileidcommand.NewCreateLinkCommand(service),
		BatchLinks: smileidcommand.NewBatchLinksCommand(service),
		UpdateLink: smileidcommand.NewUpdateLinkCommand(service),
	}
	facade.queries = Queries{
		LinkInfo:   smileidquery.NewLinkInfoQuery(service),
		ListLinks:  smileidquery.NewListLinksQuery(cfg.linkReader),
		GetOutcome: smileidquery.NewGetOutcomeQuery(cfg.outcomeReader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Client)(nil)
