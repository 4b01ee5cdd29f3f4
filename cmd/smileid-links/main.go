package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	smileid "github.com/afrimobile/go-smileid"
	"github.com/afrimobile/go-smileid/adapters/gologger"
	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/internal/storage"
	smileidquery "github.com/afrimobile/go-smileid/query"
)

type cli struct {
	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"warn" help:"Log level (trace, debug, info, warn, error)."`

	Create createCmd `cmd:"" help:"Create a single-use personal verification link."`
	Batch  batchCmd  `cmd:"" help:"Create one personal link per user listed in a JSON file."`
	Info   infoCmd   `cmd:"" help:"Fetch a link from SmileID."`
	Update updateCmd `cmd:"" help:"Update fields of an existing link."`
	Links  linksCmd  `cmd:"" help:"Read links recorded in the database (requires DATABASE_DSN)."`
}

type app struct {
	ctx    context.Context
	client *smileid.Client
	facade *smileid.Facade
	store  *storage.Store
	out    io.Writer
}

type createCmd struct {
	UserID  string   `name:"user-id" help:"Partner user id; generated when empty."`
	Name    string   `help:"Link display name."`
	Company string   `help:"Company name shown on the link page."`
	IDType  []string `name:"id-type" help:"Accepted document as COUNTRY:ID_TYPE[:METHOD]. Repeatable."`
	Multi   bool     `help:"Allow the link to be used more than once."`
}

func (c *createCmd) Run(a *app) error {
	if err := requireWebhookURL(a.client.Config()); err != nil {
		return err
	}
	idTypes, err := parseIDTypes(c.IDType)
	if err != nil {
		return err
	}
	singleUse := !c.Multi
	result, err := a.client.CreateSingleUseLink(a.ctx, smileid.LinkRequest{
		UserID:      c.UserID,
		Name:        c.Name,
		CompanyName: c.Company,
		IDTypes:     idTypes,
		SingleUse:   &singleUse,
	})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("create link: %s", result.Error)
	}
	return writeJSON(a.out, result)
}

type batchCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON array of users ({user_id, name, email, custom_params})."`
}

func (c *batchCmd) Run(a *app) error {
	if err := requireWebhookURL(a.client.Config()); err != nil {
		return err
	}
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	var users []smileid.BatchUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return core.NewDecodeError(err, "decode batch file")
	}
	results, runErr := a.client.CreateMultiplePersonalLinks(a.ctx, users)
	if err := writeJSON(a.out, results); err != nil {
		return err
	}
	return runErr
}

type infoCmd struct {
	LinkID string `arg:"" name:"link-id" help:"Link id returned at creation."`
}

func (c *infoCmd) Run(a *app) error {
	info, err := a.client.GetLinkInfo(a.ctx, c.LinkID)
	if err != nil {
		return err
	}
	return writeJSON(a.out, info)
}

type updateCmd struct {
	LinkID string            `arg:"" name:"link-id" help:"Link id returned at creation."`
	Set    map[string]string `short:"s" help:"Field to update as key=value. Repeatable."`
	JSON   string            `name:"json" help:"JSON object merged over --set values."`
}

func (c *updateCmd) Run(a *app) error {
	updates := map[string]any{}
	for key, value := range c.Set {
		updates[key] = value
	}
	if strings.TrimSpace(c.JSON) != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(c.JSON), &extra); err != nil {
			return core.NewDecodeError(err, "decode --json updates")
		}
		for key, value := range extra {
			updates[key] = value
		}
	}
	if len(updates) == 0 {
		return core.NewBadInputError("no updates given; use --set or --json", nil)
	}
	response, err := a.client.UpdateLink(a.ctx, c.LinkID, updates)
	if err != nil {
		return err
	}
	if message, failed := response.ErrorMessage(); failed {
		return fmt.Errorf("update link: %s", message)
	}
	return writeJSON(a.out, response)
}

type linksCmd struct {
	Get  linksGetCmd  `cmd:"" help:"Show one recorded link."`
	List linksListCmd `cmd:"" help:"List recorded links of a user, newest first."`
}

type linksGetCmd struct {
	LinkID string `arg:"" name:"link-id" help:"Link id returned at creation."`
}

func (c *linksGetCmd) Run(a *app) error {
	if err := requireStore(a); err != nil {
		return err
	}
	link, err := a.store.Links.Get(a.ctx, c.LinkID)
	if err != nil {
		return err
	}
	return writeJSON(a.out, link)
}

type linksListCmd struct {
	UserID string `name:"user-id" required:"" help:"Partner user id."`
	Limit  int    `default:"20" help:"Maximum number of links (0 for all)."`
}

func (c *linksListCmd) Run(a *app) error {
	if err := requireStore(a); err != nil {
		return err
	}
	msg := smileidquery.ListLinksMessage{UserID: c.UserID, Limit: c.Limit}
	if err := msg.Validate(); err != nil {
		return err
	}
	links, err := a.facade.Queries().ListLinks.Query(a.ctx, msg)
	if err != nil {
		return err
	}
	return writeJSON(a.out, links)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...smileid.Option) error {
	var grammar cli
	parser, err := kong.New(&grammar,
		kong.Name("smileid-links"),
		kong.Description("Issue and manage SmileID personal verification links."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	provider := gologger.Provider{Root: gologger.NewSlogLogger(stderr, grammar.LogLevel)}
	clientOpts := append([]smileid.Option{
		smileid.WithEnvConfig(),
		smileid.WithLoggerProvider(provider),
	}, opts...)
	cfg, err := smileid.LoadConfig(smileid.Config{}, clientOpts...)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Database, gologger.Named(provider, "store"),
		storage.WithServiceName("smileid-links"),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	var facadeOpts []smileid.FacadeOption
	if store != nil {
		clientOpts = append(clientOpts, smileid.WithLinkRecorder(store.Links))
		facadeOpts = append(facadeOpts, smileid.WithIssuedLinkReader(store.Links))
	}
	client, err := smileid.New(cfg, clientOpts...)
	if err != nil {
		return err
	}
	facade, err := smileid.NewFacade(client, facadeOpts...)
	if err != nil {
		return err
	}
	return kctx.Run(&app{ctx: ctx, client: client, facade: facade, store: store, out: stdout})
}

// parseIDTypes reads COUNTRY:ID_TYPE[:METHOD] values.
func parseIDTypes(values []string) ([]smileid.IDTypeSpec, error) {
	out := make([]smileid.IDTypeSpec, 0, len(values))
	for _, value := range values {
		parts := strings.Split(strings.TrimSpace(value), ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, core.NewBadInputError("id type must be COUNTRY:ID_TYPE[:METHOD]", map[string]any{"value": value})
		}
		spec := smileid.IDTypeSpec{
			Country: strings.ToUpper(parts[0]),
			IDType:  strings.ToUpper(parts[1]),
		}
		if len(parts) == 3 {
			spec.VerificationMethod = parts[2]
		}
		out = append(out, spec)
	}
	return out, nil
}

func requireWebhookURL(cfg smileid.Config) error {
	if strings.TrimSpace(cfg.Webhook.URL) == "" {
		return core.NewConfigError("WEBHOOK_URL must be set before issuing links", "webhook.url")
	}
	return nil
}

func requireStore(a *app) error {
	if a.store == nil {
		return core.NewConfigError("DATABASE_DSN must be set to read recorded links", "database.dsn")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
