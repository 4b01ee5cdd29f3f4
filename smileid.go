package smileid

import (
	"context"
	"fmt"

	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/links"
	"github.com/afrimobile/go-smileid/webhooks"
)

type Config = core.Config

type Option = core.Option

type Credentials = core.Credentials
type Environment = core.Environment
type IDTypeSpec = core.IDTypeSpec
type LinkRequest = core.LinkRequest
type LinkResult = core.LinkResult
type BatchUser = core.BatchUser
type BatchLinkResult = core.BatchLinkResult
type ProviderResponse = core.ProviderResponse
type IssuedLink = core.IssuedLink
type VerificationRecord = core.VerificationRecord
type Outcome = core.Outcome
type OutcomeSink = core.OutcomeSink
type LinkRecorder = core.LinkRecorder

const (
	EnvironmentSandbox    = core.EnvironmentSandbox
	EnvironmentProduction = core.EnvironmentProduction
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithConfigProvider  = core.WithConfigProvider
	WithEnvConfig       = core.WithEnvConfig
	WithOptionsResolver = core.WithOptionsResolver
	WithTransport       = core.WithTransport
	WithOutcomeSink     = core.WithOutcomeSink
	WithLinkRecorder    = core.WithLinkRecorder
	WithReplayLedger    = core.WithReplayLedger
	WithClock           = core.WithClock
	WithSleeper         = core.WithSleeper
	WithIDGenerator     = core.WithIDGenerator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Client wires one Runtime into a link issuer and a webhook processor that
// share its credentials, logger and metrics.
type Client struct {
	runtime   *core.Runtime
	issuer    *links.Issuer
	processor *webhooks.Processor
}

// LoadConfig resolves defaults, the configured provider and cfg without
// building a client. Binaries use it to read database settings before
// choosing sinks.
func LoadConfig(cfg Config, opts ...Option) (Config, error) {
	runtime, err := core.NewRuntime(cfg, opts...)
	if err != nil {
		return Config{}, err
	}
	return runtime.Config(), nil
}

func New(cfg Config, opts ...Option) (*Client, error) {
	runtime, err := core.NewRuntime(cfg, opts...)
	if err != nil {
		return nil, err
	}
	resolved := runtime.Config()

	issuerOpts := []links.Option{
		links.WithLogger(runtime.NamedLogger("smileid.links")),
		links.WithMetricsRecorder(runtime.Metrics()),
		links.WithClock(runtime.Clock()),
		links.WithSleeper(runtime.Sleeper()),
		links.WithIDGenerator(runtime.IDGenerator()),
	}
	if adapter := runtime.Transport(); adapter != nil {
		issuerOpts = append(issuerOpts, links.WithTransport(adapter))
	}
	if recorder := runtime.LinkRecorder(); recorder != nil {
		issuerOpts = append(issuerOpts, links.WithLinkRecorder(recorder))
	}
	issuer, err := links.NewIssuer(resolved, issuerOpts...)
	if err != nil {
		return nil, err
	}

	webhookLogger := runtime.NamedLogger("smileid.webhooks")
	sink := runtime.OutcomeSink()
	if sink == nil {
		sink = webhooks.NewLoggingSink(webhookLogger)
	}
	processorOpts := []webhooks.ProcessorOption{
		webhooks.WithLogger(webhookLogger),
		webhooks.WithMetricsRecorder(runtime.Metrics()),
		webhooks.WithClock(runtime.Clock()),
	}
	if ledger := runtime.ReplayLedger(); ledger != nil {
		processorOpts = append(processorOpts, webhooks.WithReplayLedger(ledger, 0))
	}
	processor := webhooks.NewProcessor(
		webhooks.NewSignatureVerifier(resolved.Credentials(), resolved.Webhook.RequireSignature),
		sink,
		processorOpts...,
	)

	return &Client{runtime: runtime, issuer: issuer, processor: processor}, nil
}

func (c *Client) Config() Config {
	if c == nil || c.runtime == nil {
		return Config{}
	}
	return c.runtime.Config()
}

func (c *Client) Runtime() *core.Runtime {
	if c == nil {
		return nil
	}
	return c.runtime
}

func (c *Client) Issuer() *links.Issuer {
	if c == nil {
		return nil
	}
	return c.issuer
}

func (c *Client) Processor() *webhooks.Processor {
	if c == nil {
		return nil
	}
	return c.processor
}

func (c *Client) CreateSingleUseLink(ctx context.Context, req LinkRequest) (LinkResult, error) {
	if c == nil || c.issuer == nil {
		return LinkResult{}, fmt.Errorf("smileid: client is not initialized")
	}
	return c.issuer.CreateSingleUseLink(ctx, req)
}

func (c *Client) CreateMultiplePersonalLinks(ctx context.Context, users []BatchUser) ([]BatchLinkResult, error) {
	if c == nil || c.issuer == nil {
		return nil, fmt.Errorf("smileid: client is not initialized")
	}
	return c.issuer.CreateMultiplePersonalLinks(ctx, users)
}

func (c *Client) UpdateLink(ctx context.Context, linkID string, updates map[string]any) (ProviderResponse, error) {
	if c == nil || c.issuer == nil {
		return nil, fmt.Errorf("smileid: client is not initialized")
	}
	return c.issuer.UpdateLink(ctx, linkID, updates)
}

func (c *Client) GetLinkInfo(ctx context.Context, linkID string) (ProviderResponse, error) {
	if c == nil || c.issuer == nil {
		return nil, fmt.Errorf("smileid: client is not initialized")
	}
	return c.issuer.GetLinkInfo(ctx, linkID)
}

// HandleWebhook runs one callback through the processor.
func (c *Client) HandleWebhook(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if c == nil || c.processor == nil {
		return core.InboundResult{}, fmt.Errorf("smileid: client is not initialized")
	}
	return c.processor.Handle(ctx, req)
}
