package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type runtimeBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       TransportAdapter
	outcomeSink     OutcomeSink
	linkRecorder    LinkRecorder
	replayLedger    ReplayLedger
	clock           Clock
	sleeper         Sleeper
	idGenerator     IDGenerator
}

type Option func(*runtimeBuilder)

func WithLogger(logger Logger) Option {
	return func(b *runtimeBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *runtimeBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *runtimeBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *runtimeBuilder) {
		b.configProvider = provider
	}
}

// WithEnvConfig loads configuration from the process environment.
func WithEnvConfig() Option {
	return WithConfigProvider(NewCfgxConfigProvider(NewEnvConfigLoader()))
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *runtimeBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(transport TransportAdapter) Option {
	return func(b *runtimeBuilder) {
		b.transport = transport
	}
}

func WithOutcomeSink(sink OutcomeSink) Option {
	return func(b *runtimeBuilder) {
		b.outcomeSink = sink
	}
}

func WithLinkRecorder(recorder LinkRecorder) Option {
	return func(b *runtimeBuilder) {
		b.linkRecorder = recorder
	}
}

func WithReplayLedger(ledger ReplayLedger) Option {
	return func(b *runtimeBuilder) {
		b.replayLedger = ledger
	}
}

func WithClock(clock Clock) Option {
	return func(b *runtimeBuilder) {
		b.clock = clock
	}
}

func WithSleeper(sleeper Sleeper) Option {
	return func(b *runtimeBuilder) {
		b.sleeper = sleeper
	}
}

func WithIDGenerator(generator IDGenerator) Option {
	return func(b *runtimeBuilder) {
		b.idGenerator = generator
	}
}

func defaultRuntimeBuilder(runtime Config) runtimeBuilder {
	loggerProvider, logger := glog.Resolve("smileid", nil, nil)
	return runtimeBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		clock:           SystemClock,
		sleeper:         ContextSleep,
	}
}

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// ContextSleep waits for d, returning early with ctx.Err() on cancellation.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticConfigLoader serves a fixed raw map, mostly for tests and embedding.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load decodes the raw map over defaults. Validation runs later, once the
// runtime layer has been merged in.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, fmt.Errorf("core: decode config: %w", err)
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

// Resolve layers defaults < loaded < runtime and validates the result.
func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("environment", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("environment"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString := func(target map[string]any, key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	putInt := func(target map[string]any, key string, value int) {
		if includeZero || value != 0 {
			target[key] = value
		}
	}

	putString(layer, "partner_id", cfg.PartnerID)
	putString(layer, "api_key", cfg.APIKey)
	putString(layer, "environment", string(cfg.Environment))
	putInt(layer, "link_expiry_hours", cfg.LinkExpiryHours)
	putInt(layer, "batch_delay_ms", cfg.BatchDelayMS)
	putInt(layer, "http_timeout_ms", cfg.HTTPTimeoutMS)

	webhook := map[string]any{}
	putInt(webhook, "port", cfg.Webhook.Port)
	putString(webhook, "url", cfg.Webhook.URL)
	if includeZero || cfg.Webhook.RequireSignature {
		webhook["require_signature"] = cfg.Webhook.RequireSignature
	}
	company := map[string]any{}
	putString(company, "name", cfg.Company.Name)
	putString(company, "logo_url", cfg.Company.LogoURL)
	putString(company, "privacy_policy_url", cfg.Company.PrivacyPolicyURL)
	defaults := map[string]any{}
	putString(defaults, "country", cfg.Defaults.Country)
	putString(defaults, "id_type", cfg.Defaults.IDType)
	putString(defaults, "verification_method", cfg.Defaults.VerificationMethod)
	database := map[string]any{}
	putString(database, "driver", cfg.Database.Driver)
	putString(database, "dsn", cfg.Database.DSN)

	for key, section := range map[string]map[string]any{
		"webhook":  webhook,
		"company":  company,
		"defaults": defaults,
		"database": database,
	} {
		if len(section) > 0 {
			layer[key] = section
		}
	}
	return layer
}
