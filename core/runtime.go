package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Runtime holds the resolved configuration and the collaborators shared by
// the link issuer and the webhook processor.
type Runtime struct {
	config         Config
	logger         Logger
	loggerProvider LoggerProvider
	metrics        MetricsRecorder
	transport      TransportAdapter
	outcomeSink    OutcomeSink
	linkRecorder   LinkRecorder
	replayLedger   ReplayLedger
	clock          Clock
	sleeper        Sleeper
	idGenerator    IDGenerator
}

// NewRuntime resolves cfg against the configured provider and the defaults.
// Non-zero fields of cfg win over loaded values.
func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	builder := defaultRuntimeBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("smileid", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("smileid"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = SystemClock
	}
	if builder.sleeper == nil {
		builder.sleeper = ContextSleep
	}
	if builder.idGenerator == nil {
		builder.idGenerator = NewUserID
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, MapError(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, MapError(err)
	}

	return &Runtime{
		config:         finalConfig,
		logger:         logger,
		loggerProvider: provider,
		metrics:        builder.metricsRecorder,
		transport:      builder.transport,
		outcomeSink:    builder.outcomeSink,
		linkRecorder:   builder.linkRecorder,
		replayLedger:   builder.replayLedger,
		clock:          builder.clock,
		sleeper:        builder.sleeper,
		idGenerator:    builder.idGenerator,
	}, nil
}

// NewUserID returns "user_" followed by a random UUID.
func NewUserID() string {
	return "user_" + uuid.NewString()
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Logger() Logger {
	if r == nil || r.logger == nil {
		return glog.Nop()
	}
	return r.logger
}

// NamedLogger returns a child logger from the provider when one exists.
func (r *Runtime) NamedLogger(name string) Logger {
	if r == nil {
		return glog.Nop()
	}
	if r.loggerProvider != nil {
		if named := r.loggerProvider.GetLogger(name); named != nil {
			return glog.Ensure(named)
		}
	}
	return r.Logger()
}

func (r *Runtime) Metrics() MetricsRecorder {
	if r == nil || r.metrics == nil {
		return NopMetricsRecorder{}
	}
	return r.metrics
}

func (r *Runtime) Transport() TransportAdapter {
	if r == nil {
		return nil
	}
	return r.transport
}

func (r *Runtime) OutcomeSink() OutcomeSink {
	if r == nil {
		return nil
	}
	return r.outcomeSink
}

func (r *Runtime) LinkRecorder() LinkRecorder {
	if r == nil {
		return nil
	}
	return r.linkRecorder
}

func (r *Runtime) ReplayLedger() ReplayLedger {
	if r == nil {
		return nil
	}
	return r.replayLedger
}

func (r *Runtime) Clock() Clock {
	if r == nil || r.clock == nil {
		return SystemClock
	}
	return r.clock
}

func (r *Runtime) Sleeper() Sleeper {
	if r == nil || r.sleeper == nil {
		return ContextSleep
	}
	return r.sleeper
}

func (r *Runtime) IDGenerator() IDGenerator {
	if r == nil || r.idGenerator == nil {
		return NewUserID
	}
	return r.idGenerator
}
