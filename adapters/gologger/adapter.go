package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultName = "smileid"

// Resolve picks provider > logger > nop. An empty name falls back to
// DefaultName.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return glog.Resolve(name, provider, logger)
}

// Named returns the logger for one subsystem, e.g. "smileid.webhooks".
func Named(provider glog.LoggerProvider, subsystem string) glog.Logger {
	if provider == nil {
		return glog.Nop()
	}
	name := DefaultName
	if trimmed := strings.TrimSpace(subsystem); trimmed != "" {
		name += "." + trimmed
	}
	return provider.GetLogger(name)
}

// ResolveForJob resolves the glog pair and bridges it to go-job, so batch
// workers log through the same sink as the webhook server.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	var jobProvider job.LoggerProvider
	if resolvedProvider != nil {
		jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	var jobLogger job.Logger
	if resolvedLogger != nil {
		jobLogger = job.GoLogger(resolvedLogger)
	}
	return resolvedProvider, resolvedLogger, jobProvider, jobLogger
}
