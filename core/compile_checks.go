package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ReplayLedger    = (*MemoryReplayLedger)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = (*EnvConfigLoader)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
