package sqlstore

import "github.com/afrimobile/go-smileid/core"

var (
	_ core.LinkRecorder = (*LinkStore)(nil)
	_ core.LinkRecorder = (*CachedLinkStore)(nil)
	_ core.OutcomeSink  = (*OutcomeStore)(nil)
	_ LinkReadWriter    = (*LinkStore)(nil)
)
