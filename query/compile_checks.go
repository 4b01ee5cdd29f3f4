package query

import (
	"github.com/afrimobile/go-smileid/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[LinkInfoMessage, core.ProviderResponse]     = (*LinkInfoQuery)(nil)
	_ gocmd.Querier[ListLinksMessage, []core.IssuedLink]        = (*ListLinksQuery)(nil)
	_ gocmd.Querier[GetOutcomeMessage, core.VerificationRecord] = (*GetOutcomeQuery)(nil)
)
