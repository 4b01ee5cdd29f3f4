package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateLinkMessage] = (*CreateLinkCommand)(nil)
	_ gocmd.Commander[BatchLinksMessage] = (*BatchLinksCommand)(nil)
	_ gocmd.Commander[UpdateLinkMessage] = (*UpdateLinkCommand)(nil)
)
