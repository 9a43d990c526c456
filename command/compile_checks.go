package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[TriggerWebhookMessage] = (*TriggerWebhookCommand)(nil)
	_ gocmd.Commander[ClearLogsMessage]      = (*ClearLogsCommand)(nil)
)
