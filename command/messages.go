package command

import (
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeTriggerWebhook = "webhooks.command.trigger"
	TypeClearLogs      = "webhooks.command.logs.clear"
)

type TriggerWebhookMessage struct {
	Input core.TriggerInput
}

func (TriggerWebhookMessage) Type() string { return TypeTriggerWebhook }

func (m TriggerWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Input.Namespace) == "" {
		return commandValidationError("namespace", "namespace is required")
	}
	if strings.TrimSpace(m.Input.RequestURL) == "" {
		return commandValidationError("requestUrl", "request url is required")
	}
	return nil
}

type ClearLogsMessage struct {
	Namespace string
}

func (ClearLogsMessage) Type() string { return TypeClearLogs }

func (m ClearLogsMessage) Validate() error {
	if strings.TrimSpace(m.Namespace) == "" {
		return commandValidationError("namespace", "namespace is required")
	}
	return nil
}
