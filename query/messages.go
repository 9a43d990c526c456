package query

import (
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const TypeFetchLogs = "webhooks.query.logs.fetch"

type FetchLogsMessage struct {
	Input core.FetchLogsInput
}

func (FetchLogsMessage) Type() string { return TypeFetchLogs }

func (m FetchLogsMessage) Validate() error {
	if strings.TrimSpace(m.Input.Namespace) == "" {
		return queryValidationError("namespace", "namespace is required")
	}
	if m.Input.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
