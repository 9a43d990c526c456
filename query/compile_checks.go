package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

var _ gocmd.Querier[FetchLogsMessage, core.LogPage] = (*FetchLogsQuery)(nil)
