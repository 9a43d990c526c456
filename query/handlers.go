package query

import (
	"context"

	"github.com/goliatone/go-webhooks/core"
)

// LogReader exposes the read side of the webhook service to the query bus.
type LogReader interface {
	FetchLogs(ctx context.Context, input core.FetchLogsInput) (core.LogPage, error)
}

type FetchLogsQuery struct {
	reader LogReader
}

func NewFetchLogsQuery(reader LogReader) *FetchLogsQuery {
	return &FetchLogsQuery{reader: reader}
}

func (q *FetchLogsQuery) Query(ctx context.Context, msg FetchLogsMessage) (core.LogPage, error) {
	if q == nil || q.reader == nil {
		return core.LogPage{}, queryDependencyError("query: log reader is required")
	}
	return q.reader.FetchLogs(ctx, msg.Input)
}
