package sqlstore

import (
	"time"

	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type logRecord struct {
	bun.BaseModel `bun:"table:webhook_logs,alias:wl"`

	ID              string            `bun:"id,pk"`
	Namespace       string            `bun:"namespace,pk"`
	RequestMethod   string            `bun:"request_method,notnull"`
	RequestURL      string            `bun:"request_url,notnull"`
	RequestHeaders  map[string]string `bun:"request_headers,type:jsonb"`
	RequestBody     string            `bun:"request_body"`
	ResponseStatus  int               `bun:"response_status,notnull"`
	ResponseOK      bool              `bun:"response_ok,notnull"`
	ResponseHeaders map[string]string `bun:"response_headers,type:jsonb"`
	ResponseBody    string            `bun:"response_body"`
	RetryCount      int               `bun:"retry_count,notnull"`
	RetryLimit      int               `bun:"retry_limit,notnull"`
	Status          string            `bun:"status,notnull"`
	TTL             int64             `bun:"ttl,notnull"`
	Metadata        map[string]any    `bun:"metadata,type:jsonb,notnull"`
	CreatedAt       time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func toRecord(log core.Log) *logRecord {
	return &logRecord{
		ID:              log.ID,
		Namespace:       log.Namespace,
		RequestMethod:   log.Request.Method,
		RequestURL:      log.Request.URL,
		RequestHeaders:  log.Request.Headers,
		RequestBody:     log.Request.Body,
		ResponseStatus:  log.Response.Status,
		ResponseOK:      log.Response.OK,
		ResponseHeaders: log.Response.Headers,
		ResponseBody:    log.Response.Body,
		RetryCount:      log.Retry.Count,
		RetryLimit:      log.Retry.Limit,
		Status:          string(log.Status),
		TTL:             log.TTL,
		Metadata:        log.Metadata,
		CreatedAt:       log.CreatedAt.UTC(),
		UpdatedAt:       log.UpdatedAt.UTC(),
	}
}

func toDomain(record *logRecord) core.Log {
	if record == nil {
		return core.Log{}
	}
	return core.Log{
		ID:        record.ID,
		Namespace: record.Namespace,
		Request: core.LogRequest{
			Method:  record.RequestMethod,
			URL:     record.RequestURL,
			Headers: record.RequestHeaders,
			Body:    record.RequestBody,
		},
		Response: core.LogResponse{
			Status:  record.ResponseStatus,
			OK:      record.ResponseOK,
			Headers: record.ResponseHeaders,
			Body:    record.ResponseBody,
		},
		Retry: core.Retry{
			Count: record.RetryCount,
			Limit: record.RetryLimit,
		},
		Status:    core.LogStatus(record.Status),
		TTL:       record.TTL,
		Metadata:  record.Metadata,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
