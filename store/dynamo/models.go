package dynamostore

import (
	"time"

	"github.com/goliatone/go-webhooks/core"
)

// logRecord is the DynamoDB shape of one delivery attempt. Timestamps are
// fixed-width ISO-8601 strings so the __createdAt sort index orders
// chronologically; ttl is epoch seconds for the table's TTL eviction.
type logRecord struct {
	ID        string         `dynamodbav:"id"`
	Namespace string         `dynamodbav:"namespace"`
	Request   requestRecord  `dynamodbav:"request"`
	Response  responseRecord `dynamodbav:"response"`
	Retry     retryRecord    `dynamodbav:"retry"`
	Status    string         `dynamodbav:"status"`
	TTL       int64          `dynamodbav:"ttl"`
	Metadata  map[string]any `dynamodbav:"metadata"`
	CreatedAt string         `dynamodbav:"__createdAt"`
	UpdatedAt string         `dynamodbav:"__updatedAt"`
}

type requestRecord struct {
	Method  string            `dynamodbav:"method"`
	URL     string            `dynamodbav:"url"`
	Headers map[string]string `dynamodbav:"headers,omitempty"`
	Body    string            `dynamodbav:"body,omitempty"`
}

type responseRecord struct {
	Status  int               `dynamodbav:"status"`
	OK      bool              `dynamodbav:"ok"`
	Headers map[string]string `dynamodbav:"headers,omitempty"`
	Body    string            `dynamodbav:"body,omitempty"`
}

type retryRecord struct {
	Count int `dynamodbav:"count"`
	Limit int `dynamodbav:"limit"`
}

func toRecord(log core.Log) logRecord {
	return logRecord{
		ID:        log.ID,
		Namespace: log.Namespace,
		Request: requestRecord{
			Method:  log.Request.Method,
			URL:     log.Request.URL,
			Headers: log.Request.Headers,
			Body:    log.Request.Body,
		},
		Response: responseRecord{
			Status:  log.Response.Status,
			OK:      log.Response.OK,
			Headers: log.Response.Headers,
			Body:    log.Response.Body,
		},
		Retry: retryRecord{
			Count: log.Retry.Count,
			Limit: log.Retry.Limit,
		},
		Status:    string(log.Status),
		TTL:       log.TTL,
		Metadata:  log.Metadata,
		CreatedAt: core.FormatLogTime(log.CreatedAt),
		UpdatedAt: core.FormatLogTime(log.UpdatedAt),
	}
}

func toDomain(record logRecord) core.Log {
	createdAt, err := core.ParseLogTime(record.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	updatedAt, err := core.ParseLogTime(record.UpdatedAt)
	if err != nil {
		updatedAt = time.Time{}
	}
	return core.Log{
		ID:        record.ID,
		Namespace: record.Namespace,
		Request: core.LogRequest{
			Method:  record.Request.Method,
			URL:     record.Request.URL,
			Headers: record.Request.Headers,
			Body:    record.Request.Body,
		},
		Response: core.LogResponse{
			Status:  record.Response.Status,
			OK:      record.Response.OK,
			Headers: record.Response.Headers,
			Body:    record.Response.Body,
		},
		Retry: core.Retry{
			Count: record.Retry.Count,
			Limit: record.Retry.Limit,
		},
		Status:    core.LogStatus(record.Status),
		TTL:       record.TTL,
		Metadata:  record.Metadata,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
