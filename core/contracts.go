package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// WireRequest is the concrete outbound request produced by the request
// builder: final URL, canonical headers, and encoded body bytes.
type WireRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// WireResponse is what the transport hands back for one attempt. Body is the
// materialized response text, capped by the transport.
type WireResponse struct {
	Status  int
	OK      bool
	Headers map[string]string
	Body    string
}

// Transport sends a wire request and returns the collaborator's response.
// Network-level failures (DNS, reset, timeout) surface as errors; the
// delivery loop converts them into synthetic failed responses.
type Transport interface {
	Send(ctx context.Context, req WireRequest) (WireResponse, error)
}

// LogStore is the indexed persistence collaborator. Query accepts a compiled
// plan; implementations may consume either the rendered expressions or the
// structured predicate list, whichever fits their query language.
type LogStore interface {
	Put(ctx context.Context, log Log) (Log, error)
	Query(ctx context.Context, plan QueryPlan) (LogPage, error)
	Clear(ctx context.Context, namespace string) (ClearResult, error)
	EnsureTable(ctx context.Context) error
}

// IDGenerator mints one attempt identifier. The default produces
// lexicographically time-ordered UUIDv7 strings.
type IDGenerator func() string

// Clock returns the current time; injectable for deterministic tests.
type Clock func() time.Time

// Sleeper suspends the calling goroutine for the backoff delay. It returns
// early with ctx.Err() when the context is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
