package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrStoreNotConfigured     = errors.New("core: log store is not configured")
	ErrTransportNotConfigured = errors.New("core: transport is not configured")
)

type LogStatus string

const (
	LogStatusSuccess LogStatus = "SUCCESS"
	LogStatusFail    LogStatus = "FAIL"
)

// LogRequest is the request actually sent for one delivery attempt: the
// final resolved URL and encoded body, not the caller's raw input.
type LogRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

type LogResponse struct {
	Status  int
	OK      bool
	Headers map[string]string
	Body    string
}

// Retry carries the 0-based attempt index and the maximum number of retries
// allowed after the initial attempt.
type Retry struct {
	Count int
	Limit int
}

// Log is one persisted delivery attempt. (Namespace, ID) uniquely identifies
// a record; each retry produces its own sibling record with a fresh id.
type Log struct {
	ID        string
	Namespace string
	Request   LogRequest
	Response  LogResponse
	Retry     Retry
	Status    LogStatus
	TTL       int64
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TriggerInput describes one logical webhook delivery. RetryLimit is a
// pointer so a caller-provided 0 remains distinguishable from "use default".
type TriggerInput struct {
	Namespace      string
	RequestURL     string
	RequestMethod  string
	RequestBody    map[string]any
	RequestHeaders map[string]string
	RetryLimit     *int
	Metadata       map[string]any
	IDPrefix       string
}

// MetadataFilter is one metadata equality constraint. Filters are an ordered
// slice so compiled expressions are reproducible for identical input.
type MetadataFilter struct {
	Key   string
	Value any
}

// Cursor is the opaque pagination token: a snapshot of the index key
// attributes of the last returned item. A nil cursor in a response means the
// scan is exhausted.
type Cursor map[string]string

type FetchLogsInput struct {
	Namespace string
	ID        string
	IDPrefix  string
	Status    LogStatus
	From      *time.Time
	To        *time.Time
	Metadata  []MetadataFilter
	Limit     int
	Desc      bool
	StartKey  Cursor
}

type LogPage struct {
	Count            int
	Items            []Log
	LastEvaluatedKey Cursor
}

type ClearResult struct {
	Count int
}

const (
	DefaultRetryLimit = 3
	MaxRetryLimit     = 10
	DefaultFetchLimit = 100
)

// ResolveRetryLimit returns the effective retry limit for the input without
// validating range; range checks belong to the validation layer.
func (in TriggerInput) ResolveRetryLimit() int {
	if in.RetryLimit == nil {
		return DefaultRetryLimit
	}
	return *in.RetryLimit
}

func (in TriggerInput) ResolveMethod() string {
	method := strings.TrimSpace(strings.ToUpper(in.RequestMethod))
	if method == "" {
		return "GET"
	}
	return method
}

// WithDefaults fills the fetch limit without touching required fields.
func (in FetchLogsInput) WithDefaults() FetchLogsInput {
	out := in
	if out.Limit <= 0 {
		out.Limit = DefaultFetchLimit
	}
	return out
}

func (c Cursor) Clone() Cursor {
	if c == nil {
		return nil
	}
	copied := make(Cursor, len(c))
	for key, value := range c {
		copied[key] = value
	}
	return copied
}

func copyAnyMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	copied := make(map[string]any, len(input))
	for key, value := range input {
		copied[key] = value
	}
	return copied
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	copied := make(map[string]string, len(input))
	for key, value := range input {
		copied[key] = value
	}
	return copied
}
