package core

import (
	"fmt"
	"strings"
	"time"
)

// ShapeLog completes a partial log record with defaults. It is total: any
// partial input yields a fully shaped record. ID, Namespace, and Status are
// left as given; their absence is a validation concern, not a shaping one.
// Retry needs no shaping: the typed zero value already carries the defaulted
// attempt counter, and the effective retry limit is resolved by
// ResolveRetryLimit from TriggerInput before a record is built.
func ShapeLog(partial Log, now time.Time) Log {
	shaped := partial
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if shaped.CreatedAt.IsZero() {
		shaped.CreatedAt = now.UTC()
	}
	if shaped.UpdatedAt.IsZero() {
		shaped.UpdatedAt = now.UTC()
	}
	if shaped.Metadata == nil {
		shaped.Metadata = map[string]any{}
	}
	return shaped
}

// ValidateLog enforces the identifying fields a record must carry before it
// can be persisted.
func ValidateLog(log Log) error {
	if strings.TrimSpace(log.ID) == "" {
		return fmt.Errorf("core: log id is required")
	}
	if strings.TrimSpace(log.Namespace) == "" {
		return fmt.Errorf("core: log namespace is required")
	}
	if log.Status != LogStatusSuccess && log.Status != LogStatusFail {
		return fmt.Errorf("core: log status must be SUCCESS or FAIL, got %q", log.Status)
	}
	if log.Retry.Count > log.Retry.Limit {
		return fmt.Errorf("core: retry count %d exceeds limit %d", log.Retry.Count, log.Retry.Limit)
	}
	return nil
}
