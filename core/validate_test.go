package core

import (
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func validationFields(t *testing.T, err error) map[string]bool {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	fields := map[string]bool{}
	for _, fe := range rich.AllValidationErrors() {
		fields[fe.Field] = true
	}
	return fields
}

func TestValidateTriggerInput_Valid(t *testing.T) {
	limit := 5
	err := ValidateTriggerInput(TriggerInput{
		Namespace:     "orders",
		RequestURL:    "https://example.com/hook",
		RequestMethod: "patch",
		RetryLimit:    &limit,
	})
	if err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestValidateTriggerInput_CollectsAllFieldErrors(t *testing.T) {
	badLimit := MaxRetryLimit + 1
	fields := validationFields(t, ValidateTriggerInput(TriggerInput{
		Namespace:     " ",
		RequestURL:    "/relative/path",
		RequestMethod: "TRACE",
		RetryLimit:    &badLimit,
	}))
	for _, field := range []string{"namespace", "requestUrl", "requestMethod", "retryLimit"} {
		if !fields[field] {
			t.Fatalf("expected field error for %q, got %#v", field, fields)
		}
	}
}

func TestValidateTriggerInput_URLMustBeAbsolute(t *testing.T) {
	for _, raw := range []string{"", "example.com/hook", "://bad", "https://"} {
		fields := validationFields(t, ValidateTriggerInput(TriggerInput{
			Namespace:  "orders",
			RequestURL: raw,
		}))
		if !fields["requestUrl"] {
			t.Fatalf("url %q: expected requestUrl field error, got %#v", raw, fields)
		}
	}
}

func TestValidateFetchLogsInput_Valid(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	err := ValidateFetchLogsInput(FetchLogsInput{
		Namespace: "orders",
		IDPrefix:  "order-",
		Status:    LogStatusFail,
		From:      &from,
		To:        &to,
		Metadata:  []MetadataFilter{{Key: "tenant", Value: "acme"}},
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestValidateFetchLogsInput_IDSelectorsAreExclusive(t *testing.T) {
	fields := validationFields(t, ValidateFetchLogsInput(FetchLogsInput{
		Namespace: "orders",
		ID:        "log-1",
		IDPrefix:  "log-",
	}))
	if !fields["id"] {
		t.Fatalf("expected id field error, got %#v", fields)
	}
}

func TestValidateFetchLogsInput_TimeRangeRules(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fields := validationFields(t, ValidateFetchLogsInput(FetchLogsInput{
		Namespace: "orders",
		From:      &from,
	}))
	if !fields["from"] {
		t.Fatalf("one-sided range: expected from field error, got %#v", fields)
	}

	to := from.Add(-time.Hour)
	fields = validationFields(t, ValidateFetchLogsInput(FetchLogsInput{
		Namespace: "orders",
		From:      &from,
		To:        &to,
	}))
	if !fields["to"] {
		t.Fatalf("inverted range: expected to field error, got %#v", fields)
	}
}

func TestValidateFetchLogsInput_StatusAndMetadata(t *testing.T) {
	fields := validationFields(t, ValidateFetchLogsInput(FetchLogsInput{
		Namespace: "orders",
		Status:    "PENDING",
		Metadata:  []MetadataFilter{{Key: "  ", Value: 1}},
		Limit:     -1,
	}))
	for _, field := range []string{"status", "metadata", "limit"} {
		if !fields[field] {
			t.Fatalf("expected field error for %q, got %#v", field, fields)
		}
	}
}
