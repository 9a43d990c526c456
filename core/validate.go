package core

import (
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ValidateTriggerInput checks the caller-supplied delivery description before
// any network or storage I/O happens. It returns a validation error with one
// FieldError per offending field.
func ValidateTriggerInput(in TriggerInput) error {
	var fields []goerrors.FieldError

	if strings.TrimSpace(in.Namespace) == "" {
		fields = append(fields, goerrors.FieldError{
			Field:   "namespace",
			Message: "namespace is required",
		})
	}
	rawURL := strings.TrimSpace(in.RequestURL)
	if rawURL == "" {
		fields = append(fields, goerrors.FieldError{
			Field:   "requestUrl",
			Message: "request url is required",
		})
	} else if parsed, err := url.Parse(rawURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		fields = append(fields, goerrors.FieldError{
			Field:   "requestUrl",
			Message: "request url must be an absolute http(s) url",
		})
	}
	if method := in.ResolveMethod(); !supportedMethod(method) {
		fields = append(fields, goerrors.FieldError{
			Field:   "requestMethod",
			Message: "unsupported request method " + method,
		})
	}
	if in.RetryLimit != nil && (*in.RetryLimit < 0 || *in.RetryLimit > MaxRetryLimit) {
		fields = append(fields, goerrors.FieldError{
			Field:   "retryLimit",
			Message: "retry limit must be between 0 and 10",
		})
	}

	return validationError(fields)
}

// ValidateFetchLogsInput checks the filter description. The time range is
// both-or-neither and must be ordered.
func ValidateFetchLogsInput(in FetchLogsInput) error {
	var fields []goerrors.FieldError

	if strings.TrimSpace(in.Namespace) == "" {
		fields = append(fields, goerrors.FieldError{
			Field:   "namespace",
			Message: "namespace is required",
		})
	}
	if in.ID != "" && in.IDPrefix != "" {
		fields = append(fields, goerrors.FieldError{
			Field:   "id",
			Message: "id and idPrefix are mutually exclusive",
		})
	}
	if (in.From == nil) != (in.To == nil) {
		fields = append(fields, goerrors.FieldError{
			Field:   "from",
			Message: "from and to must be provided together",
		})
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		fields = append(fields, goerrors.FieldError{
			Field:   "to",
			Message: "to must not precede from",
		})
	}
	if in.Status != "" && in.Status != LogStatusSuccess && in.Status != LogStatusFail {
		fields = append(fields, goerrors.FieldError{
			Field:   "status",
			Message: "status must be SUCCESS or FAIL",
		})
	}
	if in.Limit < 0 {
		fields = append(fields, goerrors.FieldError{
			Field:   "limit",
			Message: "limit must be >= 1",
		})
	}
	for _, filter := range in.Metadata {
		if strings.TrimSpace(filter.Key) == "" {
			fields = append(fields, goerrors.FieldError{
				Field:   "metadata",
				Message: "metadata filter keys must not be empty",
			})
			break
		}
	}

	return validationError(fields)
}

func validationError(fields []goerrors.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return goerrors.NewValidation("core: validation failed", fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(WebhookErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func supportedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete,
		http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
