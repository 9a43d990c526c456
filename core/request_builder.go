package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	contentTypeHeader = "Content-Type"
	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeMulti  = "multipart/form-data"
)

// RequestSpec is the logical request description supplied by the caller:
// pre-resolution URL and an open body map, before any encoding decisions.
type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    map[string]any
}

type requestBuildOptions struct {
	boundary string
}

type BuildOption func(*requestBuildOptions)

// WithMultipartBoundary pins the multipart boundary so encoded payloads are
// reproducible in tests. The default is the stdlib's random boundary.
func WithMultipartBoundary(boundary string) BuildOption {
	return func(o *requestBuildOptions) {
		o.boundary = strings.TrimSpace(boundary)
	}
}

// BuildRequest turns a logical request description into the concrete wire
// request. For GET/HEAD/DELETE the body merges into the URL query, body
// values winning on key collision; for POST/PUT/PATCH the body encodes per
// the content-type header. Headers pass through into a canonical container;
// the multipart boundary rewrite of the caller's own content-type value is
// the single implicit header change.
func BuildRequest(spec RequestSpec, opts ...BuildOption) (WireRequest, error) {
	options := requestBuildOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	method := strings.TrimSpace(strings.ToUpper(spec.Method))
	if method == "" {
		method = http.MethodGet
	}

	headers := http.Header{}
	for key, value := range spec.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		headers.Set(key, value)
	}

	out := WireRequest{
		Method:  method,
		URL:     strings.TrimSpace(spec.URL),
		Headers: headers,
	}

	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		if len(spec.Body) == 0 {
			return out, nil
		}
		merged, err := mergeQuery(out.URL, spec.Body)
		if err != nil {
			return WireRequest{}, err
		}
		out.URL = merged
		return out, nil
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if len(spec.Body) == 0 {
			return out, nil
		}
		contentType := strings.ToLower(headers.Get(contentTypeHeader))
		switch {
		case strings.Contains(contentType, contentTypeForm):
			out.Body = []byte(encodeForm(spec.Body))
		case strings.Contains(contentType, contentTypeMulti):
			body, boundary, err := encodeMultipart(spec.Body, options.boundary)
			if err != nil {
				return WireRequest{}, err
			}
			out.Body = body
			out.Headers.Set(contentTypeHeader, boundary)
		default:
			encoded, err := json.Marshal(spec.Body)
			if err != nil {
				return WireRequest{}, fmt.Errorf("core: encode json body: %w", err)
			}
			out.Body = encoded
		}
		return out, nil
	default:
		return WireRequest{}, fmt.Errorf("core: unsupported request method %q", method)
	}
}

// mergeQuery folds the body map into the URL's existing query parameters.
// Body values override same-key parameters; unmatched existing parameters
// are preserved.
func mergeQuery(rawURL string, body map[string]any) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("core: parse request url: %w", err)
	}
	query := parsed.Query()
	for key, value := range body {
		query.Set(key, scalarString(value))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func encodeForm(body map[string]any) string {
	values := url.Values{}
	for key, value := range body {
		values.Set(key, scalarString(value))
	}
	return values.Encode()
}

// encodeMultipart writes one form field per top-level key, in sorted key
// order so payloads are reproducible once the boundary is pinned. It returns
// the payload and the boundary-bearing content type.
func encodeMultipart(body map[string]any, boundary string) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if boundary != "" {
		if err := writer.SetBoundary(boundary); err != nil {
			return nil, "", fmt.Errorf("core: set multipart boundary: %w", err)
		}
	}
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, scalarString(body[key])); err != nil {
			return nil, "", fmt.Errorf("core: write multipart field %q: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("core: close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// scalarString renders a body value the way it appears on the wire: strings
// verbatim, everything else via its JSON form.
func scalarString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}
