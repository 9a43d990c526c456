package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type stubTransport struct {
	sendFn func(ctx context.Context, req WireRequest) (WireResponse, error)
	calls  int
}

func (s *stubTransport) Send(ctx context.Context, req WireRequest) (WireResponse, error) {
	s.calls++
	if s.sendFn == nil {
		return WireResponse{Status: 200, OK: true}, nil
	}
	return s.sendFn(ctx, req)
}

type stubLogStore struct {
	putFn   func(ctx context.Context, log Log) (Log, error)
	queryFn func(ctx context.Context, plan QueryPlan) (LogPage, error)
	clearFn func(ctx context.Context, namespace string) (ClearResult, error)
	puts    []Log
}

func (s *stubLogStore) Put(ctx context.Context, log Log) (Log, error) {
	s.puts = append(s.puts, log)
	if s.putFn == nil {
		return log, nil
	}
	return s.putFn(ctx, log)
}

func (s *stubLogStore) Query(ctx context.Context, plan QueryPlan) (LogPage, error) {
	if s.queryFn == nil {
		return LogPage{}, nil
	}
	return s.queryFn(ctx, plan)
}

func (s *stubLogStore) Clear(ctx context.Context, namespace string) (ClearResult, error) {
	if s.clearFn == nil {
		return ClearResult{}, nil
	}
	return s.clearFn(ctx, namespace)
}

func (s *stubLogStore) EnsureTable(context.Context) error { return nil }

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func sequentialIDs(prefix string) IDGenerator {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%03d", prefix, counter)
	}
}

func newTestService(t *testing.T, options ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time {
			return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		}),
		WithIDGenerator(sequentialIDs("log")),
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}
	service, err := NewService(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func intPtr(v int) *int { return &v }

func TestTrigger_FirstAttemptSuccess(t *testing.T) {
	transport := &stubTransport{
		sendFn: func(_ context.Context, req WireRequest) (WireResponse, error) {
			if req.Method != "POST" {
				t.Fatalf("expected POST, got %q", req.Method)
			}
			return WireResponse{Status: 200, OK: true, Body: `{"ok":true}`}, nil
		},
	}
	store := &stubLogStore{}
	svc := newTestService(t, WithTransport(transport), WithLogStore(store))

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:     "orders",
		RequestURL:    "https://example.com/hook",
		RequestMethod: "post",
		RequestBody:   map[string]any{"id": 42},
		Metadata:      map[string]any{"tenant": "acme"},
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("expected a single delivery attempt, got %d", transport.calls)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(store.puts))
	}
	if log.Status != LogStatusSuccess {
		t.Fatalf("expected SUCCESS, got %q", log.Status)
	}
	if log.Retry.Count != 0 || log.Retry.Limit != DefaultRetryLimit {
		t.Fatalf("unexpected retry state: %+v", log.Retry)
	}
	if log.ID != "log-001" {
		t.Fatalf("unexpected id %q", log.ID)
	}
	if log.Metadata["tenant"] != "acme" {
		t.Fatalf("expected metadata to carry through, got %#v", log.Metadata)
	}
	if log.Response.Status != 200 || !log.Response.OK {
		t.Fatalf("unexpected response snapshot: %+v", log.Response)
	}
}

func TestTrigger_RetriesUntilSuccess(t *testing.T) {
	attempt := 0
	transport := &stubTransport{
		sendFn: func(context.Context, WireRequest) (WireResponse, error) {
			attempt++
			if attempt < 3 {
				return WireResponse{Status: 503, OK: false}, nil
			}
			return WireResponse{Status: 200, OK: true}, nil
		},
	}
	store := &stubLogStore{}
	sleeper := &sleepRecorder{}
	svc := newTestService(t,
		WithTransport(transport),
		WithLogStore(store),
		WithSleeper(sleeper.Sleep),
	)

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(store.puts) != 3 {
		t.Fatalf("expected one record per attempt, got %d", len(store.puts))
	}
	for i, record := range store.puts {
		if record.Retry.Count != i {
			t.Fatalf("attempt %d recorded count %d", i, record.Retry.Count)
		}
	}
	if store.puts[0].ID == store.puts[1].ID {
		t.Fatalf("attempts must get distinct ids")
	}
	if store.puts[0].Status != LogStatusFail || store.puts[2].Status != LogStatusSuccess {
		t.Fatalf("unexpected statuses: %q %q", store.puts[0].Status, store.puts[2].Status)
	}
	if log.Status != LogStatusSuccess || log.Retry.Count != 2 {
		t.Fatalf("expected final success record, got %+v", log)
	}
	want := []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d waits, got %d", len(want), len(sleeper.delays))
	}
	for i, delay := range want {
		if sleeper.delays[i] != delay {
			t.Fatalf("wait %d: expected %v, got %v", i, delay, sleeper.delays[i])
		}
	}
}

func TestTrigger_ExhaustsRetryLimit(t *testing.T) {
	transport := &stubTransport{
		sendFn: func(context.Context, WireRequest) (WireResponse, error) {
			return WireResponse{Status: 500, OK: false}, nil
		},
	}
	store := &stubLogStore{}
	sleeper := &sleepRecorder{}
	svc := newTestService(t,
		WithTransport(transport),
		WithLogStore(store),
		WithSleeper(sleeper.Sleep),
	)

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
		RetryLimit: intPtr(2),
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if transport.calls != 3 {
		t.Fatalf("limit 2 means 3 attempts, got %d", transport.calls)
	}
	if log.Status != LogStatusFail || log.Retry.Count != 2 || log.Retry.Limit != 2 {
		t.Fatalf("expected final FAIL record at the limit, got %+v", log)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("no wait after the final attempt; got %d waits", len(sleeper.delays))
	}
}

func TestTrigger_BackoffIsCapped(t *testing.T) {
	transport := &stubTransport{
		sendFn: func(context.Context, WireRequest) (WireResponse, error) {
			return WireResponse{Status: 500, OK: false}, nil
		},
	}
	sleeper := &sleepRecorder{}
	svc := newTestService(t,
		WithTransport(transport),
		WithLogStore(&stubLogStore{}),
		WithSleeper(sleeper.Sleep),
	)

	if _, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
		RetryLimit: intPtr(8),
	}); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	want := []time.Duration{500, 1000, 1500, 2000, 2500, 3000, 3000, 3000}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d waits, got %d", len(want), len(sleeper.delays))
	}
	for i, ms := range want {
		if sleeper.delays[i] != ms*time.Millisecond {
			t.Fatalf("wait %d: expected %v, got %v", i, ms*time.Millisecond, sleeper.delays[i])
		}
	}
}

func TestTrigger_ZeroRetryLimitMeansSingleAttempt(t *testing.T) {
	transport := &stubTransport{
		sendFn: func(context.Context, WireRequest) (WireResponse, error) {
			return WireResponse{Status: 500, OK: false}, nil
		},
	}
	store := &stubLogStore{}
	svc := newTestService(t, WithTransport(transport), WithLogStore(store))

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
		RetryLimit: intPtr(0),
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if transport.calls != 1 || len(store.puts) != 1 {
		t.Fatalf("expected exactly one attempt, got %d calls, %d records", transport.calls, len(store.puts))
	}
	if log.Retry.Limit != 0 {
		t.Fatalf("expected explicit zero limit preserved, got %d", log.Retry.Limit)
	}
}

func TestTrigger_ValidationHappensBeforeIO(t *testing.T) {
	transport := &stubTransport{}
	store := &stubLogStore{}
	svc := newTestService(t, WithTransport(transport), WithLogStore(store))

	_, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "",
		RequestURL: "not-a-url",
		RetryLimit: intPtr(99),
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if transport.calls != 0 || len(store.puts) != 0 {
		t.Fatalf("invalid input must not reach transport or store")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != WebhookErrorBadInput {
		t.Fatalf("expected %q, got %q", WebhookErrorBadInput, rich.TextCode)
	}
	fields := map[string]bool{}
	for _, fe := range rich.AllValidationErrors() {
		fields[fe.Field] = true
	}
	for _, field := range []string{"namespace", "requestUrl", "retryLimit"} {
		if !fields[field] {
			t.Fatalf("expected field error for %q, got %#v", field, fields)
		}
	}
}

func TestTrigger_TransportErrorBecomesSyntheticFailure(t *testing.T) {
	transport := &stubTransport{
		sendFn: func(context.Context, WireRequest) (WireResponse, error) {
			return WireResponse{}, errors.New("dial tcp: connection refused")
		},
	}
	store := &stubLogStore{}
	svc := newTestService(t, WithTransport(transport), WithLogStore(store))

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
		RetryLimit: intPtr(0),
	})
	if err != nil {
		t.Fatalf("transport failures should be absorbed, got %v", err)
	}
	if log.Status != LogStatusFail {
		t.Fatalf("expected FAIL record, got %q", log.Status)
	}
	if log.Response.Status != 500 || log.Response.OK {
		t.Fatalf("expected synthetic 500 response, got %+v", log.Response)
	}
	if !strings.Contains(log.Response.Body, "connection refused") {
		t.Fatalf("expected error description in body, got %q", log.Response.Body)
	}
}

func TestTrigger_StoreErrorSurfaces(t *testing.T) {
	transport := &stubTransport{}
	store := &stubLogStore{
		putFn: func(_ context.Context, _ Log) (Log, error) {
			return Log{}, errors.New("provisioned throughput exceeded")
		},
	}
	svc := newTestService(t, WithTransport(transport), WithLogStore(store))

	_, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	})
	if err == nil {
		t.Fatalf("expected store error to surface")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != WebhookErrorStoreFailed {
		t.Fatalf("expected %q, got %q", WebhookErrorStoreFailed, rich.TextCode)
	}
}

func TestTrigger_MissingCollaborators(t *testing.T) {
	svc := newTestService(t, WithLogStore(&stubLogStore{}))
	if _, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	}); err == nil {
		t.Fatalf("expected error without transport")
	}

	svc = newTestService(t, WithTransport(&stubTransport{}))
	if _, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestTrigger_IDPrefixAppliedToAttempts(t *testing.T) {
	store := &stubLogStore{}
	svc := newTestService(t, WithTransport(&stubTransport{}), WithLogStore(store))

	log, err := svc.Trigger(context.Background(), TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
		IDPrefix:   "order-42-",
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !strings.HasPrefix(log.ID, "order-42-") {
		t.Fatalf("expected prefixed id, got %q", log.ID)
	}
}

func TestFetchLogs_DelegatesCompiledPlan(t *testing.T) {
	var captured QueryPlan
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	store := &stubLogStore{
		queryFn: func(_ context.Context, plan QueryPlan) (LogPage, error) {
			captured = plan
			return LogPage{
				Items: []Log{
					{ID: "log-a", Namespace: "orders", Status: LogStatusSuccess},
				},
				LastEvaluatedKey: Cursor{AttrNamespace: "orders", AttrID: "log-a"},
			}, nil
		},
	}
	svc := newTestService(t, WithLogStore(store))

	page, err := svc.FetchLogs(context.Background(), FetchLogsInput{
		Namespace: "orders",
		Status:    LogStatusSuccess,
		Limit:     25,
	})
	if err != nil {
		t.Fatalf("fetch logs: %v", err)
	}
	if captured.Limit != 25 {
		t.Fatalf("expected limit forwarded, got %d", captured.Limit)
	}
	if captured.IndexName != CreatedAtIndexName {
		t.Fatalf("expected range-scan plan, got index %q", captured.IndexName)
	}
	if page.Count != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0].CreatedAt.IsZero() {
		t.Fatalf("expected items re-shaped with timestamps")
	}
	if page.Items[0].CreatedAt != now {
		t.Fatalf("expected clock-driven timestamp, got %v", page.Items[0].CreatedAt)
	}
	if page.LastEvaluatedKey[AttrID] != "log-a" {
		t.Fatalf("expected continuation cursor, got %#v", page.LastEvaluatedKey)
	}
}

func TestFetchLogs_ValidatesInput(t *testing.T) {
	store := &stubLogStore{
		queryFn: func(context.Context, QueryPlan) (LogPage, error) {
			t.Fatalf("store must not be reached")
			return LogPage{}, nil
		},
	}
	svc := newTestService(t, WithLogStore(store))

	from := time.Now()
	_, err := svc.FetchLogs(context.Background(), FetchLogsInput{
		Namespace: "orders",
		ID:        "a",
		IDPrefix:  "b",
		From:      &from,
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rich.Code)
	}
}

func TestClearLogs_RequiresNamespace(t *testing.T) {
	svc := newTestService(t, WithLogStore(&stubLogStore{}))
	if _, err := svc.ClearLogs(context.Background(), "  "); err == nil {
		t.Fatalf("expected validation error for blank namespace")
	}
}

func TestClearLogs_ReportsCount(t *testing.T) {
	store := &stubLogStore{
		clearFn: func(_ context.Context, namespace string) (ClearResult, error) {
			if namespace != "orders" {
				t.Fatalf("unexpected namespace %q", namespace)
			}
			return ClearResult{Count: 7}, nil
		},
	}
	svc := newTestService(t, WithLogStore(store))

	result, err := svc.ClearLogs(context.Background(), "orders")
	if err != nil {
		t.Fatalf("clear logs: %v", err)
	}
	if result.Count != 7 {
		t.Fatalf("expected 7 removed, got %d", result.Count)
	}
}

func TestBackoff_LinearThenCapped(t *testing.T) {
	svc := newTestService(t)
	cases := []struct {
		count int
		want  time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1000 * time.Millisecond},
		{5, 3000 * time.Millisecond},
		{20, 3000 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := svc.backoff(tc.count); got != tc.want {
			t.Fatalf("backoff(%d): expected %v, got %v", tc.count, tc.want, got)
		}
	}
}
