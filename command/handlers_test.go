package command

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

type stubMutatingService struct {
	triggerFn   func(ctx context.Context, input core.TriggerInput) (core.Log, error)
	clearLogsFn func(ctx context.Context, namespace string) (core.ClearResult, error)
}

func (s stubMutatingService) Trigger(ctx context.Context, input core.TriggerInput) (core.Log, error) {
	if s.triggerFn == nil {
		return core.Log{}, nil
	}
	return s.triggerFn(ctx, input)
}

func (s stubMutatingService) ClearLogs(ctx context.Context, namespace string) (core.ClearResult, error) {
	if s.clearLogsFn == nil {
		return core.ClearResult{}, nil
	}
	return s.clearLogsFn(ctx, namespace)
}

func TestTriggerWebhookCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.Log{ID: "log-1", Namespace: "orders", Status: core.LogStatusSuccess}
	called := false

	svc := stubMutatingService{
		triggerFn: func(_ context.Context, input core.TriggerInput) (core.Log, error) {
			called = true
			if input.Namespace != "orders" {
				t.Fatalf("expected namespace orders, got %q", input.Namespace)
			}
			return expected, nil
		},
	}

	cmd := NewTriggerWebhookCommand(svc)
	collector := gocmd.NewResult[core.Log]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, TriggerWebhookMessage{Input: core.TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	}})
	if err != nil {
		t.Fatalf("execute trigger: %v", err)
	}
	if !called {
		t.Fatalf("expected trigger service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.Status != expected.Status {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestClearLogsCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	svc := stubMutatingService{
		clearLogsFn: func(_ context.Context, namespace string) (core.ClearResult, error) {
			if namespace != "orders" {
				t.Fatalf("unexpected namespace %q", namespace)
			}
			return core.ClearResult{Count: 5}, nil
		},
	}

	cmd := NewClearLogsCommand(svc)
	collector := gocmd.NewResult[core.ClearResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ClearLogsMessage{Namespace: "orders"}); err != nil {
		t.Fatalf("execute clear logs: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.Count != 5 {
		t.Fatalf("expected 5 removed, got %d", result.Count)
	}
}

func TestClearLogsMessage_RejectsBlankNamespace(t *testing.T) {
	if err := (ClearLogsMessage{Namespace: "  "}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := (ClearLogsMessage{Namespace: "orders"}).Validate(); err != nil {
		t.Fatalf("valid namespace must pass: %v", err)
	}
}

func TestCommands_ExecuteWithoutResultCollector(t *testing.T) {
	cmd := NewTriggerWebhookCommand(stubMutatingService{})
	if err := cmd.Execute(context.Background(), TriggerWebhookMessage{Input: core.TriggerInput{
		Namespace:  "orders",
		RequestURL: "https://example.com/hook",
	}}); err != nil {
		t.Fatalf("missing collector must not fail execution: %v", err)
	}
}

func TestMessageTypes(t *testing.T) {
	if got := (TriggerWebhookMessage{}).Type(); got != TypeTriggerWebhook {
		t.Fatalf("unexpected type %q", got)
	}
	if got := (ClearLogsMessage{}).Type(); got != TypeClearLogs {
		t.Fatalf("unexpected type %q", got)
	}
}
