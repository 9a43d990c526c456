package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

// MutatingService exposes the write side of the webhook service to the
// command bus.
type MutatingService interface {
	Trigger(ctx context.Context, input core.TriggerInput) (core.Log, error)
	ClearLogs(ctx context.Context, namespace string) (core.ClearResult, error)
}

type TriggerWebhookCommand struct {
	service MutatingService
}

func NewTriggerWebhookCommand(service MutatingService) *TriggerWebhookCommand {
	return &TriggerWebhookCommand{service: service}
}

func (c *TriggerWebhookCommand) Execute(ctx context.Context, msg TriggerWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: trigger service is required")
	}
	out, err := c.service.Trigger(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ClearLogsCommand struct {
	service MutatingService
}

func NewClearLogsCommand(service MutatingService) *ClearLogsCommand {
	return &ClearLogsCommand{service: service}
}

func (c *ClearLogsCommand) Execute(ctx context.Context, msg ClearLogsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: clear logs service is required")
	}
	out, err := c.service.ClearLogs(ctx, msg.Namespace)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
