package webhooks

import (
	"fmt"

	webhookcommand "github.com/goliatone/go-webhooks/command"
	webhookquery "github.com/goliatone/go-webhooks/query"
)

// WebhookService is the full command/query surface the facade wraps.
type WebhookService interface {
	webhookcommand.MutatingService
	webhookquery.LogReader
}

type Commands struct {
	Trigger   *webhookcommand.TriggerWebhookCommand
	ClearLogs *webhookcommand.ClearLogsCommand
}

type Queries struct {
	FetchLogs *webhookquery.FetchLogsQuery
}

// Facade bundles the service's command and query handlers so callers can
// register them on a dispatcher in one pass.
type Facade struct {
	service  WebhookService
	commands Commands
	queries  Queries
}

func NewFacade(service WebhookService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Trigger:   webhookcommand.NewTriggerWebhookCommand(service),
		ClearLogs: webhookcommand.NewClearLogsCommand(service),
	}
	facade.queries = Queries{
		FetchLogs: webhookquery.NewFetchLogsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() WebhookService {
	if f == nil {
		return nil
	}
	return f.service
}
