package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/courtline/go/internal/config"
	"github.com/mcdev12/courtline/go/internal/notifications/channels"
	"github.com/mcdev12/courtline/go/internal/notifications/dispatch"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
	"github.com/mcdev12/courtline/go/internal/notifications/triggers"
)

type Services struct {
	Outbox     *outbox.App
	Dispatcher *dispatch.Dispatcher
	Triggers   *triggers.Triggers
}

func setupServices(cfg *config.Config, repo outbox.OutboxRepository) (*Services, error) {
	// Repository → Outbox app → Dispatcher (renderer + senders) → Triggers
	outboxApp := outbox.NewApp(repo, clockwork.NewRealClock())

	renderer, err := render.New(cfg.Render)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	metrics, err := dispatch.NewOTelMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch metrics: %w", err)
	}

	senders := dispatch.Senders{
		Email: channels.NewEmailSender(cfg.Email),
		SMS:   channels.NewSMSSender(cfg.SMS),
		Slack: channels.NewSlackSender(cfg.Slack),
	}
	dispatcher := dispatch.NewDispatcher(renderer, outboxApp, senders, dispatch.WithMetrics(metrics))

	return &Services{
		Outbox:     outboxApp,
		Dispatcher: dispatcher,
		Triggers:   triggers.New(dispatcher),
	}, nil
}
