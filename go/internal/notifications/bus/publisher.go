package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/triggers"
)

const (
	headerEventType     = "Event-Type"
	headerApplicationID = "Application-ID"
)

// Publisher lets a stringing workflow hand events to the notifier.
type Publisher struct {
	js  jetstream.JetStream
	cfg Config
}

func NewPublisher(js jetstream.JetStream, cfg Config) *Publisher {
	return &Publisher{js: js, cfg: cfg}
}

// Publish sends a trigger. The dedupe key doubles as the JetStream message id,
// so a republish inside the duplicate window is dropped by the server.
func (p *Publisher) Publish(ctx context.Context, t events.Type, c events.Context) error {
	msg, key, err := newTriggerMsg(p.cfg.SubjectPrefix, t, c)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(key),
		jetstream.WithExpectStream(p.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Info().
		Str("subject", msg.Subject).
		Str("dedupe_key", key).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published notification trigger")
	return nil
}

func newTriggerMsg(prefix string, t events.Type, c events.Context) (*nats.Msg, string, error) {
	key, err := triggers.DedupeKey(t, c)
	if err != nil {
		return nil, "", err
	}

	data, err := json.Marshal(TriggerMessage{EventType: t, Context: c})
	if err != nil {
		return nil, "", fmt.Errorf("marshal trigger: %w", err)
	}

	return &nats.Msg{
		Subject: Subject(prefix, t),
		Data:    data,
		Header: nats.Header{
			headerEventType:     []string{t.String()},
			headerApplicationID: []string{c.Application.ID},
		},
	}, key, nil
}
