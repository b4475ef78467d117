package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/notifications/dispatch"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
	"github.com/mcdev12/courtline/go/internal/notifications/triggers"
)

// Firer is satisfied by *triggers.Triggers.
type Firer interface {
	Fire(ctx context.Context, t events.Type, c events.Context) (dispatch.Result, error)
}

// Decision is what to tell JetStream about a message.
type Decision int

const (
	Ack Decision = iota
	// Nak redelivers later. Used when the outbox could not be written.
	Nak
	// Term drops a message that can never succeed.
	Term
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Nak:
		return "nak"
	case Term:
		return "term"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Handle decodes one trigger message and fires it. A channel failure is already
// recorded on the outbox record by the time Fire returns, so it is acked.
func Handle(ctx context.Context, f Firer, data []byte) Decision {
	var msg TriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Msg("undecodable notification trigger")
		return Term
	}

	res, err := f.Fire(ctx, msg.EventType, msg.Context)
	switch {
	case err == nil:
		log.Debug().
			Str("event_type", msg.EventType.String()).
			Str("record_id", res.RecordID.String()).
			Str("status", string(res.Status)).
			Bool("duplicate", res.Duplicate).
			Msg("notification trigger handled")
		return Ack
	case errors.Is(err, render.ErrUnknownEvent), errors.Is(err, triggers.ErrApplicationIDRequired):
		log.Error().Err(err).Str("event_type", msg.EventType.String()).Msg("dropping notification trigger")
		return Term
	default:
		return Nak
	}
}

// Consumer feeds the trigger stream into a Firer.
type Consumer struct {
	js    jetstream.JetStream
	cfg   Config
	firer Firer
}

func NewConsumer(js jetstream.JetStream, cfg Config, firer Firer) *Consumer {
	return &Consumer{
		js:    js,
		cfg:   cfg,
		firer: firer,
	}
}

func (c *Consumer) ensureConsumer(ctx context.Context) (jetstream.Consumer, error) {
	stream, err := c.js.Stream(ctx, c.cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          c.cfg.ConsumerName,
		Durable:       c.cfg.ConsumerName,
		Description:   "Stringing notification dispatcher",
		FilterSubject: fmt.Sprintf("%s.>", c.cfg.SubjectPrefix),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.cfg.MaxDeliver,
		AckWait:       c.cfg.AckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	return consumer, nil
}

// Run consumes until ctx is done. Messages are handled one at a time.
func (c *Consumer) Run(ctx context.Context) error {
	consumer, err := c.ensureConsumer(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("stream", c.cfg.StreamName).
		Str("consumer", c.cfg.ConsumerName).
		Msg("notification consumer started")

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		c.settle(msg, c.handle(ctx, msg.Data()))
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Drain()
	<-consumeCtx.Closed()
	log.Info().Str("consumer", c.cfg.ConsumerName).Msg("notification consumer stopped")
	return nil
}

// handle runs one message detached from ctx. Drain lets an in-flight message
// finish after shutdown starts, and its outcome must still be stored.
func (c *Consumer) handle(ctx context.Context, data []byte) Decision {
	return Handle(context.WithoutCancel(ctx), c.firer, data)
}

func (c *Consumer) settle(msg jetstream.Msg, d Decision) {
	var err error
	switch d {
	case Ack:
		err = msg.Ack()
	case Nak:
		err = msg.NakWithDelay(c.cfg.NakDelay)
	case Term:
		err = msg.Term()
	}
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Str("decision", d.String()).Msg("failed to settle message")
	}
}
