package relay

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

// TailHandler receives each mirrored event with its decoded payload.
// The payload is nil for event types this build does not know.
type TailHandler func(ev *events.RoomEvent, payload any)

// TailOptions selects what Tail follows.
type TailOptions struct {
	RoomCode  string // empty follows every room
	FromStart bool   // replay retained events before following new ones
}

// Tail follows the mirrored event stream until ctx is cancelled.
func Tail(ctx context.Context, cfg JetStreamConfig, opts TailOptions, fn TailHandler) error {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("moogle-tail"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	deliver := jetstream.DeliverNewPolicy
	if opts.FromStart {
		deliver = jetstream.DeliverAllPolicy
	}
	filter := TailSubject(cfg.SubjectPrefix, opts.RoomCode)
	consumer, err := js.OrderedConsumer(ctx, cfg.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{filter},
		DeliverPolicy:  deliver,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		ev, payload, err := decodeMirrored(msg.Data())
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject()).Msg("skipping undecodable event")
			return
		}
		fn(ev, payload)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", filter, err)
	}
	defer cc.Stop()

	log.Info().Str("stream", cfg.StreamName).Str("filter", filter).Msg("tailing room events")
	<-ctx.Done()
	return nil
}

// TailSubject is the filter subject for one room, or for all rooms when code is empty.
func TailSubject(prefix, code string) string {
	if code == "" {
		return prefix + ".>"
	}
	return fmt.Sprintf("%s.%s.>", prefix, subjectToken(code))
}

func decodeMirrored(data []byte) (*events.RoomEvent, any, error) {
	ev, err := events.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	payload, err := events.ParsePayload(ev)
	if err != nil {
		return nil, nil, err
	}
	return ev, payload, nil
}
