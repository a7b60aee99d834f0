// Package relay mirrors room-wide events to NATS JetStream for downstream
// consumers. Live delivery to clients never waits on the bus.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/quiz/events"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

// Publisher is implemented by JetStreamPublisher.
type Publisher interface {
	Publish(ctx context.Context, ev *events.RoomEvent) error
}

type MirrorConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	FlushTimeout   time.Duration // budget for draining the queue on shutdown
}

func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{
		QueueSize:      1024,
		PublishTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
		FlushTimeout:   5 * time.Second,
	}
}

// Mirror is a room.Broadcaster that forwards everything to next and also
// queues every room-wide event for the publisher. Private events are not
// mirrored.
type Mirror struct {
	next      room.Broadcaster
	publisher Publisher
	clock     clockwork.Clock
	cfg       MirrorConfig
	queue     chan *events.RoomEvent
}

var _ room.Broadcaster = (*Mirror)(nil)

func NewMirror(next room.Broadcaster, publisher Publisher, clock clockwork.Clock, cfg MirrorConfig) *Mirror {
	return &Mirror{
		next:      next,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		queue:     make(chan *events.RoomEvent, cfg.QueueSize),
	}
}

func (m *Mirror) Join(code, identity string)  { m.next.Join(code, identity) }
func (m *Mirror) Leave(code, identity string) { m.next.Leave(code, identity) }
func (m *Mirror) Disconnect(identity string)  { m.next.Disconnect(identity) }

func (m *Mirror) Send(identity string, ev *events.RoomEvent) {
	m.next.Send(identity, ev)
}

func (m *Mirror) Publish(code string, ev *events.RoomEvent) {
	m.next.Publish(code, ev)

	select {
	case m.queue <- ev:
	default:
		log.Warn().
			Str("room_code", code).
			Str("event_type", string(ev.Type)).
			Msg("relay queue full, event not mirrored")
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left within FlushTimeout.
func (m *Mirror) Run(ctx context.Context) {
	log.Info().Int("queue_size", m.cfg.QueueSize).Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			m.flush()
			return
		case ev := <-m.queue:
			m.publish(ctx, ev)
		}
	}
}

func (m *Mirror) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.FlushTimeout)
	defer cancel()

	flushed := 0
	for {
		select {
		case ev := <-m.queue:
			if ctx.Err() != nil {
				log.Warn().Int("flushed", flushed).Int("dropped", len(m.queue)+1).Msg("relay flush timed out")
				return
			}
			m.publish(ctx, ev)
			flushed++
		default:
			log.Info().Int("flushed", flushed).Msg("event relay stopped")
			return
		}
	}
}

func (m *Mirror) publish(ctx context.Context, ev *events.RoomEvent) {
	var err error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-m.clock.After(m.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, m.cfg.PublishTimeout)
		err = m.publisher.Publish(pubCtx, ev)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			break
		}
		log.Warn().
			Err(err).
			Str("event_id", ev.ID).
			Int("attempt", attempt+1).
			Msg("mirror publish failed")
	}

	log.Error().
		Err(err).
		Str("room_code", ev.RoomCode).
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Msg("giving up on mirrored event")
}
