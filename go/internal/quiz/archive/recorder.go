package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

// Store persists one finished room.
type Store interface {
	Save(ctx context.Context, result models.RoomResult) error
}

type RecorderConfig struct {
	QueueSize    int
	SaveTimeout  time.Duration
	FlushTimeout time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		QueueSize:    256,
		SaveTimeout:  5 * time.Second,
		FlushTimeout: 10 * time.Second,
	}
}

// Recorder is a room.FinishObserver that archives results on its own
// goroutine. Rooms never wait on the database.
type Recorder struct {
	store Store
	cfg   RecorderConfig
	queue chan models.RoomResult
}

var _ room.FinishObserver = (*Recorder)(nil)

func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	return &Recorder{
		store: store,
		cfg:   cfg,
		queue: make(chan models.RoomResult, cfg.QueueSize),
	}
}

func (r *Recorder) RoomFinished(result models.RoomResult) {
	select {
	case r.queue <- result:
	default:
		log.Warn().
			Str("room_code", result.Code).
			Msg("archive queue full, result not recorded")
	}
}

// Run saves queued results until ctx is cancelled, then flushes the rest.
func (r *Recorder) Run(ctx context.Context) {
	log.Info().Msg("results archive recorder started")

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case result := <-r.queue:
			r.save(ctx, result)
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.FlushTimeout)
	defer cancel()

	for {
		select {
		case result := <-r.queue:
			r.save(ctx, result)
		default:
			log.Info().Msg("results archive recorder stopped")
			return
		}
	}
}

func (r *Recorder) save(ctx context.Context, result models.RoomResult) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SaveTimeout)
	defer cancel()

	if err := r.store.Save(ctx, result); err != nil {
		log.Error().
			Err(err).
			Str("room_code", result.Code).
			Str("reason", result.Reason).
			Msg("failed to archive room result")
		return
	}

	log.Info().
		Str("room_code", result.Code).
		Str("reason", result.Reason).
		Int("players", len(result.Standings)).
		Msg("room result archived")
}
