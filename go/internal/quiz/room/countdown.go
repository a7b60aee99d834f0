package room

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

// countdown is the per-room ticker. A tick from a countdown that is no
// longer r.countdown is stale and dropped.
type countdown struct {
	ticker clockwork.Ticker
	done   chan struct{}
}

func (r *Room) startCountdownLocked() {
	r.stopCountdownLocked()

	cd := &countdown{
		ticker: r.clock.NewTicker(r.settings.TickInterval),
		done:   make(chan struct{}),
	}
	r.countdown = cd
	go r.runCountdown(cd)
}

func (r *Room) stopCountdownLocked() {
	if r.countdown == nil {
		return
	}
	r.countdown.ticker.Stop()
	close(r.countdown.done)
	r.countdown = nil
}

func (r *Room) runCountdown(cd *countdown) {
	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.Chan():
			if !r.tick(cd) {
				return
			}
		}
	}
}

// tick publishes the remaining time and finishes the room at zero.
// It returns false once the countdown should stop.
func (r *Room) tick(cd *countdown) bool {
	r.mu.Lock()
	if r.countdown != cd || r.closed {
		r.mu.Unlock()
		return false
	}

	remaining := r.remainingLocked(r.clock.Now())
	r.out.Publish(r.code, r.event(events.EventTypeTimeRemaining, events.TimeRemainingPayload{
		Seconds: remaining,
	}))
	if remaining > 0 {
		r.mu.Unlock()
		return true
	}

	log.Debug().Str("room_code", r.code).Msg("countdown reached zero")
	result, ok := r.finishLocked(ReasonTimeUp, true)
	r.mu.Unlock()

	if ok {
		r.notifyFinished(result)
	}
	return false
}
