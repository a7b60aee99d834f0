package room

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/chest"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

const noQuestion = -1

// chestSlots are the cosmetic choices offered with every chest invite.
var chestSlots = []int{0, 1, 2}

// progress tracks one player's position in their own question loop.
// seq increases whenever a pending serve is scheduled or cancelled, so a
// delayed callback only acts if nothing happened since it was armed.
type progress struct {
	current        int
	chestAvailable bool
	seq            uint64
	pending        clockwork.Timer
}

func newProgress() *progress {
	return &progress{current: noQuestion}
}

func (p *progress) cancel() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	p.seq++
}

// ServeQuestion sends identity a freshly drawn question.
func (r *Room) ServeQuestion(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, err := r.activePlayerLocked(identity)
	if err != nil {
		return err
	}
	r.serveLocked(identity, pr)
	return nil
}

// SubmitAnswer grades answerIndex against the outstanding question. The
// outstanding question is cleared either way. A correct answer opens a chest;
// a wrong one schedules the next question after the retry delay.
func (r *Room) SubmitAnswer(identity string, answerIndex int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, err := r.activePlayerLocked(identity)
	if err != nil {
		return false, err
	}
	if pr.current == noQuestion {
		return false, ErrNoQuestion
	}

	correct := r.questions[pr.current].CorrectIndex == answerIndex
	pr.current = noQuestion
	r.out.Send(identity, r.event(events.EventTypeAnswerResult, events.AnswerResultPayload{
		Correct: correct,
	}))

	if correct {
		pr.chestAvailable = true
		r.out.Send(identity, r.event(events.EventTypeChestInvite, events.ChestInvitePayload{
			Choices: chestSlots,
		}))
	} else {
		r.scheduleServeLocked(identity, pr, r.settings.RetryDelay)
	}

	log.Debug().
		Str("room_code", r.code).
		Str("identity", identity).
		Bool("correct", correct).
		Msg("answer graded")
	return correct, nil
}

// ForceNext serves target immediately, bypassing correctness and chest
// gating. An empty target serves every player in the roster.
func (r *Room) ForceNext(caller, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if r.closed || r.phase != models.RoomPhaseActive {
		return ErrNotActive
	}

	if target != "" {
		pr, ok := r.progress[target]
		if !ok {
			return ErrUnknownPlayer
		}
		r.serveLocked(target, pr)
		return nil
	}
	for _, id := range r.sortedPlayerIDs() {
		r.serveLocked(id, r.progress[id])
	}
	return nil
}

// Ready serves identity a question when it has nothing outstanding, no
// chest to open and no serve already scheduled.
func (r *Room) Ready(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, err := r.activePlayerLocked(identity)
	if err != nil {
		return err
	}
	if pr.current != noQuestion || pr.chestAvailable || pr.pending != nil {
		return nil
	}
	r.serveLocked(identity, pr)
	return nil
}

// ChoosePick resolves identity's open chest. The chest flag is cleared in
// the same critical section as the draw, so a cycle resolves at most once.
func (r *Room) ChoosePick(identity string) (chest.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, err := r.activePlayerLocked(identity)
	if err != nil {
		return chest.Outcome{}, err
	}
	if !pr.chestAvailable {
		return chest.Outcome{}, ErrNoChest
	}
	pr.chestAvailable = false

	drawn := chest.Draw(r.rng, r.settings.Chest)
	outcome := chest.Apply(r.rng, r.settings.Chest, drawn, identity, r.players)

	r.out.Publish(r.code, r.event(events.EventTypeChestResolved, events.ChestResolvedPayload{
		ActorID: identity,
		Outcome: outcome,
		Players: models.Standings(r.players),
	}))
	r.scheduleServeLocked(identity, pr, r.settings.ResumeDelay)

	log.Info().
		Str("room_code", r.code).
		Str("identity", identity).
		Str("outcome", string(outcome.Kind)).
		Str("target", outcome.TargetID).
		Int("amount", outcome.Amount).
		Msg("chest resolved")
	return outcome, nil
}

func (r *Room) activePlayerLocked(identity string) (*progress, error) {
	if r.closed || r.phase != models.RoomPhaseActive {
		return nil, ErrNotActive
	}
	pr, ok := r.progress[identity]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return pr, nil
}

func (r *Room) serveLocked(identity string, pr *progress) {
	pr.cancel()
	idx := r.rng.IntN(len(r.questions))
	pr.current = idx
	pr.chestAvailable = false

	q := r.questions[idx]
	r.out.Send(identity, r.event(events.EventTypeQuestionShown, events.QuestionShownPayload{
		Index:   idx,
		Text:    q.Text,
		Options: q.Options,
	}))
}

func (r *Room) scheduleServeLocked(identity string, pr *progress, delay time.Duration) {
	pr.cancel()
	seq := pr.seq
	pr.pending = r.clock.AfterFunc(delay, func() {
		r.delayedServe(identity, pr, seq)
	})
}

func (r *Room) delayedServe(identity string, pr *progress, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != models.RoomPhaseActive {
		return
	}
	if r.progress[identity] != pr || pr.seq != seq {
		log.Debug().Str("room_code", r.code).Str("identity", identity).Msg("stale delayed serve dropped")
		return
	}
	pr.pending = nil
	r.serveLocked(identity, pr)
}
