package room

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/chest"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

const (
	// ReasonTimeUp is recorded when the countdown reaches zero.
	ReasonTimeUp = "Time is up"
	// ReasonHostEnded is used when the host ends the room without a reason.
	ReasonHostEnded = "Host ended the game"
	// ReasonHostDisconnected is used when the host connection goes away.
	ReasonHostDisconnected = "Host disconnected"
)

// Settings holds the timing and economy knobs for a room.
type Settings struct {
	RoundDuration time.Duration `yaml:"round_duration"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	ResumeDelay   time.Duration `yaml:"resume_delay"`
	Chest         chest.Config  `yaml:"chest"`
}

// DefaultSettings returns the reference timings: a three minute round with
// one second ticks and two second pauses after a wrong answer or a chest.
func DefaultSettings() Settings {
	return Settings{
		RoundDuration: 180 * time.Second,
		TickInterval:  time.Second,
		RetryDelay:    2 * time.Second,
		ResumeDelay:   2 * time.Second,
		Chest:         chest.DefaultConfig(),
	}
}

// Option configures a Room at construction.
type Option func(*Room)

// WithRand replaces the room's random source.
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) { r.rng = rng }
}

// WithObserver registers an observer for the finished transition.
func WithObserver(o FinishObserver) Option {
	return func(r *Room) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Room is one live trivia session. Every exported method is safe for
// concurrent use; all state is guarded by mu.
type Room struct {
	code      string
	questions []models.Question
	settings  Settings
	clock     clockwork.Clock
	out       Broadcaster
	observers []FinishObserver

	mu         sync.Mutex
	rng        *rand.Rand
	phase      models.RoomPhase
	hostID     string
	players    map[string]*models.Player
	progress   map[string]*progress
	createdAt  time.Time
	startedAt  time.Time
	endAt      time.Time
	finishedAt time.Time
	countdown  *countdown
	closed     bool
}

// New creates a room in the waiting phase. The question slice is copied.
func New(code string, questions []models.Question, settings Settings, clock clockwork.Clock, out Broadcaster, opts ...Option) (*Room, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("room %s needs at least one question: %w", code, ErrInvalidInput)
	}
	r := &Room{
		code:      code,
		questions: append([]models.Question(nil), questions...),
		settings:  settings,
		clock:     clock,
		out:       out,
		phase:     models.RoomPhaseWaiting,
		players:   make(map[string]*models.Player),
		progress:  make(map[string]*progress),
		createdAt: clock.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return r, nil
}

// Code returns the room's join code.
func (r *Room) Code() string {
	return r.code
}

// BindHost makes identity the room's host, replacing any previous host, and
// sends it a private roomReady.
func (r *Room) BindHost(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase == models.RoomPhaseFinished {
		return ErrFinished
	}

	prev := r.hostID
	r.hostID = identity
	if prev != "" && prev != identity {
		if _, isPlayer := r.players[prev]; !isPlayer {
			r.out.Leave(r.code, prev)
		}
	}
	r.out.Join(r.code, identity)

	endsAt, remaining := r.deadlineLocked()
	r.out.Send(identity, r.event(events.EventTypeRoomReady, events.RoomReadyPayload{
		Code:             r.code,
		Phase:            r.phase,
		Players:          models.Standings(r.players),
		TotalQuestions:   len(r.questions),
		EndsAt:           endsAt,
		TimeRemainingSec: remaining,
	}))

	log.Info().Str("room_code", r.code).Str("identity", identity).Msg("host bound")
	return nil
}

// AdmitPlayer adds identity to the roster with a zero balance. Re-admitting
// an identity that is already present resets its record and progress.
func (r *Room) AdmitPlayer(identity, rawName, rawAvatar string) (models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase == models.RoomPhaseFinished {
		return models.Player{}, ErrFinished
	}

	if old, ok := r.progress[identity]; ok {
		old.cancel()
	}
	p := &models.Player{
		ID:     identity,
		Name:   cleanName(rawName),
		Avatar: cleanAvatar(rawAvatar),
	}
	r.players[identity] = p
	r.progress[identity] = newProgress()

	r.out.Join(r.code, identity)
	r.publishRosterLocked()

	endsAt, _ := r.deadlineLocked()
	r.out.Send(identity, r.event(events.EventTypeJoinAck, events.JoinAckPayload{
		Self:   *p,
		EndsAt: endsAt,
	}))

	log.Info().
		Str("room_code", r.code).
		Str("identity", identity).
		Str("name", p.Name).
		Int("players", len(r.players)).
		Msg("player admitted")
	return *p, nil
}

// RemovePlayer drops identity from the roster and cancels its pending serve.
func (r *Room) RemovePlayer(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[identity]; !ok {
		return ErrUnknownPlayer
	}
	r.removeLocked(identity)
	return nil
}

// Disconnect removes identity from the roster if present and reports whether
// it was the room's host.
func (r *Room) Disconnect(identity string) (hostLeft bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[identity]; ok {
		r.removeLocked(identity)
	}
	return identity != "" && identity == r.hostID
}

func (r *Room) removeLocked(identity string) {
	if pr, ok := r.progress[identity]; ok {
		pr.cancel()
	}
	delete(r.progress, identity)
	delete(r.players, identity)
	if identity != r.hostID {
		r.out.Leave(r.code, identity)
	}
	if !r.closed {
		r.publishRosterLocked()
	}
	log.Info().Str("room_code", r.code).Str("identity", identity).Msg("player removed")
}

// StartCountdown moves the room to active and (re)starts the round timer.
// A restart replaces the previous deadline and ticker.
func (r *Room) StartCountdown(caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if r.closed || r.phase == models.RoomPhaseFinished {
		return ErrFinished
	}

	now := r.clock.Now()
	if r.phase == models.RoomPhaseWaiting {
		r.startedAt = now
	}
	r.phase = models.RoomPhaseActive
	r.endAt = now.Add(r.settings.RoundDuration)
	r.startCountdownLocked()

	r.out.Publish(r.code, r.event(events.EventTypeTimeRemaining, events.TimeRemainingPayload{
		Seconds: r.remainingLocked(now),
	}))

	log.Info().
		Str("room_code", r.code).
		Time("ends_at", r.endAt).
		Msg("round countdown started")
	return nil
}

// End finishes the room with reason. It reports whether this call performed
// the transition; ending an already finished room does nothing.
func (r *Room) End(reason string) bool {
	r.mu.Lock()
	result, ok := r.finishLocked(reason, false)
	r.mu.Unlock()

	if ok {
		r.notifyFinished(result)
	}
	return ok
}

// HostEnd is End restricted to the bound host.
func (r *Room) HostEnd(caller, reason string) error {
	r.mu.Lock()
	if err := r.requireHostLocked(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	if reason == "" {
		reason = ReasonHostEnded
	}
	result, ok := r.finishLocked(reason, false)
	r.mu.Unlock()

	if !ok {
		return ErrFinished
	}
	r.notifyFinished(result)
	return nil
}

// Close releases the room's timers and subscriptions without broadcasting.
// A closed room honors nothing further.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.stopCountdownLocked()
	for _, pr := range r.progress {
		pr.cancel()
	}
	for id := range r.players {
		r.out.Leave(r.code, id)
	}
	if r.hostID != "" {
		r.out.Leave(r.code, r.hostID)
	}
}

// Snapshot returns a consistent read-only view of the room.
func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	endsAt, remaining := r.deadlineLocked()
	snap := models.RoomSnapshot{
		Code:             r.code,
		Phase:            r.phase,
		HostBound:        r.hostID != "",
		Players:          models.Standings(r.players),
		TotalQuestions:   len(r.questions),
		EndsAt:           endsAt,
		TimeRemainingSec: remaining,
		CreatedAt:        r.createdAt,
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}

// finishLocked performs the transition to finished. It returns false when
// the room was already finished or closed.
func (r *Room) finishLocked(reason string, expired bool) (models.RoomResult, bool) {
	if r.closed || r.phase == models.RoomPhaseFinished {
		return models.RoomResult{}, false
	}

	r.phase = models.RoomPhaseFinished
	r.finishedAt = r.clock.Now()
	r.stopCountdownLocked()
	for _, pr := range r.progress {
		pr.cancel()
		pr.current = noQuestion
		pr.chestAvailable = false
	}

	standings := models.Standings(r.players)
	if expired {
		r.out.Publish(r.code, r.event(events.EventTypeRoomFinished, events.RoomFinishedPayload{
			Players: standings,
		}))
	} else {
		r.out.Publish(r.code, r.event(events.EventTypeRoomEnded, events.RoomEndedPayload{
			Reason:  reason,
			Players: standings,
		}))
	}

	result := models.RoomResult{
		Code:           r.code,
		Reason:         reason,
		Expired:        expired,
		Standings:      standings,
		TotalQuestions: len(r.questions),
		CreatedAt:      r.createdAt,
		FinishedAt:     r.finishedAt,
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		result.StartedAt = &t
	}

	log.Info().
		Str("room_code", r.code).
		Str("reason", reason).
		Bool("expired", expired).
		Int("players", len(standings)).
		Msg("room finished")
	return result, true
}

func (r *Room) notifyFinished(result models.RoomResult) {
	for _, o := range r.observers {
		o.RoomFinished(result)
	}
}

func (r *Room) requireHostLocked(caller string) error {
	if caller == "" || caller != r.hostID {
		return ErrForbidden
	}
	return nil
}

func (r *Room) publishRosterLocked() {
	r.out.Publish(r.code, r.event(events.EventTypeRosterUpdate, events.RosterUpdatePayload{
		Players: models.Standings(r.players),
	}))
}

// deadlineLocked returns the end time and remaining seconds while active.
func (r *Room) deadlineLocked() (*time.Time, int) {
	if r.phase != models.RoomPhaseActive {
		return nil, 0
	}
	t := r.endAt
	return &t, r.remainingLocked(r.clock.Now())
}

func (r *Room) remainingLocked(now time.Time) int {
	remaining := int(r.endAt.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *Room) event(t events.EventType, payload any) *events.RoomEvent {
	return events.New(r.code, t, r.clock.Now(), payload)
}

// sortedPlayerIDs returns roster identities in a stable order.
func (r *Room) sortedPlayerIDs() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
