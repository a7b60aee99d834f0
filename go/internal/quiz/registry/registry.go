package registry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

var (
	ErrNotFound      = errors.New("room not found")
	ErrDuplicateCode = errors.New("room code already in use")
	ErrNoQuestions   = errors.New("question set is empty")
	ErrInvalidCode   = errors.New("invalid room code")
)

const (
	// ReasonExpired ends rooms that never started.
	ReasonExpired = "Room expired"

	// codeAlphabet leaves out 0, O, 1 and I.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	generatedLength = 6
	maxCodeLength   = 16
	maxGenerateTry  = 32
)

// Config controls room reclamation.
type Config struct {
	ReapInterval    time.Duration `yaml:"reap_interval"`
	FinishedRoomTTL time.Duration `yaml:"finished_room_ttl"`
	IdleRoomTTL     time.Duration `yaml:"idle_room_ttl"`
}

// DefaultConfig returns the reclamation defaults.
func DefaultConfig() Config {
	return Config{
		ReapInterval:    time.Minute,
		FinishedRoomTTL: 5 * time.Minute,
		IdleRoomTTL:     2 * time.Hour,
	}
}

// Registry maps join codes to live rooms. Its lock is never held while a
// room method runs.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	settings room.Settings
	config   Config
	clock    clockwork.Clock
	out      room.Broadcaster
	observer room.FinishObserver

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an empty registry. observer may be nil.
func New(settings room.Settings, config Config, clock clockwork.Clock, out room.Broadcaster, observer room.FinishObserver) *Registry {
	return &Registry{
		rooms:    make(map[string]*room.Room),
		settings: settings,
		config:   config,
		clock:    clock,
		out:      out,
		observer: observer,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NormalizeCode trims and upper-cases a join code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create registers a new room. An empty code asks for a generated one.
func (g *Registry) Create(code string, questions []models.Question) (*room.Room, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	code = NormalizeCode(code)
	generate := code == ""
	if !generate && utf8.RuneCountInString(code) > maxCodeLength {
		return nil, fmt.Errorf("code longer than %d characters: %w", maxCodeLength, ErrInvalidCode)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if generate {
		var err error
		if code, err = g.generateCodeLocked(); err != nil {
			return nil, err
		}
	} else if _, exists := g.rooms[code]; exists {
		return nil, fmt.Errorf("create room %s: %w", code, ErrDuplicateCode)
	}

	g.rngMu.Lock()
	seed1, seed2 := g.rng.Uint64(), g.rng.Uint64()
	g.rngMu.Unlock()

	opts := []room.Option{room.WithRand(rand.New(rand.NewPCG(seed1, seed2)))}
	if g.observer != nil {
		opts = append(opts, room.WithObserver(g.observer))
	}
	r, err := room.New(code, questions, g.settings, g.clock, g.out, opts...)
	if err != nil {
		return nil, fmt.Errorf("create room %s: %w", code, err)
	}
	g.rooms[code] = r

	log.Info().
		Str("room_code", code).
		Int("questions", len(questions)).
		Int("rooms", len(g.rooms)).
		Msg("room created")
	return r, nil
}

// Get looks up a room by code.
func (g *Registry) Get(code string) (*room.Room, error) {
	code = NormalizeCode(code)

	g.mu.RLock()
	r, ok := g.rooms[code]
	g.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrNotFound)
	}
	return r, nil
}

// Remove drops a room and releases its timers. It reports whether the code was registered.
func (g *Registry) Remove(code string) bool {
	code = NormalizeCode(code)

	g.mu.Lock()
	r, ok := g.rooms[code]
	delete(g.rooms, code)
	g.mu.Unlock()

	if !ok {
		return false
	}
	r.Close()
	log.Info().Str("room_code", code).Msg("room removed")
	return true
}

// Len returns the number of registered rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Disconnect removes identity from every room it belongs to. A room whose
// host disconnected is ended and reclaimed.
func (g *Registry) Disconnect(identity string) {
	for _, r := range g.list() {
		if !r.Disconnect(identity) {
			continue
		}
		log.Info().Str("room_code", r.Code()).Str("identity", identity).Msg("host disconnected")
		r.End(room.ReasonHostDisconnected)
		g.Remove(r.Code())
	}
}

// Reap removes finished rooms older than FinishedRoomTTL and rooms that
// never started within IdleRoomTTL. It returns the number removed.
func (g *Registry) Reap() int {
	now := g.clock.Now()
	removed := 0
	for _, r := range g.list() {
		snap := r.Snapshot()
		var expired bool
		switch snap.Phase {
		case models.RoomPhaseFinished:
			expired = snap.FinishedAt != nil && now.Sub(*snap.FinishedAt) >= g.config.FinishedRoomTTL
		case models.RoomPhaseWaiting:
			expired = now.Sub(snap.CreatedAt) >= g.config.IdleRoomTTL
		}
		if !expired {
			continue
		}
		if snap.Phase == models.RoomPhaseWaiting {
			r.End(ReasonExpired)
		}
		if g.Remove(snap.Code) {
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Int("rooms", g.Len()).Msg("reaped rooms")
	}
	return removed
}

// RunReaper calls Reap on every ReapInterval until ctx is cancelled.
func (g *Registry) RunReaper(ctx context.Context) {
	ticker := g.clock.NewTicker(g.config.ReapInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", g.config.ReapInterval).Msg("room reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("room reaper shutting down")
			return
		case <-ticker.Chan():
			g.Reap()
		}
	}
}

// Close ends and removes every room.
func (g *Registry) Close(reason string) {
	for _, r := range g.list() {
		r.End(reason)
		g.Remove(r.Code())
	}
}

func (g *Registry) list() []*room.Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*room.Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

func (g *Registry) generateCodeLocked() (string, error) {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()

	buf := make([]byte, generatedLength)
	for attempt := 0; attempt < maxGenerateTry; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[g.rng.IntN(len(codeAlphabet))]
		}
		code := string(buf)
		if _, exists := g.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free code after %d attempts: %w", maxGenerateTry, ErrDuplicateCode)
}
