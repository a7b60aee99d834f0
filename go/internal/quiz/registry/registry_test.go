package registry

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

var questions = []models.Question{
	{Text: "Q1", Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 0},
	{Text: "Q2", Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 3},
}

// sink is a Broadcaster that records published event types.
type sink struct {
	mu        sync.Mutex
	published []events.EventType
	left      []string
}

func (s *sink) Join(string, string) {}

func (s *sink) Leave(_, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.left = append(s.left, identity)
}

func (s *sink) Publish(_ string, ev *events.RoomEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, ev.Type)
}

func (s *sink) Send(string, *events.RoomEvent) {}
func (s *sink) Disconnect(string)              {}

func (s *sink) count(t events.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.published {
		if p == t {
			n++
		}
	}
	return n
}

type observerFunc func(models.RoomResult)

func (f observerFunc) RoomFinished(r models.RoomResult) { f(r) }

func newRegistry(t *testing.T) (*Registry, *sink, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	out := &sink{}
	g := New(room.DefaultSettings(), DefaultConfig(), clock, out, nil)
	t.Cleanup(func() { g.Close("test over") })
	return g, out, clock
}

func TestCreate_NormalizesCode(t *testing.T) {
	g, _, _ := newRegistry(t)

	r, err := g.Create("  abc1 ", questions)
	require.NoError(t, err)
	assert.Equal(t, "ABC1", r.Code())
	assert.Equal(t, len(questions), r.Snapshot().TotalQuestions)

	got, err := g.Get("abc1")
	require.NoError(t, err)
	assert.Same(t, r, got)
}

func TestCreate_DuplicateCode(t *testing.T) {
	g, _, _ := newRegistry(t)
	first, err := g.Create("ROOM", questions)
	require.NoError(t, err)

	_, err = g.Create("room", questions)
	assert.ErrorIs(t, err, ErrDuplicateCode)

	got, err := g.Get("ROOM")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 1, g.Len())
}

func TestCreate_RejectsEmptyQuestions(t *testing.T) {
	g, _, _ := newRegistry(t)

	_, err := g.Create("ROOM", nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Zero(t, g.Len())
}

func TestCreate_RejectsOverlongCode(t *testing.T) {
	g, _, _ := newRegistry(t)

	_, err := g.Create(strings.Repeat("A", 17), questions)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestCreate_GeneratesCode(t *testing.T) {
	g, _, _ := newRegistry(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		r, err := g.Create("", questions)
		require.NoError(t, err)
		code := r.Code()
		require.Len(t, code, generatedLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected %q in %s", c, code)
		}
		require.False(t, seen[code])
		seen[code] = true
	}
	assert.Equal(t, 50, g.Len())
}

func TestGet_NotFound(t *testing.T) {
	g, _, _ := newRegistry(t)

	_, err := g.Get("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_CancelsCountdown(t *testing.T) {
	g, out, clock := newRegistry(t)
	r, err := g.Create("ROOM", questions)
	require.NoError(t, err)
	require.NoError(t, r.BindHost("host"))
	require.NoError(t, r.StartCountdown("host"))

	assert.True(t, g.Remove("room"))
	assert.False(t, g.Remove("room"))
	_, err = g.Get("ROOM")
	assert.ErrorIs(t, err, ErrNotFound)

	clock.Advance(time.Hour)
	assert.Never(t, func() bool {
		return out.count(events.EventTypeRoomFinished) > 0
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestDisconnect_PlayerLeavesRoom(t *testing.T) {
	g, _, _ := newRegistry(t)
	r, err := g.Create("ROOM", questions)
	require.NoError(t, err)
	require.NoError(t, r.BindHost("host"))
	_, err = r.AdmitPlayer("p1", "Ana", "")
	require.NoError(t, err)

	g.Disconnect("p1")

	assert.Empty(t, r.Snapshot().Players)
	assert.Equal(t, 1, g.Len())
}

func TestDisconnect_HostEndsAndReclaimsRoom(t *testing.T) {
	clock := clockwork.NewFakeClock()
	out := &sink{}
	var (
		mu      sync.Mutex
		results []models.RoomResult
	)
	g := New(room.DefaultSettings(), DefaultConfig(), clock, out, observerFunc(func(r models.RoomResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}))

	r, err := g.Create("ROOM", questions)
	require.NoError(t, err)
	require.NoError(t, r.BindHost("host"))
	_, err = r.AdmitPlayer("p1", "Ana", "")
	require.NoError(t, err)

	g.Disconnect("host")

	assert.Equal(t, 1, out.count(events.EventTypeRoomEnded))
	assert.Equal(t, models.RoomPhaseFinished, r.Snapshot().Phase)
	_, err = g.Get("ROOM")
	assert.ErrorIs(t, err, ErrNotFound)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.Equal(t, room.ReasonHostDisconnected, results[0].Reason)
}

func TestReap(t *testing.T) {
	g, out, clock := newRegistry(t)

	finished, err := g.Create("DONE", questions)
	require.NoError(t, err)
	finished.End("over")

	_, err = g.Create("IDLE", questions)
	require.NoError(t, err)

	active, err := g.Create("LIVE", questions)
	require.NoError(t, err)
	require.NoError(t, active.BindHost("host"))

	clock.Advance(4 * time.Minute)
	assert.Zero(t, g.Reap())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, g.Reap())
	_, err = g.Get("DONE")
	assert.ErrorIs(t, err, ErrNotFound)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, g.Reap())
	assert.Zero(t, g.Len())
	// the idle rooms were told they expired
	assert.Equal(t, 3, out.count(events.EventTypeRoomEnded))
}

func TestReap_KeepsActiveRooms(t *testing.T) {
	g, _, clock := newRegistry(t)
	r, err := g.Create("LIVE", questions)
	require.NoError(t, err)
	require.NoError(t, r.BindHost("host"))
	require.NoError(t, r.StartCountdown("host"))

	clock.Advance(90 * time.Second)
	assert.Zero(t, g.Reap())
	assert.Equal(t, 1, g.Len())
}

func TestRunReaper(t *testing.T) {
	g, _, clock := newRegistry(t)
	r, err := g.Create("DONE", questions)
	require.NoError(t, err)
	r.End("over")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.RunReaper(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(6 * time.Minute)
	require.Eventually(t, func() bool { return g.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
