package room

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

const (
	testCode = "ABC123"
	hostID   = "host-conn"
)

var testQuestions = []models.Question{
	{Text: "Capital of France?", Options: [4]string{"Paris", "Rome", "Berlin", "Madrid"}, CorrectIndex: 0},
	{Text: "2 + 2?", Options: [4]string{"3", "4", "5", "22"}, CorrectIndex: 1},
	{Text: "Largest planet?", Options: [4]string{"Mars", "Venus", "Jupiter", "Earth"}, CorrectIndex: 2},
}

type sentEvent struct {
	to string
	ev *events.RoomEvent
}

// recorder is a Broadcaster that keeps everything it is handed.
type recorder struct {
	mu           sync.Mutex
	published    []*events.RoomEvent
	sent         []sentEvent
	joined       []string
	left         []string
	disconnected []string
}

func (r *recorder) Join(_, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined = append(r.joined, identity)
}

func (r *recorder) Leave(_, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, identity)
}

func (r *recorder) Publish(_ string, ev *events.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ev)
}

func (r *recorder) Send(identity string, ev *events.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{to: identity, ev: ev})
}

func (r *recorder) Disconnect(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, identity)
}

func (r *recorder) publishedOf(t events.EventType) []*events.RoomEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.RoomEvent
	for _, ev := range r.published {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) sentTo(identity string, t events.EventType) []*events.RoomEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.RoomEvent
	for _, s := range r.sent {
		if s.to == identity && s.ev.Type == t {
			out = append(out, s.ev)
		}
	}
	return out
}

func (r *recorder) countSent(identity string, t events.EventType) int {
	return len(r.sentTo(identity, t))
}

func (r *recorder) countPublished(t events.EventType) int {
	return len(r.publishedOf(t))
}

func decode[T any](t *testing.T, ev *events.RoomEvent) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	return out
}

// finishRecorder is a FinishObserver that counts notifications.
type finishRecorder struct {
	mu      sync.Mutex
	results []models.RoomResult
}

func (f *finishRecorder) RoomFinished(result models.RoomResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func (f *finishRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

type fixture struct {
	room  *Room
	out   *recorder
	clock *clockwork.FakeClock
	fin   *finishRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	out := &recorder{}
	fin := &finishRecorder{}
	r, err := New(testCode, testQuestions, DefaultSettings(), clock, out,
		WithRand(rand.New(rand.NewPCG(11, 29))),
		WithObserver(fin),
	)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return &fixture{room: r, out: out, clock: clock, fin: fin}
}

// started binds the host, admits the given players and starts the round
// with every player holding a question.
func (f *fixture) started(t *testing.T, players ...string) {
	t.Helper()
	require.NoError(t, f.room.BindHost(hostID))
	for _, id := range players {
		_, err := f.room.AdmitPlayer(id, id, "")
		require.NoError(t, err)
	}
	require.NoError(t, f.room.StartCountdown(hostID))
	require.NoError(t, f.room.ForceNext(hostID, ""))
}

// lastQuestion returns the question most recently shown to identity.
func (f *fixture) lastQuestion(t *testing.T, identity string) models.Question {
	t.Helper()
	shown := f.out.sentTo(identity, events.EventTypeQuestionShown)
	require.NotEmpty(t, shown, "no question shown to %s", identity)
	p := decode[events.QuestionShownPayload](t, shown[len(shown)-1])
	return testQuestions[p.Index]
}

func (f *fixture) correctAnswer(t *testing.T, identity string) int {
	return f.lastQuestion(t, identity).CorrectIndex
}

func (f *fixture) wrongAnswer(t *testing.T, identity string) int {
	return (f.lastQuestion(t, identity).CorrectIndex + 1) % models.OptionCount
}

// lastRemaining returns the most recent published countdown value, or -1.
func (f *fixture) lastRemaining() int {
	ticks := f.out.publishedOf(events.EventTypeTimeRemaining)
	if len(ticks) == 0 {
		return -1
	}
	var p events.TimeRemainingPayload
	if err := json.Unmarshal(ticks[len(ticks)-1].Data, &p); err != nil {
		return -1
	}
	return p.Seconds
}
