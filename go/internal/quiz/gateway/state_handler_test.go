package gateway

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/registry"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

func newStateMux(t *testing.T) (*http.ServeMux, *room.Room, *StateHandler) {
	t.Helper()
	rooms := registry.New(room.DefaultSettings(), registry.DefaultConfig(), clockwork.NewFakeClock(), newOutbox(), nil)
	t.Cleanup(func() { rooms.Close("test over") })
	rm, err := rooms.Create("LOBBY", bank)
	require.NoError(t, err)

	h := NewStateHandler(rooms, "https://quiz.example.com")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, rm, h
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRoomState(t *testing.T) {
	mux, rm, _ := newStateMux(t)
	require.NoError(t, rm.BindHost("host"))
	_, err := rm.AdmitPlayer("p1", "Ana", "")
	require.NoError(t, err)

	rec := get(mux, "/api/rooms/lobby/state")

	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "LOBBY", snap.Code)
	assert.Equal(t, models.RoomPhaseWaiting, snap.Phase)
	assert.True(t, snap.HostBound)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Ana", snap.Players[0].Name)
}

func TestRoomState_NotFound(t *testing.T) {
	mux, _, _ := newStateMux(t)

	rec := get(mux, "/api/rooms/MISSING/state")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Game not found"}`, rec.Body.String())
}

func TestRoomQR(t *testing.T) {
	mux, _, _ := newStateMux(t)

	rec := get(mux, "/api/rooms/LOBBY/qr.png?size=128")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestRoomQR_BadSize(t *testing.T) {
	mux, _, _ := newStateMux(t)

	for _, size := range []string{"12", "5000", "big"} {
		rec := get(mux, "/api/rooms/LOBBY/qr.png?size="+size)
		assert.Equal(t, http.StatusBadRequest, rec.Code, size)
	}
	assert.Equal(t, http.StatusNotFound, get(mux, "/api/rooms/NOPE/qr.png").Code)
}

func TestJoinURL(t *testing.T) {
	_, _, h := newStateMux(t)

	assert.Equal(t, "https://quiz.example.com/?code=LOBBY", h.JoinURL("LOBBY"))
	assert.Equal(t, "https://quiz.example.com/?code=A+B", h.JoinURL("A B"))
}
