package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/mcdev12/moogle/go/internal/quiz/registry"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// StateHandler serves read-only room views
type StateHandler struct {
	rooms     *registry.Registry
	publicURL string
}

// NewStateHandler creates a state handler. publicURL is the base of the
// join link encoded into QR codes.
func NewStateHandler(rooms *registry.Registry, publicURL string) *StateHandler {
	return &StateHandler{rooms: rooms, publicURL: publicURL}
}

// HandleGetRoomState handles GET /api/rooms/{code}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(r.PathValue("code"))
	if err != nil {
		h.notFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm.Snapshot())
}

// HandleGetRoomQR handles GET /api/rooms/{code}/qr.png
func (h *StateHandler) HandleGetRoomQR(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(r.PathValue("code"))
	if err != nil {
		h.notFound(w, err)
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(h.JoinURL(rm.Code()), qrcode.Medium, size)
	if err != nil {
		log.Error().Err(err).Str("room_code", rm.Code()).Msg("failed to encode join QR code")
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Msg("failed to write QR code")
	}
}

// JoinURL returns the link players open to join code.
func (h *StateHandler) JoinURL(code string) string {
	return h.publicURL + "/?code=" + url.QueryEscape(code)
}

func (h *StateHandler) notFound(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, ReasonNotFound)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// RegisterRoutes registers state routes with an HTTP mux
func (h *StateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{code}/state", h.HandleGetRoomState)
	mux.HandleFunc("GET /api/rooms/{code}/qr.png", h.HandleGetRoomQR)
}
