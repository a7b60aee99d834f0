package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/questions"
	"github.com/mcdev12/moogle/go/internal/quiz/registry"
)

const maxCreateBody = 1 << 20

// QuestionSource loads a question bank from a sheet URL.
type QuestionSource interface {
	LoadURL(ctx context.Context, url string) ([]models.Question, error)
}

// CreateGameRequest is the body of POST /api/create-game. Exactly one of
// CSVURL and Questions must be set.
type CreateGameRequest struct {
	Code      string            `json:"code,omitempty"`
	CSVURL    string            `json:"csv_url,omitempty"`
	Questions []models.Question `json:"questions,omitempty"`
}

type CreateGameResponse struct {
	JoinCode      string `json:"join_code"`
	QuestionCount int    `json:"question_count"`
}

// CreateHandler creates rooms over HTTP
type CreateHandler struct {
	rooms  *registry.Registry
	source QuestionSource
}

func NewCreateHandler(rooms *registry.Registry, source QuestionSource) *CreateHandler {
	return &CreateHandler{rooms: rooms, source: source}
}

// HandleCreateGame handles POST /api/create-game
func (h *CreateHandler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hasURL := strings.TrimSpace(req.CSVURL) != ""
	if hasURL == (len(req.Questions) > 0) {
		writeError(w, http.StatusBadRequest, "exactly one of csv_url or questions is required")
		return
	}

	var (
		qs  []models.Question
		err error
	)
	if hasURL {
		qs, err = h.source.LoadURL(r.Context(), req.CSVURL)
	} else {
		qs, err = questions.Validate(req.Questions)
	}
	if err != nil {
		h.fail(w, req.Code, err)
		return
	}

	rm, err := h.rooms.Create(req.Code, qs)
	if err != nil {
		h.fail(w, req.Code, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateGameResponse{
		JoinCode:      rm.Code(),
		QuestionCount: len(qs),
	})
}

func (h *CreateHandler) fail(w http.ResponseWriter, code string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, questions.ErrSourceMalformed),
		errors.Is(err, registry.ErrNoQuestions),
		errors.Is(err, registry.ErrInvalidCode):
		status = http.StatusBadRequest
	case errors.Is(err, questions.ErrSourceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, registry.ErrDuplicateCode):
		status = http.StatusConflict
	}

	log.Warn().Err(err).Str("room_code", code).Int("status", status).Msg("create game failed")
	writeError(w, status, err.Error())
}

// RegisterRoutes registers the creation route with an HTTP mux
func (h *CreateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/create-game", h.HandleCreateGame)
}
