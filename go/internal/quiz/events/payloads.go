package events

import (
	"time"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/chest"
)

// Event payload types shared between the room, the gateway and the relay.

// RoomReadyPayload is sent privately to a host once bound
type RoomReadyPayload struct {
	Code             string           `json:"code"`
	Phase            models.RoomPhase `json:"phase"`
	Players          []models.Player  `json:"players"`
	TotalQuestions   int              `json:"total_questions"`
	EndsAt           *time.Time       `json:"ends_at,omitempty"`
	TimeRemainingSec int              `json:"time_remaining_sec"`
}

// RoomErrorPayload reports a rejected request to its originator only
type RoomErrorPayload struct {
	Reason string `json:"reason"`
}

type RosterUpdatePayload struct {
	Players []models.Player `json:"players"`
}

// JoinAckPayload confirms admission to the joining player
type JoinAckPayload struct {
	Self   models.Player `json:"self"`
	EndsAt *time.Time    `json:"ends_at,omitempty"`
}

// QuestionShownPayload never carries the correct option
type QuestionShownPayload struct {
	Index   int                        `json:"index"`
	Text    string                     `json:"text"`
	Options [models.OptionCount]string `json:"options"`
}

type AnswerResultPayload struct {
	Correct bool `json:"correct"`
}

// ChestInvitePayload lists the selectable slots. The slot chosen has no effect on the draw.
type ChestInvitePayload struct {
	Choices []int `json:"choices"`
}

type ChestResolvedPayload struct {
	ActorID string          `json:"actor_id"`
	Outcome chest.Outcome   `json:"outcome"`
	Players []models.Player `json:"players"`
}

type TimeRemainingPayload struct {
	Seconds int `json:"seconds"`
}

// RoomFinishedPayload is emitted when the countdown reaches zero
type RoomFinishedPayload struct {
	Players []models.Player `json:"players"`
}

// RoomEndedPayload is emitted when a room is ended before its countdown expires
type RoomEndedPayload struct {
	Reason  string          `json:"reason"`
	Players []models.Player `json:"players"`
}

type SoulsSwappedPayload struct {
	PlayerA string          `json:"player_a"`
	PlayerB string          `json:"player_b"`
	Players []models.Player `json:"players"`
}

type PenaltyTriggeredPayload struct{}

// BalanceSetPayload acknowledges a host balance override
type BalanceSetPayload struct {
	PlayerID string `json:"player_id"`
	Previous int    `json:"previous"`
	Balance  int    `json:"balance"`
}
