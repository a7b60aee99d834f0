package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomEvent is the envelope for everything pushed to clients and mirrored to the bus.
type RoomEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoomCode  string          `json:"room_code"` // Join code of the emitting room
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of room event
type EventType string

const (
	EventTypeRoomReady        EventType = "roomReady"
	EventTypeRoomError        EventType = "roomError"
	EventTypeRosterUpdate     EventType = "rosterUpdate"
	EventTypeJoinAck          EventType = "joinAck"
	EventTypeQuestionShown    EventType = "questionShown"
	EventTypeAnswerResult     EventType = "answerResult"
	EventTypeChestInvite      EventType = "chestInvite"
	EventTypeChestResolved    EventType = "chestResolved"
	EventTypeTimeRemaining    EventType = "timeRemaining"
	EventTypeRoomFinished     EventType = "roomFinished"
	EventTypeRoomEnded        EventType = "roomEnded"
	EventTypeSoulsSwapped     EventType = "soulsSwapped"
	EventTypePenaltyTriggered EventType = "penaltyTriggered"
	EventTypeBalanceSet       EventType = "balanceSet"
)

// New builds an event with the payload marshaled immediately, so later
// mutations of the source state never leak into an already queued event.
func New(code string, t EventType, at time.Time, payload any) *RoomEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to marshal event payload")
		data = json.RawMessage("null")
	}
	return &RoomEvent{
		ID:        uuid.New().String(),
		RoomCode:  code,
		Type:      t,
		Timestamp: at.UTC(),
		Data:      data,
	}
}

// Decode parses a wire-encoded event.
func Decode(raw []byte) (*RoomEvent, error) {
	var ev RoomEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode room event: %w", err)
	}
	return &ev, nil
}

// ParsePayload parses event data into the matching payload struct.
// Unknown event types return (nil, nil).
func ParsePayload(ev *RoomEvent) (any, error) {
	var target any
	switch ev.Type {
	case EventTypeRoomReady:
		target = &RoomReadyPayload{}
	case EventTypeRoomError:
		target = &RoomErrorPayload{}
	case EventTypeRosterUpdate:
		target = &RosterUpdatePayload{}
	case EventTypeJoinAck:
		target = &JoinAckPayload{}
	case EventTypeQuestionShown:
		target = &QuestionShownPayload{}
	case EventTypeAnswerResult:
		target = &AnswerResultPayload{}
	case EventTypeChestInvite:
		target = &ChestInvitePayload{}
	case EventTypeChestResolved:
		target = &ChestResolvedPayload{}
	case EventTypeTimeRemaining:
		target = &TimeRemainingPayload{}
	case EventTypeRoomFinished:
		target = &RoomFinishedPayload{}
	case EventTypeRoomEnded:
		target = &RoomEndedPayload{}
	case EventTypeSoulsSwapped:
		target = &SoulsSwappedPayload{}
	case EventTypePenaltyTriggered:
		target = &PenaltyTriggeredPayload{}
	case EventTypeBalanceSet:
		target = &BalanceSetPayload{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(ev.Data, target); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", ev.Type, err)
	}
	return target, nil
}
