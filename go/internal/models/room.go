package models

import "time"

// RoomPhase defines the lifecycle stage of a room.
type RoomPhase string

const (
	RoomPhaseWaiting  RoomPhase = "WAITING"
	RoomPhaseActive   RoomPhase = "ACTIVE"
	RoomPhaseFinished RoomPhase = "FINISHED"
)

// RoomSnapshot is a read-only view of a room at one instant.
type RoomSnapshot struct {
	Code             string     `json:"code"`
	Phase            RoomPhase  `json:"phase"`
	HostBound        bool       `json:"host_bound"`
	Players          []Player   `json:"players"`
	TotalQuestions   int        `json:"total_questions"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	TimeRemainingSec int        `json:"time_remaining_sec"`
	CreatedAt        time.Time  `json:"created_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// RoomResult summarizes a room at the moment it finished.
type RoomResult struct {
	Code           string     `json:"code"`
	Reason         string     `json:"reason"`
	Expired        bool       `json:"expired"`
	Standings      []Player   `json:"standings"`
	TotalQuestions int        `json:"total_questions"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     time.Time  `json:"finished_at"`
}
