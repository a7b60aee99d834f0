package models

import "math"

// MaxBalance is the largest balance a player can hold. Archived standings
// store balances as INTEGER.
const MaxBalance = math.MaxInt32

// Player is a participant's scoreboard record inside a room.
// The ID is the connection identity of the participant.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Balance int    `json:"balance"`
}

// Credit adds amount to the balance, saturating at MaxBalance.
func (p *Player) Credit(amount int) {
	if amount > MaxBalance-p.Balance {
		p.Balance = MaxBalance
		return
	}
	p.Balance += amount
}
