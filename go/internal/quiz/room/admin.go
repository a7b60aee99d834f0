package room

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

// Host moderation actions. All of them require the caller to be the bound host.

// SetBalance overrides a player's balance and acknowledges it to the host.
func (r *Room) SetBalance(caller, target string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if r.closed || r.phase == models.RoomPhaseFinished {
		return ErrFinished
	}
	if amount < 0 || amount > models.MaxBalance {
		return fmt.Errorf("balance %d outside [0, %d]: %w", amount, models.MaxBalance, ErrInvalidInput)
	}
	p, ok := r.players[target]
	if !ok {
		return ErrUnknownPlayer
	}

	previous := p.Balance
	p.Balance = amount
	r.out.Send(caller, r.event(events.EventTypeBalanceSet, events.BalanceSetPayload{
		PlayerID: target,
		Previous: previous,
		Balance:  amount,
	}))
	r.publishRosterLocked()

	log.Info().
		Str("room_code", r.code).
		Str("identity", target).
		Int("previous", previous).
		Int("balance", amount).
		Msg("balance overridden by host")
	return nil
}

// Kick removes a player and closes its connection.
func (r *Room) Kick(caller, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if target == r.hostID {
		return fmt.Errorf("host cannot kick itself: %w", ErrInvalidInput)
	}
	if _, ok := r.players[target]; !ok {
		return ErrUnknownPlayer
	}
	r.removeLocked(target)
	r.out.Disconnect(target)
	return nil
}

// SoulSwap exchanges the name, avatar and balance of two players. Their
// identities and progress stay where they are.
func (r *Room) SoulSwap(caller, a, b string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if r.closed || r.phase == models.RoomPhaseFinished {
		return ErrFinished
	}
	if a == b {
		return fmt.Errorf("cannot swap a player with itself: %w", ErrInvalidInput)
	}
	pa, okA := r.players[a]
	pb, okB := r.players[b]
	if !okA || !okB {
		return ErrUnknownPlayer
	}

	pa.Name, pb.Name = pb.Name, pa.Name
	pa.Avatar, pb.Avatar = pb.Avatar, pa.Avatar
	pa.Balance, pb.Balance = pb.Balance, pa.Balance

	r.out.Publish(r.code, r.event(events.EventTypeSoulsSwapped, events.SoulsSwappedPayload{
		PlayerA: a,
		PlayerB: b,
		Players: models.Standings(r.players),
	}))

	log.Info().Str("room_code", r.code).Str("player_a", a).Str("player_b", b).Msg("souls swapped")
	return nil
}

// Penalty shows the penalty screen to one player.
func (r *Room) Penalty(caller, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(caller); err != nil {
		return err
	}
	if r.closed || r.phase == models.RoomPhaseFinished {
		return ErrFinished
	}
	if _, ok := r.players[target]; !ok {
		return ErrUnknownPlayer
	}
	r.out.Send(target, r.event(events.EventTypePenaltyTriggered, events.PenaltyTriggeredPayload{}))
	return nil
}
