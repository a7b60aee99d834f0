package gateway

import (
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/quiz/events"
	"github.com/mcdev12/moogle/go/internal/quiz/registry"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

// Reasons reported to clients in roomError.
const (
	ReasonNotFound     = "Game not found"
	ReasonInvalidInput = "Invalid request"
	ReasonFinished     = "Game has finished"
)

// Sender delivers a private event to one connection.
type Sender interface {
	Send(identity string, ev *events.RoomEvent)
}

// Dispatcher turns inbound commands into room operations. It implements MessageHandler.
type Dispatcher struct {
	rooms *registry.Registry
	out   Sender
	clock clockwork.Clock
}

// NewDispatcher wires a dispatcher to the registry and a private sender.
func NewDispatcher(rooms *registry.Registry, out Sender, clock clockwork.Clock) *Dispatcher {
	return &Dispatcher{rooms: rooms, out: out, clock: clock}
}

// OnDisconnect removes identity from every room it is part of.
func (d *Dispatcher) OnDisconnect(identity string) {
	d.rooms.Disconnect(identity)
}

// OnMessage decodes and executes one command from identity.
func (d *Dispatcher) OnMessage(identity string, raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		d.reject(identity, "", CmdUnknown, err)
		return
	}

	code, err := d.dispatch(identity, env)
	if err != nil {
		d.reject(identity, code, env.Type, err)
	}
}

// CmdUnknown labels frames whose type could not be read.
const CmdUnknown = "unknown"

func (d *Dispatcher) dispatch(identity string, env Envelope) (string, error) {
	switch env.Type {
	case CmdHostBind:
		var p codePayload
		return d.withRoom(env, &p, func(r *room.Room) error { return r.BindHost(identity) })

	case CmdHostStart:
		var p codePayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if err := r.StartCountdown(identity); err != nil {
				return err
			}
			return r.ForceNext(identity, "")
		})

	case CmdHostNext:
		var p nextPayload
		return d.withRoom(env, &p, func(r *room.Room) error { return r.ForceNext(identity, p.PlayerID) })

	case CmdHostEnd:
		var p endPayload
		return d.withRoom(env, &p, func(r *room.Room) error { return r.HostEnd(identity, p.Reason) })

	case CmdHostSetBalance:
		var p setBalancePayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if p.PlayerID == "" || p.Amount == nil {
				return room.ErrInvalidInput
			}
			return r.SetBalance(identity, p.PlayerID, *p.Amount)
		})

	case CmdHostKick:
		var p targetPayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if p.PlayerID == "" {
				return room.ErrInvalidInput
			}
			return r.Kick(identity, p.PlayerID)
		})

	case CmdHostSoulSwap:
		var p soulSwapPayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if p.PlayerA == "" || p.PlayerB == "" {
				return room.ErrInvalidInput
			}
			return r.SoulSwap(identity, p.PlayerA, p.PlayerB)
		})

	case CmdHostPenalty:
		var p targetPayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if p.PlayerID == "" {
				return room.ErrInvalidInput
			}
			return r.Penalty(identity, p.PlayerID)
		})

	case CmdPlayerJoin:
		var p joinPayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			_, err := r.AdmitPlayer(identity, p.Name, p.Avatar)
			return err
		})

	case CmdPlayerReady:
		var p codePayload
		return d.withRoom(env, &p, func(r *room.Room) error { return r.Ready(identity) })

	case CmdPlayerAnswer:
		var p answerPayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			idx, err := coerceAnswer(p.AnswerIndex)
			if err != nil {
				return room.ErrInvalidInput
			}
			_, err = r.SubmitAnswer(identity, idx)
			return err
		})

	case CmdPlayerChoose:
		var p choosePayload
		return d.withRoom(env, &p, func(r *room.Room) error {
			if p.Choice != nil && (*p.Choice < 0 || *p.Choice > 2) {
				return room.ErrInvalidInput
			}
			_, err := r.ChoosePick(identity)
			return err
		})

	default:
		return "", errBadCommand
	}
}

func (d *Dispatcher) withRoom(env Envelope, p interface{ code() string }, fn func(*room.Room) error) (string, error) {
	if err := decodePayload(env.Payload, p); err != nil {
		return "", err
	}
	code := registry.NormalizeCode(p.code())
	r, err := d.rooms.Get(code)
	if err != nil {
		return code, err
	}
	return code, fn(r)
}

// reject reports a failed command privately, or drops it silently when the
// failure is one clients are not told about.
func (d *Dispatcher) reject(identity, code, cmd string, err error) {
	var reason string
	switch {
	case errors.Is(err, errBadCommand), errors.Is(err, room.ErrInvalidInput), errors.Is(err, registry.ErrInvalidCode):
		reason = ReasonInvalidInput
	case errors.Is(err, registry.ErrNotFound):
		reason = ReasonNotFound
	case errors.Is(err, room.ErrFinished) && (cmd == CmdHostBind || cmd == CmdPlayerJoin):
		reason = ReasonFinished
	}

	if reason == "" {
		log.Debug().
			Err(err).
			Str("room_code", code).
			Str("identity", identity).
			Str("command", cmd).
			Msg("command ignored")
		return
	}

	log.Debug().
		Err(err).
		Str("room_code", code).
		Str("identity", identity).
		Str("command", cmd).
		Str("reason", reason).
		Msg("command rejected")
	d.out.Send(identity, events.New(code, events.EventTypeRoomError, d.clock.Now(), events.RoomErrorPayload{
		Reason: reason,
	}))
}
