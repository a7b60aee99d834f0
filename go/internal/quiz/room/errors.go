package room

import "errors"

var (
	// ErrForbidden is returned when a host-only action comes from any other identity.
	ErrForbidden     = errors.New("action requires the bound host")
	ErrInvalidInput  = errors.New("invalid input")
	ErrFinished      = errors.New("room has finished")
	ErrNotActive     = errors.New("room is not active")
	ErrNoQuestion    = errors.New("no outstanding question")
	ErrNoChest       = errors.New("no chest available")
	ErrUnknownPlayer = errors.New("player is not in this room")
)
