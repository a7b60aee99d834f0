package room

import (
	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

// Broadcaster delivers room events to connections. Implementations must only
// enqueue; a Room calls every method while holding its lock.
type Broadcaster interface {
	// Join subscribes a connection to room-wide events for code.
	Join(code, identity string)
	// Leave unsubscribes a connection from code.
	Leave(code, identity string)
	// Publish sends an event to every connection subscribed to code.
	Publish(code string, ev *events.RoomEvent)
	// Send delivers an event to one connection only.
	Send(identity string, ev *events.RoomEvent)
	// Disconnect forcibly closes a connection.
	Disconnect(identity string)
}

// FinishObserver is told about every room that reaches the finished phase.
// It is called after the room lock is released, at most once per room.
type FinishObserver interface {
	RoomFinished(result models.RoomResult)
}
