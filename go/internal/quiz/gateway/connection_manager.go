package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

// MessageHandler receives inbound client frames and disconnect notices.
type MessageHandler interface {
	OnMessage(identity string, message []byte)
	OnDisconnect(identity string)
}

// ConnectionManager manages WebSocket connections and room subscriptions.
// Every subscription change and delivery goes through one channel consumed
// by Start, so a client sees events in the order rooms emitted them.
type ConnectionManager struct {
	connections     map[string]*Connection
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client. Its ID is the
// identity the rooms know it by.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	limiter *rate.Limiter
	rooms   map[string]bool // guarded by Manager.mu
	closed  bool            // guarded by Manager.mu

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	QueueSize       int
	MessagesPerSec  float64
	MessageBurst    int
	CheckOrigin     func(r *http.Request) bool
}

type messageKind int

const (
	kindPublish messageKind = iota
	kindSend
	kindJoin
	kindLeave
	kindDisconnect
)

// BroadcastMessage is one queued operation for the delivery loop.
type BroadcastMessage struct {
	kind     messageKind
	RoomCode string
	Identity string
	Event    *events.RoomEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		QueueSize:       4096,
		MessagesPerSec:  10,
		MessageBurst:    20,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections:     make(map[string]*Connection),
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, config.QueueSize),
	}
}

// SetHandler installs the inbound message handler. Call before serving.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start processes queued operations until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("queued", len(cm.broadcastCh)).Msg("connection manager shutting down")
			cm.drain()
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handle(message)
		}
	}
}

// Join subscribes identity to room-wide events of code.
func (cm *ConnectionManager) Join(code, identity string) {
	cm.enqueue(BroadcastMessage{kind: kindJoin, RoomCode: code, Identity: identity})
}

// Leave unsubscribes identity from code.
func (cm *ConnectionManager) Leave(code, identity string) {
	cm.enqueue(BroadcastMessage{kind: kindLeave, RoomCode: code, Identity: identity})
}

// Publish sends an event to every connection subscribed to code.
func (cm *ConnectionManager) Publish(code string, event *events.RoomEvent) {
	cm.enqueue(BroadcastMessage{kind: kindPublish, RoomCode: code, Event: event})
}

// Send delivers an event to a single connection.
func (cm *ConnectionManager) Send(identity string, event *events.RoomEvent) {
	cm.enqueue(BroadcastMessage{kind: kindSend, Identity: identity, Event: event})
}

// Disconnect closes the connection after everything queued before it is delivered.
func (cm *ConnectionManager) Disconnect(identity string) {
	cm.enqueue(BroadcastMessage{kind: kindDisconnect, Identity: identity})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().
			Str("room_code", message.RoomCode).
			Str("identity", message.Identity).
			Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		limiter:     rate.NewLimiter(rate.Limit(cm.config.MessagesPerSec), cm.config.MessageBurst),
		rooms:       make(map[string]bool),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and all its subscriptions. It
// reports whether this call did the removal.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.closed {
		return false
	}
	conn.closed = true
	delete(cm.connections, conn.ID)
	for code := range conn.rooms {
		cm.unsubscribeLocked(code, conn)
	}
	close(conn.Send)

	log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
	return true
}

func (cm *ConnectionManager) unsubscribeLocked(code string, conn *Connection) {
	delete(conn.rooms, code)
	if members, ok := cm.roomConnections[code]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(cm.roomConnections, code)
		}
	}
}

func (cm *ConnectionManager) handle(message BroadcastMessage) {
	switch message.kind {
	case kindJoin:
		cm.mu.Lock()
		if conn, ok := cm.connections[message.Identity]; ok {
			if cm.roomConnections[message.RoomCode] == nil {
				cm.roomConnections[message.RoomCode] = make(map[*Connection]bool)
			}
			cm.roomConnections[message.RoomCode][conn] = true
			conn.rooms[message.RoomCode] = true
		}
		cm.mu.Unlock()

	case kindLeave:
		cm.mu.Lock()
		if conn, ok := cm.connections[message.Identity]; ok {
			cm.unsubscribeLocked(message.RoomCode, conn)
		}
		cm.mu.Unlock()

	case kindPublish:
		cm.mu.RLock()
		targets := make([]*Connection, 0, len(cm.roomConnections[message.RoomCode]))
		for conn := range cm.roomConnections[message.RoomCode] {
			targets = append(targets, conn)
		}
		cm.mu.RUnlock()
		cm.deliver(message.Event, targets)

	case kindSend:
		cm.mu.RLock()
		conn, ok := cm.connections[message.Identity]
		cm.mu.RUnlock()
		if ok {
			cm.deliver(message.Event, []*Connection{conn})
		}

	case kindDisconnect:
		cm.mu.RLock()
		conn, ok := cm.connections[message.Identity]
		cm.mu.RUnlock()
		if ok {
			log.Info().Str("connection_id", conn.ID).Msg("closing connection on request")
			// closing Send makes the write pump send a close frame
			cm.unregisterConnection(conn)
		}
	}
}

func (cm *ConnectionManager) deliver(event *events.RoomEvent, targets []*Connection) {
	if len(targets) == 0 {
		return
	}

	// Marshal the event once
	eventData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		cm.mu.RLock()
		overflow := false
		if !conn.closed {
			select {
			case conn.Send <- eventData:
			default:
				overflow = true
			}
		}
		cm.mu.RUnlock()

		if overflow {
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("room_code", event.RoomCode).
		Int("connections", len(targets)).
		Msg("event delivered")
}

// drain handles whatever is already queued so final events such as
// roomEnded reach the send buffers before the connections close.
func (cm *ConnectionManager) drain() {
	for {
		select {
		case message := <-cm.broadcastCh:
			cm.handle(message)
		default:
			return
		}
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
	}
}

// ConnectionStats is the payload of the stats endpoint.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
	QueuedMessages   int            `json:"queued_messages"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	counts := make(map[string]int, len(cm.roomConnections))
	for code, conns := range cm.roomConnections {
		counts[code] = len(conns)
	}

	return ConnectionStats{
		TotalConnections: len(cm.connections),
		ActiveRooms:      len(cm.roomConnections),
		RoomConnections:  counts,
		QueuedMessages:   len(cm.broadcastCh),
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
		if h := c.Manager.handler; h != nil {
			h.OnDisconnect(c.ID)
		}
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		if !c.limiter.Allow() {
			log.Warn().Str("connection_id", c.ID).Msg("client message rate exceeded, dropping message")
			continue
		}
		if h := c.Manager.handler; h != nil {
			h.OnMessage(c.ID, message)
		}
	}
}
