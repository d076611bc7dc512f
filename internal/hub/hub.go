// Package hub tracks live client connections, their room membership, and
// per-room message fan-out.
//
// The hub owns the membership records exclusively. Room occupancy is
// delegated to the room registry; session checks to the session store.
package hub

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when an operation requires an
// authenticated connection and none is recorded.
var ErrUnauthenticated = errors.New("connection is not authenticated")

// ErrNotInRoom is returned when a send is attempted by a connection that
// never completed a room join.
var ErrNotInRoom = errors.New("connection is not in a room")

// ErrUnknownConnection is returned when no membership record exists for
// the connection id.
var ErrUnknownConnection = errors.New("unknown connection")

// Sessions is the session validation surface the hub depends on.
type Sessions interface {
	Validate(token string) (string, error)
}

// Rooms is the room occupancy surface the hub depends on.
type Rooms interface {
	Join(code string) error
	Leave(code string)
}

// membership is the per-connection record. RoomCode and Identity start
// unset and are filled in by Authenticate and Join.
type membership struct {
	id       string
	identity string
	roomCode string
	outbox   *Outbox
}

// Hub manages connection membership and room broadcast groups.
// All methods are safe for concurrent use.
type Hub struct {
	sessions Sessions
	rooms    Rooms
	logger   *zap.Logger

	outboxSize int

	mu      sync.RWMutex
	members map[string]*membership
	groups  map[string]map[string]*membership // room code → members
}

// New creates a Hub using the given session and room stores.
//
// Precondition: sessions, rooms, and logger must be non-nil.
func New(sessions Sessions, rooms Rooms, outboxSize int, logger *zap.Logger) *Hub {
	return &Hub{
		sessions:   sessions,
		rooms:      rooms,
		logger:     logger,
		outboxSize: outboxSize,
		members:    make(map[string]*membership),
		groups:     make(map[string]map[string]*membership),
	}
}

// Connect registers a new connection with no room and no identity and
// returns its outbox.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the connection's Outbox, or an error if the id
// is already registered.
func (h *Hub) Connect(id string) (*Outbox, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.members[id]; exists {
		return nil, fmt.Errorf("connection %q already registered", id)
	}

	m := &membership{
		id:     id,
		outbox: NewOutbox(id, h.outboxSize),
	}
	h.members[id] = m
	return m.outbox, nil
}

// Authenticate validates the session token and records the resulting
// identity on the connection.
//
// Postcondition: On success the connection may join rooms and send.
// On failure the session store's error is returned and no identity is
// recorded.
func (h *Hub) Authenticate(id, token string) error {
	identity, err := h.sessions.Validate(token)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return ErrUnknownConnection
	}
	m.identity = identity
	return nil
}

// Join moves an authenticated connection into the room with the given
// code and subscribes it to that room's broadcast group. A connection
// already in a room leaves it first.
//
// Postcondition: Returns (true, nil) when the room was found and joined,
// (false, nil) when no such room is live (nothing mutated), or an error
// when the connection is unknown or unauthenticated.
func (h *Hub) Join(id, code string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return false, ErrUnknownConnection
	}
	if m.identity == "" {
		return false, ErrUnauthenticated
	}

	if err := h.rooms.Join(code); err != nil {
		return false, nil
	}

	if m.roomCode != "" {
		h.leaveLocked(m)
	}

	m.roomCode = code
	if h.groups[code] == nil {
		h.groups[code] = make(map[string]*membership)
	}
	h.groups[code][id] = m
	return true, nil
}

// Send broadcasts content to every connection in the sender's room,
// including the sender itself. Delivery failure for one subscriber never
// blocks or fails delivery to the others.
//
// Postcondition: Returns ErrUnknownConnection, ErrUnauthenticated, or
// ErrNotInRoom when the sender may not send; nil otherwise.
func (h *Hub) Send(id, content string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.members[id]
	if !ok {
		return ErrUnknownConnection
	}
	if m.identity == "" {
		return ErrUnauthenticated
	}
	if m.roomCode == "" {
		return ErrNotInRoom
	}

	msg := Message{
		ConnectionID: id,
		Username:     m.identity,
		Content:      content,
	}

	for _, member := range h.groups[m.roomCode] {
		if err := member.outbox.Push(msg); err != nil {
			h.logger.Warn("dropping broadcast for subscriber",
				zap.String("connection_id", member.id),
				zap.String("room_code", m.roomCode),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Leave removes the connection from its room, if any: the registry
// occupancy is decremented, the connection is unsubscribed from the
// broadcast group, and the membership's room field is cleared.
// Leave is idempotent; a connection with no room is a no-op.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return
	}
	h.leaveLocked(m)
}

// leaveLocked performs the leave. Caller must hold h.mu.
func (h *Hub) leaveLocked(m *membership) {
	if m.roomCode == "" {
		return
	}

	code := m.roomCode
	m.roomCode = ""

	if group, ok := h.groups[code]; ok {
		delete(group, m.id)
		if len(group) == 0 {
			delete(h.groups, code)
		}
	}

	h.rooms.Leave(code)
}

// Disconnect is Leave followed by removal of the membership record and
// closure of the outbox. Disconnect is idempotent.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return
	}
	h.leaveLocked(m)
	m.outbox.Close()
	delete(h.members, id)
}

// Identity returns the identity recorded for the connection, if any.
func (h *Hub) Identity(id string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.members[id]
	if !ok || m.identity == "" {
		return "", false
	}
	return m.identity, true
}

// RoomCode returns the room the connection is in, if any.
func (h *Hub) RoomCode(id string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.members[id]
	if !ok || m.roomCode == "" {
		return "", false
	}
	return m.roomCode, true
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}
