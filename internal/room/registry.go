// Package room provides the registry of live chat rooms.
//
// Rooms are ephemeral: they exist from creation until their last occupant
// leaves, and are never persisted.
package room

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrRoomNotFound is returned when no room with the given code exists.
var ErrRoomNotFound = errors.New("room not found")

// CodeLength is the fixed length of generated room codes.
const CodeLength = 6

// codeAlphabet is the symbol set room codes are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Room is a named chat channel identified by a short random code.
type Room struct {
	Name string `json:"name"`
	Code string `json:"code"`
	// Size is the current occupancy. Always >= 0; a room at size 0 has
	// been removed from the registry.
	Size int `json:"size"`
}

// Registry tracks live rooms in creation order.
// All methods are safe for concurrent use; join, leave, and the
// empty-room deletion are each atomic as a unit.
type Registry struct {
	mu    sync.Mutex
	rooms []*Room
	index map[string]*Room
}

// NewRegistry creates an empty room Registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]*Room),
	}
}

// Create makes a new room with occupancy 0 and a fresh 6-character code
// over A-Z0-9, and appends it to the room list.
//
// A code colliding with a live room is redrawn. Reuse of a code after its
// room has died is accepted; codes are only unique among live rooms.
//
// Precondition: name must be non-empty (enforced by the gateway).
// Postcondition: Returns the created room snapshot with Size 0.
func (r *Registry) Create(name string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return Room{}, fmt.Errorf("generating room code: %w", err)
		}
		if _, taken := r.index[c]; !taken {
			code = c
			break
		}
	}

	rm := &Room{Name: name, Code: code, Size: 0}
	r.rooms = append(r.rooms, rm)
	r.index[code] = rm
	return *rm, nil
}

// List returns a snapshot of all live rooms in creation order.
func (r *Registry) List() []Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Room, len(r.rooms))
	for i, rm := range r.rooms {
		out[i] = *rm
	}
	return out
}

// Get returns a snapshot of the room with the given code.
//
// Postcondition: Returns (room, true) if the room is live, or (Room{}, false).
func (r *Registry) Get(code string) (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.index[code]
	if !ok {
		return Room{}, false
	}
	return *rm, true
}

// Join increments the occupancy of the room with the given code.
//
// Postcondition: Returns ErrRoomNotFound if no such room is live;
// otherwise the room's size has grown by one.
func (r *Registry) Join(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.index[code]
	if !ok {
		return ErrRoomNotFound
	}
	rm.Size++
	return nil
}

// Leave decrements the occupancy of the room with the given code, removing
// the room once it is empty. Leaving with an empty code, or a code whose
// room is already gone, is a silent no-op; a concurrent double-leave
// cannot drive the size negative or delete the room twice.
func (r *Registry) Leave(code string) {
	if code == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.index[code]
	if !ok {
		return
	}
	rm.Size--
	if rm.Size <= 0 {
		r.remove(rm)
	}
}

// remove drops the room from both the ordered list and the index.
// Caller must hold r.mu.
func (r *Registry) remove(rm *Room) {
	delete(r.index, rm.Code)
	for i, cur := range r.rooms {
		if cur == rm {
			r.rooms = append(r.rooms[:i], r.rooms[i+1:]...)
			return
		}
	}
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// generateCode draws CodeLength symbols uniformly-enough from codeAlphabet
// using a cryptographically secure source. The modulo bias over a 36-symbol
// alphabet is negligible for a 2^32 draw, matching the original service.
func generateCode() (string, error) {
	raw := make([]byte, 4*CodeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	code := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		n := binary.BigEndian.Uint32(raw[4*i : 4*i+4])
		code[i] = codeAlphabet[n%uint32(len(codeAlphabet))]
	}
	return string(code), nil
}
