package hub

import (
	"fmt"
	"sync"
)

// Message is a chat message fanned out to every member of a room.
type Message struct {
	ConnectionID string `json:"socketId"`
	Username     string `json:"username"`
	Content      string `json:"content"`
}

// Outbox routes broadcast messages to a buffered channel read by the
// connection's write loop. Push never blocks: a closed or full outbox
// fails fast so one slow subscriber cannot stall a room.
type Outbox struct {
	id     string
	events chan Message
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given connection id.
//
// Precondition: id must be non-empty.
// Postcondition: Returns an Outbox with an open events channel.
func NewOutbox(id string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		id:     id,
		events: make(chan Message, bufferSize),
	}
}

// ID returns the connection id this outbox belongs to.
func (o *Outbox) ID() string {
	return o.id
}

// Push enqueues a message for delivery.
//
// Postcondition: The message is enqueued, or an error if the outbox is
// closed or its buffer is full.
func (o *Outbox) Push(msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.id)
	}
	select {
	case o.events <- msg:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.id)
	}
}

// Events returns the read-only delivery channel.
// The connection's write loop reads from this channel.
func (o *Outbox) Events() <-chan Message {
	return o.events
}

// Close marks the outbox as closed and closes the delivery channel.
// Close is idempotent.
//
// Postcondition: Further Push calls return an error.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.events)
	}
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
