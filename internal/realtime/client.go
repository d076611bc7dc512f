package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/salonchat/salon/internal/config"
	"github.com/salonchat/salon/internal/hub"
)

// connState is the explicit per-connection protocol state. Messages that
// are invalid in the current state are rejected rather than applied.
type connState int

const (
	// stateConnected: transport established, no session validated yet.
	stateConnected connState = iota
	// stateAuthenticated: session validated, not in a room.
	stateAuthenticated
	// stateInRoom: session validated and subscribed to a room.
	stateInRoom
)

// client is one live WebSocket connection. The read loop drives the state
// machine; the write loop multiplexes direct responses, room broadcasts,
// and keepalive pings.
type client struct {
	id    string
	token string
	conn  *websocket.Conn

	hub    *hub.Hub
	outbox *hub.Outbox
	cfg    config.RealtimeConfig
	logger *zap.Logger

	state connState

	// responses carries direct (non-broadcast) events to the write loop.
	responses chan outboundEvent
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(
	id, token string,
	conn *websocket.Conn,
	h *hub.Hub,
	outbox *hub.Outbox,
	cfg config.RealtimeConfig,
	logger *zap.Logger,
) *client {
	return &client{
		id:        id,
		token:     token,
		conn:      conn,
		hub:       h,
		outbox:    outbox,
		cfg:       cfg,
		logger:    logger.With(zap.String("connection_id", id)),
		state:     stateConnected,
		responses: make(chan outboundEvent, 16),
		done:      make(chan struct{}),
	}
}

// run starts the write loop and blocks in the read loop until the
// connection dies. Cleanup runs exactly once.
func (c *client) run() {
	go c.writeLoop()
	c.readLoop()
	c.teardown()
}

// teardown releases all per-connection state: room occupancy, broadcast
// subscription, membership record, and the transport itself.
func (c *client) teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Disconnect(c.id)
		_ = c.conn.Close()
		c.logger.Info("connection closed")
	})
}

func (c *client) readLoop() {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			c.logger.Debug("discarding malformed event", zap.Error(err))
			continue
		}
		c.handleEvent(evt)
	}
}

// handleEvent dispatches one inbound event through the state machine.
func (c *client) handleEvent(evt inboundEvent) {
	switch evt.Event {
	case eventJoinRoom:
		var data joinRoomData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.logger.Debug("malformed joinRoom payload", zap.Error(err))
			return
		}
		c.handleJoinRoom(data.RoomCode)

	case eventRoomMessage:
		var data roomMessageData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.logger.Debug("malformed roomMessage payload", zap.Error(err))
			return
		}
		c.handleRoomMessage(data.Content)

	case eventLeaveRoom:
		c.handleLeaveRoom()

	default:
		c.logger.Debug("unknown event", zap.String("event", evt.Event))
	}
}

// handleJoinRoom authenticates the carried session credential, reports the
// auth result, and on success attempts the join and reports the room status.
func (c *client) handleJoinRoom(roomCode string) {
	if !c.authenticate() {
		return
	}

	found, err := c.hub.Join(c.id, roomCode)
	if err != nil {
		c.logger.Warn("join failed", zap.String("room_code", roomCode), zap.Error(err))
		c.respond(roomResponse(c.id, false))
		return
	}

	if found {
		c.state = stateInRoom
		c.logger.Info("joined room", zap.String("room_code", roomCode))
	}
	c.respond(roomResponse(c.id, found))
}

// handleRoomMessage re-validates the session, reports the auth result, and
// broadcasts the content to the connection's room. A connection that never
// completed a join is rejected explicitly instead of broadcasting nowhere.
func (c *client) handleRoomMessage(content string) {
	if !c.authenticate() {
		return
	}

	if c.state != stateInRoom {
		c.respond(roomResponse(c.id, false))
		return
	}

	if err := c.hub.Send(c.id, content); err != nil {
		c.logger.Warn("send failed", zap.Error(err))
		c.respond(roomResponse(c.id, false))
	}
}

// handleLeaveRoom leaves the current room, if any. Safe to repeat.
func (c *client) handleLeaveRoom() {
	c.hub.Leave(c.id)
	if c.state == stateInRoom {
		c.state = stateAuthenticated
	}
}

// authenticate validates the connection's session credential against the
// session store and emits the auth-result event. Validation happens on
// every joinRoom and roomMessage, so an expired session loses its
// capabilities lazily, as the HTTP surface does.
func (c *client) authenticate() bool {
	if err := c.hub.Authenticate(c.id, c.token); err != nil {
		c.respond(cookieResponse(false))
		if c.state == stateConnected {
			return false
		}
		// A session that expired mid-connection demotes the state.
		c.hub.Leave(c.id)
		c.state = stateConnected
		return false
	}

	c.respond(cookieResponse(true))
	if c.state == stateConnected {
		c.state = stateAuthenticated
	}
	return true
}

// respond queues a direct event for the write loop, dropping it if the
// connection is going away.
func (c *client) respond(evt outboundEvent) {
	select {
	case c.responses <- evt:
	case <-c.done:
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case evt, ok := <-c.responses:
			if !ok {
				return
			}
			if !c.writeEvent(evt) {
				return
			}

		case msg, ok := <-c.outbox.Events():
			if !ok {
				// Hub closed the outbox on disconnect.
				return
			}
			if !c.writeEvent(outboundEvent{Event: eventChatMessage, Data: msg}) {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *client) writeEvent(evt outboundEvent) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(evt); err != nil {
		c.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
