package realtime

import "encoding/json"

// Client→server event names.
const (
	eventJoinRoom    = "joinRoom"
	eventRoomMessage = "roomMessage"
	eventLeaveRoom   = "leaveRoom"
)

// Server→client event names.
const (
	eventCookieResponse = "cookieResponse"
	eventRoomResponse   = "roomResponse"
	eventChatMessage    = "chatMessage"
)

// inboundEvent is the envelope for client→server messages.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outboundEvent is the envelope for server→client messages.
type outboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type joinRoomData struct {
	RoomCode string `json:"roomCode"`
}

type roomMessageData struct {
	Content string `json:"content"`
}

// roomResponseData reports the outcome of a join back to the connection,
// carrying its own id.
type roomResponseData struct {
	SocketID   string `json:"socketId"`
	RoomStatus bool   `json:"roomStatus"`
}

func cookieResponse(ok bool) outboundEvent {
	return outboundEvent{Event: eventCookieResponse, Data: ok}
}

func roomResponse(socketID string, found bool) outboundEvent {
	return outboundEvent{
		Event: eventRoomResponse,
		Data:  roomResponseData{SocketID: socketID, RoomStatus: found},
	}
}
