// Package realtime exposes the WebSocket endpoint for room chat. Each
// connection carries the browser's session cookie; the event protocol
// revalidates it on every join and message.
package realtime

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/salonchat/salon/internal/config"
	"github.com/salonchat/salon/internal/hub"
)

// Gateway upgrades HTTP requests to WebSocket connections and binds each
// one to the hub.
type Gateway struct {
	hub        *hub.Hub
	cfg        config.RealtimeConfig
	cookieName string
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewGateway creates a Gateway. Upgrades are only accepted from
// allowedOrigin; requests without an Origin header (non-browser clients)
// are accepted.
//
// Precondition: h and logger must be non-nil.
func NewGateway(h *hub.Hub, cfg config.RealtimeConfig, cookieName, allowedOrigin string, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:        h,
		cfg:        cfg,
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and runs the connection until it drops.
// The session cookie is captured at upgrade time; an absent cookie still
// yields a connection, which will fail authentication on its first event.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	token := ""
	if cookie, cerr := r.Cookie(g.cookieName); cerr == nil {
		token = cookie.Value
	}

	id := uuid.NewString()
	outbox, err := g.hub.Connect(id)
	if err != nil {
		g.logger.Error("hub rejected connection", zap.String("connection_id", id), zap.Error(err))
		_ = conn.Close()
		return
	}

	g.logger.Info("connection established",
		zap.String("connection_id", id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	c := newClient(id, token, conn, g.hub, outbox, g.cfg, g.logger)
	c.run()
}
