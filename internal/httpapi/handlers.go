// Package httpapi provides the HTTP request surface of the Salon server:
// authentication, registration, session verification, and room management.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/salonchat/salon/internal/room"
	"github.com/salonchat/salon/internal/session"
	"github.com/salonchat/salon/internal/storage/postgres"
)

// CredentialStore defines the user persistence operations required by Gateway.
type CredentialStore interface {
	Create(ctx context.Context, username, password string) (postgres.User, error)
	Authenticate(ctx context.Context, username, password string) (postgres.User, error)
}

// Gateway handles the HTTP API: it authenticates via the session store and
// mutates the room registry.
type Gateway struct {
	users      CredentialStore
	sessions   *session.Store
	rooms      *room.Registry
	cookieName string
	logger     *zap.Logger
}

// NewGateway creates a Gateway wired to the given stores.
//
// Precondition: users, sessions, rooms, and logger must be non-nil;
// cookieName must be non-empty.
func NewGateway(
	users CredentialStore,
	sessions *session.Store,
	rooms *room.Registry,
	cookieName string,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		users:      users,
		sessions:   sessions,
		rooms:      rooms,
		cookieName: cookieName,
		logger:     logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type newRoomRequest struct {
	RoomName string `json:"roomName"`
}

// Health reports that the server is up.
func (g *Gateway) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// CreateRoom handles POST /newRoom: creates a room with a fresh code for
// an authenticated caller.
func (g *Gateway) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req newRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomName == "" {
		writeReason(w, http.StatusBadRequest, "room name is required")
		return
	}

	if _, err := g.identityFromCookie(r); err != nil {
		writeReason(w, http.StatusUnauthorized, err.Error())
		return
	}

	rm, err := g.rooms.Create(req.RoomName)
	if err != nil {
		g.logger.Error("creating room", zap.Error(err))
		writeReason(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.logger.Info("room created",
		zap.String("room_code", rm.Code),
		zap.String("room_name", rm.Name),
	)
	writeJSON(w, http.StatusOK, rm)
}

// ListRooms handles GET /getRooms: returns all live rooms in creation order.
func (g *Gateway) ListRooms(w http.ResponseWriter, r *http.Request) {
	if _, err := g.identityFromCookie(r); err != nil {
		writeReason(w, http.StatusUnauthorized, err.Error())
		return
	}

	rooms := g.rooms.List()
	if rooms == nil {
		rooms = []room.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// VerifyCookie handles GET /verifyCookie: reports whether the caller holds
// a valid session.
func (g *Gateway) VerifyCookie(w http.ResponseWriter, r *http.Request) {
	if _, err := g.identityFromCookie(r); err != nil {
		writeReason(w, http.StatusUnauthorized, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// LogIn handles POST /logIn: checks credentials against the store and, on
// success, issues a session delivered as a cookie whose expiry matches the
// session's.
func (g *Gateway) LogIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Username == "" || req.Password == "" {
		writeReason(w, http.StatusBadRequest, "username and password are required")
		return
	}

	start := time.Now()
	u, err := g.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCredentials) {
			writeReason(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		g.logger.Error("credential store error",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		writeReason(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess := g.sessions.Issue(u.Username)
	setSessionCookie(w, g.cookieName, sess.Token, sess.ExpiresAt)

	g.logger.Info("user logged in",
		zap.String("username", u.Username),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.WriteHeader(http.StatusOK)
}

// Register handles POST /register: validates the password policy and
// inserts the new credential. No session is issued; the caller must log
// in separately.
func (g *Gateway) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeReason(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := ValidatePassword(req.Password); err != nil {
		writeReason(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	u, err := g.users.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrUserExists) {
			writeReason(w, http.StatusBadRequest, "username already used")
			return
		}
		g.logger.Error("registration error",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		writeReason(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.logger.Info("user registered",
		zap.String("username", u.Username),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.WriteHeader(http.StatusCreated)
}

// LogOut handles POST /logOut: revokes the session and clears the client
// cookie.
func (g *Gateway) LogOut(w http.ResponseWriter, r *http.Request) {
	if len(r.Cookies()) == 0 {
		writeReason(w, http.StatusBadRequest, "cookies are missing")
		return
	}

	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		writeReason(w, http.StatusUnauthorized, session.ErrMissingToken.Error())
		return
	}

	if err := g.sessions.Revoke(cookie.Value); err != nil {
		writeReason(w, http.StatusUnauthorized, err.Error())
		return
	}

	clearSessionCookie(w, g.cookieName)
	w.WriteHeader(http.StatusOK)
}

// identityFromCookie validates the session cookie on the request.
//
// Postcondition: Returns the session's identity, or the session store's
// validation error (missing, unknown, or expired token).
func (g *Gateway) identityFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		return "", session.ErrMissingToken
	}
	return g.sessions.Validate(cookie.Value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeReason(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"reason": reason})
}
