package httpapi

import (
	"net/http"
	"time"
)

// setSessionCookie hands the session token to the client. Secure and
// SameSite=None so the cross-origin web app can send it back on both API
// requests and the WebSocket handshake; not HttpOnly because the client
// reads it for the realtime handshake.
func setSessionCookie(w http.ResponseWriter, name, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearSessionCookie overwrites the session cookie with an immediately
// expired empty value.
func clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
