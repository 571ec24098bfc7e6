// Package identity resolves the opaque client token carried by the
// client_id cookie and issues new tokens for unknown clients.
package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the client token.
const CookieName = "client_id"

// cookieMaxAge keeps the token valid for one year.
const cookieMaxAge = 365 * 24 * time.Hour

// Resolve extracts the client token from the request cookie. Absent or
// malformed tokens degrade to a fresh identity rather than an error; the
// caller persists new tokens with SetCookie.
func Resolve(r *http.Request) (clientID string, isNew bool) {
	cookie, err := r.Cookie(CookieName)
	if err == nil {
		if id, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			return id.String(), false
		}
	}
	return uuid.NewString(), true
}

// SetCookie persists the client token on the response. HttpOnly keeps it
// away from page scripts and SameSite=Lax restricts it to same-site
// requests; Secure is off only when TLS terminates upstream.
func SetCookie(w http.ResponseWriter, clientID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    clientID,
		MaxAge:   int(cookieMaxAge.Seconds()),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
