package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
	"rental_service/domain"
	application "rental_service/service"
)

const SessionCookieName = "rental.sid"

type sessionContextKey struct{}

// SessionCookie carries the session id in a signed, HTTP-only cookie.
type SessionCookie struct {
	codec    *securecookie.SecureCookie
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

// NewSessionCookie uses SameSite=None with Secure for non-local deployments
// and Lax otherwise.
func NewSessionCookie(secret []byte, secure bool, maxAge time.Duration) *SessionCookie {
	cookie := &SessionCookie{
		codec:    securecookie.New(secret, nil),
		secure:   secure,
		sameSite: http.SameSiteLaxMode,
		maxAge:   maxAge,
	}
	if secure {
		cookie.sameSite = http.SameSiteNoneMode
	}
	return cookie
}

func (c *SessionCookie) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	var id string
	if err := c.codec.Decode(SessionCookieName, cookie.Value, &id); err != nil {
		return "", false
	}
	return id, true
}

func (c *SessionCookie) Write(w http.ResponseWriter, session *domain.Session) error {
	encoded, err := c.codec.Encode(SessionCookieName, session.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
	return nil
}

func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

// SessionMiddleware loads the caller's session into the request context. A
// request without a valid session gets a fresh, unsaved one.
func SessionMiddleware(store domain.SessionStore, cookie *SessionCookie, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var session *domain.Session
			if id, ok := cookie.Read(r); ok {
				loaded, err := store.Get(r.Context(), id)
				switch {
				case err == nil:
					session = loaded
				case !errors.Is(err, domain.ErrNotFound):
					logger.Warnf("loading session: %v", err)
				}
			}
			if session == nil {
				session = application.NewSession()
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*domain.Session)
	return session
}

// RequestRole is the casbin subject for the request.
func RequestRole(r *http.Request) string {
	return SessionFromContext(r.Context()).Role()
}
