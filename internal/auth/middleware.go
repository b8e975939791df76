package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "sparkchat_session"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login.html"

type contextKey struct{}

var sessionContextKey = contextKey{}

// SessionFromContext returns the session injected by RequireSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	return session, ok
}

// RequireSession gates protected surfaces. A request with a valid session
// cookie proceeds with the session in its context; anything else is redirected
// to the login page, or gets a 401 JSON body when it is an API call.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessionFromRequest(r)
		if !ok {
			if isAPIRequest(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, session)))
	})
}

// RedirectIfAuthenticated keeps logged-in users off the login page: a request
// that already carries a valid session is sent straight to the main page.
func (s *Service) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionFromRequest(r); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) sessionFromRequest(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	session, err := s.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, false
	}
	return session, true
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
