package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/domain"
)

// Cookie and header names shared by the auth handlers and middleware.
const (
	SessionCookie = "agileboard_session"
	RefreshCookie = "agileboard_refresh"
	CSRFCookie    = "agileboard_csrf"
	CSRFHeader    = "X-CSRF-Token"
	APIKeyHeader  = "X-API-Key"
)

// Authenticator validates the credentials a request carries.
type Authenticator interface {
	ParseAccessToken(token string) (*auth.Claims, error)
	ValidateAPIKey(ctx context.Context, rawKey string) (*domain.User, *domain.APIKey, error)
}

// Auth resolves a Session from a bearer token, an API key or the session
// cookie, in that order, and rejects the request when none is valid.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := Authenticate(r, authn)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing or invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// Authenticate resolves the caller without writing a response.
func Authenticate(r *http.Request, authn Authenticator) (Session, bool) {
	if tok := extractBearer(r); tok != "" {
		if s, ok := sessionFromToken(authn, tok, MethodBearer); ok {
			return s, true
		}
	}

	if key := r.Header.Get(APIKeyHeader); key != "" {
		user, _, err := authn.ValidateAPIKey(r.Context(), key)
		if err == nil {
			return Session{UserID: user.ID, Email: user.Email, Method: MethodAPIKey}, true
		}
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if s, ok := sessionFromToken(authn, c.Value, MethodCookie); ok {
			return s, true
		}
	}

	return Session{}, false
}

func sessionFromToken(authn Authenticator, tok, method string) (Session, bool) {
	claims, err := authn.ParseAccessToken(tok)
	if err != nil {
		return Session{}, false
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return Session{}, false
	}
	return Session{UserID: userID, Email: claims.Email, Method: method}, true
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
