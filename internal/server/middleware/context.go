package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const contextKeySession contextKey = "session"

// Authentication methods recorded on a Session.
const (
	MethodCookie = "cookie"
	MethodBearer = "bearer"
	MethodAPIKey = "api_key"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID uuid.UUID
	Email  string
	Method string
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKeySession).(Session)
	return s, ok
}

// UserIDFromContext returns the session user, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return s.UserID, true
}
