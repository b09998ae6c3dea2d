package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store and *memory.Store satisfy this interface.
type DataStore interface {
	Users() domain.UserRepository
	Projects() domain.ProjectRepository
	Members() domain.MemberRepository
	Tasks() domain.TaskRepository
	Invitations() domain.InvitationRepository
	Audit() domain.AuditRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)
	IssueTokens(user *domain.User) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, avatarURL *string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	GenerateAPIKey(ctx context.Context, userID uuid.UUID, name string, expiresAt *time.Time) (string, *domain.APIKey, error)
	LoginOAuth(ctx context.Context, info *auth.OAuthUserInfo) (*domain.User, *auth.TokenPair, error)
}

// OAuthProvider is one external sign-in provider. *auth.OAuthProvider
// satisfies this interface.
type OAuthProvider interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*auth.OAuthUserInfo, error)
}

// EventPublisher broadcasts board changes to live clients. *ws.Hub
// satisfies this interface.
type EventPublisher interface {
	PublishBoardEvent(ctx context.Context, ev domain.BoardEvent) error
}

// Notifier delivers user-facing notifications. *notify.Dispatcher
// satisfies this interface.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}
