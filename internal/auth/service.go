package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/gosuda/agileboard/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
	ErrInvalidInput       = errors.New("auth: invalid input")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16

	minPasswordLen = 8
)

// TokenPair is what a successful sign-in hands to the transport layer.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Service provides authentication operations.
type Service struct {
	userRepo   domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service.
func NewService(userRepo domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user with email/password. The password is hashed
// with argon2id before storage.
func (s *Service) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("auth.Register: email: %w", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("auth.Register: %w", ErrWeakPassword)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return user, nil
}

// Login validates email/password and returns the user with fresh tokens.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.Login: %w", err)
	}

	return user, tokens, nil
}

// IssueTokens signs an access/refresh pair for the user.
func (s *Service) IssueTokens(user *domain.User) (*TokenPair, error) {
	access, err := IssueAccessToken(s.jwtSecret, user.ID, user.Email, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.IssueTokens: %w", err)
	}

	refresh, err := IssueRefreshToken(s.jwtSecret, user.ID, user.Email, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.IssueTokens: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
		RefreshTTL:   s.refreshTTL,
	}, nil
}

// RefreshToken validates a refresh token and issues a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	// The user may have been deleted since the refresh token was issued.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user.ID, user.Email, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// ParseAccessToken validates an access token and returns its claims.
// Refresh tokens are rejected.
func (s *Service) ParseAccessToken(token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtSecret, token)
	if err != nil {
		return nil, fmt.Errorf("auth.ParseAccessToken: %w", err)
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("auth.ParseAccessToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

// UpdateProfile changes the display fields that are non-nil.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name, avatarURL *string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.UpdateProfile: %w", err)
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, fmt.Errorf("auth.UpdateProfile: name must not be empty: %w", ErrInvalidInput)
		}
		user.Name = strings.TrimSpace(*name)
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.UpdateProfile: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the user's password. Users that signed up through
// OAuth and never set a password may omit the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}

	if user.PasswordHash != "" && !verifyPassword(current, user.PasswordHash) {
		return fmt.Errorf("auth.ChangePassword: %w", ErrInvalidCredentials)
	}
	if len(next) < minPasswordLen {
		return fmt.Errorf("auth.ChangePassword: %w", ErrWeakPassword)
	}

	hash, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}

	return nil
}

// LoginOAuth resolves an identity returned by an OAuth provider to a local
// user: an existing link wins, then a user with the same email is linked,
// otherwise a new user is created.
func (s *Service) LoginOAuth(ctx context.Context, info *OAuthUserInfo) (*domain.User, *TokenPair, error) {
	user, err := s.resolveOAuthUser(ctx, info)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.LoginOAuth: %w", err)
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.LoginOAuth: %w", err)
	}

	return user, tokens, nil
}

func (s *Service) resolveOAuthUser(ctx context.Context, info *OAuthUserInfo) (*domain.User, error) {
	link, err := s.userRepo.GetOAuthLink(ctx, info.Provider, info.ProviderID)
	if err == nil {
		return s.userRepo.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var user *domain.User
	if info.Email != "" {
		user, err = s.userRepo.GetByEmail(ctx, info.Email)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	if user == nil {
		now := time.Now().UTC()
		user = &domain.User{
			ID:        uuid.New(),
			Email:     domain.NormalizeEmail(info.Email),
			Name:      info.Name,
			AvatarURL: info.AvatarURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if user.Name == "" {
			user.Name = info.Provider + " user"
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	err = s.userRepo.CreateOAuthLink(ctx, &domain.UserOAuthLink{
		ID:         uuid.New(),
		UserID:     user.ID,
		Provider:   info.Provider,
		ProviderID: info.ProviderID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
