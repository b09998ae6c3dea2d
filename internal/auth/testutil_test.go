package auth_test

import (
	"context"
	"time"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/store/memory"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testEmail     = "alice@example.com"
	testPassword  = "correct-horse-battery-staple"
	testUserName  = "Alice"
)

var (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

// faultyUsers wraps a real repository and lets a test force individual calls to fail.
type faultyUsers struct {
	domain.UserRepository

	createErr       error
	createAPIKeyErr error
	updateErr       error
}

func (f *faultyUsers) Create(ctx context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.UserRepository.Create(ctx, u)
}

func (f *faultyUsers) CreateAPIKey(ctx context.Context, k *domain.APIKey) error {
	if f.createAPIKeyErr != nil {
		return f.createAPIKeyErr
	}
	return f.UserRepository.CreateAPIKey(ctx, k)
}

func (f *faultyUsers) Update(ctx context.Context, u *domain.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.UserRepository.Update(ctx, u)
}

func newTestService() (*auth.Service, *faultyUsers) {
	repo := &faultyUsers{UserRepository: memory.New().Users()}
	return auth.NewService(repo, testJWTSecret, testAccessTTL, testRefreshTTL), repo
}
