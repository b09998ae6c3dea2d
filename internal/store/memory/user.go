package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
	}
	if u.Email != "" && r.emailTakenLocked(u.Email, u.ID) {
		return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
	}
	stored := *u
	stored.Email = domain.NormalizeEmail(u.Email)
	r.s.users[u.ID] = stored

	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if email != "" && u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("userRepo.GetByEmail: %w", domain.ErrNotFound)
}

func (r *userRepo) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; !ok {
		return fmt.Errorf("userRepo.Update: %w", domain.ErrNotFound)
	}
	if u.Email != "" && r.emailTakenLocked(u.Email, u.ID) {
		return fmt.Errorf("userRepo.Update: %w", domain.ErrConflict)
	}
	stored := *u
	stored.Email = domain.NormalizeEmail(u.Email)
	stored.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = stored

	return nil
}

func (r *userRepo) emailTakenLocked(email string, except uuid.UUID) bool {
	email = domain.NormalizeEmail(email)
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *userRepo) CreateOAuthLink(_ context.Context, link *domain.UserOAuthLink) error {
	key := link.Provider + ":" + link.ProviderID

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.oauthLinks[key]; ok {
		return fmt.Errorf("userRepo.CreateOAuthLink: %w", domain.ErrConflict)
	}
	r.s.oauthLinks[key] = *link

	return nil
}

func (r *userRepo) GetOAuthLink(_ context.Context, provider, providerID string) (*domain.UserOAuthLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	link, ok := r.s.oauthLinks[provider+":"+providerID]
	if !ok {
		return nil, fmt.Errorf("userRepo.GetOAuthLink: %w", domain.ErrNotFound)
	}
	return &link, nil
}

func (r *userRepo) CreateAPIKey(_ context.Context, key *domain.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, k := range r.s.apiKeys {
		if k.Prefix == key.Prefix {
			return fmt.Errorf("userRepo.CreateAPIKey: %w", domain.ErrConflict)
		}
	}
	r.s.apiKeys[key.ID] = *key

	return nil
}

func (r *userRepo) GetAPIKeyByPrefix(_ context.Context, prefix string) (*domain.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, k := range r.s.apiKeys {
		if k.Prefix == prefix {
			return &k, nil
		}
	}
	return nil, fmt.Errorf("userRepo.GetAPIKeyByPrefix: %w", domain.ErrNotFound)
}

func (r *userRepo) ListAPIKeys(_ context.Context, userID uuid.UUID) ([]*domain.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var keys []*domain.APIKey
	for _, k := range r.s.apiKeys {
		if k.UserID == userID {
			keys = append(keys, &k)
		}
	}
	slices.SortStableFunc(keys, func(a, b *domain.APIKey) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return keys, nil
}

func (r *userRepo) DeleteAPIKey(_ context.Context, userID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k, ok := r.s.apiKeys[id]
	if !ok || k.UserID != userID {
		return fmt.Errorf("userRepo.DeleteAPIKey: %w", domain.ErrNotFound)
	}
	delete(r.s.apiKeys, id)

	return nil
}

func (r *userRepo) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k, ok := r.s.apiKeys[id]
	if !ok {
		return fmt.Errorf("userRepo.UpdateAPIKeyLastUsed: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	r.s.apiKeys[id] = k

	return nil
}
