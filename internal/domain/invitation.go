package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRevoked  InvitationStatus = "revoked"
)

const invitationTokenBytes = 24

// ProjectInvitation asks the holder of Email to join a project.
type ProjectInvitation struct {
	ID          uuid.UUID        `json:"id"`
	ProjectID   uuid.UUID        `json:"projectId"`
	Email       string           `json:"email"`
	Token       string           `json:"token"`
	InvitedByID uuid.UUID        `json:"invitedById"`
	Status      InvitationStatus `json:"status"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	CreatedAt   time.Time        `json:"createdAt"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
}

// NewInvitation creates a pending invitation with a random token.
func NewInvitation(projectID, invitedBy uuid.UUID, email string, ttl time.Duration) (*ProjectInvitation, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invitation: valid email is required")
	}

	raw := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("domain.NewInvitation: %w", err)
	}

	now := time.Now().UTC()
	return &ProjectInvitation{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Email:       email,
		Token:       hex.EncodeToString(raw),
		InvitedByID: invitedBy,
		Status:      InvitationPending,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

// Open reports whether the invitation can still be answered at now.
func (i *ProjectInvitation) Open(now time.Time) error {
	if i.Status != InvitationPending {
		return fmt.Errorf("invitation is %s: %w", i.Status, ErrConflict)
	}
	if now.After(i.ExpiresAt) {
		return fmt.Errorf("invitation: %w", ErrExpired)
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *ProjectInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error)
	GetByToken(ctx context.Context, token string) (*ProjectInvitation, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProjectInvitation, error)
	ListPendingForEmail(ctx context.Context, email string) ([]*ProjectInvitation, error)
	// Accept marks the invitation accepted and adds the user as a member atomically.
	Accept(ctx context.Context, id, userID uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status InvitationStatus) error
}
