package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
)

// InvitationConfig controls invitation lifetime and links in notifications.
type InvitationConfig struct {
	TTL       time.Duration
	PublicURL string
}

type CreateInvitationInput struct {
	ID   uuid.UUID `path:"id" doc:"Project ID"`
	Body struct {
		Email string `json:"email" minLength:"3" maxLength:"255" format:"email" doc:"Invitee email"`
	}
}

type InvitationOutput struct {
	Body *domain.ProjectInvitation
}

type ListInvitationsOutput struct {
	Body []*domain.ProjectInvitation
}

type RevokeInvitationInput struct {
	ID           uuid.UUID `path:"id" doc:"Project ID"`
	InvitationID uuid.UUID `path:"invId" doc:"Invitation ID"`
}

type InvitationTokenInput struct {
	Token string `path:"token" minLength:"1" maxLength:"128" doc:"Invitation token"`
}

type MemberOutput struct {
	Body *domain.ProjectMember
}

func RegisterInvitationRoutes(api huma.API, store DataStore, notifier Notifier, cfg InvitationConfig) {
	fx := sideEffects{store: store, notifier: notifier}

	huma.Register(api, huma.Operation{
		OperationID:   "create-invitation",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/invitations",
		Summary:       "Invite someone to a project by email",
		Tags:          []string{"Invitations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateInvitationInput) (*InvitationOutput, error) {
		a, err := requireOwner(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		inv, err := domain.NewInvitation(a.project.ID, a.session.UserID, input.Body.Email, cfg.TTL)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if err := ensureInvitable(ctx, store, a.project, inv.Email); err != nil {
			return nil, err
		}

		if err := store.Invitations().Create(ctx, inv); err != nil {
			return nil, storeError(err, "invitation", "create invitation")
		}

		fx.record(ctx, a.project.ID, a.session.UserID, ActionInvitationSent, "invitation", inv.ID, map[string]any{"email": inv.Email})
		fx.notify(ctx, notify.Message{
			Kind:      notify.KindInvitation,
			Recipient: inv.Email,
			Subject:   fmt.Sprintf("You were invited to %s", a.project.Name),
			Text:      fmt.Sprintf("%s invited you to collaborate on %q. The invitation expires %s.", a.session.Email, a.project.Name, inv.ExpiresAt.Format(time.RFC1123)),
			Link:      cfg.PublicURL + "/invitations",
		})

		return &InvitationOutput{Body: inv}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-invitations",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/invitations",
		Summary:     "List a project's invitations",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ListInvitationsOutput, error) {
		if _, err := requireOwner(ctx, store, input.ID); err != nil {
			return nil, err
		}

		invs, err := store.Invitations().ListByProject(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list invitations", err)
		}

		return &ListInvitationsOutput{Body: orEmpty(invs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-invitation",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}/invitations/{invId}",
		Summary:     "Revoke a pending invitation",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, input *RevokeInvitationInput) (*struct{}, error) {
		a, err := requireOwner(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		inv, err := store.Invitations().GetByID(ctx, input.InvitationID)
		if err != nil || inv.ProjectID != input.ID {
			return nil, huma.Error404NotFound("invitation not found")
		}
		if inv.Status != domain.InvitationPending {
			return nil, huma.Error409Conflict("invitation is " + string(inv.Status))
		}

		if err := store.Invitations().SetStatus(ctx, inv.ID, domain.InvitationRevoked); err != nil {
			return nil, storeError(err, "invitation", "revoke invitation")
		}
		fx.record(ctx, input.ID, a.session.UserID, ActionInvitationRevoked, "invitation", inv.ID, map[string]any{"email": inv.Email})

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-invitations",
		Method:      http.MethodGet,
		Path:        "/invitations",
		Summary:     "List pending invitations for the caller's email",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, _ *struct{}) (*ListInvitationsOutput, error) {
		user, err := currentUser(ctx, store)
		if err != nil {
			return nil, err
		}

		invs, err := store.Invitations().ListPendingForEmail(ctx, user.Email)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list invitations", err)
		}

		now := time.Now()
		open := make([]*domain.ProjectInvitation, 0, len(invs))
		for _, inv := range invs {
			if inv.Open(now) == nil {
				open = append(open, inv)
			}
		}

		return &ListInvitationsOutput{Body: open}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-invitation",
		Method:      http.MethodPost,
		Path:        "/invitations/{token}/accept",
		Summary:     "Accept an invitation and join the project",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, input *InvitationTokenInput) (*MemberOutput, error) {
		user, inv, err := openInvitation(ctx, store, input.Token)
		if err != nil {
			return nil, err
		}

		if err := store.Invitations().Accept(ctx, inv.ID, user.ID); err != nil {
			return nil, storeError(err, "invitation", "accept invitation")
		}
		fx.record(ctx, inv.ProjectID, user.ID, ActionMemberJoined, "member", user.ID, map[string]any{"invitationId": inv.ID})

		m, err := store.Members().Get(ctx, inv.ProjectID, user.ID)
		if err != nil {
			return nil, storeError(err, "member", "load membership")
		}

		return &MemberOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decline-invitation",
		Method:      http.MethodPost,
		Path:        "/invitations/{token}/decline",
		Summary:     "Decline an invitation",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, input *InvitationTokenInput) (*struct{}, error) {
		user, inv, err := openInvitation(ctx, store, input.Token)
		if err != nil {
			return nil, err
		}

		if err := store.Invitations().SetStatus(ctx, inv.ID, domain.InvitationDeclined); err != nil {
			return nil, storeError(err, "invitation", "decline invitation")
		}
		fx.record(ctx, inv.ProjectID, user.ID, ActionInvitationDecline, "invitation", inv.ID, nil)

		return nil, nil
	})
}

func currentUser(ctx context.Context, store DataStore) (*domain.User, error) {
	s, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := store.Users().GetByID(ctx, s.UserID)
	if err != nil {
		return nil, storeError(err, "user", "get user")
	}
	return user, nil
}

// openInvitation loads an invitation addressed to the caller that can still
// be answered.
func openInvitation(ctx context.Context, store DataStore, token string) (*domain.User, *domain.ProjectInvitation, error) {
	user, err := currentUser(ctx, store)
	if err != nil {
		return nil, nil, err
	}

	inv, err := store.Invitations().GetByToken(ctx, token)
	if err != nil {
		return nil, nil, storeError(err, "invitation", "get invitation")
	}
	// Someone else's invitation is reported as missing.
	if inv.Email != domain.NormalizeEmail(user.Email) {
		return nil, nil, huma.Error404NotFound("invitation not found")
	}

	if err := inv.Open(time.Now()); err != nil {
		return nil, nil, storeError(err, "invitation", "open invitation")
	}

	return user, inv, nil
}

// ensureInvitable rejects invitations for people already on the project or
// already holding a pending invitation.
func ensureInvitable(ctx context.Context, store DataStore, project *domain.Project, email string) error {
	user, err := store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.ID == project.OwnerID {
			return huma.Error409Conflict("user already belongs to the project")
		}
		if _, mErr := store.Members().Get(ctx, project.ID, user.ID); mErr == nil {
			return huma.Error409Conflict("user already belongs to the project")
		} else if !errors.Is(mErr, domain.ErrNotFound) {
			return huma.Error500InternalServerError("failed to check membership", mErr)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return huma.Error500InternalServerError("failed to look up invitee", err)
	}

	invs, err := store.Invitations().ListByProject(ctx, project.ID)
	if err != nil {
		return huma.Error500InternalServerError("failed to list invitations", err)
	}
	now := time.Now()
	for _, inv := range invs {
		if inv.Email == email && inv.Open(now) == nil {
			return huma.Error409Conflict("a pending invitation already exists for this email")
		}
	}

	return nil
}
