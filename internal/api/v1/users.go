package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/domain"
)

type UserOutput struct {
	Body *domain.User
}

type UpdateProfileInput struct {
	Body struct {
		Name      *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Display name"`
		AvatarURL *string `json:"avatarUrl,omitempty" maxLength:"2048" doc:"Avatar image URL"`
	}
}

type ChangePasswordInput struct {
	Body struct {
		CurrentPassword string `json:"currentPassword,omitempty" maxLength:"128" doc:"Current password; omit for OAuth-only accounts"` //nolint:gosec // G117: credential DTO
		NewPassword     string `json:"newPassword" minLength:"8" maxLength:"128" doc:"New password"`                                   //nolint:gosec // G117: credential DTO
	}
}

type CreateAPIKeyInput struct {
	Body struct {
		Name          string `json:"name" minLength:"1" maxLength:"100" doc:"Label for the key"`
		ExpiresInDays int    `json:"expiresInDays,omitempty" minimum:"0" maximum:"3650" doc:"Lifetime in days; 0 never expires"`
	}
}

type CreateAPIKeyOutput struct {
	Body struct {
		Key    string         `json:"key" doc:"Raw key; shown only once"`
		APIKey *domain.APIKey `json:"apiKey"`
	}
}

type ListAPIKeysOutput struct {
	Body []*domain.APIKey
}

type DeleteAPIKeyInput struct {
	ID uuid.UUID `path:"id" doc:"API key ID"`
}

func RegisterUserRoutes(api huma.API, store DataStore, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-current-user",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get the signed-in user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*UserOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.GetUser(ctx, s.UserID)
		if err != nil {
			return nil, storeError(err, "user", "get user")
		}

		return &UserOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-current-user",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update profile settings",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateProfileInput) (*UserOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.UpdateProfile(ctx, s.UserID, input.Body.Name, input.Body.AvatarURL)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidInput) {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return nil, storeError(err, "user", "update profile")
		}

		return &UserOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-password",
		Method:      http.MethodPut,
		Path:        "/users/me/password",
		Summary:     "Change password",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *ChangePasswordInput) (*struct{}, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		err = authSvc.ChangePassword(ctx, s.UserID, input.Body.CurrentPassword, input.Body.NewPassword)
		switch {
		case err == nil:
			return nil, nil
		case errors.Is(err, auth.ErrInvalidCredentials):
			return nil, huma.Error403Forbidden("current password is incorrect")
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, huma.Error422UnprocessableEntity(auth.ErrWeakPassword.Error())
		default:
			return nil, storeError(err, "user", "change password")
		}
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/users/me/api-keys",
		Summary:       "Create an API key",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		var expiresAt *time.Time
		if input.Body.ExpiresInDays > 0 {
			t := time.Now().UTC().AddDate(0, 0, input.Body.ExpiresInDays)
			expiresAt = &t
		}

		raw, key, err := authSvc.GenerateAPIKey(ctx, s.UserID, input.Body.Name, expiresAt)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidInput) {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to create API key", err)
		}

		out := &CreateAPIKeyOutput{}
		out.Body.Key = raw
		out.Body.APIKey = key
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/users/me/api-keys",
		Summary:     "List API keys",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListAPIKeysOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		keys, err := store.Users().ListAPIKeys(ctx, s.UserID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list API keys", err)
		}

		return &ListAPIKeysOutput{Body: orEmpty(keys)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/users/me/api-keys/{id}",
		Summary:     "Revoke an API key",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *DeleteAPIKeyInput) (*struct{}, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := store.Users().DeleteAPIKey(ctx, s.UserID, input.ID); err != nil {
			return nil, storeError(err, "API key", "delete API key")
		}

		return nil, nil
	})
}
