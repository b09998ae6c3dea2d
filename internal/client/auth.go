package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

// Session is the body of a successful register or login.
type Session struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`  //nolint:gosec // G117: auth response DTO
	RefreshToken string       `json:"refreshToken"` //nolint:gosec // G117: auth response DTO
	ExpiresIn    int          `json:"expiresIn"`
	CSRFToken    string       `json:"csrfToken"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // G117: login credential DTO
	Name     string `json:"name,omitempty"`
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", credentialsBody{Email: email, Password: password, Name: name}, &s); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentialsBody{Email: email, Password: password}, &s); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &s, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}

// CreateAPIKey returns the raw key, which the server shows only once.
func (c *Client) CreateAPIKey(ctx context.Context, name string, expiresInDays int) (string, *domain.APIKey, error) {
	body := struct {
		Name          string `json:"name"`
		ExpiresInDays int    `json:"expiresInDays,omitempty"`
	}{name, expiresInDays}
	var out struct {
		Key    string         `json:"key"`
		APIKey *domain.APIKey `json:"apiKey"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/me/api-keys", body, &out); err != nil {
		return "", nil, fmt.Errorf("client.CreateAPIKey: %w", err)
	}
	return out.Key, out.APIKey, nil
}

func (c *Client) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	if err := c.do(ctx, http.MethodGet, "/users/me/api-keys", nil, &keys); err != nil {
		return nil, fmt.Errorf("client.ListAPIKeys: %w", err)
	}
	return keys, nil
}

func (c *Client) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/users/me/api-keys/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteAPIKey: %w", err)
	}
	return nil
}
