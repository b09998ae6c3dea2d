package v1

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/server/middleware"
)

const (
	oauthStateCookie = "agileboard_oauth_state"
	oauthStateTTL    = 10 * time.Minute
	refreshPath      = "/api/v1/auth"
	oauthPath        = "/api/v1/auth/oauth"
)

// AuthConfig controls cookie issuance and OAuth sign-in.
type AuthConfig struct {
	AccessTTL    time.Duration
	CookieSecure bool
	CookieDomain string
	// PublicURL is where browsers land after OAuth sign-in.
	PublicURL string
	OAuth     map[string]OAuthProvider
}

func (c AuthConfig) cookie(name, value, path string, maxAge time.Duration, httpOnly bool) http.Cookie {
	ck := http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.CookieDomain,
		Secure:   c.CookieSecure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		ck.MaxAge = int(maxAge.Seconds())
	} else {
		ck.MaxAge = -1
	}
	return ck
}

// sessionCookies carries the access token, refresh token and CSRF token.
func (c AuthConfig) sessionCookies(tokens *auth.TokenPair, csrf string) []http.Cookie {
	return []http.Cookie{
		c.cookie(middleware.SessionCookie, tokens.AccessToken, "/", tokens.AccessTTL, true),
		c.cookie(middleware.RefreshCookie, tokens.RefreshToken, refreshPath, tokens.RefreshTTL, true),
		c.cookie(middleware.CSRFCookie, csrf, "/", tokens.RefreshTTL, false),
	}
}

func (c AuthConfig) clearedCookies() []http.Cookie {
	return []http.Cookie{
		c.cookie(middleware.SessionCookie, "", "/", 0, true),
		c.cookie(middleware.RefreshCookie, "", refreshPath, 0, true),
		c.cookie(middleware.CSRFCookie, "", "/", 0, false),
	}
}

// AuthResponse is returned by every sign-in endpoint.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`  //nolint:gosec // G117: auth response DTO
	RefreshToken string       `json:"refreshToken"` //nolint:gosec // G117: auth response DTO
	ExpiresIn    int          `json:"expiresIn" doc:"Access token lifetime in seconds"`
	CSRFToken    string       `json:"csrfToken" doc:"Echo in X-CSRF-Token when authenticating with cookies"`
}

type AuthOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      AuthResponse
}

type RegisterInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"255" format:"email" doc:"User email"`
		Password string `json:"password" minLength:"8" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
		Name     string `json:"name,omitempty" maxLength:"255" doc:"Display name"`
	}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type RefreshInput struct {
	Cookie string `cookie:"agileboard_refresh" doc:"Refresh token cookie"`
	Body   struct {
		RefreshToken string `json:"refreshToken,omitempty" doc:"Refresh token; the cookie is used when omitted"` //nolint:gosec // G117: token refresh DTO
	} `required:"false"`
}

type RefreshOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		AccessToken string `json:"accessToken"` //nolint:gosec // G117: auth response DTO
		ExpiresIn   int    `json:"expiresIn"`
	}
}

type LogoutOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
}

type OAuthStartInput struct {
	Provider string `path:"provider" enum:"github,google" doc:"OAuth provider"`
}

type RedirectOutput struct {
	Status    int
	Location  string        `header:"Location"`
	SetCookie []http.Cookie `header:"Set-Cookie"`
}

type OAuthCallbackInput struct {
	Provider    string `path:"provider" enum:"github,google" doc:"OAuth provider"`
	Code        string `query:"code" doc:"Authorization code"`
	State       string `query:"state" doc:"Opaque state echoed by the provider"`
	StateCookie string `cookie:"agileboard_oauth_state"`
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService, cfg AuthConfig) {
	signIn := func(user *domain.User, tokens *auth.TokenPair) (*AuthOutput, error) {
		csrf, err := middleware.NewCSRFToken()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to issue session", err)
		}
		out := &AuthOutput{SetCookie: cfg.sessionCookies(tokens, csrf)}
		out.Body = AuthResponse{
			User:         user,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    int(tokens.AccessTTL.Seconds()),
			CSRFToken:    csrf,
		}
		return out, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
		user, err := authSvc.Register(ctx, input.Body.Email, input.Body.Password, input.Body.Name)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserAlreadyExists):
				return nil, huma.Error409Conflict("user already exists")
			case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidInput):
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to register user", err)
		}

		tokens, err := authSvc.IssueTokens(user)
		if err != nil {
			return nil, huma.Error500InternalServerError("registered but failed to issue tokens", err)
		}

		return signIn(user, tokens)
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
		user, tokens, err := authSvc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		return signIn(user, tokens)
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		token := input.Body.RefreshToken
		if token == "" {
			token = input.Cookie
		}
		if token == "" {
			return nil, huma.Error401Unauthorized("refresh token required")
		}

		accessToken, err := authSvc.RefreshToken(ctx, token)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{SetCookie: []http.Cookie{
			cfg.cookie(middleware.SessionCookie, accessToken, "/", cfg.AccessTTL, true),
		}}
		out.Body.AccessToken = accessToken
		out.Body.ExpiresIn = int(cfg.AccessTTL.Seconds())
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Clear session cookies",
		Tags:        []string{"Auth"},
	}, func(_ context.Context, _ *struct{}) (*LogoutOutput, error) {
		return &LogoutOutput{SetCookie: cfg.clearedCookies()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "oauth-start",
		Method:        http.MethodGet,
		Path:          "/auth/oauth/{provider}",
		Summary:       "Redirect to an OAuth provider",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusFound,
	}, func(_ context.Context, input *OAuthStartInput) (*RedirectOutput, error) {
		p, ok := cfg.OAuth[input.Provider]
		if !ok {
			return nil, huma.Error404NotFound("oauth provider not configured")
		}

		state, err := middleware.NewCSRFToken()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to start sign-in", err)
		}

		return &RedirectOutput{
			Status:    http.StatusFound,
			Location:  p.AuthorizationURL(state),
			SetCookie: []http.Cookie{cfg.cookie(oauthStateCookie, state, oauthPath, oauthStateTTL, true)},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "oauth-callback",
		Method:        http.MethodGet,
		Path:          "/auth/oauth/{provider}/callback",
		Summary:       "Complete OAuth sign-in",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusFound,
	}, func(ctx context.Context, input *OAuthCallbackInput) (*RedirectOutput, error) {
		p, ok := cfg.OAuth[input.Provider]
		if !ok {
			return nil, huma.Error404NotFound("oauth provider not configured")
		}

		if input.State == "" || subtle.ConstantTimeCompare([]byte(input.State), []byte(input.StateCookie)) != 1 {
			return nil, huma.Error400BadRequest("oauth state mismatch")
		}
		if input.Code == "" {
			return nil, huma.Error400BadRequest("missing authorization code")
		}

		info, err := p.ExchangeCode(ctx, input.Code)
		if err != nil {
			log.Warn().Err(err).Str("provider", input.Provider).Msg("api: oauth exchange failed")
			return nil, huma.Error401Unauthorized("oauth exchange failed")
		}

		_, tokens, err := authSvc.LoginOAuth(ctx, info)
		if err != nil {
			return nil, huma.Error500InternalServerError("oauth sign-in failed", err)
		}

		csrf, err := middleware.NewCSRFToken()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to issue session", err)
		}

		cookies := cfg.sessionCookies(tokens, csrf)
		cookies = append(cookies, cfg.cookie(oauthStateCookie, "", oauthPath, 0, true))

		return &RedirectOutput{
			Status:    http.StatusFound,
			Location:  cfg.PublicURL + "/",
			SetCookie: cookies,
		}, nil
	})
}
