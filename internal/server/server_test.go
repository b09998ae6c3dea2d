package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/config"
	"github.com/gosuda/agileboard/internal/server"
	"github.com/gosuda/agileboard/internal/server/middleware"
	"github.com/gosuda/agileboard/internal/store/memory"
)

const testSecret = "test-secret-that-is-at-least-32ch"

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour},
		Server: config.ServerConfig{
			Addr:         ":0",
			PublicURL:    "http://localhost:8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
		},
		RateLimit:  config.RateLimitConfig{AuthRPS: 100, AuthBurst: 100, UserRPS: 100, UserBurst: 100},
		Invitation: config.InvitationConfig{TTL: time.Hour},
	}
}

func newServer(t *testing.T, checks map[string]server.Pinger, assets fstest.MapFS) http.Handler {
	t.Helper()

	store := memory.New()
	cfg := testConfig()
	deps := server.Deps{
		Store:  store,
		Broker: memory.NewPubSub(),
		Auth:   auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Checks: checks,
	}
	if assets != nil {
		deps.WebAssets = assets
	}
	return server.New(t.Context(), cfg, deps).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type session struct {
	cookies     []*http.Cookie
	csrf        string
	accessToken string
}

func register(t *testing.T, h http.Handler, email string) session {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": email, "password": "long-enough-pw",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"accessToken"`
		CSRFToken   string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return session{cookies: rec.Result().Cookies(), csrf: body.CSRFToken, accessToken: body.AccessToken}
}

func (s session) withCookies(r *http.Request) {
	for _, c := range s.cookies {
		r.AddCookie(c)
	}
}

// ---------------------------------------------------------------------------
// Health and metrics
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		h := newServer(t, map[string]server.Pinger{"redis": memory.NewPubSub()}, nil)

		rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("failing_dependency", func(t *testing.T) {
		t.Parallel()

		h := newServer(t, map[string]server.Pinger{
			"postgres": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, nil)

		rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"connection refused"}}`, rec.Body.String())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)
	do(t, h, http.MethodGet, "/healthz", nil, nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agileboard_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestSecurityHeadersApplied(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)
	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

// ---------------------------------------------------------------------------
// Authentication wiring
// ---------------------------------------------------------------------------

func TestProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing or invalid credentials"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ws/board/00000000-0000-0000-0000-000000000000", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieSessionRequiresCSRF(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)
	s := register(t, h, "cookie@example.com")
	body := map[string]any{"name": "Cookie project"}

	rec := do(t, h, http.MethodGet, "/api/v1/users/me", nil, s.withCookies)
	require.Equal(t, http.StatusOK, rec.Code, "safe methods need no CSRF token")

	rec = do(t, h, http.MethodPost, "/api/v1/projects", body, s.withCookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/projects", body, func(r *http.Request) {
		s.withCookies(r)
		r.Header.Set(middleware.CSRFHeader, "wrong")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/projects", body, func(r *http.Request) {
		s.withCookies(r)
		r.Header.Set(middleware.CSRFHeader, s.csrf)
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestBearerAndAPIKeySkipCSRF(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)
	s := register(t, h, "bearer@example.com")
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+s.accessToken) }

	rec := do(t, h, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Bearer project"}, bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/users/me/api-keys", map[string]any{"name": "ci"}, bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(t, h, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Key project"}, func(r *http.Request) {
		r.Header.Set(middleware.APIKeyHeader, created.Key)
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/projects", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&projects))
	assert.Len(t, projects, 2)
	assert.NotContains(t, projects[0], "$schema")
}

func TestErrorBodyShape(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, nil)
	s := register(t, h, "errors@example.com")

	rec := do(t, h, http.MethodGet, "/api/v1/projects/00000000-0000-0000-0000-000000000001", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+s.accessToken)
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"project not found"}`, rec.Body.String())
}

// ---------------------------------------------------------------------------
// SPA fallback
// ---------------------------------------------------------------------------

func TestSPAFallback(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil, fstest.MapFS{
		"index.html":    {Data: []byte("<html>board</html>")},
		"assets/app.js": {Data: []byte("console.log('hi')")},
	})

	rec := do(t, h, http.MethodGet, "/projects/123/board", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board")

	rec = do(t, h, http.MethodGet, "/assets/app.js", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "console.log"))

	rec = do(t, h, http.MethodGet, "/assets", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board", "directories are not listed")

	rec = do(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
