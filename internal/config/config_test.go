package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "AGILEBOARD_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "AGILEBOARD_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "AGILEBOARD_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "AGILEBOARD_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AGILEBOARD_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "AGILEBOARD_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "AGILEBOARD_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "parses zero", key: "AGILEBOARD_TEST_INT_ZERO", setVal: strPtr("0"), fallback: 99, want: 0},
		{name: "returns fallback for empty string", key: "AGILEBOARD_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "AGILEBOARD_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "AGILEBOARD_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
		{name: "errors on hex", key: "AGILEBOARD_TEST_INT_HEX", setVal: strPtr("0xFF"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AGILEBOARD_TEST_BOOL_UNSET", setVal: nil, fallback: false, want: false},
		{name: "fallback true when unset", key: "AGILEBOARD_TEST_BOOL_UNSETTRUE", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "AGILEBOARD_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses false", key: "AGILEBOARD_TEST_BOOL_FALSE", setVal: strPtr("false"), fallback: true, want: false},
		{name: "parses 1", key: "AGILEBOARD_TEST_BOOL_ONE", setVal: strPtr("1"), fallback: false, want: true},
		{name: "parses 0", key: "AGILEBOARD_TEST_BOOL_ZERO", setVal: strPtr("0"), fallback: true, want: false},
		{name: "parses TRUE uppercase", key: "AGILEBOARD_TEST_BOOL_UPPER", setVal: strPtr("TRUE"), fallback: false, want: true},
		{name: "parses t", key: "AGILEBOARD_TEST_BOOL_T", setVal: strPtr("t"), fallback: false, want: true},
		{name: "errors on invalid", key: "AGILEBOARD_TEST_BOOL_INV", setVal: strPtr("yes"), fallback: false, wantErr: true},
		{name: "errors on numeric non-bool", key: "AGILEBOARD_TEST_BOOL_NUM", setVal: strPtr("2"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AGILEBOARD_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "AGILEBOARD_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses minutes", key: "AGILEBOARD_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses hours", key: "AGILEBOARD_TEST_DUR_HR", setVal: strPtr("2h"), fallback: 0, want: 2 * time.Hour},
		{name: "parses composite", key: "AGILEBOARD_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "parses nanosecond", key: "AGILEBOARD_TEST_DUR_NS", setVal: strPtr("1ns"), fallback: 0, want: time.Nanosecond},
		{name: "parses zero", key: "AGILEBOARD_TEST_DUR_ZERO", setVal: strPtr("0s"), fallback: 5 * time.Second, want: 0},
		{name: "errors on invalid", key: "AGILEBOARD_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "AGILEBOARD_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("AGILEBOARD_TEST_FLOAT_OK", "2.5")
	t.Setenv("AGILEBOARD_TEST_FLOAT_BAD", "fast")

	got, err := getEnvFloat("AGILEBOARD_TEST_FLOAT_OK", 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 1e-9)

	got, err = getEnvFloat("AGILEBOARD_TEST_FLOAT_UNSET", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	_, err = getEnvFloat("AGILEBOARD_TEST_FLOAT_BAD", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGILEBOARD_TEST_FLOAT_BAD")
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("AGILEBOARD_TEST_LIST", " a, b ,,c ")

	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("AGILEBOARD_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("AGILEBOARD_TEST_LIST_UNSET", []string{"x"}))
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

const testSecret = "test-secret-that-is-at-least-32ch"

func TestLoad_MissingJWTSecret(t *testing.T) {
	// All defaults apply; JWT secret is empty => must fail.
	t.Setenv("AGILEBOARD_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGILEBOARD_JWT_SECRET")
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("AGILEBOARD_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		errMsg string
	}{
		{name: "DB_PORT not a number", envKey: "AGILEBOARD_DB_PORT", envVal: "abc", errMsg: "AGILEBOARD_DB_PORT"},
		{name: "DB_PORT zero", envKey: "AGILEBOARD_DB_PORT", envVal: "0", errMsg: "AGILEBOARD_DB_PORT"},
		{name: "DB_PORT too high", envKey: "AGILEBOARD_DB_PORT", envVal: "65536", errMsg: "AGILEBOARD_DB_PORT"},
		{name: "DB_MAX_CONNS zero", envKey: "AGILEBOARD_DB_MAX_CONNS", envVal: "0", errMsg: "AGILEBOARD_DB_MAX_CONNS"},
		{name: "JWT_ACCESS_TTL invalid", envKey: "AGILEBOARD_JWT_ACCESS_TTL", envVal: "badval", errMsg: "AGILEBOARD_JWT_ACCESS_TTL"},
		{name: "JWT_REFRESH_TTL negative", envKey: "AGILEBOARD_JWT_REFRESH_TTL", envVal: "-1h", errMsg: "AGILEBOARD_JWT_REFRESH_TTL"},
		{name: "SERVER_READ_TIMEOUT zero", envKey: "AGILEBOARD_SERVER_READ_TIMEOUT", envVal: "0s", errMsg: "AGILEBOARD_SERVER_READ_TIMEOUT"},
		{name: "SERVER_WRITE_TIMEOUT invalid", envKey: "AGILEBOARD_SERVER_WRITE_TIMEOUT", envVal: "soon", errMsg: "AGILEBOARD_SERVER_WRITE_TIMEOUT"},
		{name: "REDIS_DB not a number", envKey: "AGILEBOARD_REDIS_DB", envVal: "abc", errMsg: "AGILEBOARD_REDIS_DB"},
		{name: "DEV not a bool", envKey: "AGILEBOARD_DEV", envVal: "yes", errMsg: "AGILEBOARD_DEV"},
		{name: "unknown store", envKey: "AGILEBOARD_STORE", envVal: "sqlite", errMsg: "AGILEBOARD_STORE"},
		{name: "rate zero", envKey: "AGILEBOARD_RATE_USER_RPS", envVal: "0", errMsg: "AGILEBOARD_RATE_USER_RPS"},
		{name: "rate not a number", envKey: "AGILEBOARD_RATE_AUTH_RPS", envVal: "lots", errMsg: "AGILEBOARD_RATE_AUTH_RPS"},
		{name: "burst zero", envKey: "AGILEBOARD_RATE_AUTH_BURST", envVal: "0", errMsg: "AGILEBOARD_RATE_AUTH_BURST"},
		{name: "queue size zero", envKey: "AGILEBOARD_NOTIFY_QUEUE_SIZE", envVal: "0", errMsg: "AGILEBOARD_NOTIFY_QUEUE_SIZE"},
		{name: "workers zero", envKey: "AGILEBOARD_NOTIFY_WORKERS", envVal: "0", errMsg: "AGILEBOARD_NOTIFY_WORKERS"},
		{name: "invitation ttl zero", envKey: "AGILEBOARD_INVITATION_TTL", envVal: "0s", errMsg: "AGILEBOARD_INVITATION_TTL"},
		{name: "log format", envKey: "AGILEBOARD_LOG_FORMAT", envVal: "xml", errMsg: "AGILEBOARD_LOG_FORMAT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("AGILEBOARD_JWT_SECRET", testSecret)
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoad_ReportsEveryParseError(t *testing.T) {
	t.Setenv("AGILEBOARD_JWT_SECRET", testSecret)
	t.Setenv("AGILEBOARD_DB_PORT", "abc")
	t.Setenv("AGILEBOARD_JWT_ACCESS_TTL", "never")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGILEBOARD_DB_PORT")
	assert.Contains(t, err.Error(), "AGILEBOARD_JWT_ACCESS_TTL")
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	// Only the required JWT secret is set; everything else uses defaults.
	t.Setenv("AGILEBOARD_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "agileboard", cfg.Database.User)
	assert.Equal(t, "agileboard_dev", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.CookieSecure, "cookies are secure outside dev mode")

	assert.False(t, cfg.OAuth.GitHub.Enabled())
	assert.False(t, cfg.OAuth.Google.Enabled())
	assert.Empty(t, cfg.Slack.BotToken)

	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 7*24*time.Hour, cfg.Invitation.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Dev)
}

func TestLoad_DevModeRelaxesCookies(t *testing.T) {
	t.Setenv("AGILEBOARD_JWT_SECRET", testSecret)
	t.Setenv("AGILEBOARD_DEV", "true")
	t.Setenv("AGILEBOARD_STORE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Dev)
	assert.False(t, cfg.Server.CookieSecure)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		"AGILEBOARD_DB_HOST":              "db.prod.internal",
		"AGILEBOARD_DB_PORT":              "5433",
		"AGILEBOARD_DB_USER":              "prod_user",
		"AGILEBOARD_DB_PASSWORD":          "s3cret!",
		"AGILEBOARD_DB_NAME":              "agileboard_prod",
		"AGILEBOARD_DB_SSLMODE":           "require",
		"AGILEBOARD_DB_MAX_CONNS":         "50",
		"AGILEBOARD_REDIS_ADDR":           "redis.prod:6380",
		"AGILEBOARD_REDIS_PASSWORD":       "redis-pass",
		"AGILEBOARD_REDIS_DB":             "3",
		"AGILEBOARD_JWT_SECRET":           "prod-jwt-secret-256-bits-long!!!",
		"AGILEBOARD_JWT_ACCESS_TTL":       "30m",
		"AGILEBOARD_JWT_REFRESH_TTL":      "72h",
		"AGILEBOARD_SERVER_ADDR":          ":9090",
		"AGILEBOARD_PUBLIC_URL":           "https://board.example.com/",
		"AGILEBOARD_SERVER_READ_TIMEOUT":  "5s",
		"AGILEBOARD_SERVER_WRITE_TIMEOUT": "15s",
		"AGILEBOARD_CORS_ORIGINS":         "https://board.example.com, https://admin.example.com",
		"AGILEBOARD_COOKIE_DOMAIN":        "example.com",
		"AGILEBOARD_RATE_USER_RPS":        "7.5",
		"AGILEBOARD_GITHUB_CLIENT_ID":     "gh-id",
		"AGILEBOARD_GITHUB_CLIENT_SECRET": "gh-secret",
		"AGILEBOARD_SLACK_BOT_TOKEN":      "xoxb-test",
		"AGILEBOARD_SLACK_CHANNEL":        "#board",
		"AGILEBOARD_NOTIFY_QUEUE_SIZE":    "1024",
		"AGILEBOARD_NOTIFY_WORKERS":       "8",
		"AGILEBOARD_INVITATION_TTL":       "48h",
		"AGILEBOARD_LOG_LEVEL":            "debug",
		"AGILEBOARD_LOG_FORMAT":           "text",
	}

	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "s3cret!", cfg.Database.Password)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://board.example.com", cfg.Server.PublicURL)
	assert.Equal(t, []string{"https://board.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "example.com", cfg.Server.CookieDomain)
	assert.InDelta(t, 7.5, cfg.RateLimit.UserRPS, 1e-9)
	assert.True(t, cfg.OAuth.GitHub.Enabled())
	assert.Equal(t, "#board", cfg.Slack.Channel)
	assert.Equal(t, 1024, cfg.Notify.QueueSize)
	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.Equal(t, 48*time.Hour, cfg.Invitation.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=require", c.DSN())
}

func strPtr(s string) *string { return &s }
