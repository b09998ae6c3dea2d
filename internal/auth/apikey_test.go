package auth_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/agileboard/internal/auth"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("key format and stored fields", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc, _ := newTestService()
		user, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)

		rawKey, apiKey, err := svc.GenerateAPIKey(ctx, user.ID, " cli ", nil)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(rawKey, "agb_"), "unexpected key %q", rawKey)
		assert.Len(t, rawKey, 4+32)
		assert.Equal(t, rawKey[:12], apiKey.Prefix)
		assert.Equal(t, "cli", apiKey.Name)
		assert.Equal(t, user.ID, apiKey.UserID)
		assert.Nil(t, apiKey.ExpiresAt)

		sum := sha256.Sum256([]byte(rawKey))
		assert.Equal(t, hex.EncodeToString(sum[:]), apiKey.KeyHash)
	})

	t.Run("name required", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService()
		_, _, err := svc.GenerateAPIKey(t.Context(), uuid.New(), "  ", nil)
		assert.ErrorIs(t, err, auth.ErrInvalidInput)
	})

	t.Run("repository error", func(t *testing.T) {
		t.Parallel()

		svc, repo := newTestService()
		repo.createAPIKeyErr = errors.New("db error")

		rawKey, apiKey, err := svc.GenerateAPIKey(t.Context(), uuid.New(), "fail", nil)
		require.Error(t, err)
		assert.Empty(t, rawKey)
		assert.Nil(t, apiKey)
	})
}

func TestValidateAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("valid key resolves user and records use", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc, repo := newTestService()
		user, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)
		rawKey, _, err := svc.GenerateAPIKey(ctx, user.ID, "cli", nil)
		require.NoError(t, err)

		got, key, err := svc.ValidateAPIKey(ctx, rawKey)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		stored, err := repo.GetAPIKeyByPrefix(ctx, key.Prefix)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastUsedAt)
	})

	t.Run("same prefix different secret", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc, _ := newTestService()
		user, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)
		rawKey, _, err := svc.GenerateAPIKey(ctx, user.ID, "cli", nil)
		require.NoError(t, err)

		forged := rawKey[:12] + strings.Repeat("0", len(rawKey)-12)
		_, _, err = svc.ValidateAPIKey(ctx, forged)
		assert.ErrorIs(t, err, auth.ErrInvalidAPIKey)
	})

	t.Run("expired key", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc, _ := newTestService()
		user, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)
		past := time.Now().Add(-time.Hour)
		rawKey, _, err := svc.GenerateAPIKey(ctx, user.ID, "old", &past)
		require.NoError(t, err)

		_, _, err = svc.ValidateAPIKey(ctx, rawKey)
		assert.ErrorIs(t, err, auth.ErrInvalidAPIKey)
	})

	t.Run("short and unknown keys", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService()
		for _, raw := range []string{"", "short", "agb_0123456789abcdef0123456789abcdef"} {
			user, key, err := svc.ValidateAPIKey(t.Context(), raw)
			require.ErrorIs(t, err, auth.ErrInvalidAPIKey, raw)
			assert.Nil(t, user)
			assert.Nil(t, key)
		}
	})
}
