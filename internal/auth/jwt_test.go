package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/agileboard/internal/auth"
)

func TestJWT_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"
	userID := uuid.New()

	t.Run("access token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(secret, userID, "alice@example.com", 5*time.Minute)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)

		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, "access", claims.TokenType)
		assert.Equal(t, "agileboard", claims.Issuer)

		got, err := claims.UserUUID()
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("refresh token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueRefreshToken(secret, userID, "", 24*time.Hour)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)
		assert.Equal(t, "refresh", claims.TokenType)
	})
}

func TestJWT_Rejections(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				tok, err := auth.IssueAccessToken(secret, uuid.New(), "", -time.Minute)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				tok, err := auth.IssueAccessToken("another-secret", uuid.New(), "", time.Minute)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "foreign issuer",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
					Issuer:    "someone-else",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
				}).SignedString([]byte(secret))
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "none algorithm",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
					Issuer: "agileboard",
				}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name:  "malformed",
			token: func(*testing.T) string { return "not.a.jwt" },
		},
		{
			name:  "empty",
			token: func(*testing.T) string { return "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := auth.ValidateToken(secret, tt.token(t))
			require.ErrorIs(t, err, auth.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
