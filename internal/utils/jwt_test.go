package utils

import (
	"testing"
	"time"

	"amafaranga/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	access, refresh, err := GenerateTokens(&models.AccountClaims{
		AccountID:   "acc-1",
		CardNumber:  "1234567890",
		Role:        models.RoleUser,
		Permissions: models.GetDefaultPermissions(models.RoleUser),
	}, "secret", time.Minute)
	require.NoError(t, err)

	_, claims, err := ParseToken(access, "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, models.TokenAccess, claims.TokenType)
	assert.True(t, claims.HasPermission(models.PermissionWalletWrite))

	_, claims, err = ParseToken(refresh, "secret")
	require.NoError(t, err)
	assert.Equal(t, models.TokenRefresh, claims.TokenType)
	assert.Empty(t, claims.Permissions)

	_, _, err = ParseToken(access, "other-secret")
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	access, _, err := GenerateTokens(&models.AccountClaims{AccountID: "acc-1"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, _, err = ParseToken(access, "secret")
	assert.Error(t, err)
}

func TestMissingSecret(t *testing.T) {
	_, _, err := GenerateTokens(&models.AccountClaims{AccountID: "acc-1"}, "", time.Minute)
	assert.Error(t, err)
}
