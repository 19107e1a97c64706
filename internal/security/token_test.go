package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charly05tr/ClassMatchAPI/internal/security"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)

	userID, err := svc.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := security.NewTokenService("secret", time.Hour).CreateForUser(1)
	require.NoError(t, err)

	_, err = security.NewTokenService("other", time.Hour).ParseUserID(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	svc := security.NewTokenService("secret", -time.Minute)

	token, err := svc.CreateForUser(1)
	require.NoError(t, err)

	_, err = svc.ParseUserID(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	_, err := svc.ParseUserID("not-a-token")
	assert.Error(t, err)
}
