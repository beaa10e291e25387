package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-signing-key", "certiva-test")
	actor := domain.Actor{
		UserID:    domain.NewUserID(),
		Superuser: true,
		Groups:    []string{"government", "business_hr"},
	}

	token, err := svc.GenerateToken(actor, time.Hour)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestValidateToken(t *testing.T) {
	svc := NewTokenService("test-signing-key", "certiva-test")

	t.Run("expired token is rejected with a distinct message", func(t *testing.T) {
		token, err := svc.GenerateToken(domain.Actor{UserID: domain.NewUserID()}, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := NewTokenService("different-key", "certiva-test")
		token, err := other.GenerateToken(domain.Actor{UserID: domain.NewUserID()}, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
