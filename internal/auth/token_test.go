package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	id := Identity{ID: "user-1", Name: "Ada", Role: RoleTeacher}

	raw, err := Sign(secret, id, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := Verify(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := Sign([]byte("secret-a"), Identity{ID: "u", Role: RoleStudent}, time.Hour)
	require.NoError(t, err)

	_, err = Verify([]byte("secret-b"), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	raw, err := Sign(secret, Identity{ID: "u"}, -time.Minute)
	require.NoError(t, err)

	_, err = Verify(secret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify([]byte("secret"), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
