package users_test

import (
	"testing"
	"time"

	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetSessionMintAndVerify(t *testing.T) {
	session := users.NewResetSession([]byte("test-signing-key"), 15*time.Minute)

	userID := uuid.New()
	token, err := session.Mint(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := session.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestResetSessionExpires(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := start

	session := users.NewResetSession([]byte("test-signing-key"), 15*time.Minute).
		WithClock(func() time.Time { return current })

	token, err := session.Mint(uuid.New())
	require.NoError(t, err)

	current = start.Add(10 * time.Minute)
	_, err = session.Verify(token)
	require.NoError(t, err)

	current = start.Add(16 * time.Minute)
	_, err = session.Verify(token)
	assert.ErrorIs(t, err, users.ErrTokenExpired)
}

func TestResetSessionRejectsTampering(t *testing.T) {
	session := users.NewResetSession([]byte("test-signing-key"), 15*time.Minute)
	other := users.NewResetSession([]byte("another-signing-key"), 15*time.Minute)

	token, err := session.Mint(uuid.New())
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, users.ErrResetSessionInvalid)

	_, err = session.Verify(token + "x")
	assert.ErrorIs(t, err, users.ErrResetSessionInvalid)

	_, err = session.Verify("not-a-jwt")
	assert.ErrorIs(t, err, users.ErrResetSessionInvalid)
}

func TestResetSessionRequiresSigningKey(t *testing.T) {
	session := users.NewResetSession(nil, 15*time.Minute)

	_, err := session.Mint(uuid.New())
	require.Error(t, err)
}
