package users_test

import (
	"encoding/hex"
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSourceGeneratesHexTokens(t *testing.T) {
	source := users.NewTokenSource(users.DefaultTokenLength)

	token, err := source.Generate()
	require.NoError(t, err)

	assert.Len(t, token, users.DefaultTokenLength*2, "hex doubles the byte length")

	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
}

func TestTokenSourceGeneratesDistinctTokens(t *testing.T) {
	source := users.NewTokenSource(users.DefaultTokenLength)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := source.Generate()
		require.NoError(t, err)
		require.False(t, seen[token], "token %q repeated", token)
		seen[token] = true
	}
}

func TestTokenSourceMinimumLength(t *testing.T) {
	// Zero or negative lengths fall back to the default.
	source := users.NewTokenSource(0)

	token, err := source.Generate()
	require.NoError(t, err)
	assert.Len(t, token, users.DefaultTokenLength*2)
}

func TestTokenSourceFunc(t *testing.T) {
	source := users.TokenSourceFunc(func() (string, error) {
		return "fixed-token", nil
	})

	token, err := source.Generate()
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", token)

	var nilSource users.TokenSourceFunc
	_, err = nilSource.Generate()
	assert.Error(t, err)
}
