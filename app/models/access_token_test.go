package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTokenID(t *testing.T) {
	id := NewTokenID()
	assert.True(t, strings.HasPrefix(id, TokenIDPrefix))
	assert.NotEqual(t, id, NewTokenID())
}

func TestGenerateTokenSecret(t *testing.T) {
	secret, err := GenerateTokenSecret()
	assert.NoError(t, err)
	// 48 bytes base64 encoded, stays under bcrypt's 72 byte input limit.
	assert.Len(t, secret, 64)

	other, err := GenerateTokenSecret()
	assert.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestHashAndMatchSecret(t *testing.T) {
	secret, err := GenerateTokenSecret()
	assert.NoError(t, err)

	hash, err := HashTokenSecret(secret)
	assert.NoError(t, err)
	assert.NotEqual(t, secret, hash)

	token := AccessToken{ID: NewTokenID(), Name: "ci", Hash: hash}
	assert.True(t, token.MatchesSecret(secret))
	assert.False(t, token.MatchesSecret(secret+"x"))
	assert.False(t, token.MatchesSecret(""))
}

func TestAccessTokenValidate(t *testing.T) {
	token := AccessToken{ID: NewTokenID(), Name: "deploy", Hash: "h"}
	assert.NoError(t, token.Validate())

	token.Name = ""
	assert.Error(t, token.Validate())

	token.Name = strings.Repeat("a", 101)
	assert.Error(t, token.Validate())
}
