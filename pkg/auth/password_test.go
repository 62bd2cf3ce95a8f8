package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.Error(t, VerifyPassword(hash, "battery staple"))
}

func TestVerifyOperator(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, VerifyOperator("ops", hash, "ops", "s3cret"))
	assert.False(t, VerifyOperator("ops", hash, "admin", "s3cret"))
	assert.False(t, VerifyOperator("ops", hash, "ops", "wrong"))
	assert.False(t, VerifyOperator("ops", "not-a-bcrypt-hash", "ops", "s3cret"))
}
