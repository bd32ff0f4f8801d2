package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, Verify("correct horse battery staple", hash))
	assert.False(t, Verify("correct horse battery", hash))
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same password")
	require.NoError(t, err)
	second, err := Hash("same password")
	require.NoError(t, err)

	// Two hashes of the same password must differ by salt, and both verify.
	assert.NotEqual(t, first, second)
	assert.True(t, Verify("same password", first))
	assert.True(t, Verify("same password", second))
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
}

func TestVerifyToleratesCorruptHashes(t *testing.T) {
	for _, stored := range []string{
		"",
		"not-a-bcrypt-hash",
		"$2a$10$tooshort",
		"$9z$99$completely bogus prefix and cost",
	} {
		assert.False(t, Verify("anything", stored), "stored=%q", stored)
	}
}
