package auth_test

import (
	"strings"
	"testing"

	"github.com/biyuboxing/adminauth/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps hashing cheap in tests. Production parameters are
// exercised once in TestHashPassword_DefaultParams.
var testParams = auth.Argon2Params{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := auth.HashPasswordWithParams("correct horse battery staple", testParams)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"), "hash should be PHC formatted")
	assert.NoError(t, auth.ComparePassword(hash, "correct horse battery staple"))
}

func TestComparePassword_Mismatch(t *testing.T) {
	hash, err := auth.HashPasswordWithParams("password-one", testParams)
	require.NoError(t, err)

	err = auth.ComparePassword(hash, "password-two")
	assert.ErrorIs(t, err, auth.ErrMismatchedPassword)
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	_, err := auth.HashPasswordWithParams("", testParams)
	assert.Error(t, err)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := auth.HashPasswordWithParams("same-password", testParams)
	require.NoError(t, err)
	second, err := auth.HashPasswordWithParams("same-password", testParams)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash should carry a fresh salt")
}

func TestComparePassword_InvalidEncodings(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"missing sections", "$argon2id$v=19$m=65536,t=3,p=4"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := auth.ComparePassword(tc.hash, "whatever")
			assert.ErrorIs(t, err, auth.ErrInvalidHash)
		})
	}
}

func TestComparePassword_IncompatibleVersion(t *testing.T) {
	hash := "$argon2id$v=18$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	err := auth.ComparePassword(hash, "whatever")
	assert.ErrorIs(t, err, auth.ErrIncompatibleVersion)
}

func TestHashPassword_DefaultParams(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-cost argon2id hash in short mode")
	}

	hash, err := auth.HashPassword("production-cost-check")
	require.NoError(t, err)

	// The encoding must carry the configured costs so verification reads
	// them back from the stored hash.
	assert.Contains(t, hash, "m=65536,t=3,p=4")
	assert.NoError(t, auth.ComparePassword(hash, "production-cost-check"))
}
