package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher() *Hasher {
	return NewHasherWithParams(Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()

	encoded, err := h.HashPassword("open-sesame")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.VerifyPassword("open-sesame", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyPassword("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h := testHasher()
	a, err := h.HashPassword("same")
	require.NoError(t, err)
	b, err := h.HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h := testHasher()

	_, err := h.VerifyPassword("x", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = h.VerifyPassword("x", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	_, err = h.VerifyPassword("x", "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
