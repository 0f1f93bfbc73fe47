package keyseal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := New("secret-a")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("private key bytes"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "private key bytes")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("private key bytes"), opened)

	again, err := s.Seal([]byte("private key bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestOpen_Failures(t *testing.T) {
	a, err := New("secret-a")
	require.NoError(t, err)
	b, err := New("secret-b")
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("k"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	sealed[len(sealed)-1] ^= 0xff
	_, err = a.Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = a.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestNew_RejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
