package contentstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator(t *testing.T) {
	a, err := Locator([]byte(`{"id":"vc:1"}`))
	require.NoError(t, err)
	b, err := Locator([]byte(`{"id":"vc:1"}`))
	require.NoError(t, err)
	c, err := Locator([]byte(`{"id":"vc:2"}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "bafkrei"), "raw sha2-256 CIDv1 in base32: %s", a)
}

func TestVerify(t *testing.T) {
	data := []byte("signed document")
	loc, err := Locator(data)
	require.NoError(t, err)

	assert.NoError(t, Verify(loc, data))
	assert.ErrorIs(t, Verify(loc, []byte("tampered")), ErrIntegrity)
	assert.ErrorIs(t, Verify("not-a-cid", data), ErrInvalidLocator)
}
