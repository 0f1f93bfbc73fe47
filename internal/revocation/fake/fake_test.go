package fake

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelgenesis/internal/revocation"
)

func TestOracle_Lifecycle(t *testing.T) {
	ctx := context.Background()
	o := New()
	key := revocation.Key{1}

	ref1, err := o.Register(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("0", 63)+"1", ref1)
	assert.True(t, o.IsRegistered(key))

	revoked, err := o.IsRevoked(ctx, key)
	require.NoError(t, err)
	assert.False(t, revoked)

	ref2, err := o.Revoke(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)

	revoked, err = o.IsRevoked(ctx, key)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestOracle_FailureInjection(t *testing.T) {
	ctx := context.Background()
	o := New()
	key := revocation.Key{2}

	o.FailNext(OpRegister, 2)
	for range 2 {
		_, err := o.Register(ctx, key)
		assert.ErrorIs(t, err, revocation.ErrUnavailable)
	}
	_, err := o.Register(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, o.Calls(OpRegister))

	o.FailNext(OpIsRevoked, -1)
	for range 5 {
		_, err := o.IsRevoked(ctx, key)
		assert.ErrorIs(t, err, revocation.ErrUnavailable)
	}
	o.Heal()
	_, err = o.IsRevoked(ctx, key)
	assert.NoError(t, err)
}
