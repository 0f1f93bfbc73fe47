package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "credential not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("issue: %w", New(CodeIssuerNotRegistered, "issuer has no DID"))
		assert.True(t, HasCode(err, CodeIssuerNotRegistered))
	})

	t.Run("matches nested coded errors", func(t *testing.T) {
		inner := New(CodeOracleUnavailable, "ledger down")
		outer := Wrap(inner, CodePersistence, "save failed")
		assert.True(t, HasCode(outer, CodePersistence))
		assert.True(t, HasCode(outer, CodeOracleUnavailable))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOfAndMessageOf(t *testing.T) {
	err := Wrap(errors.New("pq: connection refused"), CodePersistence, "failed to persist credential")
	assert.Equal(t, CodePersistence, CodeOf(err))
	assert.Equal(t, "failed to persist credential", MessageOf(err))
	assert.ErrorContains(t, err, "connection refused")

	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
}
