package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pixelgenesis/pkg/domain"
)

func TestNewDocument(t *testing.T) {
	did := id.NewDID(id.DefaultDIDMethod)
	doc := NewDocument(did, "zKey")

	require.NoError(t, doc.Validate())
	assert.Equal(t, did.String()+KeyFragment, doc.PrimaryMethodID())
	m, ok := doc.Method(doc.PrimaryMethodID())
	require.True(t, ok)
	assert.Equal(t, KeyType, m.Type)
	assert.Equal(t, did.String(), m.Controller)
	assert.True(t, doc.Authenticates(m.ID))
	assert.False(t, doc.Authenticates(did.String()+"#keys-2"))
}

func TestDocument_Validate(t *testing.T) {
	did := id.NewDID(id.DefaultDIDMethod)

	t.Run("dangling authentication reference", func(t *testing.T) {
		doc := NewDocument(did, "zKey")
		doc.Authentication = append(doc.Authentication, did.String()+"#keys-9")
		assert.Error(t, doc.Validate())
	})

	t.Run("method scoped to another did", func(t *testing.T) {
		doc := NewDocument(did, "zKey")
		doc.VerificationMethod[0].ID = id.NewDID(id.DefaultDIDMethod).String() + KeyFragment
		assert.Error(t, doc.Validate())
	})

	t.Run("no methods", func(t *testing.T) {
		doc := Document{ID: did.String()}
		assert.Error(t, doc.Validate())
	})
}
