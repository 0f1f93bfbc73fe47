// Package models holds DID documents and the stored DID record.
package models

import (
	"slices"
	"strings"
	"time"

	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
)

// KeyType is the verification method type of every generated key.
const KeyType = "EcdsaSecp256k1VerificationKey2019"

// KeyFragment names the single signing key of a DID.
const KeyFragment = "#keys-1"

// VerificationMethod is a public key published in a DID document.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// Document is a DID document. It is immutable once created.
type Document struct {
	ID                 string               `json:"id"`
	Controller         string               `json:"controller,omitempty"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
}

// NewDocument builds the document for did with one key listed for authentication.
func NewDocument(did id.DID, publicKeyMultibase string) Document {
	methodID := did.String() + KeyFragment
	return Document{
		ID: did.String(),
		VerificationMethod: []VerificationMethod{{
			ID:                 methodID,
			Type:               KeyType,
			Controller:         did.String(),
			PublicKeyMultibase: publicKeyMultibase,
		}},
		Authentication: []string{methodID},
	}
}

// Method looks up a verification method by id.
func (d Document) Method(methodID string) (VerificationMethod, bool) {
	for _, m := range d.VerificationMethod {
		if m.ID == methodID {
			return m, true
		}
	}
	return VerificationMethod{}, false
}

// Authenticates reports whether methodID is listed under authentication.
func (d Document) Authenticates(methodID string) bool {
	return slices.Contains(d.Authentication, methodID)
}

// PrimaryMethodID returns the first authentication method.
func (d Document) PrimaryMethodID() string {
	if len(d.Authentication) == 0 {
		return ""
	}
	return d.Authentication[0]
}

// Validate checks the document's internal references.
func (d Document) Validate() error {
	if _, err := id.ParseDID(d.ID); err != nil {
		return err
	}
	if len(d.VerificationMethod) == 0 {
		return dErrors.New(dErrors.CodeValidation, "did document has no verification method")
	}
	seen := make(map[string]struct{}, len(d.VerificationMethod))
	for _, m := range d.VerificationMethod {
		if !strings.HasPrefix(m.ID, d.ID+"#") {
			return dErrors.New(dErrors.CodeValidation, "verification method "+m.ID+" is not scoped to "+d.ID)
		}
		if m.PublicKeyMultibase == "" {
			return dErrors.New(dErrors.CodeValidation, "verification method "+m.ID+" has no key")
		}
		if _, dup := seen[m.ID]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate verification method "+m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	for _, ref := range d.Authentication {
		if _, ok := seen[ref]; !ok {
			return dErrors.New(dErrors.CodeValidation, "authentication references unknown method "+ref)
		}
	}
	return nil
}

// Record is the stored DID: the subject it belongs to, the public document and
// the sealed private key.
type Record struct {
	Subject   string
	DID       id.DID
	Document  Document
	SealedKey []byte
	CreatedAt time.Time
}
