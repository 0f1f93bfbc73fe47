package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"pixelgenesis/internal/credential/canonical"
	"pixelgenesis/internal/credential/fingerprint"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
)

// Document is the JSON form of a credential handed to holders and verifiers.
type Document struct {
	ID               string         `json:"id"`
	HolderDID        string         `json:"holderDid"`
	IssuerDID        string         `json:"issuerDid"`
	Type             []string       `json:"type"`
	IssuedAt         string         `json:"issuedAt"`
	ExpiresAt        *string        `json:"expiresAt,omitempty"`
	Status           Status         `json:"status,omitempty"`
	CredentialSchema *Schema        `json:"credentialSchema,omitempty"`
	Claims           map[string]any `json:"claims"`
	Proof            *Proof         `json:"proof,omitempty"`
}

// Document renders the record as its wire document.
func (c *Credential) Document() Document {
	doc := Document{
		ID:               c.ID.String(),
		HolderDID:        c.HolderDID.String(),
		IssuerDID:        c.IssuerDID.String(),
		Type:             append([]string(nil), c.Types...),
		IssuedAt:         FormatTime(c.IssuedAt),
		Status:           c.Status,
		CredentialSchema: c.Schema,
		Claims:           c.Claims,
		Proof:            c.Proof,
	}
	if c.ExpiresAt != nil {
		exp := FormatTime(*c.ExpiresAt)
		doc.ExpiresAt = &exp
	}
	return doc
}

// SigningInput returns the canonical bytes the proof signs: the content without
// the proof.
func (d Document) SigningInput() ([]byte, error) {
	return d.content(false)
}

// SignedContent returns the canonical bytes including the proof. Its hash is
// the credential fingerprint.
func (d Document) SignedContent() ([]byte, error) {
	return d.content(true)
}

// Fingerprint hashes SignedContent.
func (d Document) Fingerprint() (fingerprint.Fingerprint, error) {
	b, err := d.SignedContent()
	if err != nil {
		return "", err
	}
	return fingerprint.Compute(b), nil
}

// content excludes the lifecycle status: it changes on revocation and must not
// move the fingerprint.
func (d Document) content(withProof bool) ([]byte, error) {
	d.Status = ""
	if !withProof {
		d.Proof = nil
	}
	b, err := canonical.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("canonicalize credential: %w", err)
	}
	return b, nil
}

// ParseDocument decodes a caller-supplied document. Numbers in claims keep
// their literal form until canonicalization.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, dErrors.Wrap(err, dErrors.CodeValidation, "credential document is not valid JSON")
	}
	return doc, nil
}

// ExpiresAtTime parses the document expiry. ok is false when absent.
func (d Document) ExpiresAtTime() (t time.Time, ok bool, err error) {
	if d.ExpiresAt == nil || *d.ExpiresAt == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(TimeLayout, *d.ExpiresAt)
	if err != nil {
		return time.Time{}, false, dErrors.New(dErrors.CodeValidation, "expiresAt must use "+TimeLayout)
	}
	return t, true, nil
}

// ToCredential converts a document back into a record shape. Bookkeeping the
// document does not carry (fingerprint, anchor, locator) is left for the caller.
func (d Document) ToCredential() (*Credential, error) {
	credID, err := id.ParseCredentialID(d.ID)
	if err != nil {
		return nil, err
	}
	holder, err := id.ParseDID(d.HolderDID)
	if err != nil {
		return nil, err
	}
	issuer, err := id.ParseDID(d.IssuerDID)
	if err != nil {
		return nil, err
	}
	issuedAt, err := time.Parse(TimeLayout, d.IssuedAt)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "issuedAt must use "+TimeLayout)
	}
	c := &Credential{
		ID:        credID,
		HolderDID: holder,
		IssuerDID: issuer,
		Types:     append([]string(nil), d.Type...),
		IssuedAt:  issuedAt,
		Status:    d.Status,
		Claims:    d.Claims,
		Schema:    d.CredentialSchema,
		Proof:     d.Proof,
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if !c.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be active or revoked")
	}
	exp, ok, err := d.ExpiresAtTime()
	if err != nil {
		return nil, err
	}
	if ok {
		c.ExpiresAt = &exp
	}
	return c, nil
}
