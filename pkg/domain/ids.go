// Package domain defines the identifier types shared across the credential and
// DID packages. Parse functions are the trust boundary: anything that reaches a
// service as a DID or CredentialID has already been validated here.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "pixelgenesis/pkg/domain-errors"
)

// DefaultDIDMethod is the local DID method prefix.
const DefaultDIDMethod = "did:pixel"

// credentialIDPrefix prefixes every credential identifier.
const credentialIDPrefix = "vc:"

// maxIDLength bounds identifiers accepted from callers.
const maxIDLength = 256

// DID is a decentralized identifier of the form "<method>:<uuid>".
type DID string

// CredentialID identifies a credential, "vc:<uuid>".
type CredentialID string

func (d DID) String() string          { return string(d) }
func (c CredentialID) String() string { return string(c) }

// IsZero reports whether the DID is unset.
func (d DID) IsZero() bool { return d == "" }

// Method returns the method portion of the DID ("did:pixel").
func (d DID) Method() string {
	i := strings.LastIndex(string(d), ":")
	if i < 0 {
		return ""
	}
	return string(d)[:i]
}

// NewDID mints a DID under method.
func NewDID(method string) DID {
	return DID(method + ":" + uuid.NewString())
}

// NewCredentialID mints a fresh credential identifier.
func NewCredentialID() CredentialID {
	return CredentialID(credentialIDPrefix + uuid.NewString())
}

// ParseDID validates a DID string: a "did:" prefixed method followed by a
// non-nil UUID suffix.
func ParseDID(s string) (DID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "did is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "did is malformed")
	}
	if !strings.HasPrefix(s, "did:") {
		return "", dErrors.New(dErrors.CodeValidation, "did must start with did:")
	}
	i := strings.LastIndex(s, ":")
	method, suffix := s[:i], s[i+1:]
	if method == "did" || strings.ContainsAny(method[len("did:"):], " \t#/?") {
		return "", dErrors.New(dErrors.CodeValidation, "did method is malformed")
	}
	if err := parseUUID(suffix); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "did identifier must be a UUID")
	}
	return DID(s), nil
}

// ParseCredentialID validates a "vc:<uuid>" identifier.
func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "credential id is required")
	}
	suffix, ok := strings.CutPrefix(s, credentialIDPrefix)
	if !ok || len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeValidation, "credential id must look like vc:<uuid>")
	}
	if err := parseUUID(suffix); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "credential id must look like vc:<uuid>")
	}
	return CredentialID(s), nil
}

func parseUUID(s string) error {
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	if u == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "nil uuid")
	}
	// uuid.Parse accepts urn: and braced forms; only the canonical form is an identifier here.
	if u.String() != strings.ToLower(s) {
		return dErrors.New(dErrors.CodeValidation, "non-canonical uuid")
	}
	return nil
}
