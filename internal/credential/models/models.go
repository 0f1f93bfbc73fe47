// Package models holds the credential record, its wire document and the
// verification verdict.
package models

import (
	"time"

	"pixelgenesis/internal/credential/fingerprint"
	id "pixelgenesis/pkg/domain"
)

// TimeLayout is the only timestamp format credentials use: UTC, second precision.
const TimeLayout = "2006-01-02T15:04:05Z"

// TypeVerifiableCredential always leads a credential's type list.
const TypeVerifiableCredential = "VerifiableCredential"

// Proof constants.
const (
	ProofTypeSecp256k1 = "EcdsaSecp256k1Signature2019"
	ProofPurposeAssert = "assertionMethod"
)

// Status is the lifecycle state of a credential. Active moves to Revoked and
// never back.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusRevoked
}

// CanTransitionTo reports whether the record may move from s to next.
// Re-applying the current status is allowed so updates stay idempotent.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusActive || next == StatusRevoked
	case StatusRevoked:
		return next == StatusRevoked
	default:
		return false
	}
}

// AnchorState tracks whether the record's latest status reached the ledger.
type AnchorState string

const (
	AnchorAnchored AnchorState = "anchored"
	AnchorPending  AnchorState = "pending"
)

// AnchorOp is the ledger operation still owed for a pending anchor.
type AnchorOp string

const (
	AnchorOpNone     AnchorOp = ""
	AnchorOpRegister AnchorOp = "register"
	AnchorOpRevoke   AnchorOp = "revoke"
)

// Anchor is the ledger bookkeeping of a credential.
type Anchor struct {
	State     AnchorState
	PendingOp AnchorOp
	TxRef     string
}

// Anchored returns an anchor confirmed by txRef.
func Anchored(txRef string) Anchor {
	return Anchor{State: AnchorAnchored, TxRef: txRef}
}

// Pending returns an anchor awaiting op. txRef keeps the last confirmed reference.
func Pending(op AnchorOp, txRef string) Anchor {
	return Anchor{State: AnchorPending, PendingOp: op, TxRef: txRef}
}

// IsPending reports whether a ledger operation is still owed.
func (a Anchor) IsPending() bool {
	return a.State == AnchorPending
}

// Schema references the schema the claims conform to.
type Schema struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Proof is the issuer's signature over the canonical pre-proof document.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	ProofValue         string `json:"proofValue"`
}

// Credential is the authoritative record.
type Credential struct {
	ID             id.CredentialID
	HolderDID      id.DID
	IssuerDID      id.DID
	Types          []string
	IssuedAt       time.Time
	ExpiresAt      *time.Time
	Status         Status
	Claims         map[string]any
	Schema         *Schema
	Proof          *Proof
	Fingerprint    fingerprint.Fingerprint
	Anchor         Anchor
	ContentLocator string
}

// IsExpired reports whether now is past the credential's expiry.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// IsRevoked reports whether the record is revoked.
func (c *Credential) IsRevoked() bool {
	return c.Status == StatusRevoked
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Truncate normalizes t to second-precision UTC.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// OnChainStatus is what the revocation oracle reported during verification.
type OnChainStatus string

const (
	OnChainActive     OnChainStatus = "active"
	OnChainRevoked    OnChainStatus = "revoked"
	OnChainUnknown    OnChainStatus = "unknown"
	OnChainNotChecked OnChainStatus = "not-checked"
)

// ExpiryStatus is the expiry verdict. Empty when the credential was not located.
type ExpiryStatus string

const (
	ExpiryValid    ExpiryStatus = "valid"
	ExpiryExpired  ExpiryStatus = "expired"
	ExpiryNoExpiry ExpiryStatus = "no-expiry"
)

// Verification reasons.
const (
	ReasonNotFound            = "credential not found"
	ReasonFingerprintMismatch = "fingerprint does not match document"
	ReasonExpired             = "credential has expired"
	ReasonRevokedOnChain      = "revoked on-chain"
	ReasonRevokedLocally      = "revoked in local record"
	ReasonValid               = "credential is valid"
)

// InvalidProofReason formats the reason for a failed signature check.
func InvalidProofReason(detail string) string {
	return "missing or invalid proof (" + detail + ")"
}

// VerificationResult is the verdict returned to verifiers.
type VerificationResult struct {
	IsValid       bool          `json:"isValid"`
	Reasons       []string      `json:"reasons"`
	OnChainStatus OnChainStatus `json:"onChainStatus"`
	ExpiryStatus  ExpiryStatus  `json:"expiryStatus,omitempty"`
}

// StatusUpdate is a forward-only change applied by revocation and anchor
// reconciliation. When From is set the update only applies to a record
// currently in that status.
type StatusUpdate struct {
	From   Status
	Status Status
	Anchor Anchor
}

// AppliesTo reports whether the update may be written over a record in current.
func (u StatusUpdate) AppliesTo(current Status) bool {
	if u.From != "" && current != u.From {
		return false
	}
	return current.CanTransitionTo(u.Status)
}
