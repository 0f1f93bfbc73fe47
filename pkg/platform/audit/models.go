package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their retention needs.
type EventCategory string

const (
	// CategoryCompliance covers credential state changes that must be retained.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers ledger bookkeeping useful for operators.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventDIDCreated        AuditEvent = "did_created"
	EventCredentialIssued  AuditEvent = "credential_issued"
	EventCredentialRevoked AuditEvent = "credential_revoked"
	EventAnchorPending     AuditEvent = "anchor_pending"
	EventAnchorReconciled  AuditEvent = "anchor_reconciled"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDIDCreated:        CategoryCompliance,
	EventCredentialIssued:  CategoryCompliance,
	EventCredentialRevoked: CategoryCompliance,
	EventAnchorPending:     CategoryOperations,
	EventAnchorReconciled:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from the lifecycle services. It stays transport-agnostic so
// sinks (memory, Kafka) can fan out.
type Event struct {
	Action       AuditEvent    `json:"action"`
	Category     EventCategory `json:"category"`
	Timestamp    time.Time     `json:"timestamp"`
	Subject      string        `json:"subject,omitempty"`
	CredentialID string        `json:"credential_id,omitempty"`
	Fingerprint  string        `json:"fingerprint,omitempty"`
	IssuerDID    string        `json:"issuer_did,omitempty"`
	HolderDID    string        `json:"holder_did,omitempty"`
	TxRef        string        `json:"tx_ref,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
}

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
