// Package service is the DID registry: it mints one DID per subject, publishes
// the DID document and keeps the sealed signing key.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"pixelgenesis/internal/credential/proof"
	"pixelgenesis/internal/did/models"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/audit"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/requestcontext"
)

// Store persists DID records.
type Store interface {
	SaveIfAbsent(ctx context.Context, rec models.Record) (models.Record, bool, error)
	FindByDID(ctx context.Context, did id.DID) (models.Record, error)
	FindBySubject(ctx context.Context, subject string) (models.Record, error)
}

// KeySealer protects private keys at rest.
type KeySealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Service manages DIDs.
type Service struct {
	store          Store
	sealer         KeySealer
	method         string
	logger         *slog.Logger
	auditPublisher audit.Emitter
}

type Option func(s *Service)

// WithMethod overrides the DID method prefix (default did:pixel).
func WithMethod(method string) Option {
	return func(s *Service) {
		s.method = method
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New constructs a Service.
func New(store Store, sealer KeySealer, opts ...Option) *Service {
	s := &Service{store: store, sealer: sealer, method: id.DefaultDIDMethod}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Create returns the subject's DID document, minting a key pair and DID on
// first call. Concurrent calls for one subject converge on a single document.
func (s *Service) Create(ctx context.Context, subject string) (models.Document, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return models.Document{}, dErrors.New(dErrors.CodeValidation, "subject is required")
	}

	if existing, err := s.store.FindBySubject(ctx, subject); err == nil {
		return existing.Document, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to look up DID")
	}

	priv, err := proof.GenerateKey()
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key")
	}
	pub, err := proof.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode public key")
	}
	sealed, err := s.sealer.Seal(crypto.FromECDSA(priv))
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal key")
	}

	did := id.NewDID(s.method)
	rec := models.Record{
		Subject:   subject,
		DID:       did,
		Document:  models.NewDocument(did, pub),
		SealedKey: sealed,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	stored, created, err := s.store.SaveIfAbsent(ctx, rec)
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store DID")
	}
	if created {
		s.logger.InfoContext(ctx, "did created",
			"did", did.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emitAudit(ctx, audit.Event{
			Action:    audit.EventDIDCreated,
			Subject:   subject,
			IssuerDID: did.String(),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return stored.Document, nil
}

// Resolve returns the document for did.
func (s *Service) Resolve(ctx context.Context, did id.DID) (models.Document, error) {
	rec, err := s.store.FindByDID(ctx, did)
	if err != nil {
		return models.Document{}, wrapStoreErr(err, "did not found")
	}
	return rec.Document, nil
}

// FindBySubject returns the DID record owned by subject.
func (s *Service) FindBySubject(ctx context.Context, subject string) (models.Document, error) {
	rec, err := s.store.FindBySubject(ctx, subject)
	if err != nil {
		return models.Document{}, wrapStoreErr(err, "subject has no DID")
	}
	return rec.Document, nil
}

// SigningKey opens the private key of did.
func (s *Service) SigningKey(ctx context.Context, did id.DID) (proof.SigningKey, error) {
	rec, err := s.store.FindByDID(ctx, did)
	if err != nil {
		return proof.SigningKey{}, wrapStoreErr(err, "did not found")
	}
	raw, err := s.sealer.Open(rec.SealedKey)
	if err != nil {
		return proof.SigningKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open signing key")
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return proof.SigningKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored signing key is invalid")
	}
	return proof.SigningKey{MethodID: rec.Document.PrimaryMethodID(), Private: priv}, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func wrapStoreErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "failed to read DID store")
}
