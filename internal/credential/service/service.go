// Package service is the credential lifecycle manager. It issues, verifies and
// revokes credentials, keeping the local record authoritative and treating the
// revocation oracle and content store as best-effort collaborators.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/metrics"
	"pixelgenesis/internal/credential/models"
	"pixelgenesis/internal/credential/proof"
	didmodels "pixelgenesis/internal/did/models"
	"pixelgenesis/internal/revocation"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/audit"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,DIDRegistry,Oracle,ContentStore,AuditPublisher

// Store persists credential records.
type Store interface {
	Save(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, id id.CredentialID) (*models.Credential, error)
	FindByFingerprint(ctx context.Context, fp fingerprint.Fingerprint) (*models.Credential, error)
	FindByHolderDID(ctx context.Context, holder id.DID) ([]*models.Credential, error)
	UpdateStatus(ctx context.Context, id id.CredentialID, u models.StatusUpdate) (*models.Credential, error)
	ListPendingAnchors(ctx context.Context, limit int) ([]*models.Credential, error)
}

// DIDRegistry resolves issuers and hands out their signing keys.
type DIDRegistry interface {
	FindBySubject(ctx context.Context, subject string) (didmodels.Document, error)
	Resolve(ctx context.Context, did id.DID) (didmodels.Document, error)
	SigningKey(ctx context.Context, did id.DID) (proof.SigningKey, error)
}

// Oracle is the on-chain revocation registry.
type Oracle interface {
	Register(ctx context.Context, key revocation.Key) (string, error)
	Revoke(ctx context.Context, key revocation.Key) (string, error)
	IsRevoked(ctx context.Context, key revocation.Key) (bool, error)
}

// ContentStore keeps full signed documents by content address.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
}

// AuditPublisher receives lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the credential lifecycle.
type Service struct {
	store          Store
	dids           DIDRegistry
	oracle         Oracle
	content        ContentStore
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(*Service)

// WithContentStore enables document storage. Without it credentials carry no locator.
func WithContentStore(content ContentStore) Option {
	return func(s *Service) {
		s.content = content
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(store Store, dids DIDRegistry, oracle Oracle, opts ...Option) *Service {
	s := &Service{
		store:  store,
		dids:   dids,
		oracle: oracle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("pixelgenesis/credential")
	}
	return s
}

// Get returns the record for credID.
func (s *Service) Get(ctx context.Context, credID id.CredentialID) (*models.Credential, error) {
	c, err := s.store.FindByID(ctx, credID)
	if err != nil {
		return nil, wrapStoreErr(err, "credential not found")
	}
	return c, nil
}

// ListByHolder returns the credentials held by holder, newest first.
func (s *Service) ListByHolder(ctx context.Context, holder id.DID) ([]*models.Credential, error) {
	creds, err := s.store.FindByHolderDID(ctx, holder)
	if err != nil {
		return nil, wrapStoreErr(err, "credentials not found")
	}
	return creds, nil
}

// ListForSubject returns the credentials held by the DID subject owns. A
// subject without a DID holds nothing.
func (s *Service) ListForSubject(ctx context.Context, subject string) ([]*models.Credential, error) {
	doc, err := s.dids.FindBySubject(ctx, subject)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return []*models.Credential{}, nil
		}
		return nil, err
	}
	return s.ListByHolder(ctx, id.DID(doc.ID))
}

// Document returns the signed document of credID. The content store copy is
// preferred; when it is missing or unreachable the document is rebuilt from the
// record, whose canonical form is identical.
func (s *Service) Document(ctx context.Context, credID id.CredentialID) (models.Document, error) {
	c, err := s.Get(ctx, credID)
	if err != nil {
		return models.Document{}, err
	}
	doc := c.Document()
	if s.content == nil || c.ContentLocator == "" {
		return doc, nil
	}

	raw, err := s.content.Get(ctx, c.ContentLocator)
	if err != nil {
		s.logger.WarnContext(ctx, "content store read failed, rebuilding document from record",
			"credential_id", c.ID.String(),
			"locator", c.ContentLocator,
			"error", err,
		)
		return doc, nil
	}
	stored, err := models.ParseDocument(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "stored document is unreadable, rebuilding from record",
			"credential_id", c.ID.String(),
			"error", err,
		)
		return doc, nil
	}
	stored.Status = c.Status
	return stored, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func oracleKey(fp fingerprint.Fingerprint) (revocation.Key, error) {
	key, err := fp.OracleKey()
	if err != nil {
		return revocation.Key{}, err
	}
	return revocation.Key(key), nil
}

func wrapStoreErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "credential store failure")
}
