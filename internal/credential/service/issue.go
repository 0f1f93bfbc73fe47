package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pixelgenesis/internal/credential/models"
	"pixelgenesis/internal/credential/proof"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/audit"
	pstrings "pixelgenesis/pkg/platform/strings"
	"pixelgenesis/pkg/requestcontext"
)

// IssueCommand carries an issuance request.
type IssueCommand struct {
	IssuerSubject string
	HolderDID     string
	Types         []string
	Claims        map[string]any
	ExpiresAt     *time.Time
	Schema        *models.Schema
}

// Issue builds, signs and records a credential for the holder. The oracle and
// content store are best-effort: their failures leave the anchor pending or the
// locator empty. Only the repository commit is fatal.
func (s *Service) Issue(ctx context.Context, cmd IssueCommand) (*models.Credential, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "credential.Issue")
	defer span.End()

	c, err := s.issue(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("credential.id", c.ID.String()),
		attribute.String("credential.anchor", string(c.Anchor.State)),
	)
	if s.metrics != nil {
		s.metrics.IncrementIssued()
		s.metrics.ObserveIssue(start)
	}
	return c, nil
}

func (s *Service) issue(ctx context.Context, cmd IssueCommand) (*models.Credential, error) {
	issuerDoc, err := s.dids.FindBySubject(ctx, cmd.IssuerSubject)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeIssuerNotRegistered, "issuer has no DID")
		}
		return nil, err
	}
	issuerDID := id.DID(issuerDoc.ID)

	now := models.Truncate(requestcontext.Now(ctx))
	c, err := newCredential(cmd, issuerDID, now)
	if err != nil {
		return nil, err
	}

	key, err := s.dids.SigningKey(ctx, issuerDID)
	if err != nil {
		return nil, err
	}
	doc := c.Document()
	input, err := doc.SigningInput()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "claims cannot be canonicalized")
	}
	c.Proof, err = proof.Sign(input, key, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}

	doc = c.Document()
	signed, err := doc.SignedContent()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize signed credential")
	}
	fp, err := doc.Fingerprint()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fingerprint credential")
	}
	c.Fingerprint = fp

	c.ContentLocator = s.storeContent(ctx, c, signed)
	c.Anchor = s.register(ctx, c)

	if err := s.store.Save(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist credential",
			"credential_id", c.ID.String(),
			"fingerprint", c.Fingerprint.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to persist credential")
	}

	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", c.ID.String(),
		"fingerprint", c.Fingerprint.String(),
		"issuer_did", c.IssuerDID.String(),
		"anchor", c.Anchor.State,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.EventCredentialIssued,
		Subject:      cmd.IssuerSubject,
		CredentialID: c.ID.String(),
		Fingerprint:  c.Fingerprint.String(),
		IssuerDID:    c.IssuerDID.String(),
		HolderDID:    c.HolderDID.String(),
		TxRef:        c.Anchor.TxRef,
	})
	if c.Anchor.IsPending() {
		s.emitAudit(ctx, audit.Event{
			Action:       audit.EventAnchorPending,
			CredentialID: c.ID.String(),
			Fingerprint:  c.Fingerprint.String(),
			Reason:       string(c.Anchor.PendingOp),
		})
	}
	return c, nil
}

func newCredential(cmd IssueCommand, issuer id.DID, now time.Time) (*models.Credential, error) {
	holder, err := id.ParseDID(cmd.HolderDID)
	if err != nil {
		return nil, err
	}
	if cmd.Claims == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "claims are required")
	}
	for _, t := range cmd.Types {
		if strings.TrimSpace(t) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "credential types must not be blank")
		}
	}
	c := &models.Credential{
		ID:        id.NewCredentialID(),
		HolderDID: holder,
		IssuerDID: issuer,
		Types:     pstrings.WithLeading(models.TypeVerifiableCredential, cmd.Types),
		IssuedAt:  now,
		Status:    models.StatusActive,
		Claims:    cmd.Claims,
		Schema:    cmd.Schema,
	}
	if cmd.Schema != nil && strings.TrimSpace(cmd.Schema.ID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credentialSchema.id is required")
	}
	if cmd.ExpiresAt != nil {
		exp := models.Truncate(*cmd.ExpiresAt)
		if !exp.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "expiresAt must be after issuance")
		}
		c.ExpiresAt = &exp
	}
	return c, nil
}

func (s *Service) storeContent(ctx context.Context, c *models.Credential, signed []byte) string {
	if s.content == nil {
		return ""
	}
	locator, err := s.content.Put(ctx, signed)
	if err != nil {
		s.logger.WarnContext(ctx, "content store unavailable, issuing without locator",
			"credential_id", c.ID.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementContentStoreFailure()
		}
		return ""
	}
	return locator
}

func (s *Service) register(ctx context.Context, c *models.Credential) models.Anchor {
	anchor, err := s.tryRegister(ctx, c)
	if err != nil {
		s.logger.WarnContext(ctx, "oracle register failed, anchor left pending",
			"credential_id", c.ID.String(),
			"fingerprint", c.Fingerprint.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementPendingAnchor(string(models.AnchorOpRegister))
		}
	}
	return anchor
}

// tryRegister returns an anchored result, or a pending register anchor with the cause.
func (s *Service) tryRegister(ctx context.Context, c *models.Credential) (models.Anchor, error) {
	key, err := oracleKey(c.Fingerprint)
	if err != nil {
		return models.Pending(models.AnchorOpRegister, ""), err
	}
	txRef, err := s.oracle.Register(ctx, key)
	if err != nil {
		return models.Pending(models.AnchorOpRegister, ""), err
	}
	return models.Anchored(txRef), nil
}
