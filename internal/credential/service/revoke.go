package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	"pixelgenesis/internal/revocation"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/audit"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/requestcontext"
)

// RevokeCommand selects the credential to revoke by exactly one of its id or
// fingerprint.
type RevokeCommand struct {
	CredentialID string
	Fingerprint  string
}

// Revoke marks the credential revoked. The local commit happens first and is
// never rolled back; the ledger revocation follows and, when it fails, the
// anchor stays pending for the reconciler. Revoking a revoked credential
// returns it unchanged.
func (s *Service) Revoke(ctx context.Context, cmd RevokeCommand) (*models.Credential, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "credential.Revoke")
	defer span.End()

	c, err := s.revoke(ctx, cmd)
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
		s.metrics.ObserveRevoke(start)
	}
	return c, nil
}

func (s *Service) revoke(ctx context.Context, cmd RevokeCommand) (*models.Credential, error) {
	c, err := s.findForRevoke(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if c.IsRevoked() {
		return c, nil
	}

	credID := c.ID
	c, err = s.store.UpdateStatus(ctx, credID, models.StatusUpdate{
		From:   models.StatusActive,
		Status: models.StatusRevoked,
		Anchor: models.Pending(models.AnchorOpRevoke, c.Anchor.TxRef),
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		// Another revoke committed since the read; its anchor stands.
		return s.Get(ctx, credID)
	}
	if err != nil {
		return nil, wrapStoreErr(err, "credential not found")
	}
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", c.ID.String(),
		"fingerprint", c.Fingerprint.String(),
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.EventCredentialRevoked,
		Subject:      requestcontext.Subject(ctx),
		CredentialID: c.ID.String(),
		Fingerprint:  c.Fingerprint.String(),
		IssuerDID:    c.IssuerDID.String(),
		HolderDID:    c.HolderDID.String(),
	})

	anchored, err := s.anchorRevocation(ctx, c)
	if err != nil {
		s.logger.WarnContext(ctx, "oracle revoke failed, anchor left pending",
			"credential_id", c.ID.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementPendingAnchor(string(models.AnchorOpRevoke))
		}
		s.emitAudit(ctx, audit.Event{
			Action:       audit.EventAnchorPending,
			CredentialID: c.ID.String(),
			Fingerprint:  c.Fingerprint.String(),
			Reason:       string(models.AnchorOpRevoke),
		})
	}
	return anchored, nil
}

func (s *Service) findForRevoke(ctx context.Context, cmd RevokeCommand) (*models.Credential, error) {
	rawID := strings.TrimSpace(cmd.CredentialID)
	rawFP := strings.TrimSpace(cmd.Fingerprint)
	switch {
	case rawID == "" && rawFP == "":
		return nil, dErrors.New(dErrors.CodeValidation, "either vcId or hash is required")
	case rawID != "" && rawFP != "":
		return nil, dErrors.New(dErrors.CodeValidation, "provide only one of vcId or hash")
	}

	if rawID != "" {
		credID, err := id.ParseCredentialID(rawID)
		if err != nil {
			return nil, err
		}
		return s.Get(ctx, credID)
	}
	fp, err := fingerprint.Parse(rawFP)
	if err != nil {
		return nil, err
	}
	c, err := s.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, wrapStoreErr(err, "credential not found")
	}
	return c, nil
}

// anchorRevocation submits the revocation and records the confirmed anchor.
// A key that was never registered is registered first, and the registration is
// recorded before the revoke is sent. ErrAlreadyRevoked means the ledger
// already carries the revocation. The returned record is the latest one
// written, also on error.
func (s *Service) anchorRevocation(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	key, err := oracleKey(c.Fingerprint)
	if err != nil {
		return c, err
	}
	if c.Anchor.TxRef == "" {
		registered, err := s.tryRegister(ctx, c)
		if err != nil {
			return c, err
		}
		updated, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
			From:   models.StatusRevoked,
			Status: models.StatusRevoked,
			Anchor: models.Pending(models.AnchorOpRevoke, registered.TxRef),
		})
		if err != nil {
			return c, err
		}
		c = updated
	}

	txRef, err := s.oracle.Revoke(ctx, key)
	switch {
	case errors.Is(err, revocation.ErrAlreadyRevoked):
		txRef = c.Anchor.TxRef
	case err != nil:
		return c, err
	}

	updated, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
		From:   models.StatusRevoked,
		Status: models.StatusRevoked,
		Anchor: models.Anchored(txRef),
	})
	if err != nil {
		return c, err
	}
	return updated, nil
}
