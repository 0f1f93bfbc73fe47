package service

import (
	"context"
	"errors"

	"pixelgenesis/internal/credential/models"
	"pixelgenesis/pkg/platform/audit"
	"pixelgenesis/pkg/platform/sentinel"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Attempted int
	Anchored  int
	Failed    int
}

// ReconcilePending retries the ledger operations owed by up to limit pending
// records. A failed record stays pending for the next pass.
func (s *Service) ReconcilePending(ctx context.Context, limit int) (ReconcileReport, error) {
	ctx, span := s.tracer.Start(ctx, "credential.ReconcilePending")
	defer span.End()

	var report ReconcileReport
	pending, err := s.store.ListPendingAnchors(ctx, limit)
	if err != nil {
		return report, wrapStoreErr(err, "no pending anchors")
	}
	for _, c := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Attempted++
		op := c.Anchor.PendingOp
		if err := s.reconcile(ctx, c); err != nil {
			report.Failed++
			s.logger.WarnContext(ctx, "anchor reconciliation failed",
				"credential_id", c.ID.String(),
				"op", op,
				"error", err,
			)
			continue
		}
		report.Anchored++
		if s.metrics != nil {
			s.metrics.IncrementReconciled(string(op))
		}
		s.emitAudit(ctx, audit.Event{
			Action:       audit.EventAnchorReconciled,
			CredentialID: c.ID.String(),
			Fingerprint:  c.Fingerprint.String(),
			Reason:       string(op),
		})
	}
	return report, nil
}

func (s *Service) reconcile(ctx context.Context, c *models.Credential) error {
	switch c.Anchor.PendingOp {
	case models.AnchorOpRegister:
		anchor, err := s.tryRegister(ctx, c)
		if err != nil {
			return err
		}
		_, err = s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
			From:   models.StatusActive,
			Status: models.StatusActive,
			Anchor: anchor,
		})
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Revoked since listing; the revoke anchor supersedes this one.
			return nil
		}
		return err
	case models.AnchorOpRevoke:
		_, err := s.anchorRevocation(ctx, c)
		return err
	default:
		return errors.New("unknown pending anchor operation " + string(c.Anchor.PendingOp))
	}
}
