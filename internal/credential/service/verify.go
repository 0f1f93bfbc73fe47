package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	"pixelgenesis/internal/credential/proof"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/requestcontext"
)

// VerifyCommand selects what to verify. At least one field must be set. When
// both are, the fingerprint must match the document.
type VerifyCommand struct {
	Document    *models.Document
	Fingerprint string
}

// subject is the credential under verification after lookup.
type subject struct {
	doc         models.Document
	fingerprint fingerprint.Fingerprint
	record      *models.Credential
	reasons     []string
}

// Verify evaluates every check and returns a verdict. Collaborator failures
// become reasons or an unknown on-chain status; only malformed requests,
// unreadable records and cancellation return an error.
func (s *Service) Verify(ctx context.Context, cmd VerifyCommand) (*models.VerificationResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "credential.Verify")
	defer span.End()

	result, err := s.verify(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("verification.valid", result.IsValid),
		attribute.String("verification.on_chain", string(result.OnChainStatus)),
	)
	if s.metrics != nil {
		s.metrics.RecordVerification(result.IsValid, string(result.OnChainStatus))
		s.metrics.ObserveVerify(start)
	}
	return result, nil
}

func (s *Service) verify(ctx context.Context, cmd VerifyCommand) (*models.VerificationResult, error) {
	sub, err := s.locate(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &models.VerificationResult{
			IsValid:       false,
			Reasons:       []string{models.ReasonNotFound},
			OnChainStatus: models.OnChainNotChecked,
		}, nil
	}

	expiry, expired, err := expiryOf(sub.doc, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	var (
		proofErr error
		onChain  models.OnChainStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		proofErr = s.checkProof(gctx, sub.doc)
		return nil
	})
	g.Go(func() error {
		onChain = s.checkOracle(gctx, sub.fingerprint)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "verification cancelled")
	}

	reasons := sub.reasons
	if proofErr != nil {
		reasons = append(reasons, models.InvalidProofReason(proofErr.Error()))
	}
	if expired {
		reasons = append(reasons, models.ReasonExpired)
	}
	if onChain == models.OnChainRevoked {
		reasons = append(reasons, models.ReasonRevokedOnChain)
	}
	if sub.localStatus() == models.StatusRevoked {
		reasons = append(reasons, models.ReasonRevokedLocally)
	}

	result := &models.VerificationResult{
		IsValid:       len(reasons) == 0,
		Reasons:       reasons,
		OnChainStatus: onChain,
		ExpiryStatus:  expiry,
	}
	if result.IsValid {
		result.Reasons = []string{models.ReasonValid}
	}
	return result, nil
}

// locate resolves the command to a document and fingerprint. A nil subject
// means a fingerprint-only lookup found nothing.
func (s *Service) locate(ctx context.Context, cmd VerifyCommand) (*subject, error) {
	if cmd.Document == nil && cmd.Fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "either a credential document or a fingerprint is required")
	}
	var supplied fingerprint.Fingerprint
	if cmd.Fingerprint != "" {
		fp, err := fingerprint.Parse(cmd.Fingerprint)
		if err != nil {
			return nil, err
		}
		supplied = fp
	}

	if cmd.Document == nil {
		record, err := s.store.FindByFingerprint(ctx, supplied)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, wrapStoreErr(err, "credential not found")
		}
		return &subject{doc: record.Document(), fingerprint: record.Fingerprint, record: record}, nil
	}

	sub := &subject{doc: *cmd.Document}
	fp, err := sub.doc.Fingerprint()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "credential document cannot be canonicalized")
	}
	sub.fingerprint = fp
	if supplied != "" && supplied != fp {
		sub.reasons = append(sub.reasons, models.ReasonFingerprintMismatch)
	}
	if sub.doc.Status != "" && !sub.doc.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be active or revoked")
	}

	record, err := s.store.FindByFingerprint(ctx, fp)
	switch {
	case err == nil:
		sub.record = record
	case !errors.Is(err, sentinel.ErrNotFound):
		s.logger.WarnContext(ctx, "local record lookup failed during verification",
			"fingerprint", fp.String(),
			"error", err,
		)
	}
	return sub, nil
}

// localStatus prefers the authoritative record over the document's own claim.
func (sub *subject) localStatus() models.Status {
	if sub.record != nil {
		return sub.record.Status
	}
	return sub.doc.Status
}

func expiryOf(doc models.Document, now time.Time) (models.ExpiryStatus, bool, error) {
	exp, ok, err := doc.ExpiresAtTime()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return models.ExpiryNoExpiry, false, nil
	}
	if now.After(exp) {
		return models.ExpiryExpired, true, nil
	}
	return models.ExpiryValid, false, nil
}

func (s *Service) checkProof(ctx context.Context, doc models.Document) error {
	if doc.Proof == nil {
		return proof.ErrMissingProof
	}
	issuer, err := id.ParseDID(doc.IssuerDID)
	if err != nil {
		return errors.New("issuer DID is malformed")
	}
	issuerDoc, err := s.dids.Resolve(ctx, issuer)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return errors.New("issuer DID not found")
		}
		s.logger.WarnContext(ctx, "issuer DID resolution failed", "issuer_did", issuer.String(), "error", err)
		return errors.New("issuer DID could not be resolved")
	}
	input, err := doc.SigningInput()
	if err != nil {
		return err
	}
	return proof.Verify(input, doc.Proof, issuerDoc)
}

func (s *Service) checkOracle(ctx context.Context, fp fingerprint.Fingerprint) models.OnChainStatus {
	key, err := oracleKey(fp)
	if err != nil {
		return models.OnChainUnknown
	}
	revoked, err := s.oracle.IsRevoked(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "oracle query failed during verification",
			"fingerprint", fp.String(),
			"error", err,
		)
		return models.OnChainUnknown
	}
	if revoked {
		return models.OnChainRevoked
	}
	return models.OnChainActive
}
