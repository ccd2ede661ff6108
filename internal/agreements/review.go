package agreements

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agreementsd/internal/models"
)

// ownedSignature loads a signature and asserts both the creator id and the
// agreement id match. A mismatch is ErrUnauthorized, indistinguishable from
// a failed auth check.
func (s *Service) ownedSignature(ctx context.Context, creatorID string, agreementID, signatureID uuid.UUID) (*models.Signature, error) {
	sig, err := s.store.SignatureByID(ctx, signatureID)
	if err != nil {
		return nil, err
	}
	if sig.CreatorID != creatorID || sig.AgreementID != agreementID {
		return nil, ErrUnauthorized
	}
	return sig, nil
}

// ApproveSignee marks a signature approved and resolves one pending review.
// With immediate set the status is forced to started; otherwise it is forced
// to started only when the start date falls on today's calendar date, and
// left untouched in every other case.
func (s *Service) ApproveSignee(ctx context.Context, creatorID string, agreementID, signatureID uuid.UUID, immediate bool) (*models.Signature, error) {
	sig, err := s.ownedSignature(ctx, creatorID, agreementID, signatureID)
	if err != nil {
		return nil, err
	}

	status := sig.Status
	switch {
	case immediate:
		status = models.StatusStarted
	case sig.StartDate != nil && sameDay(*sig.StartDate, s.now()):
		status = models.StatusStarted
	}

	if err := s.store.UpdateSignature(ctx, signatureID, map[string]any{
		"approved": true,
		"status":   status,
	}); err != nil {
		return nil, err
	}

	if err := s.store.AddAgreementCounters(ctx, agreementID, 0, -1); err != nil {
		return nil, err
	}

	sig.Approved = true
	sig.Status = status
	return sig, nil
}

// MarkSigneeStatus is the creator's manual status override. It has no
// counter side effects.
func (s *Service) MarkSigneeStatus(ctx context.Context, creatorID string, agreementID, signatureID uuid.UUID, status string) (*models.Signature, error) {
	switch status {
	case models.StatusPending, models.StatusStarted, models.StatusComplete:
	default:
		return nil, invalidf("status", "unknown status %q", status)
	}

	sig, err := s.ownedSignature(ctx, creatorID, agreementID, signatureID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateSignature(ctx, signatureID, map[string]any{"status": status}); err != nil {
		return nil, err
	}

	sig.Status = status
	return sig, nil
}

// DeleteSignee removes a signature together with its blobs. The agreement's
// signee count always drops by one; the review counter drops only when the
// signature was still awaiting a decision.
func (s *Service) DeleteSignee(ctx context.Context, creatorID string, agreementID, signatureID uuid.UUID) error {
	sig, err := s.ownedSignature(ctx, creatorID, agreementID, signatureID)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(sig.Documents)+1)
	if sig.SignatureURL != "" {
		urls = append(urls, sig.SignatureURL)
	}
	for _, u := range sig.DocumentURLs() {
		urls = append(urls, u)
	}
	s.cleanupBlobs(ctx, urls...)

	if err := s.store.DeleteSignature(ctx, signatureID); err != nil {
		return err
	}

	reviewDelta := 0
	if !sig.Approved {
		reviewDelta = -1
	}
	return s.store.AddAgreementCounters(ctx, agreementID, -1, reviewDelta)
}

// Signees lists an agreement's signatures, newest first.
func (s *Service) Signees(ctx context.Context, creatorID string, agreementID uuid.UUID) ([]models.Signature, error) {
	if _, err := s.ownedAgreement(ctx, creatorID, agreementID); err != nil {
		return nil, err
	}
	return s.store.ListSignatures(ctx, creatorID, agreementID)
}

// sameDay compares two instants at calendar-day granularity, ignoring
// time of day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
