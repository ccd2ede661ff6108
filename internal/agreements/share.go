package agreements

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"agreementsd/internal/models"
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ShareInput describes an invitation to sign an agreement.
type ShareInput struct {
	AgreementID uuid.UUID
	SigneeName  string
	SigneeEmail string
	StartDate   *time.Time
	EndDate     *time.Time
	Amount      *float64
	Description string
}

// ShareAgreement issues a 24-hour invitation for one signee, bounded by the
// creator's plan quota. The creator's id and email are snapshotted so later
// profile changes do not alter open invitations. The returned link embeds
// the invitation id and is the only way a signee reaches the agreement.
func (s *Service) ShareAgreement(ctx context.Context, creator Identity, in ShareInput) (*models.SharedAgreement, string, error) {
	email := strings.TrimSpace(in.SigneeEmail)
	if !emailRx.MatchString(email) {
		return nil, "", invalidf("email", "not a valid address")
	}

	if _, err := s.ownedAgreement(ctx, creator.ID, in.AgreementID); err != nil {
		return nil, "", err
	}

	if s.gating {
		plan, err := s.planFor(ctx, creator.ID)
		if err != nil {
			return nil, "", err
		}
		open, err := s.store.CountOpenShares(ctx, creator.ID, in.AgreementID)
		if err != nil {
			return nil, "", err
		}
		if open >= plan.MaxSigneePerAgreement {
			return nil, "", fmt.Errorf("%w: plan allows %d signees per agreement", ErrQuotaExceeded, plan.MaxSigneePerAgreement)
		}
	}

	now := s.now().UTC()
	share := &models.SharedAgreement{
		ID:           uuid.New(),
		AgreementID:  in.AgreementID,
		CreatorID:    creator.ID,
		CreatorEmail: creator.Email,
		SigneeName:   strings.TrimSpace(in.SigneeName),
		SigneeEmail:  email,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Amount:       in.Amount,
		Description:  strings.TrimSpace(in.Description),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ShareTTL),
	}
	if err := s.store.CreateShare(ctx, share); err != nil {
		return nil, "", err
	}

	return share, s.SignLink(share.ID), nil
}

// SignLink derives the public signing URL for an invitation.
func (s *Service) SignLink(shareID uuid.UUID) string {
	return fmt.Sprintf("%s/sign/%s", strings.TrimSuffix(s.appBaseURL, "/"), shareID)
}

// ExpireStaleShares deletes every invitation older than ShareTTL and returns
// the number removed. Individual delete failures are logged and skipped so
// one bad record cannot abort the sweep; deleting an already-consumed
// invitation is a no-op.
func (s *Service) ExpireStaleShares(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-ShareTTL)
	stale, err := s.store.ListExpiredShares(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, share := range stale {
		if err := s.store.DeleteShare(ctx, share.ID); err != nil {
			s.log.Warn().Err(err).Str("share_id", share.ID.String()).Msg("delete expired share")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// SigneeContent is the public view behind a signing link.
type SigneeContent struct {
	Share     *models.SharedAgreement `json:"share"`
	Agreement *models.Agreement       `json:"agreement"`
	Creator   *models.Profile         `json:"creator,omitempty"`
}

// SigneeContent resolves a still-valid invitation into the data a signee
// needs: the invitation itself, the agreement's public fields, and the
// creator's public profile. Expired or consumed invitations are ErrNotFound,
// which is what makes a signing link single-use from the signee's side.
func (s *Service) SigneeContent(ctx context.Context, shareID uuid.UUID) (*SigneeContent, error) {
	share, err := s.store.ShareByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if s.now().After(share.ExpiresAt) {
		return nil, ErrNotFound
	}

	agreement, err := s.store.AgreementByID(ctx, share.AgreementID)
	if err != nil {
		return nil, err
	}

	content := &SigneeContent{Share: share, Agreement: agreement}
	if profile, err := s.store.ProfileByUser(ctx, share.CreatorID); err == nil {
		content.Creator = profile
	}
	return content, nil
}
