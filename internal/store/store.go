package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"agreementsd/internal/agreements"
	"agreementsd/internal/models"
	"agreementsd/pkg/db"
)

// Store persists all document records. CRUD goes through GORM; counter
// mutations, reconciliation scans, and batch writes go through pgx so they
// stay atomic at the storage layer.
type Store struct {
	ORM *gorm.DB
	DB  *pgxpool.Pool
}

// New wires a Store over the provided handles.
func New(orm *gorm.DB, pool *pgxpool.Pool) (*Store, error) {
	if orm == nil {
		return nil, errors.New("store: ORM handle is required")
	}
	if pool == nil {
		return nil, errors.New("store: pgx pool is required")
	}
	return &Store{ORM: orm, DB: pool}, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, pgx.ErrNoRows):
		return agreements.ErrNotFound
	default:
		return err
	}
}

// --- agreements ---

func (s *Store) CreateAgreement(ctx context.Context, a *models.Agreement) error {
	return s.ORM.WithContext(ctx).Create(a).Error
}

func (s *Store) AgreementByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	var a models.Agreement
	if err := s.ORM.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) ListAgreements(ctx context.Context, ownerID string) ([]models.Agreement, error) {
	var out []models.Agreement
	err := s.ORM.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) CountAgreements(ctx context.Context, ownerID string) (int, error) {
	var n int64
	err := s.ORM.WithContext(ctx).
		Model(&models.Agreement{}).
		Where("owner_id = ?", ownerID).
		Count(&n).Error
	return int(n), err
}

func (s *Store) DeleteAgreement(ctx context.Context, id uuid.UUID) error {
	res := s.ORM.WithContext(ctx).Delete(&models.Agreement{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return agreements.ErrNotFound
	}
	return nil
}

// AddAgreementCounters adjusts signee_count and to_review in one statement.
// The arithmetic happens in the database, never as read-modify-write, so
// concurrent signings and review actions cannot lose updates. Both counters
// are clamped at zero.
func (s *Store) AddAgreementCounters(ctx context.Context, id uuid.UUID, signeeDelta, reviewDelta int) error {
	tag, err := db.Exec(ctx, s.DB, `
		UPDATE agreements
		SET signee_count = GREATEST(signee_count + $1, 0),
		    to_review = GREATEST(to_review + $2, 0)
		WHERE id = $3`,
		signeeDelta, reviewDelta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return agreements.ErrNotFound
	}
	return nil
}

// --- shared agreements ---

func (s *Store) CreateShare(ctx context.Context, share *models.SharedAgreement) error {
	return s.ORM.WithContext(ctx).Create(share).Error
}

func (s *Store) ShareByID(ctx context.Context, id uuid.UUID) (*models.SharedAgreement, error) {
	var share models.SharedAgreement
	if err := s.ORM.WithContext(ctx).First(&share, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &share, nil
}

func (s *Store) DeleteShare(ctx context.Context, id uuid.UUID) error {
	// Idempotent: deleting an already-consumed share is a no-op.
	return s.ORM.WithContext(ctx).Delete(&models.SharedAgreement{}, "id = ?", id).Error
}

func (s *Store) CountOpenShares(ctx context.Context, creatorID string, agreementID uuid.UUID) (int, error) {
	var n int64
	err := s.ORM.WithContext(ctx).
		Model(&models.SharedAgreement{}).
		Where("creator_id = ? AND agreement_id = ? AND expires_at > ?", creatorID, agreementID, time.Now().UTC()).
		Count(&n).Error
	return int(n), err
}

func (s *Store) ListExpiredShares(ctx context.Context, cutoff time.Time) ([]models.SharedAgreement, error) {
	var out []models.SharedAgreement
	err := s.ORM.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Find(&out).Error
	return out, err
}

// --- signatures ---

func (s *Store) CreateSignature(ctx context.Context, sig *models.Signature) error {
	return s.ORM.WithContext(ctx).Create(sig).Error
}

func (s *Store) SignatureByID(ctx context.Context, id uuid.UUID) (*models.Signature, error) {
	var sig models.Signature
	if err := s.ORM.WithContext(ctx).First(&sig, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &sig, nil
}

func (s *Store) ListSignatures(ctx context.Context, creatorID string, agreementID uuid.UUID) ([]models.Signature, error) {
	var out []models.Signature
	err := s.ORM.WithContext(ctx).
		Where("creator_id = ? AND agreement_id = ?", creatorID, agreementID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) ListSignaturesByAgreement(ctx context.Context, agreementID uuid.UUID) ([]models.Signature, error) {
	var out []models.Signature
	err := s.ORM.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Find(&out).Error
	return out, err
}

func (s *Store) DeleteSignature(ctx context.Context, id uuid.UUID) error {
	res := s.ORM.WithContext(ctx).Delete(&models.Signature{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return agreements.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSignaturesByAgreement(ctx context.Context, agreementID uuid.UUID) error {
	return s.ORM.WithContext(ctx).Delete(&models.Signature{}, "agreement_id = ?", agreementID).Error
}

func (s *Store) UpdateSignature(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.ORM.WithContext(ctx).
		Model(&models.Signature{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return agreements.ErrNotFound
	}
	return nil
}

const reconcileColumns = `id, agreement_id, creator_id, creator_email, signee_email, start_date, end_date, status`

func (s *Store) SignaturesDueToStart(ctx context.Context, now time.Time) ([]models.Signature, error) {
	var out []models.Signature
	err := db.Select(ctx, s.DB, &out, fmt.Sprintf(`
		SELECT %s FROM signatures
		WHERE start_date IS NOT NULL AND start_date <= $1 AND status <> $2`, reconcileColumns),
		now, models.StatusStarted)
	return out, err
}

func (s *Store) SignaturesDueToComplete(ctx context.Context, now time.Time) ([]models.Signature, error) {
	var out []models.Signature
	err := db.Select(ctx, s.DB, &out, fmt.Sprintf(`
		SELECT %s FROM signatures
		WHERE end_date IS NOT NULL AND end_date < $1 AND status <> $2`, reconcileColumns),
		now, models.StatusComplete)
	return out, err
}

// BatchUpdateStatuses applies every status write in a single transaction:
// either the whole run's writes land or none do.
func (s *Store) BatchUpdateStatuses(ctx context.Context, updates map[uuid.UUID]string) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for id, status := range updates {
		batch.Queue(`UPDATE signatures SET status = $1 WHERE id = $2`, status, id)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- profiles ---

func (s *Store) ProfileByUser(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.ORM.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpsertProfile merges the given fields into the user's profile, creating
// it first if absent.
func (s *Store) UpsertProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error) {
	orm := s.ORM.WithContext(ctx)

	res := orm.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		p := models.Profile{UserID: userID}
		if err := orm.Create(&p).Error; err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			if err := orm.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields).Error; err != nil {
				return nil, err
			}
		}
	}

	return s.ProfileByUser(ctx, userID)
}

// --- subscriptions ---

func (s *Store) SubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.ORM.WithContext(ctx).First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// SaveSubscription overwrites the user's subscription record wholesale.
// Billing events carry the full state, so there is nothing to merge.
func (s *Store) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.ORM.WithContext(ctx).Save(sub).Error
}

// CancelSubscription marks the user's subscription cancelled. The record is
// kept so the customer portal stays resolvable.
func (s *Store) CancelSubscription(ctx context.Context, userID string) error {
	res := s.ORM.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Update("status", "cancelled")
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return agreements.ErrNotFound
	}
	return nil
}
