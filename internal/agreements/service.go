package agreements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agreementsd/internal/models"
	"agreementsd/internal/plans"
)

// ShareTTL bounds how long an invitation stays open after creation.
const ShareTTL = 24 * time.Hour

// Store is the persistence surface the managers depend on. The production
// implementation lives in internal/store; tests substitute an in-memory fake.
type Store interface {
	CreateAgreement(ctx context.Context, a *models.Agreement) error
	AgreementByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error)
	ListAgreements(ctx context.Context, ownerID string) ([]models.Agreement, error)
	CountAgreements(ctx context.Context, ownerID string) (int, error)
	DeleteAgreement(ctx context.Context, id uuid.UUID) error
	// AddAgreementCounters atomically adjusts signee_count and to_review.
	AddAgreementCounters(ctx context.Context, id uuid.UUID, signeeDelta, reviewDelta int) error

	CreateShare(ctx context.Context, s *models.SharedAgreement) error
	ShareByID(ctx context.Context, id uuid.UUID) (*models.SharedAgreement, error)
	DeleteShare(ctx context.Context, id uuid.UUID) error
	CountOpenShares(ctx context.Context, creatorID string, agreementID uuid.UUID) (int, error)
	ListExpiredShares(ctx context.Context, cutoff time.Time) ([]models.SharedAgreement, error)

	CreateSignature(ctx context.Context, s *models.Signature) error
	SignatureByID(ctx context.Context, id uuid.UUID) (*models.Signature, error)
	ListSignatures(ctx context.Context, creatorID string, agreementID uuid.UUID) ([]models.Signature, error)
	ListSignaturesByAgreement(ctx context.Context, agreementID uuid.UUID) ([]models.Signature, error)
	DeleteSignature(ctx context.Context, id uuid.UUID) error
	DeleteSignaturesByAgreement(ctx context.Context, agreementID uuid.UUID) error
	UpdateSignature(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SignaturesDueToStart(ctx context.Context, now time.Time) ([]models.Signature, error)
	SignaturesDueToComplete(ctx context.Context, now time.Time) ([]models.Signature, error)
	// BatchUpdateStatuses applies every status write in one transaction.
	BatchUpdateStatuses(ctx context.Context, updates map[uuid.UUID]string) error

	ProfileByUser(ctx context.Context, userID string) (*models.Profile, error)
}

// Blobs is the file persistence surface.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// PlanLimiter resolves a user's active plan. ok=false means the user has no
// active subscription and every gated operation must be denied.
type PlanLimiter interface {
	PlanFor(ctx context.Context, userID string) (plans.Plan, bool, error)
}

// Identity is a verified caller.
type Identity struct {
	ID    string
	Email string
}

// FileUpload carries one uploaded file held in memory.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service implements the agreement lifecycle, sharing, signing, review, and
// status reconciliation managers over injected dependencies.
type Service struct {
	store      Store
	blobs      Blobs
	limiter    PlanLimiter
	gating     bool
	appBaseURL string
	now        func() time.Time
	log        zerolog.Logger
}

// Options configures a Service.
type Options struct {
	Store      Store
	Blobs      Blobs
	Limiter    PlanLimiter
	Gating     bool
	AppBaseURL string
	Now        func() time.Time
	Logger     zerolog.Logger
}

// New wires a Service. Now defaults to time.Now.
func New(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      opts.Store,
		blobs:      opts.Blobs,
		limiter:    opts.Limiter,
		gating:     opts.Gating,
		appBaseURL: opts.AppBaseURL,
		now:        now,
		log:        opts.Logger,
	}
}

// planFor applies the fail-closed subscription gate. The returned error is
// ErrQuotaExceeded when the user has no active subscription.
func (s *Service) planFor(ctx context.Context, userID string) (plans.Plan, error) {
	plan, ok, err := s.limiter.PlanFor(ctx, userID)
	if err != nil {
		return plans.Plan{}, err
	}
	if !ok {
		return plans.Plan{}, ErrQuotaExceeded
	}
	return plan, nil
}
