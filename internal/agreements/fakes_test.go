package agreements

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agreementsd/internal/models"
	"agreementsd/internal/plans"
)

// memStore is an in-memory Store used by the manager tests.
type memStore struct {
	mu         sync.Mutex
	agreements map[uuid.UUID]*models.Agreement
	shares     map[uuid.UUID]*models.SharedAgreement
	signatures map[uuid.UUID]*models.Signature
	profiles   map[string]*models.Profile

	batchWrites int
}

func newMemStore() *memStore {
	return &memStore{
		agreements: map[uuid.UUID]*models.Agreement{},
		shares:     map[uuid.UUID]*models.SharedAgreement{},
		signatures: map[uuid.UUID]*models.Signature{},
		profiles:   map[string]*models.Profile{},
	}
}

func (m *memStore) CreateAgreement(_ context.Context, a *models.Agreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.agreements[a.ID] = &cp
	return nil
}

func (m *memStore) AgreementByID(_ context.Context, id uuid.UUID) (*models.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAgreements(_ context.Context, ownerID string) ([]models.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Agreement
	for _, a := range m.agreements {
		if a.OwnerID == ownerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) CountAgreements(_ context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.agreements {
		if a.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteAgreement(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agreements[id]; !ok {
		return ErrNotFound
	}
	delete(m.agreements, id)
	return nil
}

func (m *memStore) AddAgreementCounters(_ context.Context, id uuid.UUID, signeeDelta, reviewDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return ErrNotFound
	}
	a.SigneeCount += signeeDelta
	if a.SigneeCount < 0 {
		a.SigneeCount = 0
	}
	a.ToReview += reviewDelta
	if a.ToReview < 0 {
		a.ToReview = 0
	}
	return nil
}

func (m *memStore) CreateShare(_ context.Context, s *models.SharedAgreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shares[s.ID] = &cp
	return nil
}

func (m *memStore) ShareByID(_ context.Context, id uuid.UUID) (*models.SharedAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteShare(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shares, id)
	return nil
}

func (m *memStore) CountOpenShares(_ context.Context, creatorID string, agreementID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.shares {
		if s.CreatorID == creatorID && s.AgreementID == agreementID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListExpiredShares(_ context.Context, cutoff time.Time) ([]models.SharedAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SharedAgreement
	for _, s := range m.shares {
		if s.CreatedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) CreateSignature(_ context.Context, s *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.signatures[s.ID] = &cp
	return nil
}

func (m *memStore) SignatureByID(_ context.Context, id uuid.UUID) (*models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signatures[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSignatures(_ context.Context, creatorID string, agreementID uuid.UUID) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signature
	for _, s := range m.signatures {
		if s.CreatorID == creatorID && s.AgreementID == agreementID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) ListSignaturesByAgreement(_ context.Context, agreementID uuid.UUID) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signature
	for _, s := range m.signatures {
		if s.AgreementID == agreementID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) DeleteSignature(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signatures[id]; !ok {
		return ErrNotFound
	}
	delete(m.signatures, id)
	return nil
}

func (m *memStore) DeleteSignaturesByAgreement(_ context.Context, agreementID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.signatures {
		if s.AgreementID == agreementID {
			delete(m.signatures, id)
		}
	}
	return nil
}

func (m *memStore) UpdateSignature(_ context.Context, id uuid.UUID, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signatures[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "approved":
			s.Approved = v.(bool)
		case "status":
			s.Status = v.(string)
		default:
			return fmt.Errorf("memStore: unhandled field %q", k)
		}
	}
	return nil
}

// UpdateSignatureDates mutates stored date bounds directly for test setup.
func (m *memStore) UpdateSignatureDates(id uuid.UUID, start, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signatures[id]
	if !ok {
		return ErrNotFound
	}
	s.StartDate = start
	s.EndDate = end
	return nil
}

func (m *memStore) SignaturesDueToStart(_ context.Context, now time.Time) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signature
	for _, s := range m.signatures {
		if s.StartDate != nil && !s.StartDate.After(now) && s.Status != models.StatusStarted {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) SignaturesDueToComplete(_ context.Context, now time.Time) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signature
	for _, s := range m.signatures {
		if s.EndDate != nil && s.EndDate.Before(now) && s.Status != models.StatusComplete {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) BatchUpdateStatuses(_ context.Context, updates map[uuid.UUID]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, status := range updates {
		s, ok := m.signatures[id]
		if !ok {
			return ErrNotFound
		}
		s.Status = status
	}
	m.batchWrites++
	return nil
}

func (m *memStore) ProfileByUser(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// memBlobs stores objects in a map keyed by object key.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	deletes int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.puts++
	return "mem://" + key, nil
}

func (b *memBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := strings.CutPrefix(url, "mem://")
	if !ok {
		return fmt.Errorf("unknown url %q", url)
	}
	if _, exists := b.objects[key]; !exists {
		return fmt.Errorf("no object %q", key)
	}
	delete(b.objects, key)
	b.deletes++
	return nil
}

// fixedLimiter returns one plan for every user.
type fixedLimiter struct {
	plan plans.Plan
	ok   bool
	err  error
}

func (l fixedLimiter) PlanFor(context.Context, string) (plans.Plan, bool, error) {
	return l.plan, l.ok, l.err
}
