package agreements

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"agreementsd/internal/models"
)

const (
	minNameLen = 10
	minTextLen = 100
	maxTextLen = 100000
)

// CreateAgreementInput carries the fields of a new agreement. File and Text
// are mutually exclusive; when both are present the file wins.
type CreateAgreementInput struct {
	Type               string
	Name               string
	Text               string
	RequiredDocuments  []string
	CustomDocumentName string
	File               *FileUpload
}

func (in *CreateAgreementInput) validate() error {
	valid := false
	for _, t := range models.AgreementTypes {
		if in.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return invalidf("agreementType", "unknown type %q", in.Type)
	}

	if len(strings.TrimSpace(in.Name)) < minNameLen {
		return invalidf("agreementName", "must be at least %d characters", minNameLen)
	}

	if in.File == nil {
		text := strings.TrimSpace(in.Text)
		if len(text) < minTextLen || len(text) > maxTextLen {
			return invalidf("agreementText", "must be between %d and %d characters", minTextLen, maxTextLen)
		}
	}

	for _, kind := range in.RequiredDocuments {
		known := false
		for _, k := range models.DocumentKinds {
			if kind == k {
				known = true
				break
			}
		}
		if !known {
			return invalidf("requiredDocuments", "unknown document kind %q", kind)
		}
		if kind == "custom" && strings.TrimSpace(in.CustomDocumentName) == "" {
			return invalidf("customDocumentName", "required when a custom document is requested")
		}
	}

	return nil
}

// CreateAgreement validates the input, enforces the owner's plan quota, and
// persists the agreement together with exactly one source blob: the uploaded
// file, or the inline text re-encoded as plain text.
func (s *Service) CreateAgreement(ctx context.Context, owner Identity, in CreateAgreementInput) (*models.Agreement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if s.gating {
		plan, err := s.planFor(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.store.CountAgreements(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		if count >= plan.MaxAgreements {
			return nil, fmt.Errorf("%w: plan allows %d agreements", ErrQuotaExceeded, plan.MaxAgreements)
		}
	}

	agreement := &models.Agreement{
		ID:                 uuid.New(),
		OwnerID:            owner.ID,
		Type:               in.Type,
		Name:               strings.TrimSpace(in.Name),
		RequiredDocuments:  in.RequiredDocuments,
		CustomDocumentName: strings.TrimSpace(in.CustomDocumentName),
		CreatedAt:          s.now().UTC(),
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	if in.File != nil {
		data = in.File.Data
		contentType = in.File.ContentType
		ext = strings.ToLower(filepath.Ext(in.File.Name))
		if ext == "" {
			ext = ".pdf"
		}
	} else {
		data = []byte(strings.TrimSpace(in.Text))
		contentType = "text/plain"
		ext = ".txt"
	}

	key := fmt.Sprintf("agreements/%s/source%s", agreement.ID, ext)
	url, err := s.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store agreement file: %w", err)
	}
	agreement.FileURL = url
	agreement.FileType = strings.TrimPrefix(ext, ".")

	if err := s.store.CreateAgreement(ctx, agreement); err != nil {
		s.cleanupBlobs(ctx, url)
		return nil, err
	}

	return agreement, nil
}

// Agreements lists the caller's agreements.
func (s *Service) Agreements(ctx context.Context, ownerID string) ([]models.Agreement, error) {
	return s.store.ListAgreements(ctx, ownerID)
}

// Agreement returns a single agreement after an ownership check.
func (s *Service) Agreement(ctx context.Context, ownerID string, id uuid.UUID) (*models.Agreement, error) {
	return s.ownedAgreement(ctx, ownerID, id)
}

// DeleteAgreement removes an agreement, every signature submitted against
// it, and all referenced blobs. Blob deletions are best-effort; record
// deletions are not.
func (s *Service) DeleteAgreement(ctx context.Context, ownerID string, id uuid.UUID) error {
	agreement, err := s.ownedAgreement(ctx, ownerID, id)
	if err != nil {
		return err
	}

	signatures, err := s.store.ListSignaturesByAgreement(ctx, id)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(signatures)*2+1)
	if agreement.FileURL != "" {
		urls = append(urls, agreement.FileURL)
	}
	for _, sig := range signatures {
		if sig.SignatureURL != "" {
			urls = append(urls, sig.SignatureURL)
		}
		for _, u := range sig.DocumentURLs() {
			urls = append(urls, u)
		}
	}
	s.cleanupBlobs(ctx, urls...)

	if err := s.store.DeleteSignaturesByAgreement(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteAgreement(ctx, id)
}

// ownedAgreement loads an agreement and asserts the caller owns it. A
// missing record is ErrNotFound; an owner mismatch is ErrUnauthorized.
func (s *Service) ownedAgreement(ctx context.Context, ownerID string, id uuid.UUID) (*models.Agreement, error) {
	agreement, err := s.store.AgreementByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if agreement.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	return agreement, nil
}

// cleanupBlobs deletes the given URLs concurrently. Failures are logged and
// never propagate; a missed delete leaves an orphaned object, not a broken
// record.
func (s *Service) cleanupBlobs(ctx context.Context, urls ...string) {
	var wg sync.WaitGroup
	for _, url := range urls {
		if url == "" {
			continue
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := s.blobs.Delete(ctx, u); err != nil {
				s.log.Warn().Err(err).Str("url", u).Msg("delete blob")
			}
		}(url)
	}
	wg.Wait()
}
