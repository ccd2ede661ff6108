package agreements

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"agreementsd/internal/models"
)

// SignSubmission is a signee's packet submitted against an open invitation.
type SignSubmission struct {
	ShareID   uuid.UUID
	Signature *FileUpload
	// Documents holds supporting uploads keyed by document kind. Each is
	// optional at the protocol level but mandatory when the agreement's
	// requiredDocuments lists its kind.
	Documents map[string]*FileUpload
}

// SignResult is the persisted signature plus the creator email the caller
// needs for the completion notification.
type SignResult struct {
	Signature    *models.Signature
	CreatorEmail string
}

// SignAgreement validates a submission against its invitation, persists the
// uploaded files and the signature record, bumps the agreement's counters,
// and retires the invitation. No partial Signature record survives a
// failure; blobs uploaded by a failed run are accepted as leakage since the
// invitation itself expires within 24 hours.
func (s *Service) SignAgreement(ctx context.Context, sub SignSubmission) (*SignResult, error) {
	if sub.ShareID == uuid.Nil {
		return nil, invalidf("shareId", "required")
	}
	if sub.Signature == nil || len(sub.Signature.Data) == 0 {
		return nil, invalidf("signature", "required")
	}

	share, err := s.store.ShareByID(ctx, sub.ShareID)
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

	// All required documents must be present before anything is uploaded.
	for _, kind := range agreement.RequiredDocuments {
		doc, ok := sub.Documents[kind]
		if !ok || doc == nil || len(doc.Data) == 0 {
			return nil, invalidf(kind, "document is required")
		}
	}

	sigID := uuid.New()
	urls, err := s.uploadSubmission(ctx, sigID, sub)
	if err != nil {
		return nil, fmt.Errorf("upload submission: %w", err)
	}

	documents := datatypes.JSONMap{}
	for kind, url := range urls.documents {
		documents[kind] = url
	}

	signature := &models.Signature{
		ID:           sigID,
		AgreementID:  agreement.ID,
		CreatorID:    share.CreatorID,
		CreatorEmail: share.CreatorEmail,
		SigneeName:   share.SigneeName,
		SigneeEmail:  share.SigneeEmail,
		SignatureURL: urls.signature,
		Documents:    documents,
		StartDate:    share.StartDate,
		EndDate:      share.EndDate,
		Amount:       share.Amount,
		Description:  share.Description,
		Approved:     false,
		// Status is always pending at submission time; the reconciliation
		// engine owns all date-derived transitions.
		Status:    models.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if agreement.RequiresDocument("custom") {
		signature.CustomDocumentName = agreement.CustomDocumentName
	}

	if err := s.store.CreateSignature(ctx, signature); err != nil {
		return nil, err
	}

	if err := s.store.AddAgreementCounters(ctx, agreement.ID, 1, 1); err != nil {
		return nil, err
	}

	if err := s.store.DeleteShare(ctx, share.ID); err != nil {
		s.log.Warn().Err(err).Str("share_id", share.ID.String()).Msg("retire consumed share")
	}

	return &SignResult{Signature: signature, CreatorEmail: share.CreatorEmail}, nil
}

type submissionURLs struct {
	signature string
	documents map[string]string
}

// uploadSubmission stores the signature blob and every provided document
// concurrently and collects their retrieval URLs keyed by kind.
func (s *Service) uploadSubmission(ctx context.Context, sigID uuid.UUID, sub SignSubmission) (*submissionURLs, error) {
	type upload struct {
		kind string
		file *FileUpload
	}

	uploads := []upload{{kind: "signature", file: sub.Signature}}
	for kind, file := range sub.Documents {
		if file == nil || len(file.Data) == 0 {
			continue
		}
		uploads = append(uploads, upload{kind: kind, file: file})
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	urls := &submissionURLs{documents: make(map[string]string, len(sub.Documents))}

	for _, u := range uploads {
		wg.Add(1)
		go func(u upload) {
			defer wg.Done()

			ext := strings.ToLower(filepath.Ext(u.file.Name))
			key := fmt.Sprintf("signatures/%s/%s%s", sigID, u.kind, ext)
			url, err := s.blobs.Put(ctx, key, u.file.Data, u.file.ContentType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if u.kind == "signature" {
				urls.signature = url
			} else {
				urls.documents[u.kind] = url
			}
		}(u)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return urls, nil
}
