package profiles

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agreementsd/internal/agreements"
	"agreementsd/internal/models"
)

// Store is the persistence surface for profiles.
type Store interface {
	ProfileByUser(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error)
}

// Blobs is the file persistence surface.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Service manages user profiles and their image blobs.
type Service struct {
	store Store
	blobs Blobs
	log   zerolog.Logger
}

// New wires a Service.
func New(store Store, blobs Blobs, log zerolog.Logger) *Service {
	return &Service{store: store, blobs: blobs, log: log}
}

// Profile returns the user's profile.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.store.ProfileByUser(ctx, userID)
}

// UpdateInput carries the merge-updatable text fields. Nil means untouched.
type UpdateInput struct {
	DisplayName *string
	OrgName     *string
	OrgTagline  *string
}

// Update partially merges the given fields into the user's profile.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*models.Profile, error) {
	fields := map[string]any{}
	if in.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.OrgName != nil {
		fields["org_name"] = strings.TrimSpace(*in.OrgName)
	}
	if in.OrgTagline != nil {
		fields["org_tagline"] = strings.TrimSpace(*in.OrgTagline)
	}
	return s.store.UpsertProfile(ctx, userID, fields)
}

// UpdatePicture stores a new profile picture, commits its URL, then deletes
// the previous blob best-effort. The new object is written under a fresh key
// so a failed commit never leaves the profile pointing at nothing.
func (s *Service) UpdatePicture(ctx context.Context, userID string, file *agreements.FileUpload) (string, error) {
	return s.swapImage(ctx, userID, file, "picture", "picture_url",
		func(p *models.Profile) string { return p.PictureURL })
}

// UpdateLogo does the same for the organization logo.
func (s *Service) UpdateLogo(ctx context.Context, userID string, file *agreements.FileUpload) (string, error) {
	return s.swapImage(ctx, userID, file, "logo", "logo_url",
		func(p *models.Profile) string { return p.LogoURL })
}

func (s *Service) swapImage(ctx context.Context, userID string, file *agreements.FileUpload, kind, column string, current func(*models.Profile) string) (string, error) {
	old := ""
	if profile, err := s.store.ProfileByUser(ctx, userID); err == nil {
		old = current(profile)
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	key := fmt.Sprintf("profiles/%s/%s-%s%s", userID, kind, uuid.New(), ext)
	url, err := s.blobs.Put(ctx, key, file.Data, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", kind, err)
	}

	if _, err := s.store.UpsertProfile(ctx, userID, map[string]any{column: url}); err != nil {
		return "", err
	}

	if old != "" && old != url {
		if err := s.blobs.Delete(ctx, old); err != nil {
			s.log.Warn().Err(err).Str("url", old).Msg("delete replaced profile image")
		}
	}
	return url, nil
}
