package agreements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"agreementsd/internal/models"
)

func sharedAgreement(t *testing.T, f *fixture, in CreateAgreementInput) (*models.Agreement, *models.SharedAgreement) {
	t.Helper()

	agreement, err := f.svc.CreateAgreement(context.Background(), owner, in)
	require.NoError(t, err)

	share, _, err := f.svc.ShareAgreement(context.Background(), owner, ShareInput{
		AgreementID: agreement.ID,
		SigneeName:  "Jordan",
		SigneeEmail: "jordan@example.com",
	})
	require.NoError(t, err)
	return agreement, share
}

func pngUpload(name string) *FileUpload {
	return &FileUpload{Name: name, ContentType: "image/png", Data: []byte("png-bytes")}
}

func TestSignAgreement(t *testing.T) {
	f := newFixture(t)
	agreement, share := sharedAgreement(t, f, validInput())

	result, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
	})
	require.NoError(t, err)
	require.Equal(t, owner.Email, result.CreatorEmail)
	require.Equal(t, models.StatusPending, result.Signature.Status)
	require.False(t, result.Signature.Approved)
	require.NotEmpty(t, result.Signature.SignatureURL)

	// The invitation is consumed and the counters reflect one unreviewed signee.
	_, err = f.store.ShareByID(context.Background(), share.ID)
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := f.store.AgreementByID(context.Background(), agreement.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.SigneeCount)
	require.Equal(t, 1, stored.ToReview)
	require.LessOrEqual(t, stored.ToReview, stored.SigneeCount)
}

func TestSignAgreementConsumedShare(t *testing.T) {
	f := newFixture(t)
	_, share := sharedAgreement(t, f, validInput())

	_, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
	})
	require.NoError(t, err)

	_, err = f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSignAgreementExpiredShare(t *testing.T) {
	f := newFixture(t)
	agreement, share := sharedAgreement(t, f, validInput())

	f.clock.t = f.clock.t.Add(ShareTTL + time.Minute)

	_, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
	})
	require.ErrorIs(t, err, ErrNotFound)

	sigs, err := f.store.ListSignaturesByAgreement(context.Background(), agreement.ID)
	require.NoError(t, err)
	require.Empty(t, sigs, "no partial record may survive a rejected submission")
}

func TestSignAgreementUnknownShare(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   uuid.New(),
		Signature: pngUpload("signature.png"),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSignAgreementMissingRequiredDocument(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.RequiredDocuments = []string{"passport", "custom"}
	in.CustomDocumentName = "Employment letter"
	agreement, share := sharedAgreement(t, f, in)

	uploadsBefore := f.blobs.puts
	_, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
		Documents: map[string]*FileUpload{"passport": pngUpload("passport.png")},
	})
	require.True(t, IsValidation(err))
	require.Contains(t, err.Error(), "custom")
	require.Equal(t, uploadsBefore, f.blobs.puts, "validation must run before any upload")

	sigs, err := f.store.ListSignaturesByAgreement(context.Background(), agreement.ID)
	require.NoError(t, err)
	require.Empty(t, sigs)

	// The invitation survives a failed submission.
	_, err = f.store.ShareByID(context.Background(), share.ID)
	require.NoError(t, err)
}

func TestSignAgreementWithDocuments(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.RequiredDocuments = []string{"photo", "custom"}
	in.CustomDocumentName = "Employment letter"
	_, share := sharedAgreement(t, f, in)

	result, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
		Documents: map[string]*FileUpload{
			"photo":  pngUpload("photo.png"),
			"custom": pngUpload("letter.png"),
		},
	})
	require.NoError(t, err)

	urls := result.Signature.DocumentURLs()
	require.Len(t, urls, 2)
	require.NotEmpty(t, urls["photo"])
	require.NotEmpty(t, urls["custom"])
	require.Equal(t, "Employment letter", result.Signature.CustomDocumentName)
}

func TestDeleteAgreementCascade(t *testing.T) {
	f := newFixture(t)
	agreement, share := sharedAgreement(t, f, validInput())

	_, err := f.svc.SignAgreement(context.Background(), SignSubmission{
		ShareID:   share.ID,
		Signature: pngUpload("signature.png"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAgreement(context.Background(), owner.ID, agreement.ID))

	_, err = f.store.AgreementByID(context.Background(), agreement.ID)
	require.ErrorIs(t, err, ErrNotFound)

	sigs, err := f.store.ListSignaturesByAgreement(context.Background(), agreement.ID)
	require.NoError(t, err)
	require.Empty(t, sigs)

	require.Empty(t, f.blobs.objects, "every blob must be released with the agreement")
}
