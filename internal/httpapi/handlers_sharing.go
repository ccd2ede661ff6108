package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agreementsd/internal/agreements"
	"agreementsd/internal/models"
)

func (a *API) handleShareAgreement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgreementID uuid.UUID `json:"agreementId"`
		SigneeName  string    `json:"signeeName"`
		Email       string    `json:"email"`
		StartDate   string    `json:"startDate"`
		EndDate     string    `json:"endDate"`
		Amount      *float64  `json:"amount"`
		Description string    `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.AgreementID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("agreementId is required"))
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("startDate: %w", err))
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("endDate: %w", err))
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	share, link, err := a.agreements.ShareAgreement(ctx, caller, agreements.ShareInput{
		AgreementID: req.AgreementID,
		SigneeName:  req.SigneeName,
		SigneeEmail: req.Email,
		StartDate:   startDate,
		EndDate:     endDate,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	a.notifier.SignInvitation(r.Context(), share.CreatorEmail, share.SigneeEmail, share.ID, link)

	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"share":   share,
		"link":    link,
	})
}

func (a *API) handleSigneeContent(w http.ResponseWriter, r *http.Request) {
	shareID, err := uuid.Parse(chi.URLParam(r, "shareID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid share id is required"))
		return
	}

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	content, err := a.agreements.SigneeContent(ctx, shareID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, content)
}

func (a *API) handleSignAgreement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	shareID, err := uuid.Parse(strings.TrimSpace(r.FormValue("shareId")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid shareId is required"))
		return
	}

	signature, err := formFile(r, "signature", maxImageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	documents := map[string]*agreements.FileUpload{}
	for _, kind := range models.DocumentKinds {
		file, err := formFile(r, kind, maxImageSize)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		if file != nil {
			documents[kind] = file
		}
	}

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	result, err := a.agreements.SignAgreement(ctx, agreements.SignSubmission{
		ShareID:   shareID,
		Signature: signature,
		Documents: documents,
	})
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	a.notifier.SignatureCompleted(r.Context(), result.CreatorEmail, result.Signature.SigneeEmail, result.Signature.AgreementID)

	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "signature": result.Signature})
}

// parseDate accepts RFC3339 timestamps and bare calendar dates. An empty
// string is a nil date.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, errors.New("not a valid date")
}
