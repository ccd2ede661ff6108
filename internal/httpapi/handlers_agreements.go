package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agreementsd/internal/agreements"
	"agreementsd/internal/ai"
)

func (a *API) handleSaveAgreement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var required []string
	if raw := strings.TrimSpace(r.FormValue("requiredDocuments")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &required); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("requiredDocuments must be a JSON array"))
			return
		}
	}

	file, err := agreementFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	in := agreements.CreateAgreementInput{
		Type:               strings.TrimSpace(r.FormValue("agreementType")),
		Name:               r.FormValue("agreementName"),
		Text:               r.FormValue("agreementText"),
		RequiredDocuments:  required,
		CustomDocumentName: r.FormValue("customDocumentName"),
		File:               file,
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	agreement, err := a.agreements.CreateAgreement(ctx, caller, in)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "agreement": agreement})
}

func (a *API) handleListAgreements(w http.ResponseWriter, r *http.Request) {
	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	list, err := a.agreements.Agreements(ctx, caller.ID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agreements": list})
}

func (a *API) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid agreement id is required"))
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	agreement, err := a.agreements.Agreement(ctx, caller.ID, id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agreement": agreement})
}

func (a *API) handleDeleteAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid agreement id is required"))
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	if err := a.agreements.DeleteAgreement(ctx, caller.ID, id); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleGenerateAgreement(w http.ResponseWriter, r *http.Request) {
	if a.generator == nil {
		respondError(w, http.StatusFailedDependency, errors.New("agreement generation is not configured"))
		return
	}

	var in ai.Inputs
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	text, err := a.generator.Generate(ctx, in)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "agreement": text})
}
