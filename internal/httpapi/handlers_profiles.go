package httpapi

import (
	"context"
	"net/http"

	"agreementsd/internal/agreements"
	"agreementsd/internal/profiles"
)

type profileImageUpdater func(ctx context.Context, userID string, file *agreements.FileUpload) (string, error)

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	profile, err := a.profiles.Profile(ctx, caller.ID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName *string `json:"displayName"`
		OrgName     *string `json:"orgName"`
		OrgTagline  *string `json:"orgTagline"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	profile, err := a.profiles.Update(ctx, caller.ID, profiles.UpdateInput{
		DisplayName: req.DisplayName,
		OrgName:     req.OrgName,
		OrgTagline:  req.OrgTagline,
	})
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
}

func (a *API) handleUpdatePicture(w http.ResponseWriter, r *http.Request) {
	a.swapProfileImage(w, r, "picture", maxPictureDim, a.profiles.UpdatePicture)
}

func (a *API) handleUpdateLogo(w http.ResponseWriter, r *http.Request) {
	a.swapProfileImage(w, r, "logo", maxLogoDim, a.profiles.UpdateLogo)
}

func (a *API) swapProfileImage(w http.ResponseWriter, r *http.Request, field string, maxDim int, update profileImageUpdater) {
	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	file, err := imageFile(r, field, maxDim)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	url, err := update(ctx, caller.ID, file)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}
