package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agreementsd/internal/agreements"
)

type signeeRef struct {
	AgreementID uuid.UUID `json:"agreementId"`
	SigneeID    uuid.UUID `json:"signeeId"`
}

func (ref signeeRef) validate() error {
	if ref.AgreementID == uuid.Nil {
		return errors.New("agreementId is required")
	}
	if ref.SigneeID == uuid.Nil {
		return errors.New("signeeId is required")
	}
	return nil
}

func (a *API) handleListSignees(w http.ResponseWriter, r *http.Request) {
	agreementID, err := uuid.Parse(chi.URLParam(r, "agreementID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid agreement id is required"))
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	signees, err := a.agreements.Signees(ctx, caller.ID, agreementID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"signees": signees})
}

func (a *API) handleApproveSignee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		signeeRef
		Immediate bool `json:"immediate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	sig, err := a.agreements.ApproveSignee(ctx, caller.ID, req.AgreementID, req.SigneeID, req.Immediate)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	agreement, err := a.agreements.Agreement(ctx, caller.ID, req.AgreementID)
	if err == nil {
		a.notifier.SigneeApproved(r.Context(), caller.Email, sig.SigneeEmail, agreement.Name)
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "signee": sig})
}

// handleRejectSignee notifies the signee with the creator's reason. The
// signature record itself is untouched; the creator deletes it separately if
// they want it gone.
func (a *API) handleRejectSignee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		signeeRef
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, errors.New("reason is required"))
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	agreement, err := a.agreements.Agreement(ctx, caller.ID, req.AgreementID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	signees, err := a.agreements.Signees(ctx, caller.ID, req.AgreementID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	for _, sig := range signees {
		if sig.ID == req.SigneeID {
			a.notifier.SigneeRejected(r.Context(), caller.Email, sig.SigneeEmail, agreement.Name, req.Reason)
			respondJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	a.respondServiceError(w, agreements.ErrNotFound)
}

func (a *API) handleMarkSigneeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		signeeRef
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	sig, err := a.agreements.MarkSigneeStatus(ctx, caller.ID, req.AgreementID, req.SigneeID, req.Status)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "signee": sig})
}

func (a *API) handleDeleteSignee(w http.ResponseWriter, r *http.Request) {
	var req signeeRef
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	if err := a.agreements.DeleteSignee(ctx, caller.ID, req.AgreementID, req.SigneeID); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
