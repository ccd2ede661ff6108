package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"agreementsd/internal/agreements"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondServiceError maps the core error kinds onto HTTP responses. A quota
// hit is a 200 with upgradeRequired set so the client renders the upgrade
// prompt instead of an error page.
func (a *API) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agreements.ErrQuotaExceeded):
		respondJSON(w, http.StatusOK, map[string]any{
			"success":         false,
			"upgradeRequired": true,
			"error":           err.Error(),
		})
	case agreements.IsValidation(err):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, agreements.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, agreements.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err)
	default:
		a.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (a *API) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
