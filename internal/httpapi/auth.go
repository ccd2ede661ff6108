package httpapi

import (
	"context"
	"net/http"
	"strings"

	"agreementsd/internal/agreements"
	"agreementsd/internal/identity"
)

type contextKey string

const identityKey contextKey = "identity"

// requireAuth verifies the bearer token and stashes the caller's identity in
// the request context. Requests without a valid token never reach a handler.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, identity.ErrInvalidToken)
			return
		}

		id, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, identity.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerIdentity returns the verified caller installed by requireAuth.
func callerIdentity(ctx context.Context) agreements.Identity {
	id, _ := ctx.Value(identityKey).(identity.Identity)
	return agreements.Identity{ID: id.ID, Email: id.Email}
}
