package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"agreementsd/internal/billing"
)

const maxWebhookBody = 1 << 20

func (a *API) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	sub, err := a.subs.SubscriptionByUser(ctx, caller.ID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (a *API) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageName string `json:"packageName"`
		Yearly      bool   `json:"yearly"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	url, err := a.billing.CheckoutURL(ctx, billing.Customer{ID: caller.ID, Email: caller.Email}, req.PackageName, req.Yearly)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (a *API) handleCustomerPortal(w http.ResponseWriter, r *http.Request) {
	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	sub, err := a.subs.SubscriptionByUser(ctx, caller.ID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if sub.SubscriptionID == 0 {
		respondError(w, http.StatusNotFound, errors.New("no provider subscription on record"))
		return
	}

	url, err := a.billing.CustomerPortalURL(ctx, sub.SubscriptionID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (a *API) handleChangePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageName string `json:"packageName"`
		Yearly      bool   `json:"yearly"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	caller := callerIdentity(r.Context())

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	if err := a.billing.ChangePlan(ctx, caller.ID, req.PackageName, req.Yearly); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleBillingWebhook applies a provider event. The raw body is read before
// anything else because the signature covers it byte for byte.
func (a *API) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()

	eventName := strings.TrimSpace(r.Header.Get("X-Event-Name"))
	signature := strings.TrimSpace(r.Header.Get("X-Signature"))

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	if err := a.billing.HandleWebhook(ctx, eventName, rawBody, signature); err != nil {
		if errors.Is(err, billing.ErrBadSignature) {
			respondError(w, http.StatusUnauthorized, err)
			return
		}
		a.log.Error().Err(err).Str("event", eventName).Msg("apply billing webhook")
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"received": true})
}
