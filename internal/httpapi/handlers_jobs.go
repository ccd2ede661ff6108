package httpapi

import (
	"net/http"
)

// The job triggers mirror the scheduled runs so an external scheduler can
// drive maintenance when in-process cron is disabled.

func (a *API) handleExpireShares(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	deleted, err := a.runner.SweepShares(ctx)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}

func (a *API) handleStatusUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	updates, err := a.runner.ReconcileStatuses(ctx)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "updated": len(updates)})
}
