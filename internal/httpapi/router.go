package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// Public signee surface, rate limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(60, time.Minute))
		r.Get("/signee-content/{shareID}", a.handleSigneeContent)
		r.Post("/sign-agreement", a.handleSignAgreement)
	})

	r.Post("/webhooks/billing", a.handleBillingWebhook)

	r.Post("/jobs/expire-shares", a.handleExpireShares)
	r.Post("/jobs/status-updates", a.handleStatusUpdates)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Get("/user-profile", a.handleGetProfile)
		r.Post("/user-profile", a.handleUpdateProfile)
		r.Post("/update-profile-picture", a.handleUpdatePicture)
		r.Post("/update-organization-logo", a.handleUpdateLogo)

		r.Post("/ai-agreement-generator", a.handleGenerateAgreement)

		r.Post("/save-agreement", a.handleSaveAgreement)
		r.Get("/agreements", a.handleListAgreements)
		r.Get("/agreements/{id}", a.handleGetAgreement)
		r.Delete("/agreements/{id}", a.handleDeleteAgreement)

		r.Post("/share-agreement", a.handleShareAgreement)
		r.Get("/signees/{agreementID}", a.handleListSignees)
		r.Post("/approve-signee", a.handleApproveSignee)
		r.Post("/reject-signee", a.handleRejectSignee)
		r.Post("/mark-signee-status", a.handleMarkSigneeStatus)
		r.Delete("/signee", a.handleDeleteSignee)

		r.Get("/subscription", a.handleGetSubscription)
		r.Post("/subscribe", a.handleSubscribe)
		r.Get("/customer-portal", a.handleCustomerPortal)
		r.Post("/change-plan", a.handleChangePlan)
	})

	return otelhttp.NewHandler(r, "httpapi")
}
