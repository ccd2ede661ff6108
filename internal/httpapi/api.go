package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"agreementsd/internal/agreements"
	"agreementsd/internal/ai"
	"agreementsd/internal/billing"
	"agreementsd/internal/identity"
	"agreementsd/internal/jobs"
	"agreementsd/internal/models"
	"agreementsd/internal/notify"
	"agreementsd/internal/profiles"
)

const defaultRequestTimeout = 60 * time.Second

// SubscriptionReader resolves the stored subscription for a user.
type SubscriptionReader interface {
	SubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// API wires the managers and configuration for the HTTP handlers.
type API struct {
	agreements *agreements.Service
	profiles   *profiles.Service
	billing    *billing.Service
	subs       SubscriptionReader
	generator  *ai.Generator
	notifier   *notify.Notifier
	runner     *jobs.Runner
	verifier   identity.Verifier
	config     Config
	log        zerolog.Logger
}

// Options carries the API dependencies.
type Options struct {
	Agreements    *agreements.Service
	Profiles      *profiles.Service
	Billing       *billing.Service
	Subscriptions SubscriptionReader
	Generator     *ai.Generator
	Notifier      *notify.Notifier
	Runner        *jobs.Runner
	Verifier      identity.Verifier
	Config        Config
	Logger        zerolog.Logger
}

// New initialises the API layer with sane defaults applied to the provided
// configuration.
func New(opts Options) (*API, error) {
	if opts.Agreements == nil {
		return nil, errors.New("agreements service is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("profiles service is required")
	}
	if opts.Billing == nil {
		return nil, errors.New("billing service is required")
	}
	if opts.Subscriptions == nil {
		return nil, errors.New("subscription reader is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("job runner is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}

	if opts.Config.RequestTimeout <= 0 {
		opts.Config.RequestTimeout = defaultRequestTimeout
	}

	return &API{
		agreements: opts.Agreements,
		profiles:   opts.Profiles,
		billing:    opts.Billing,
		subs:       opts.Subscriptions,
		generator:  opts.Generator,
		notifier:   opts.Notifier,
		runner:     opts.Runner,
		verifier:   opts.Verifier,
		config:     opts.Config,
		log:        opts.Logger,
	}, nil
}
