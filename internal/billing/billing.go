package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"agreementsd/internal/models"
	"agreementsd/internal/plans"
)

// Store is the subscription persistence surface.
type Store interface {
	SubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	CancelSubscription(ctx context.Context, userID string) error
}

// Customer identifies the user on whose behalf a billing call is made.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// Service talks to the payment provider's JSON:API and applies its webhook
// events to the subscription store.
type Service struct {
	baseURL       string
	apiKey        string
	storeID       string
	webhookSecret []byte
	table         *plans.Table
	store         Store
	httpClient    *http.Client
}

// Options configures a Service.
type Options struct {
	BaseURL       string
	APIKey        string
	StoreID       string
	WebhookSecret string
	Table         *plans.Table
	Store         Store
	HTTPClient    *http.Client
}

// New wires a Service.
func New(opts Options) (*Service, error) {
	if opts.Table == nil {
		return nil, errors.New("billing: plan table is required")
	}
	if opts.Store == nil {
		return nil, errors.New("billing: store is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		baseURL:       opts.BaseURL,
		apiKey:        opts.APIKey,
		storeID:       opts.StoreID,
		webhookSecret: []byte(opts.WebhookSecret),
		table:         opts.Table,
		store:         opts.Store,
		httpClient:    client,
	}, nil
}

// CheckoutURL creates a provider checkout session for the given plan and
// returns its hosted URL. The user's id and email ride along as custom data
// so the webhook can attribute the resulting subscription.
func (s *Service) CheckoutURL(ctx context.Context, customer Customer, packageName string, yearly bool) (string, error) {
	if customer.ID == "" || customer.Email == "" {
		return "", errors.New("billing: customer id and email are required")
	}

	billing := "monthly"
	if yearly {
		billing = "yearly"
	}
	key := plans.Key(packageName, billing)
	plan, ok := s.table.Get(key)
	if !ok {
		return "", fmt.Errorf("billing: unknown plan %q", key)
	}

	checkoutData := map[string]any{
		"email": customer.Email,
		"custom": map[string]any{
			"uid":         customer.ID,
			"email":       customer.Email,
			"packageName": key,
			"billing":     billing,
		},
	}
	if customer.Name != "" {
		checkoutData["name"] = customer.Name
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": checkoutData,
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": s.storeID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": strconv.FormatInt(plan.VariantID, 10)},
				},
			},
		},
	}

	var resp struct {
		Data struct {
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := s.call(ctx, http.MethodPost, "/checkouts", body, &resp); err != nil {
		return "", err
	}
	if resp.Data.Attributes.URL == "" {
		return "", errors.New("billing: checkout response carried no url")
	}
	return resp.Data.Attributes.URL, nil
}

// CustomerPortalURL resolves the hosted customer portal for a provider
// subscription id.
func (s *Service) CustomerPortalURL(ctx context.Context, subscriptionID int64) (string, error) {
	var resp struct {
		Data struct {
			Attributes struct {
				URLs struct {
					CustomerPortal string `json:"customer_portal"`
				} `json:"urls"`
			} `json:"attributes"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/subscriptions/%d", subscriptionID)
	if err := s.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.Attributes.URLs.CustomerPortal == "" {
		return "", errors.New("billing: subscription carried no portal url")
	}
	return resp.Data.Attributes.URLs.CustomerPortal, nil
}

// ChangePlan moves the user's existing subscription to another plan variant,
// invoicing immediately.
func (s *Service) ChangePlan(ctx context.Context, userID, packageName string, yearly bool) error {
	billing := "monthly"
	if yearly {
		billing = "yearly"
	}
	plan, ok := s.table.Get(plans.Key(packageName, billing))
	if !ok {
		return fmt.Errorf("billing: unknown plan %q", plans.Key(packageName, billing))
	}

	sub, err := s.store.SubscriptionByUser(ctx, userID)
	if err != nil {
		return err
	}
	if sub.SubscriptionID == 0 {
		return errors.New("billing: subscription has no provider id")
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "subscriptions",
			"id":   strconv.FormatInt(sub.SubscriptionID, 10),
			"attributes": map[string]any{
				"variant_id":          strconv.FormatInt(plan.VariantID, 10),
				"invoice_immediately": true,
			},
		},
	}
	return s.call(ctx, http.MethodPatch, fmt.Sprintf("/subscriptions/%d", sub.SubscriptionID), body, nil)
}

func (s *Service) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("billing: %s %s returned %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
