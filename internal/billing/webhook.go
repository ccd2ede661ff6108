package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agreementsd/internal/models"
)

// Webhook event names delivered by the payment provider.
const (
	EventSubscriptionCreated     = "subscription_created"
	EventSubscriptionUpdated     = "subscription_updated"
	EventSubscriptionPlanChanged = "subscription_plan_changed"
	EventSubscriptionCancelled   = "subscription_cancelled"
)

// ErrBadSignature rejects a webhook delivery whose signature does not match
// the raw body. Nothing in the payload may be trusted in that case.
var ErrBadSignature = errors.New("webhook signature mismatch")

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw request
// body in constant time.
func (s *Service) VerifySignature(rawBody []byte, signature string) bool {
	if len(s.webhookSecret) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Event is the subset of a provider webhook payload the core reads.
type Event struct {
	Meta struct {
		CustomData struct {
			UID   string `json:"uid"`
			Email string `json:"email"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			VariantID             int64  `json:"variant_id"`
			CustomerID            int64  `json:"customer_id"`
			OrderID               int64  `json:"order_id"`
			Status                string `json:"status"`
			RenewsAt              string `json:"renews_at"`
			CardBrand             string `json:"card_brand"`
			CardLastFour          string `json:"card_last_four"`
			FirstSubscriptionItem struct {
				SubscriptionID int64 `json:"subscription_id"`
			} `json:"first_subscription_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// HandleWebhook verifies the signature over the raw body, then applies the
// named event. Signature mismatches are terminal: no part of the body is
// parsed before verification succeeds.
func (s *Service) HandleWebhook(ctx context.Context, eventName string, rawBody []byte, signature string) error {
	if !s.VerifySignature(rawBody, signature) {
		return ErrBadSignature
	}

	var ev Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return fmt.Errorf("billing: decode webhook body: %w", err)
	}
	return s.Apply(ctx, eventName, &ev)
}

// Apply translates one verified event into subscription state. Create,
// update, and plan-change events overwrite the record wholesale; a
// cancellation revokes the user's active status but keeps the record so the
// customer portal stays reachable.
func (s *Service) Apply(ctx context.Context, eventName string, ev *Event) error {
	uid := ev.Meta.CustomData.UID
	if uid == "" {
		return errors.New("billing: event carries no user id")
	}

	switch eventName {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionPlanChanged:
		attrs := ev.Data.Attributes
		plan, ok := s.table.ByVariant(attrs.VariantID)
		if !ok {
			return fmt.Errorf("billing: no plan for variant %d", attrs.VariantID)
		}

		sub := &models.Subscription{
			UserID:         uid,
			Email:          ev.Meta.CustomData.Email,
			PackageName:    plan.Name,
			Billing:        plan.Billing,
			Status:         attrs.Status,
			Price:          plan.Price,
			CustomerID:     attrs.CustomerID,
			OrderID:        attrs.OrderID,
			SubscriptionID: attrs.FirstSubscriptionItem.SubscriptionID,
			CardBrand:      attrs.CardBrand,
			CardLastFour:   attrs.CardLastFour,
		}
		if attrs.RenewsAt != "" {
			if t, err := time.Parse(time.RFC3339, attrs.RenewsAt); err == nil {
				sub.RenewsAt = &t
			}
		}
		return s.store.SaveSubscription(ctx, sub)

	case EventSubscriptionCancelled:
		return s.store.CancelSubscription(ctx, uid)

	default:
		// Unknown events are acknowledged and ignored.
		return nil
	}
}
