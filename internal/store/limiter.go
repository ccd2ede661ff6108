package store

import (
	"context"
	"errors"

	"agreementsd/internal/agreements"
	"agreementsd/internal/plans"
)

// PlanLimiter resolves users to their active plan by joining the stored
// subscription against the static plan table. It fails closed: a missing
// subscription is not an error, it is a denial.
type PlanLimiter struct {
	table *plans.Table
	store *Store
}

// NewPlanLimiter builds a PlanLimiter over the given table and store.
func NewPlanLimiter(table *plans.Table, s *Store) *PlanLimiter {
	return &PlanLimiter{table: table, store: s}
}

// PlanFor implements agreements.PlanLimiter.
func (l *PlanLimiter) PlanFor(ctx context.Context, userID string) (plans.Plan, bool, error) {
	sub, err := l.store.SubscriptionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, agreements.ErrNotFound) {
			return plans.Plan{}, false, nil
		}
		return plans.Plan{}, false, err
	}
	plan, ok := l.table.Resolve(sub)
	return plan, ok, nil
}
