package agreements

import (
	"context"

	"github.com/google/uuid"

	"agreementsd/internal/models"
)

// StatusUpdate is one reconciled transition, carrying everything the
// notification layer needs. The engine returns these instead of dispatching
// them so the notification side effect stays retryable independently of the
// storage side effect.
type StatusUpdate struct {
	SignatureID   uuid.UUID `json:"signatureId"`
	AgreementName string    `json:"agreementName"`
	CreatorEmail  string    `json:"creatorEmail"`
	SigneeEmail   string    `json:"signeeEmail"`
	Status        string    `json:"status"`
}

// ReconcileStatuses recomputes every signature's status from the current
// time against its stored date bounds. Signatures past their start date
// become started, signatures past their end date become complete, and when
// both apply the end date wins. Transitions are monotonic: a complete
// signature is never regressed. All status writes for a run are applied in
// one atomic batch; the emitted updates are returned for dispatch by the
// caller.
func (s *Service) ReconcileStatuses(ctx context.Context) ([]StatusUpdate, error) {
	now := s.now().UTC()

	startDue, err := s.store.SignaturesDueToStart(ctx, now)
	if err != nil {
		return nil, err
	}
	endDue, err := s.store.SignaturesDueToComplete(ctx, now)
	if err != nil {
		return nil, err
	}

	type resolution struct {
		sig    models.Signature
		status string
	}
	merged := make(map[uuid.UUID]resolution, len(startDue)+len(endDue))
	for _, sig := range startDue {
		if sig.Status == models.StatusComplete {
			continue
		}
		merged[sig.ID] = resolution{sig: sig, status: models.StatusStarted}
	}
	// End-date determinations supersede start-date ones.
	for _, sig := range endDue {
		merged[sig.ID] = resolution{sig: sig, status: models.StatusComplete}
	}

	names := make(map[uuid.UUID]string)
	updates := make([]StatusUpdate, 0, len(merged))
	writes := make(map[uuid.UUID]string)

	for id, res := range merged {
		sig := res.sig
		if sig.AgreementID == uuid.Nil || sig.CreatorID == "" || sig.SigneeEmail == "" {
			// Not enough context to notify anyone; leave it alone.
			continue
		}

		name, ok := names[sig.AgreementID]
		if !ok {
			agreement, err := s.store.AgreementByID(ctx, sig.AgreementID)
			if err != nil {
				s.log.Warn().Err(err).
					Str("signature_id", id.String()).
					Str("agreement_id", sig.AgreementID.String()).
					Msg("resolve agreement for status update")
				continue
			}
			name = agreement.Name
			names[sig.AgreementID] = name
		}

		updates = append(updates, StatusUpdate{
			SignatureID:   id,
			AgreementName: name,
			CreatorEmail:  sig.CreatorEmail,
			SigneeEmail:   sig.SigneeEmail,
			Status:        res.status,
		})
		if sig.Status != res.status {
			writes[id] = res.status
		}
	}

	if len(writes) > 0 {
		if err := s.store.BatchUpdateStatuses(ctx, writes); err != nil {
			return nil, err
		}
	}

	return updates, nil
}
