package services

import (
	"context"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// billingStore is the store slice billing needs.
type billingStore interface {
	storage.BillingStore
	storage.UserStore
}

// BillingService applies payment-processor webhook events to user plans.
// Events are idempotent by event id: a redelivered event changes nothing and
// still reports success.
type BillingService struct {
	store  billingStore
	logger *log.Logger
}

func NewBillingService(store billingStore, logger *log.Logger) *BillingService {
	return &BillingService{store: store, logger: logger.WithComponent(log.ComponentBilling)}
}

// Apply records the event and, on first sight, moves the user to the plan it
// names. The processor identifies customers by email, so the event is resolved
// to a user here. The returned flag says whether this delivery changed
// anything.
func (s *BillingService) Apply(ctx context.Context, eventID, email string, plan core.Plan) (bool, error) {
	if eventID == "" {
		return false, core.Invalidf("event_id", "must not be empty")
	}
	// The user must exist before the event is recorded, otherwise a bogus
	// event id would be burned for nothing.
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return false, err
	}
	userID := u.ID

	applied, err := s.store.RecordBillingEvent(ctx, core.BillingEvent{
		EventID:   eventID,
		UserID:    userID,
		Plan:      plan,
		AppliedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if !applied {
		s.logger.InfoContext(ctx, "billing event replayed, ignoring",
			log.FieldEventID, eventID,
			log.FieldUserID, userID)
		return false, nil
	}

	if err := s.store.UpdatePlan(ctx, userID, plan); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "plan changed",
		log.FieldEventID, eventID,
		log.FieldUserID, userID,
		log.FieldPlan, plan)
	return true, nil
}
