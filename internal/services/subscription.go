package services

import (
	"context"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// SubscriptionService manages recurring obligations and their normalized
// monthly cost. Subscriptions never write to the ledger.
type SubscriptionService struct {
	store  storage.SubscriptionStore
	logger *log.Logger
}

func NewSubscriptionService(store storage.SubscriptionStore, logger *log.Logger) *SubscriptionService {
	return &SubscriptionService{store: store, logger: logger.WithComponent(log.ComponentRecurring)}
}

func (s *SubscriptionService) Create(ctx context.Context, sub *core.Subscription) (*core.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "subscription created",
		log.FieldUserID, sub.UserID,
		log.FieldAmountCents, sub.Amount.Cents,
		"cycle", sub.Cycle)
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context, userID int64) ([]core.Subscription, error) {
	return s.store.SubscriptionsByUser(ctx, userID)
}

func (s *SubscriptionService) Update(ctx context.Context, sub *core.Subscription) (*core.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteSubscription(ctx, userID, id)
}

// MonthlyCost is the normalized monthly total of the user's active
// subscriptions.
func (s *SubscriptionService) MonthlyCost(ctx context.Context, userID int64) (core.Money, error) {
	subs, err := s.store.SubscriptionsByUser(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}
	return core.NormalizedMonthlyCost(subs), nil
}
