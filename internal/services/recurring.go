package services

import (
	"context"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// recurringStore is the store slice the processor needs.
type recurringStore interface {
	storage.TransactionStore
	storage.SubscriptionStore
}

// RecurringProcessor materializes due recurring templates into concrete
// ledger entries and rolls subscription billing dates forward. It runs from
// the recurring worker on a schedule, never in the request path.
type RecurringProcessor struct {
	store       recurringStore
	invalidator Invalidator
	logger      *log.Logger
}

func NewRecurringProcessor(store recurringStore, inv Invalidator, logger *log.Logger) *RecurringProcessor {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return &RecurringProcessor{
		store:       store,
		invalidator: inv,
		logger:      logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue runs one pass. A template overdue by several periods yields one
// concrete entry per missed occurrence, each dated at its own occurrence, so
// a stalled worker catches up without losing history.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) error {
	templates, err := p.store.DueRecurringTransactions(ctx, now)
	if err != nil {
		return err
	}

	for _, tmpl := range templates {
		next := tmpl.NextOccurrence
		created := 0
		for !next.After(now) {
			entry := &core.Transaction{
				UserID:      tmpl.UserID,
				Type:        tmpl.Type,
				Amount:      tmpl.Amount,
				Category:    tmpl.Category,
				Description: tmpl.Description,
				Date:        next,
			}
			if err := p.store.CreateTransaction(ctx, entry); err != nil {
				return err
			}
			next = AdvanceCycle(next, tmpl.Frequency)
			created++
		}
		if err := p.store.AdvanceRecurrence(ctx, tmpl.ID, next); err != nil {
			return err
		}
		p.invalidator.InvalidateUser(tmpl.UserID)

		p.logger.InfoContext(ctx, "recurring template materialized",
			log.FieldUserID, tmpl.UserID,
			"template_id", tmpl.ID,
			"entries", created,
			"next_occurrence", next)
	}

	subs, err := p.store.DueSubscriptions(ctx, now)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		next := sub.NextBilling
		for !next.After(now) {
			next = AdvanceCycle(next, sub.Cycle)
		}
		if err := p.store.AdvanceSubscription(ctx, sub.ID, next); err != nil {
			return err
		}
		p.logger.InfoContext(ctx, "subscription billing advanced",
			log.FieldUserID, sub.UserID,
			"subscription_id", sub.ID,
			"next_billing", next)
	}

	return nil
}

// AdvanceCycle steps a date forward by one billing period.
func AdvanceCycle(t time.Time, cycle core.BillingCycle) time.Time {
	switch cycle {
	case core.Weekly:
		return t.AddDate(0, 0, 7)
	case core.Yearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}
