// Package services holds the application layer: one service per entity,
// validating input, enforcing ownership through the store and applying the
// ledger arithmetic from core.
package services

import (
	"context"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// Invalidator drops cached reports for a user after a ledger write.
type Invalidator interface {
	InvalidateUser(userID int64)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateUser(int64) {}

// TransactionService manages ledger entries.
type TransactionService struct {
	store       storage.TransactionStore
	invalidator Invalidator
	logger      *log.Logger
}

func NewTransactionService(store storage.TransactionStore, inv Invalidator, logger *log.Logger) *TransactionService {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return &TransactionService{
		store:       store,
		invalidator: inv,
		logger:      logger.WithComponent(log.ComponentLedger),
	}
}

// Create validates and persists a new ledger entry.
func (s *TransactionService) Create(ctx context.Context, t *core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateUser(t.UserID)

	s.logger.InfoContext(ctx, "transaction created",
		log.FieldUserID, t.UserID,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldCategory, t.Category,
		"type", t.Type)
	return t, nil
}

// List returns the user's full ledger, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID)
}

// Get returns one entry; a foreign or missing id is core.ErrNotFound.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	return s.store.TransactionByID(ctx, userID, id)
}

// Update replaces a ledger entry in place.
func (s *TransactionService) Update(ctx context.Context, t *core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateUser(t.UserID)
	return t, nil
}

// Delete removes a ledger entry.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.invalidator.InvalidateUser(userID)
	return nil
}
