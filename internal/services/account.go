package services

import (
	"context"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// AccountService manages user-entered bank account records. Balances are
// informational only and never reconciled against the ledger.
type AccountService struct {
	store  storage.AccountStore
	logger *log.Logger
}

func NewAccountService(store storage.AccountStore, logger *log.Logger) *AccountService {
	return &AccountService{store: store, logger: logger.WithComponent(log.ComponentApp)}
}

func (s *AccountService) Create(ctx context.Context, a *core.BankAccount) (*core.BankAccount, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, userID int64) ([]core.BankAccount, error) {
	return s.store.AccountsByUser(ctx, userID)
}

func (s *AccountService) Update(ctx context.Context, a *core.BankAccount) (*core.BankAccount, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteAccount(ctx, userID, id)
}
