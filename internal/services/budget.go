package services

import (
	"context"
	"errors"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// BudgetService manages monthly budgets. Actual income and expenses are never
// trusted from storage on read: every fetch recomputes them from the ledger
// and writes them back, so a budget read is also a reconciliation.
type BudgetService struct {
	store  storage.Store
	logger *log.Logger
}

func NewBudgetService(store storage.Store, logger *log.Logger) *BudgetService {
	return &BudgetService{store: store, logger: logger.WithComponent(log.ComponentBudget)}
}

// Create validates and persists a budget. A second budget for the same month
// is core.ErrConflict.
func (s *BudgetService) Create(ctx context.Context, b *core.MonthlyBudget) (*core.MonthlyBudget, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "budget created",
		log.FieldUserID, b.UserID,
		log.FieldMonth, b.Month)
	return b, nil
}

// List returns all budgets, most recent month first, each reconciled against
// the ledger before being returned.
func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.MonthlyBudget, error) {
	budgets, err := s.store.BudgetsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if err := s.reconcile(ctx, &budgets[i]); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// Fetch returns the budget for a month with freshly reconciled actuals, or
// (nil, nil) when no budget exists for that month. A malformed month is a
// validation error, not an empty result.
func (s *BudgetService) Fetch(ctx context.Context, userID int64, month string) (*core.MonthlyBudget, error) {
	if _, _, err := core.MonthWindow(month); err != nil {
		return nil, err
	}
	b, err := s.store.BudgetByMonth(ctx, userID, month)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.reconcile(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// reconcile recomputes actuals from the ledger window and persists them with
// one atomic update. Running it twice with no ledger change is a no-op.
func (s *BudgetService) reconcile(ctx context.Context, b *core.MonthlyBudget) error {
	from, to, err := core.MonthWindow(b.Month)
	if err != nil {
		return err
	}
	txs, err := s.store.TransactionsInWindow(ctx, b.UserID, from, to)
	if err != nil {
		return err
	}
	sum := core.Summarize(txs)
	if err := s.store.UpdateBudgetActuals(ctx, b.UserID, b.ID, sum.Income, sum.Expenses); err != nil {
		return err
	}
	b.ActualIncome = sum.Income
	b.ActualExpenses = sum.Expenses
	return nil
}

// UpdatePlans replaces the planned figures of an existing budget.
func (s *BudgetService) UpdatePlans(ctx context.Context, b *core.MonthlyBudget) (*core.MonthlyBudget, error) {
	if b.PlannedIncome.IsNegative() {
		return nil, core.Invalidf("planned_income", "must not be negative")
	}
	if b.PlannedExpenses.IsNegative() {
		return nil, core.Invalidf("planned_expenses", "must not be negative")
	}
	if err := s.store.UpdateBudgetPlans(ctx, b); err != nil {
		return nil, err
	}
	return s.store.BudgetByMonth(ctx, b.UserID, b.Month)
}

// Delete removes a budget.
func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteBudget(ctx, userID, id)
}
