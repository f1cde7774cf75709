// Package storage is the entity store boundary. It defines narrow per-entity
// interfaces, composed into Store, with three implementations: in-memory
// (tests and dev), SQLite (default durable store) and Postgres.
//
// Every row is scoped to exactly one user. Mutations re-verify ownership
// inside the statement itself (WHERE id = ? AND user_id = ?), never as a
// separate precondition, and report a missing or foreign row uniformly as
// core.ErrNotFound.
package storage

import (
	"context"
	"time"

	"finledger/internal/core"
)

// UserStore persists user accounts and credentials.
type UserStore interface {
	// CreateUser inserts a new user. Returns core.ErrConflict when the email
	// is already registered.
	CreateUser(ctx context.Context, u *core.User) error
	UserByID(ctx context.Context, id int64) (*core.User, error)
	UserByEmail(ctx context.Context, email string) (*core.User, error)
	UpdatePreferences(ctx context.Context, userID int64, p core.Preferences) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// VerifyUser marks the owner of the token verified and clears the token.
	VerifyUser(ctx context.Context, token string) (*core.User, error)
	UpdatePlan(ctx context.Context, userID int64, plan core.Plan) error
}

// SessionStore persists opaque bearer sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	// SessionByToken returns core.ErrNotFound for unknown or expired tokens.
	SessionByToken(ctx context.Context, token string, now time.Time) (*core.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// PasswordResetStore persists single-use password reset tokens.
type PasswordResetStore interface {
	CreatePasswordReset(ctx context.Context, pr core.PasswordReset) error
	// ConsumePasswordReset marks the token used and returns the owning user
	// id; unknown, expired and already-used tokens are all core.ErrNotFound.
	ConsumePasswordReset(ctx context.Context, token string, now time.Time) (int64, error)
}

// TransactionStore persists ledger entries.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	// TransactionsByUser returns the full ledger, date descending then id
	// descending.
	TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	// TransactionsInWindow returns entries with from <= date <= to.
	TransactionsInWindow(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error)
	TransactionByID(ctx context.Context, userID, id int64) (*core.Transaction, error)
	UpdateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
	// DueRecurringTransactions returns recurring templates across all users
	// whose next occurrence is at or before now.
	DueRecurringTransactions(ctx context.Context, now time.Time) ([]core.Transaction, error)
	AdvanceRecurrence(ctx context.Context, id int64, next time.Time) error
}

// BudgetStore persists monthly budgets.
type BudgetStore interface {
	// CreateBudget returns core.ErrConflict when a budget already exists for
	// (user, month); the uniqueness constraint lives in the store.
	CreateBudget(ctx context.Context, b *core.MonthlyBudget) error
	BudgetByMonth(ctx context.Context, userID int64, month string) (*core.MonthlyBudget, error)
	BudgetsByUser(ctx context.Context, userID int64) ([]core.MonthlyBudget, error)
	UpdateBudgetPlans(ctx context.Context, b *core.MonthlyBudget) error
	// UpdateBudgetActuals persists recomputed actuals as one atomic
	// statement.
	UpdateBudgetActuals(ctx context.Context, userID, budgetID int64, income, expenses core.Money) error
	DeleteBudget(ctx context.Context, userID, id int64) error
}

// GoalStore persists savings goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, g *core.Goal) error
	GoalsByUser(ctx context.Context, userID int64) ([]core.Goal, error)
	GoalByID(ctx context.Context, userID, id int64) (*core.Goal, error)
	UpdateGoal(ctx context.Context, g *core.Goal) error
	DeleteGoal(ctx context.Context, userID, id int64) error
	// AddGoalFunds increments the stored current amount with a single
	// conditional UPDATE (current = current + delta), so two concurrent
	// calls never lose an update, and returns the updated goal.
	AddGoalFunds(ctx context.Context, userID, id, deltaCents int64) (*core.Goal, error)
}

// SubscriptionStore persists recurring obligations.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, s *core.Subscription) error
	SubscriptionsByUser(ctx context.Context, userID int64) ([]core.Subscription, error)
	UpdateSubscription(ctx context.Context, s *core.Subscription) error
	DeleteSubscription(ctx context.Context, userID, id int64) error
	// DueSubscriptions returns active subscriptions across all users whose
	// next billing date is at or before now.
	DueSubscriptions(ctx context.Context, now time.Time) ([]core.Subscription, error)
	AdvanceSubscription(ctx context.Context, id int64, next time.Time) error
}

// AccountStore persists bank account records.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *core.BankAccount) error
	AccountsByUser(ctx context.Context, userID int64) ([]core.BankAccount, error)
	UpdateAccount(ctx context.Context, a *core.BankAccount) error
	DeleteAccount(ctx context.Context, userID, id int64) error
}

// BillingStore records applied payment-processor events.
type BillingStore interface {
	// RecordBillingEvent inserts the event keyed by its processor event id.
	// It reports applied=false without error when the event was seen before,
	// which is what makes webhook application idempotent.
	RecordBillingEvent(ctx context.Context, ev core.BillingEvent) (applied bool, err error)
}

// Store is the full entity store surface.
type Store interface {
	UserStore
	SessionStore
	PasswordResetStore
	TransactionStore
	BudgetStore
	GoalStore
	SubscriptionStore
	AccountStore
	BillingStore

	Close() error
}
