package core

import (
	"strings"
	"time"
)

// TransactionType distinguishes income from expenses. Input is accepted
// case-insensitively and stored lowercase; the sign of an amount is derived
// from the type at read time, never stored negative.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// ParseTransactionType normalizes a user-supplied type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", Invalidf("type", "must be income or expense")
	}
}

// BillingCycle is the repetition period of a subscription or a recurring
// transaction template.
type BillingCycle string

const (
	Weekly  BillingCycle = "weekly"
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// ParseBillingCycle normalizes a user-supplied cycle string.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", Invalidf("cycle", "must be weekly, monthly or yearly")
	}
}

// Plan is a subscription tier reported by the payment processor.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// ParsePlan normalizes a plan string.
func ParsePlan(s string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanFree:
		return PlanFree, nil
	case PlanPro:
		return PlanPro, nil
	case PlanBusiness:
		return PlanBusiness, nil
	default:
		return "", Invalidf("plan", "must be free, pro or business")
	}
}

// Preferences are per-user display settings persisted on the user record.
type Preferences struct {
	Currency   string `json:"currency"`
	Locale     string `json:"locale"`
	Theme      string `json:"theme"`
	DateFormat string `json:"date_format"`
}

// User is the sole aggregate root; every other entity belongs to exactly one
// user.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Plan         Plan        `json:"plan"`
	Preferences  Preferences `json:"preferences"`
	Verified     bool        `json:"verified"`
	VerifyToken  string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Transaction is a single ledger entry. Amount is a positive magnitude.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      Money           `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`

	// Recurring templates carry a cycle and the date of the next
	// materialization; both are zero for one-off entries.
	Recurring      bool         `json:"recurring"`
	Frequency      BillingCycle `json:"frequency,omitempty"`
	NextOccurrence time.Time    `json:"next_occurrence,omitempty"`
}

// Validate checks a transaction before it is written.
func (t Transaction) Validate() error {
	if t.Type != Income && t.Type != Expense {
		return Invalidf("type", "must be income or expense")
	}
	if t.Amount.Cents <= 0 {
		return Invalidf("amount", "must be a positive amount")
	}
	if strings.TrimSpace(t.Category) == "" {
		return Invalidf("category", "must not be empty")
	}
	if len(t.Description) > 200 {
		return Invalidf("description", "too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return Invalidf("date", "must be set")
	}
	if t.Recurring {
		if _, err := ParseBillingCycle(string(t.Frequency)); err != nil {
			return Invalidf("frequency", "required for recurring transactions")
		}
		if t.NextOccurrence.IsZero() {
			return Invalidf("next_occurrence", "required for recurring transactions")
		}
	}
	return nil
}

// MonthlyBudget holds user-entered planned figures and derived actuals for a
// single calendar month. Actuals are rewritten from the transaction ledger on
// every fetch, so they are never stale at the point of read.
type MonthlyBudget struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Month           string    `json:"month"` // YYYY-MM, unique per user
	PlannedIncome   Money     `json:"planned_income"`
	PlannedExpenses Money     `json:"planned_expenses"`
	ActualIncome    Money     `json:"actual_income"`
	ActualExpenses  Money     `json:"actual_expenses"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks a budget before it is written.
func (b MonthlyBudget) Validate() error {
	if _, _, err := MonthWindow(b.Month); err != nil {
		return err
	}
	if b.PlannedIncome.IsNegative() {
		return Invalidf("planned_income", "must not be negative")
	}
	if b.PlannedExpenses.IsNegative() {
		return Invalidf("planned_expenses", "must not be negative")
	}
	return nil
}

// MonthWindow resolves a YYYY-MM key to the inclusive window
// [first day 00:00:00, last day 23:59:59] in UTC.
func MonthWindow(month string) (start, end time.Time, err error) {
	t, perr := time.Parse("2006-01", month)
	if perr != nil {
		return time.Time{}, time.Time{}, Invalidf("month", "must be YYYY-MM")
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, nil
}

// MonthKey formats a timestamp as its YYYY-MM budget key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Goal is a savings target. CurrentAmount only changes through explicit
// add-funds mutations; displayed progress is measured against the user's
// global available balance instead (see Progress).
type Goal struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	TargetAmount  Money     `json:"target_amount"`
	CurrentAmount Money     `json:"current_amount"`
	Deadline      time.Time `json:"deadline,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks a goal before it is written. A non-positive target is
// undefined input for progress and is rejected here.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Invalidf("name", "must not be empty")
	}
	if g.TargetAmount.Cents <= 0 {
		return Invalidf("target_amount", "must be a positive amount")
	}
	return nil
}

// Subscription is a recurring obligation tracked for its normalized monthly
// cost. It never feeds budget actuals or goal progress.
type Subscription struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Name        string       `json:"name"`
	Amount      Money        `json:"amount"`
	Cycle       BillingCycle `json:"cycle"`
	NextBilling time.Time    `json:"next_billing"`
	Category    string       `json:"category"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Validate checks a subscription before it is written.
func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Invalidf("name", "must not be empty")
	}
	if s.Amount.Cents <= 0 {
		return Invalidf("amount", "must be a positive amount")
	}
	if _, err := ParseBillingCycle(string(s.Cycle)); err != nil {
		return err
	}
	return nil
}

// BankAccount is a user-entered record of an external account. Its balance is
// informational and never reconciled against the transaction ledger.
type BankAccount struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	BankName    string    `json:"bank_name"`
	AccountType string    `json:"account_type"`
	Balance     Money     `json:"balance"`
	LastFour    string    `json:"last_four"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks a bank account before it is written.
func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.BankName) == "" {
		return Invalidf("bank_name", "must not be empty")
	}
	if a.LastFour != "" && len(a.LastFour) != 4 {
		return Invalidf("last_four", "must be exactly 4 digits")
	}
	return nil
}

// Session is an opaque bearer token bound to a user.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// BillingEvent records an applied payment-processor event. The unique event
// id makes webhook application idempotent.
type BillingEvent struct {
	EventID   string
	UserID    int64
	Plan      Plan
	AppliedAt time.Time
}

// PasswordReset is a single-use reset token.
type PasswordReset struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Used      bool
}
