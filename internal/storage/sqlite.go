package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finledger/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a local SQLite file. It is the default
// durable backend.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func sqliteIsUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, plan, currency, locale, theme, date_format, verified, verify_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(u.Email), u.PasswordHash, string(u.Plan),
		u.Preferences.Currency, u.Preferences.Locale, u.Preferences.Theme, u.Preferences.DateFormat,
		u.Verified, u.VerifyToken)
	if err != nil {
		if sqliteIsUnique(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	return r.db.QueryRowContext(ctx, `SELECT created_at FROM users WHERE id = ?`, id).Scan(&u.CreatedAt)
}

const userColumns = `id, email, password_hash, plan, currency, locale, theme, date_format, verified, verify_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Plan,
		&u.Preferences.Currency, &u.Preferences.Locale, &u.Preferences.Theme, &u.Preferences.DateFormat,
		&u.Verified, &u.VerifyToken, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (*core.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (r *SQLiteRepository) UpdatePreferences(ctx context.Context, userID int64, p core.Preferences) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET currency = ?, locale = ?, theme = ?, date_format = ? WHERE id = ?`,
		p.Currency, p.Locale, p.Theme, p.DateFormat, userID)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) VerifyUser(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrNotFound
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE verify_token = ?`, token))
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET verified = 1, verify_token = '' WHERE id = ?`, u.ID); err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}
	u.Verified = true
	u.VerifyToken = ""
	return u, nil
}

func (r *SQLiteRepository) UpdatePlan(ctx context.Context, userID int64, plan core.Plan) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET plan = ? WHERE id = ?`, string(plan), userID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- sessions ---

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionByToken(ctx context.Context, token string, now time.Time) (*core.Session, error) {
	var s core.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at FROM sessions WHERE token = ? AND expires_at > ?`, token, now).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// --- password resets ---

func (r *SQLiteRepository) CreatePasswordReset(ctx context.Context, pr core.PasswordReset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at, used) VALUES (?, ?, ?, 0)`,
		pr.Token, pr.UserID, pr.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ConsumePasswordReset(ctx context.Context, token string, now time.Time) (int64, error) {
	// Single conditional update so a token can never be consumed twice.
	res, err := r.db.ExecContext(ctx, `
		UPDATE password_resets SET used = 1 WHERE token = ? AND used = 0 AND expires_at > ?`, token, now)
	if err != nil {
		return 0, fmt.Errorf("consume password reset: %w", err)
	}
	if err := requireRow(res); err != nil {
		return 0, err
	}
	var userID int64
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM password_resets WHERE token = ?`, token).Scan(&userID); err != nil {
		return 0, fmt.Errorf("select password reset: %w", err)
	}
	return userID, nil
}

// --- transactions ---

const txColumns = `id, user_id, type, amount_cents, category, description, date, recurring, frequency, next_occurrence`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount_cents, category, description, date, recurring, frequency, next_occurrence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Category, t.Description, t.Date,
		t.Recurring, string(t.Frequency), nullTime(t.NextOccurrence))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	t.ID = id
	return nil
}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var next sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description,
		&t.Date, &t.Recurring, &t.Frequency, &next)
	if err != nil {
		return t, err
	}
	if next.Valid {
		t.NextOccurrence = next.Time
	}
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
}

func (r *SQLiteRepository) TransactionsInWindow(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, id DESC`,
		userID, from, to)
}

func (r *SQLiteRepository) TransactionByID(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount_cents = ?, category = ?, description = ?, date = ?, recurring = ?, frequency = ?, next_occurrence = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount.Cents, t.Category, t.Description, t.Date,
		t.Recurring, string(t.Frequency), nullTime(t.NextOccurrence), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DueRecurringTransactions(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE recurring = 1 AND next_occurrence IS NOT NULL AND next_occurrence <= ? ORDER BY id`,
		now)
}

func (r *SQLiteRepository) AdvanceRecurrence(ctx context.Context, id int64, next time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET next_occurrence = ? WHERE id = ?`, next, id)
	if err != nil {
		return fmt.Errorf("advance recurrence: %w", err)
	}
	return requireRow(res)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// --- budgets ---

const budgetColumns = `id, user_id, month, planned_income_cents, planned_expenses_cents, actual_income_cents, actual_expenses_cents, created_at`

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.MonthlyBudget) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, month, planned_income_cents, planned_expenses_cents)
		VALUES (?, ?, ?, ?)`,
		b.UserID, b.Month, b.PlannedIncome.Cents, b.PlannedExpenses.Cents)
	if err != nil {
		if sqliteIsUnique(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("budget id: %w", err)
	}
	b.ID = id
	return nil
}

func scanBudget(row interface{ Scan(...any) error }) (*core.MonthlyBudget, error) {
	var b core.MonthlyBudget
	err := row.Scan(&b.ID, &b.UserID, &b.Month,
		&b.PlannedIncome.Cents, &b.PlannedExpenses.Cents,
		&b.ActualIncome.Cents, &b.ActualExpenses.Cents, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	return &b, nil
}

func (r *SQLiteRepository) BudgetByMonth(ctx context.Context, userID int64, month string) (*core.MonthlyBudget, error) {
	return scanBudget(r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND month = ?`, userID, month))
}

func (r *SQLiteRepository) BudgetsByUser(ctx context.Context, userID int64) ([]core.MonthlyBudget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudgetPlans(ctx context.Context, b *core.MonthlyBudget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET planned_income_cents = ?, planned_expenses_cents = ? WHERE id = ? AND user_id = ?`,
		b.PlannedIncome.Cents, b.PlannedExpenses.Cents, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget plans: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) UpdateBudgetActuals(ctx context.Context, userID, budgetID int64, income, expenses core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET actual_income_cents = ?, actual_expenses_cents = ? WHERE id = ? AND user_id = ?`,
		income.Cents, expenses.Cents, budgetID, userID)
	if err != nil {
		return fmt.Errorf("update budget actuals: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

// --- goals ---

const goalColumns = `id, user_id, name, target_cents, current_cents, deadline, created_at`

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, name, target_cents, current_cents, deadline)
		VALUES (?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, nullTime(g.Deadline))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("goal id: %w", err)
	}
	g.ID = id
	return nil
}

func scanGoal(row interface{ Scan(...any) error }) (*core.Goal, error) {
	var g core.Goal
	var deadline sql.NullTime
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	if deadline.Valid {
		g.Deadline = deadline.Time
	}
	return &g, nil
}

func (r *SQLiteRepository) GoalsByUser(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GoalByID(ctx context.Context, userID, id int64) (*core.Goal, error) {
	return scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g *core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET name = ?, target_cents = ?, deadline = ? WHERE id = ? AND user_id = ?`,
		g.Name, g.TargetAmount.Cents, nullTime(g.Deadline), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) AddGoalFunds(ctx context.Context, userID, id, deltaCents int64) (*core.Goal, error) {
	// Atomic increment; a read-then-write here would race concurrent calls.
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET current_cents = current_cents + ? WHERE id = ? AND user_id = ?`,
		deltaCents, id, userID)
	if err != nil {
		return nil, fmt.Errorf("add goal funds: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return r.GoalByID(ctx, userID, id)
}

// --- subscriptions ---

const subColumns = `id, user_id, name, amount_cents, cycle, next_billing, category, active, created_at`

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s *core.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, name, amount_cents, cycle, next_billing, category, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Name, s.Amount.Cents, string(s.Cycle), nullTime(s.NextBilling), s.Category, s.Active)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("subscription id: %w", err)
	}
	s.ID = id
	return nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*core.Subscription, error) {
	var s core.Subscription
	var next sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Amount.Cents, &s.Cycle, &next, &s.Category, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	if next.Valid {
		s.NextBilling = next.Time
	}
	return &s, nil
}

func (r *SQLiteRepository) querySubscriptions(ctx context.Context, query string, args ...any) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SubscriptionsByUser(ctx context.Context, userID int64) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE user_id = ? ORDER BY id`, userID)
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s *core.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET name = ?, amount_cents = ?, cycle = ?, next_billing = ?, category = ?, active = ?
		WHERE id = ? AND user_id = ?`,
		s.Name, s.Amount.Cents, string(s.Cycle), nullTime(s.NextBilling), s.Category, s.Active, s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DueSubscriptions(ctx context.Context, now time.Time) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE active = 1 AND next_billing IS NOT NULL AND next_billing <= ? ORDER BY id`,
		now)
}

func (r *SQLiteRepository) AdvanceSubscription(ctx context.Context, id int64, next time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET next_billing = ? WHERE id = ?`, next, id)
	if err != nil {
		return fmt.Errorf("advance subscription: %w", err)
	}
	return requireRow(res)
}

// --- bank accounts ---

const accountColumns = `id, user_id, bank_name, account_type, balance_cents, last_four, color, created_at`

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.BankAccount) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_accounts (user_id, bank_name, account_type, balance_cents, last_four, color)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.BankName, a.AccountType, a.Balance.Cents, a.LastFour, a.Color)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	a.ID = id
	return nil
}

func (r *SQLiteRepository) AccountsByUser(ctx context.Context, userID int64) ([]core.BankAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var out []core.BankAccount
	for rows.Next() {
		var a core.BankAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.BankName, &a.AccountType, &a.Balance.Cents, &a.LastFour, &a.Color, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a *core.BankAccount) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bank_accounts SET bank_name = ?, account_type = ?, balance_cents = ?, last_four = ?, color = ?
		WHERE id = ? AND user_id = ?`,
		a.BankName, a.AccountType, a.Balance.Cents, a.LastFour, a.Color, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

// --- billing events ---

func (r *SQLiteRepository) RecordBillingEvent(ctx context.Context, ev core.BillingEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_events (event_id, user_id, plan) VALUES (?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.UserID, string(ev.Plan))
	if err != nil {
		return false, fmt.Errorf("insert billing event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("billing event rows: %w", err)
	}
	return n > 0, nil
}
