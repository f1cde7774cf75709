package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"finledger/internal/core"
)

// PostgresRepository implements Store on a Postgres connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to connURL, applies pending migrations and
// returns a pooled repository.
func NewPostgresRepository(ctx context.Context, connURL string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Migrations run over a stdlib connection borrowed from the same config.
	migrateDB := stdlib.OpenDB(*cfg.ConnConfig)
	defer migrateDB.Close()
	if err := runPostgresMigrations(migrateDB); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func pgIsUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func pgNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// --- users ---

func (r *PostgresRepository) CreateUser(ctx context.Context, u *core.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, plan, currency, locale, theme, date_format, verified, verify_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		strings.ToLower(u.Email), u.PasswordHash, string(u.Plan),
		u.Preferences.Currency, u.Preferences.Locale, u.Preferences.Theme, u.Preferences.DateFormat,
		u.Verified, u.VerifyToken).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pgIsUnique(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUserRow(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Plan,
		&u.Preferences.Currency, &u.Preferences.Locale, &u.Preferences.Theme, &u.Preferences.DateFormat,
		&u.Verified, &u.VerifyToken, &u.CreatedAt)
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) UserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUserRow(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.scanUserRow(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (r *PostgresRepository) UpdatePreferences(ctx context.Context, userID int64, p core.Preferences) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET currency = $1, locale = $2, theme = $3, date_format = $4 WHERE id = $5`,
		p.Currency, p.Locale, p.Theme, p.DateFormat, userID)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) VerifyUser(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrNotFound
	}
	return r.scanUserRow(r.pool.QueryRow(ctx, `
		UPDATE users SET verified = TRUE, verify_token = ''
		WHERE verify_token = $1
		RETURNING `+userColumns, token))
}

func (r *PostgresRepository) UpdatePlan(ctx context.Context, userID int64, plan core.Plan) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET plan = $1 WHERE id = $2`, string(plan), userID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return requireTag(tag)
}

func requireTag(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- sessions ---

func (r *PostgresRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		s.Token, s.UserID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SessionByToken(ctx context.Context, token string, now time.Time) (*core.Session, error) {
	var s core.Session
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id, expires_at FROM sessions WHERE token = $1 AND expires_at > $2`, token, now).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// --- password resets ---

func (r *PostgresRepository) CreatePasswordReset(ctx context.Context, pr core.PasswordReset) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at, used) VALUES ($1, $2, $3, FALSE)`,
		pr.Token, pr.UserID, pr.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ConsumePasswordReset(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `
		UPDATE password_resets SET used = TRUE
		WHERE token = $1 AND used = FALSE AND expires_at > $2
		RETURNING user_id`, token, now).Scan(&userID)
	if err != nil {
		if pgNotFound(err) {
			return 0, core.ErrNotFound
		}
		return 0, fmt.Errorf("consume password reset: %w", err)
	}
	return userID, nil
}

// --- transactions ---

func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, amount_cents, category, description, date, recurring, frequency, next_occurrence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Category, t.Description, t.Date,
		t.Recurring, string(t.Frequency), pgNullTime(t.NextOccurrence)).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func pgNullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func pgScanTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	var next *time.Time
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description,
		&t.Date, &t.Recurring, &t.Frequency, &next)
	if err != nil {
		return t, err
	}
	if next != nil {
		t.NextOccurrence = *next
	}
	return t, nil
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := pgScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
}

func (r *PostgresRepository) TransactionsInWindow(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date DESC, id DESC`,
		userID, from, to)
}

func (r *PostgresRepository) TransactionByID(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	t, err := pgScanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET type = $1, amount_cents = $2, category = $3, description = $4, date = $5, recurring = $6, frequency = $7, next_occurrence = $8
		WHERE id = $9 AND user_id = $10`,
		string(t.Type), t.Amount.Cents, t.Category, t.Description, t.Date,
		t.Recurring, string(t.Frequency), pgNullTime(t.NextOccurrence), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DueRecurringTransactions(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE recurring AND next_occurrence IS NOT NULL AND next_occurrence <= $1 ORDER BY id`,
		now)
}

func (r *PostgresRepository) AdvanceRecurrence(ctx context.Context, id int64, next time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET next_occurrence = $1 WHERE id = $2`, next, id)
	if err != nil {
		return fmt.Errorf("advance recurrence: %w", err)
	}
	return requireTag(tag)
}

// --- budgets ---

func (r *PostgresRepository) CreateBudget(ctx context.Context, b *core.MonthlyBudget) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, month, planned_income_cents, planned_expenses_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		b.UserID, b.Month, b.PlannedIncome.Cents, b.PlannedExpenses.Cents).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if pgIsUnique(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func pgScanBudget(row pgx.Row) (*core.MonthlyBudget, error) {
	var b core.MonthlyBudget
	err := row.Scan(&b.ID, &b.UserID, &b.Month,
		&b.PlannedIncome.Cents, &b.PlannedExpenses.Cents,
		&b.ActualIncome.Cents, &b.ActualExpenses.Cents, &b.CreatedAt)
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	return &b, nil
}

func (r *PostgresRepository) BudgetByMonth(ctx context.Context, userID int64, month string) (*core.MonthlyBudget, error) {
	return pgScanBudget(r.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 AND month = $2`, userID, month))
}

func (r *PostgresRepository) BudgetsByUser(ctx context.Context, userID int64) ([]core.MonthlyBudget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		b, err := pgScanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateBudgetPlans(ctx context.Context, b *core.MonthlyBudget) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE budgets SET planned_income_cents = $1, planned_expenses_cents = $2 WHERE id = $3 AND user_id = $4`,
		b.PlannedIncome.Cents, b.PlannedExpenses.Cents, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget plans: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) UpdateBudgetActuals(ctx context.Context, userID, budgetID int64, income, expenses core.Money) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE budgets SET actual_income_cents = $1, actual_expenses_cents = $2 WHERE id = $3 AND user_id = $4`,
		income.Cents, expenses.Cents, budgetID, userID)
	if err != nil {
		return fmt.Errorf("update budget actuals: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireTag(tag)
}

// --- goals ---

func (r *PostgresRepository) CreateGoal(ctx context.Context, g *core.Goal) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO goals (user_id, name, target_cents, current_cents, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		g.UserID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, pgNullTime(g.Deadline)).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func pgScanGoal(row pgx.Row) (*core.Goal, error) {
	var g core.Goal
	var deadline *time.Time
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline, &g.CreatedAt)
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	if deadline != nil {
		g.Deadline = *deadline
	}
	return &g, nil
}

func (r *PostgresRepository) GoalsByUser(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := pgScanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GoalByID(ctx context.Context, userID, id int64) (*core.Goal, error) {
	return pgScanGoal(r.pool.QueryRow(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *PostgresRepository) UpdateGoal(ctx context.Context, g *core.Goal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE goals SET name = $1, target_cents = $2, deadline = $3 WHERE id = $4 AND user_id = $5`,
		g.Name, g.TargetAmount.Cents, pgNullTime(g.Deadline), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DeleteGoal(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) AddGoalFunds(ctx context.Context, userID, id, deltaCents int64) (*core.Goal, error) {
	return pgScanGoal(r.pool.QueryRow(ctx, `
		UPDATE goals SET current_cents = current_cents + $1
		WHERE id = $2 AND user_id = $3
		RETURNING `+goalColumns, deltaCents, id, userID))
}

// --- subscriptions ---

func (r *PostgresRepository) CreateSubscription(ctx context.Context, s *core.Subscription) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, name, amount_cents, cycle, next_billing, category, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		s.UserID, s.Name, s.Amount.Cents, string(s.Cycle), pgNullTime(s.NextBilling), s.Category, s.Active).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func pgScanSubscription(row pgx.Row) (*core.Subscription, error) {
	var s core.Subscription
	var next *time.Time
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Amount.Cents, &s.Cycle, &next, &s.Category, &s.Active, &s.CreatedAt)
	if err != nil {
		if pgNotFound(err) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	if next != nil {
		s.NextBilling = *next
	}
	return &s, nil
}

func (r *PostgresRepository) querySubscriptions(ctx context.Context, query string, args ...any) ([]core.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := pgScanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SubscriptionsByUser(ctx context.Context, userID int64) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *PostgresRepository) UpdateSubscription(ctx context.Context, s *core.Subscription) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET name = $1, amount_cents = $2, cycle = $3, next_billing = $4, category = $5, active = $6
		WHERE id = $7 AND user_id = $8`,
		s.Name, s.Amount.Cents, string(s.Cycle), pgNullTime(s.NextBilling), s.Category, s.Active, s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DeleteSubscription(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DueSubscriptions(ctx context.Context, now time.Time) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE active AND next_billing IS NOT NULL AND next_billing <= $1 ORDER BY id`,
		now)
}

func (r *PostgresRepository) AdvanceSubscription(ctx context.Context, id int64, next time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE subscriptions SET next_billing = $1 WHERE id = $2`, next, id)
	if err != nil {
		return fmt.Errorf("advance subscription: %w", err)
	}
	return requireTag(tag)
}

// --- bank accounts ---

func (r *PostgresRepository) CreateAccount(ctx context.Context, a *core.BankAccount) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (user_id, bank_name, account_type, balance_cents, last_four, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.UserID, a.BankName, a.AccountType, a.Balance.Cents, a.LastFour, a.Color).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AccountsByUser(ctx context.Context, userID int64) ([]core.BankAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = $1 ORDER BY id`, userID)
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

func (r *PostgresRepository) UpdateAccount(ctx context.Context, a *core.BankAccount) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bank_accounts SET bank_name = $1, account_type = $2, balance_cents = $3, last_four = $4, color = $5
		WHERE id = $6 AND user_id = $7`,
		a.BankName, a.AccountType, a.Balance.Cents, a.LastFour, a.Color, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireTag(tag)
}

func (r *PostgresRepository) DeleteAccount(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireTag(tag)
}

// --- billing events ---

func (r *PostgresRepository) RecordBillingEvent(ctx context.Context, ev core.BillingEvent) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO billing_events (event_id, user_id, plan) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.UserID, string(ev.Plan))
	if err != nil {
		return false, fmt.Errorf("insert billing event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
