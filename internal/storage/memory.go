package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"finledger/internal/core"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the test suite
// and the dev "memory" backend, and mirrors the relational implementations'
// semantics exactly: ownership checks inside every mutation, uniqueness
// conflicts, atomic goal increments.
type MemoryStore struct {
	mu sync.Mutex

	nextID int64

	users         map[int64]core.User
	sessions      map[string]core.Session
	resets        map[string]core.PasswordReset
	transactions  map[int64]core.Transaction
	budgets       map[int64]core.MonthlyBudget
	goals         map[int64]core.Goal
	subscriptions map[int64]core.Subscription
	accounts      map[int64]core.BankAccount
	billingEvents map[string]core.BillingEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]core.User),
		sessions:      make(map[string]core.Session),
		resets:        make(map[string]core.PasswordReset),
		transactions:  make(map[int64]core.Transaction),
		budgets:       make(map[int64]core.MonthlyBudget),
		goals:         make(map[int64]core.Goal),
		subscriptions: make(map[int64]core.Subscription),
		accounts:      make(map[int64]core.BankAccount),
		billingEvents: make(map[string]core.BillingEvent),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) allocID() int64 {
	m.nextID++
	return m.nextID
}

// --- users ---

func (m *MemoryStore) CreateUser(_ context.Context, u *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range m.users {
		if strings.ToLower(existing.Email) == email {
			return core.ErrConflict
		}
	}
	u.ID = m.allocID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) UserByID(_ context.Context, id int64) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == email {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemoryStore) UpdatePreferences(_ context.Context, userID int64, p core.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.Preferences = p
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) VerifyUser(_ context.Context, token string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.VerifyToken != "" && u.VerifyToken == token {
			u.Verified = true
			u.VerifyToken = ""
			m.users[id] = u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemoryStore) UpdatePlan(_ context.Context, userID int64, plan core.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.Plan = plan
	m.users[userID] = u
	return nil
}

// --- sessions ---

func (m *MemoryStore) CreateSession(_ context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MemoryStore) SessionByToken(_ context.Context, token string, now time.Time) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || now.After(s.ExpiresAt) {
		return nil, core.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// --- password resets ---

func (m *MemoryStore) CreatePasswordReset(_ context.Context, pr core.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[pr.Token] = pr
	return nil
}

func (m *MemoryStore) ConsumePasswordReset(_ context.Context, token string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.resets[token]
	if !ok || pr.Used || now.After(pr.ExpiresAt) {
		return 0, core.ErrNotFound
	}
	pr.Used = true
	m.resets[token] = pr
	return pr.UserID, nil
}

// --- transactions ---

func (m *MemoryStore) CreateTransaction(_ context.Context, t *core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.allocID()
	m.transactions[t.ID] = *t
	return nil
}

func (m *MemoryStore) TransactionsByUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (m *MemoryStore) TransactionsInWindow(_ context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	sortTransactions(out)
	return out, nil
}

func (m *MemoryStore) TransactionByID(_ context.Context, userID, id int64) (*core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) UpdateTransaction(_ context.Context, t *core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.ErrNotFound
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *MemoryStore) DueRecurringTransactions(_ context.Context, now time.Time) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.Recurring && !t.NextOccurrence.IsZero() && !t.NextOccurrence.After(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AdvanceRecurrence(_ context.Context, id int64, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	t.NextOccurrence = next
	m.transactions[id] = t
	return nil
}

func sortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}

// --- budgets ---

func (m *MemoryStore) CreateBudget(_ context.Context, b *core.MonthlyBudget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.budgets {
		if existing.UserID == b.UserID && existing.Month == b.Month {
			return core.ErrConflict
		}
	}
	b.ID = m.allocID()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m.budgets[b.ID] = *b
	return nil
}

func (m *MemoryStore) BudgetByMonth(_ context.Context, userID int64, month string) (*core.MonthlyBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.budgets {
		if b.UserID == userID && b.Month == month {
			b := b
			return &b, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemoryStore) BudgetsByUser(_ context.Context, userID int64) ([]core.MonthlyBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.MonthlyBudget
	for _, b := range m.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (m *MemoryStore) UpdateBudgetPlans(_ context.Context, b *core.MonthlyBudget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.budgets[b.ID]
	if !ok || existing.UserID != b.UserID {
		return core.ErrNotFound
	}
	existing.PlannedIncome = b.PlannedIncome
	existing.PlannedExpenses = b.PlannedExpenses
	m.budgets[b.ID] = existing
	return nil
}

func (m *MemoryStore) UpdateBudgetActuals(_ context.Context, userID, budgetID int64, income, expenses core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[budgetID]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	b.ActualIncome = income
	b.ActualExpenses = expenses
	m.budgets[budgetID] = b
	return nil
}

func (m *MemoryStore) DeleteBudget(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.budgets, id)
	return nil
}

// --- goals ---

func (m *MemoryStore) CreateGoal(_ context.Context, g *core.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.allocID()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m.goals[g.ID] = *g
	return nil
}

func (m *MemoryStore) GoalsByUser(_ context.Context, userID int64) ([]core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Goal
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GoalByID(_ context.Context, userID, id int64) (*core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &g, nil
}

func (m *MemoryStore) UpdateGoal(_ context.Context, g *core.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.goals[g.ID]
	if !ok || existing.UserID != g.UserID {
		return core.ErrNotFound
	}
	existing.Name = g.Name
	existing.TargetAmount = g.TargetAmount
	existing.Deadline = g.Deadline
	m.goals[g.ID] = existing
	return nil
}

func (m *MemoryStore) DeleteGoal(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.goals, id)
	return nil
}

func (m *MemoryStore) AddGoalFunds(_ context.Context, userID, id, deltaCents int64) (*core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return nil, core.ErrNotFound
	}
	g.CurrentAmount = g.CurrentAmount.Add(core.Money{Cents: deltaCents})
	m.goals[id] = g
	return &g, nil
}

// --- subscriptions ---

func (m *MemoryStore) CreateSubscription(_ context.Context, s *core.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.allocID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.subscriptions[s.ID] = *s
	return nil
}

func (m *MemoryStore) SubscriptionsByUser(_ context.Context, userID int64) ([]core.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Subscription
	for _, s := range m.subscriptions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateSubscription(_ context.Context, s *core.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.subscriptions[s.ID]
	if !ok || existing.UserID != s.UserID {
		return core.ErrNotFound
	}
	m.subscriptions[s.ID] = *s
	return nil
}

func (m *MemoryStore) DeleteSubscription(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok || s.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.subscriptions, id)
	return nil
}

func (m *MemoryStore) DueSubscriptions(_ context.Context, now time.Time) ([]core.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Subscription
	for _, s := range m.subscriptions {
		if s.Active && !s.NextBilling.IsZero() && !s.NextBilling.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AdvanceSubscription(_ context.Context, id int64, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return core.ErrNotFound
	}
	s.NextBilling = next
	m.subscriptions[id] = s
	return nil
}

// --- bank accounts ---

func (m *MemoryStore) CreateAccount(_ context.Context, a *core.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.allocID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) AccountsByUser(_ context.Context, userID int64) ([]core.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.BankAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateAccount(_ context.Context, a *core.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.accounts[a.ID]
	if !ok || existing.UserID != a.UserID {
		return core.ErrNotFound
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) DeleteAccount(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

// --- billing events ---

func (m *MemoryStore) RecordBillingEvent(_ context.Context, ev core.BillingEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.billingEvents[ev.EventID]; seen {
		return false, nil
	}
	if ev.AppliedAt.IsZero() {
		ev.AppliedAt = time.Now().UTC()
	}
	m.billingEvents[ev.EventID] = ev
	return true, nil
}
