package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
)

func seedUser(t *testing.T, store Store, email string) *core.User {
	t.Helper()
	u := &core.User{
		Email:        email,
		PasswordHash: "hash",
		Plan:         core.PlanFree,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	seedUser(t, store, "a@example.com")

	dup := &core.User{Email: "A@Example.com", PasswordHash: "hash"}
	if err := store.CreateUser(context.Background(), dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestVerifyUserClearsToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	u := &core.User{Email: "v@example.com", PasswordHash: "hash", VerifyToken: "tok-1"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	verified, err := store.VerifyUser(ctx, "tok-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified || verified.VerifyToken != "" {
		t.Fatalf("expected verified user with cleared token, got %+v", verified)
	}

	// Token is single use.
	if _, err := store.VerifyUser(ctx, "tok-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reuse, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "s@example.com")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := core.Session{Token: "sess-1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	if err := store.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := store.SessionByToken(ctx, "sess-1", now); err != nil {
		t.Fatalf("live session lookup: %v", err)
	}
	if _, err := store.SessionByToken(ctx, "sess-1", now.Add(2*time.Hour)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
	if _, err := store.SessionByToken(ctx, "unknown", now); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestConsumePasswordResetSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "r@example.com")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pr := core.PasswordReset{Token: "reset-1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	if err := store.CreatePasswordReset(ctx, pr); err != nil {
		t.Fatalf("create reset: %v", err)
	}

	userID, err := store.ConsumePasswordReset(ctx, "reset-1", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, userID)
	}
	if _, err := store.ConsumePasswordReset(ctx, "reset-1", now); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second consume, got %v", err)
	}
}

func TestTransactionOrderingAndWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "t@example.com")

	dates := []time.Time{
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		tx := &core.Transaction{
			UserID:   u.ID,
			Type:     core.Expense,
			Amount:   core.Money{Cents: 1000},
			Category: "food",
			Date:     d,
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	all, err := store.TransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Date.After(prev.Date) {
			t.Fatalf("transactions out of date order at %d", i)
		}
		if cur.Date.Equal(prev.Date) && cur.ID > prev.ID {
			t.Fatalf("same-date transactions out of id order at %d", i)
		}
	}

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	windowed, err := store.TransactionsInWindow(ctx, u.ID, from, to)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(windowed) != 3 {
		t.Fatalf("expected 3 June transactions, got %d", len(windowed))
	}
}

func TestTransactionOwnership(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com")
	other := seedUser(t, store, "other@example.com")

	tx := &core.Transaction{
		UserID:   owner.ID,
		Type:     core.Expense,
		Amount:   core.Money{Cents: 500},
		Category: "misc",
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.TransactionByID(ctx, other.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign read, got %v", err)
	}
	if err := store.DeleteTransaction(ctx, other.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	// The row is untouched.
	if _, err := store.TransactionByID(ctx, owner.ID, tx.ID); err != nil {
		t.Fatalf("owner read after foreign delete attempt: %v", err)
	}
}

func TestDueRecurringTransactions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "due@example.com")

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		recurring bool
		next      time.Time
		due       bool
	}{
		{true, now.AddDate(0, 0, -1), true},
		{true, now, true},
		{true, now.AddDate(0, 0, 1), false},
		{false, now.AddDate(0, 0, -1), false},
	}
	for i, c := range cases {
		tx := &core.Transaction{
			UserID:         u.ID,
			Type:           core.Expense,
			Amount:         core.Money{Cents: 100},
			Category:       "sub",
			Date:           now.AddDate(0, -1, 0),
			Recurring:      c.recurring,
			Frequency:      core.Monthly,
			NextOccurrence: c.next,
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("case %d: create: %v", i, err)
		}
	}

	due, err := store.DueRecurringTransactions(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due templates, got %d", len(due))
	}
}

func TestBudgetUniquePerMonth(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "b@example.com")

	b := &core.MonthlyBudget{UserID: u.ID, Month: "2024-06", PlannedIncome: core.Money{Cents: 100000}}
	if err := store.CreateBudget(ctx, b); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	dup := &core.MonthlyBudget{UserID: u.ID, Month: "2024-06"}
	if err := store.CreateBudget(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate month, got %v", err)
	}

	// A different user may hold the same month.
	other := seedUser(t, store, "b2@example.com")
	if err := store.CreateBudget(ctx, &core.MonthlyBudget{UserID: other.ID, Month: "2024-06"}); err != nil {
		t.Fatalf("other user same month: %v", err)
	}
}

func TestUpdateBudgetActuals(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "ba@example.com")

	b := &core.MonthlyBudget{UserID: u.ID, Month: "2024-06"}
	if err := store.CreateBudget(ctx, b); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	income := core.Money{Cents: 100000}
	expenses := core.Money{Cents: 40000}
	if err := store.UpdateBudgetActuals(ctx, u.ID, b.ID, income, expenses); err != nil {
		t.Fatalf("update actuals: %v", err)
	}

	got, err := store.BudgetByMonth(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.ActualIncome != income || got.ActualExpenses != expenses {
		t.Fatalf("actuals not persisted: %+v", got)
	}

	if err := store.UpdateBudgetActuals(ctx, u.ID+999, b.ID, income, expenses); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
}

func TestAddGoalFunds(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "g@example.com")

	g := &core.Goal{UserID: u.ID, Name: "vacation", TargetAmount: core.Money{Cents: 50000}}
	if err := store.CreateGoal(ctx, g); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if _, err := store.AddGoalFunds(ctx, u.ID, g.ID, 10000); err != nil {
		t.Fatalf("first add: %v", err)
	}
	got, err := store.AddGoalFunds(ctx, u.ID, g.ID, 5000)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if got.CurrentAmount.Cents != 15000 {
		t.Fatalf("expected 15000 cents, got %d", got.CurrentAmount.Cents)
	}

	if _, err := store.AddGoalFunds(ctx, u.ID+999, g.ID, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign add, got %v", err)
	}
}

func TestDueSubscriptionsSkipsInactive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "sub@example.com")

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	active := &core.Subscription{
		UserID: u.ID, Name: "music", Amount: core.Money{Cents: 999},
		Cycle: core.Monthly, NextBilling: now.AddDate(0, 0, -1), Active: true,
	}
	inactive := &core.Subscription{
		UserID: u.ID, Name: "old tv", Amount: core.Money{Cents: 1999},
		Cycle: core.Monthly, NextBilling: now.AddDate(0, 0, -1), Active: false,
	}
	for _, s := range []*core.Subscription{active, inactive} {
		if err := store.CreateSubscription(ctx, s); err != nil {
			t.Fatalf("create subscription: %v", err)
		}
	}

	due, err := store.DueSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].Name != "music" {
		t.Fatalf("expected only the active subscription due, got %+v", due)
	}
}

func TestRecordBillingEventIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "bill@example.com")

	ev := core.BillingEvent{EventID: "evt-1", UserID: u.ID, Plan: core.PlanPro}
	applied, err := store.RecordBillingEvent(ctx, ev)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !applied {
		t.Fatal("expected first event to apply")
	}

	applied, err = store.RecordBillingEvent(ctx, ev)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate event to be a no-op")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "cloud"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	store, err := Open(context.Background(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("open memory backend: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}
