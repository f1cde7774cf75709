package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

func seedUser(t *testing.T, store storage.Store, email string) *core.User {
	t.Helper()
	u := &core.User{Email: email, PasswordHash: "hash", Plan: core.PlanFree}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func mustCreateTx(t *testing.T, svc *TransactionService, userID int64, typ core.TransactionType, cents int64, category string, date time.Time) *core.Transaction {
	t.Helper()
	tx, err := svc.Create(context.Background(), &core.Transaction{
		UserID:   userID,
		Type:     typ,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     date,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestBudgetReconciliation(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	txSvc := NewTransactionService(store, nil, logger)
	budgetSvc := NewBudgetService(store, logger)
	ctx := context.Background()

	u := seedUser(t, store, "budget@example.com")
	if _, err := budgetSvc.Create(ctx, &core.MonthlyBudget{
		UserID:          u.ID,
		Month:           "2024-06",
		PlannedIncome:   core.Money{Cents: 120000},
		PlannedExpenses: core.Money{Cents: 50000},
	}); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	june := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	mustCreateTx(t, txSvc, u.ID, core.Income, 100000, "salary", june)
	mustCreateTx(t, txSvc, u.ID, core.Expense, 40000, "rent", june)
	// Outside the window, must not count.
	mustCreateTx(t, txSvc, u.ID, core.Expense, 9999, "rent", june.AddDate(0, 1, 0))

	b, err := budgetSvc.Fetch(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if b == nil {
		t.Fatal("expected a budget")
	}
	if b.ActualIncome.Cents != 100000 || b.ActualExpenses.Cents != 40000 {
		t.Fatalf("actuals = %d/%d, want 100000/40000", b.ActualIncome.Cents, b.ActualExpenses.Cents)
	}

	// Reconciliation is idempotent: fetching again with no ledger change
	// yields identical figures.
	again, err := budgetSvc.Fetch(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if *again != *b {
		t.Fatalf("second fetch changed the budget: %+v vs %+v", again, b)
	}

	// Persisted, not just returned.
	stored, err := store.BudgetByMonth(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("read stored: %v", err)
	}
	if stored.ActualIncome.Cents != 100000 || stored.ActualExpenses.Cents != 40000 {
		t.Fatalf("actuals not persisted: %+v", stored)
	}
}

func TestBudgetFetchAbsentMonth(t *testing.T) {
	store := storage.NewMemoryStore()
	budgetSvc := NewBudgetService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "none@example.com")

	b, err := budgetSvc.Fetch(ctx, u.ID, "2024-01")
	if err != nil {
		t.Fatalf("fetch absent month: %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil budget, got %+v", b)
	}

	if _, err := budgetSvc.Fetch(ctx, u.ID, "June 2024"); !core.IsValidation(err) {
		t.Fatalf("expected validation error for malformed month, got %v", err)
	}
}

func TestBudgetListReconcilesEveryMonth(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	txSvc := NewTransactionService(store, nil, logger)
	budgetSvc := NewBudgetService(store, logger)
	ctx := context.Background()
	u := seedUser(t, store, "list@example.com")

	for _, month := range []string{"2024-05", "2024-06"} {
		if _, err := budgetSvc.Create(ctx, &core.MonthlyBudget{
			UserID:          u.ID,
			Month:           month,
			PlannedIncome:   core.Money{Cents: 100000},
			PlannedExpenses: core.Money{Cents: 50000},
		}); err != nil {
			t.Fatalf("create budget %s: %v", month, err)
		}
	}
	mustCreateTx(t, txSvc, u.ID, core.Expense, 11100, "rent", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	mustCreateTx(t, txSvc, u.ID, core.Expense, 22200, "rent", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))

	budgets, err := budgetSvc.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(budgets) != 2 {
		t.Fatalf("got %d budgets, want 2", len(budgets))
	}
	byMonth := map[string]int64{}
	for _, b := range budgets {
		byMonth[b.Month] = b.ActualExpenses.Cents
	}
	if byMonth["2024-05"] != 11100 || byMonth["2024-06"] != 22200 {
		t.Fatalf("actuals per month = %v", byMonth)
	}
}

func TestGoalProgressOnEmptyLedger(t *testing.T) {
	store := storage.NewMemoryStore()
	goalSvc := NewGoalService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "goal@example.com")

	g, err := goalSvc.Create(ctx, &core.Goal{
		UserID:       u.ID,
		Name:         "emergency fund",
		TargetAmount: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if g.Progress.Percent != 0 {
		t.Fatalf("percent = %v, want 0", g.Progress.Percent)
	}
	if g.Progress.Remaining.Cents != 50000 {
		t.Fatalf("remaining = %d, want 50000", g.Progress.Remaining.Cents)
	}
	if g.Progress.DaysLeft != nil {
		t.Fatal("no deadline means no days left")
	}
}

func TestGoalProgressSharesBalance(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	txSvc := NewTransactionService(store, nil, logger)
	goalSvc := NewGoalService(store, logger)
	ctx := context.Background()
	u := seedUser(t, store, "share@example.com")

	mustCreateTx(t, txSvc, u.ID, core.Income, 30000, "salary", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	for _, name := range []string{"first", "second"} {
		if _, err := goalSvc.Create(ctx, &core.Goal{
			UserID:       u.ID,
			Name:         name,
			TargetAmount: core.Money{Cents: 30000},
		}); err != nil {
			t.Fatalf("create goal %s: %v", name, err)
		}
	}

	goals, err := goalSvc.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
	// Both goals measure against the same global balance.
	for _, g := range goals {
		if g.Progress.Percent != 100 {
			t.Fatalf("goal %s percent = %v, want 100", g.Name, g.Progress.Percent)
		}
	}
}

func TestGoalAddFundsValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	goalSvc := NewGoalService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "funds@example.com")

	g, err := goalSvc.Create(ctx, &core.Goal{UserID: u.ID, Name: "g", TargetAmount: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := goalSvc.AddFunds(ctx, u.ID, g.ID, core.Money{Cents: 0}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if _, err := goalSvc.AddFunds(ctx, u.ID, g.ID, core.Money{Cents: -100}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}

	updated, err := goalSvc.AddFunds(ctx, u.ID, g.ID, core.Money{Cents: 250})
	if err != nil {
		t.Fatalf("add funds: %v", err)
	}
	if updated.CurrentAmount.Cents != 250 {
		t.Fatalf("current = %d, want 250", updated.CurrentAmount.Cents)
	}
}

func TestSubscriptionMonthlyCost(t *testing.T) {
	store := storage.NewMemoryStore()
	subSvc := NewSubscriptionService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "subs@example.com")

	// 120.00/year -> 10.00/month, 10.00/week -> 40.00/month.
	subs := []core.Subscription{
		{UserID: u.ID, Name: "cloud", Amount: core.Money{Cents: 12000}, Cycle: core.Yearly, Active: true},
		{UserID: u.ID, Name: "gym", Amount: core.Money{Cents: 1000}, Cycle: core.Weekly, Active: true},
		{UserID: u.ID, Name: "old tv", Amount: core.Money{Cents: 99900}, Cycle: core.Monthly, Active: false},
	}
	for i := range subs {
		if _, err := subSvc.Create(ctx, &subs[i]); err != nil {
			t.Fatalf("create subscription %d: %v", i, err)
		}
	}

	cost, err := subSvc.MonthlyCost(ctx, u.ID)
	if err != nil {
		t.Fatalf("monthly cost: %v", err)
	}
	if cost.Cents != 5000 {
		t.Fatalf("monthly cost = %d cents, want 5000", cost.Cents)
	}
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	txSvc := NewTransactionService(store, nil, logger)
	goalSvc := NewGoalService(store, logger)
	ctx := context.Background()

	owner := seedUser(t, store, "own@example.com")
	intruder := seedUser(t, store, "intrude@example.com")

	tx := mustCreateTx(t, txSvc, owner.ID, core.Expense, 500, "misc", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	g, err := goalSvc.Create(ctx, &core.Goal{UserID: owner.ID, Name: "g", TargetAmount: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if err := txSvc.Delete(ctx, intruder.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign tx delete: got %v, want ErrNotFound", err)
	}
	if _, err := goalSvc.Get(ctx, intruder.ID, g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign goal read: got %v, want ErrNotFound", err)
	}
	if err := goalSvc.Delete(ctx, intruder.ID, g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign goal delete: got %v, want ErrNotFound", err)
	}

	// Rows survive the attempts.
	if _, err := txSvc.Get(ctx, owner.ID, tx.ID); err != nil {
		t.Fatalf("owner tx read: %v", err)
	}
	if _, err := goalSvc.Get(ctx, owner.ID, g.ID); err != nil {
		t.Fatalf("owner goal read: %v", err)
	}
}

func TestReportSummaryAndBreakdown(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	reportSvc := NewReportService(store, nil, logger)
	txSvc := NewTransactionService(store, reportSvc, logger)
	ctx := context.Background()
	u := seedUser(t, store, "report@example.com")

	june := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	mustCreateTx(t, txSvc, u.ID, core.Income, 100000, "salary", june)
	mustCreateTx(t, txSvc, u.ID, core.Expense, 30000, "rent", june)
	mustCreateTx(t, txSvc, u.ID, core.Expense, 10000, "food", june)
	mustCreateTx(t, txSvc, u.ID, core.Expense, 10000, "car", june)

	sum, err := reportSvc.MonthlySummary(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Income.Cents != 100000 || sum.Expenses.Cents != 50000 || sum.Net.Cents != 50000 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.SavingsRate != 50 {
		t.Fatalf("savings rate = %v, want 50", sum.SavingsRate)
	}

	shares, err := reportSvc.CategoryBreakdown(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(shares))
	}
	if shares[0].Category != "rent" {
		t.Fatalf("largest category = %s, want rent", shares[0].Category)
	}
	// Equal amounts tie-break by name.
	if shares[1].Category != "car" || shares[2].Category != "food" {
		t.Fatalf("tie order wrong: %s, %s", shares[1].Category, shares[2].Category)
	}
	var total int64
	for _, sh := range shares {
		total += sh.Amount.Cents
	}
	if total != 50000 {
		t.Fatalf("shares sum to %d, want 50000", total)
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	reportSvc := NewReportService(store, nil, logger)
	txSvc := NewTransactionService(store, reportSvc, logger)
	ctx := context.Background()
	u := seedUser(t, store, "cache@example.com")

	june := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	mustCreateTx(t, txSvc, u.ID, core.Income, 10000, "salary", june)

	first, err := reportSvc.MonthlySummary(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if first.Income.Cents != 10000 {
		t.Fatalf("income = %d", first.Income.Cents)
	}

	// A write must drop the cached value.
	mustCreateTx(t, txSvc, u.ID, core.Income, 5000, "bonus", june)

	second, err := reportSvc.MonthlySummary(ctx, u.ID, "2024-06")
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if second.Income.Cents != 15000 {
		t.Fatalf("stale summary after write: income = %d, want 15000", second.Income.Cents)
	}
}

func TestReportTrendZeroFills(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	reportSvc := NewReportService(store, nil, logger)
	reportSvc.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	txSvc := NewTransactionService(store, reportSvc, logger)
	ctx := context.Background()
	u := seedUser(t, store, "trend@example.com")

	mustCreateTx(t, txSvc, u.ID, core.Income, 10000, "salary", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	buckets, err := reportSvc.Trend(ctx, u.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(buckets) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(buckets))
	}
	if buckets[0].Month != time.January || buckets[5].Month != time.June {
		t.Fatalf("window = %v..%v, want Jan..Jun", buckets[0].Month, buckets[5].Month)
	}
	for _, b := range buckets {
		if b.Month == time.April {
			if b.Income.Cents != 10000 {
				t.Fatalf("April income = %d", b.Income.Cents)
			}
			continue
		}
		if b.Income.Cents != 0 || b.Expenses.Cents != 0 {
			t.Fatalf("month %v should be zero-filled: %+v", b.Month, b)
		}
	}
}

func TestBillingApplyIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	billingSvc := NewBillingService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "bill@example.com")

	applied, err := billingSvc.Apply(ctx, "evt-1", "bill@example.com", core.PlanPro)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !applied {
		t.Fatal("first delivery should apply")
	}

	got, err := store.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
	if got.Plan != core.PlanPro {
		t.Fatalf("plan = %s, want pro", got.Plan)
	}

	// Redelivery is a no-op even with a different plan in the payload.
	applied, err = billingSvc.Apply(ctx, "evt-1", "bill@example.com", core.PlanBusiness)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if applied {
		t.Fatal("redelivery must not apply")
	}
	got, _ = store.UserByID(ctx, u.ID)
	if got.Plan != core.PlanPro {
		t.Fatalf("plan changed on redelivery: %s", got.Plan)
	}
}

func TestBillingApplyUnknownUser(t *testing.T) {
	store := storage.NewMemoryStore()
	billingSvc := NewBillingService(store, testLogger())

	if _, err := billingSvc.Apply(context.Background(), "evt-x", "nobody@example.com", core.PlanPro); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBillingApplyNormalizesEmail(t *testing.T) {
	store := storage.NewMemoryStore()
	billingSvc := NewBillingService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "bill@example.com")

	// Processors are sloppy about casing and whitespace.
	applied, err := billingSvc.Apply(ctx, "evt-2", "  Bill@Example.COM ", core.PlanBusiness)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("delivery should apply")
	}
	got, err := store.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
	if got.Plan != core.PlanBusiness {
		t.Fatalf("plan = %s, want business", got.Plan)
	}
}

func TestRecurringProcessorCatchesUp(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := testLogger()
	proc := NewRecurringProcessor(store, nil, logger)
	ctx := context.Background()
	u := seedUser(t, store, "recur@example.com")

	// Template three weeks overdue: expect three materialized entries.
	tmpl := &core.Transaction{
		UserID:         u.ID,
		Type:           core.Expense,
		Amount:         core.Money{Cents: 1500},
		Category:       "subscriptions",
		Date:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Recurring:      true,
		Frequency:      core.Weekly,
		NextOccurrence: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CreateTransaction(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if err := proc.ProcessDue(ctx, now); err != nil {
		t.Fatalf("process: %v", err)
	}

	all, err := store.TransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var concrete []core.Transaction
	for _, tx := range all {
		if !tx.Recurring {
			concrete = append(concrete, tx)
		}
	}
	if len(concrete) != 3 {
		t.Fatalf("expected 3 materialized entries (Jun 1, 8, 15), got %d", len(concrete))
	}

	updated, err := store.TransactionByID(ctx, u.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	want := time.Date(2024, 6, 22, 0, 0, 0, 0, time.UTC)
	if !updated.NextOccurrence.Equal(want) {
		t.Fatalf("next occurrence = %v, want %v", updated.NextOccurrence, want)
	}

	// A second pass at the same time creates nothing new.
	if err := proc.ProcessDue(ctx, now); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	all, _ = store.TransactionsByUser(ctx, u.ID)
	if len(all) != 4 {
		t.Fatalf("second pass changed the ledger: %d entries", len(all))
	}
}

func TestRecurringProcessorAdvancesSubscriptions(t *testing.T) {
	store := storage.NewMemoryStore()
	proc := NewRecurringProcessor(store, nil, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "subadv@example.com")

	sub := &core.Subscription{
		UserID:      u.ID,
		Name:        "music",
		Amount:      core.Money{Cents: 999},
		Cycle:       core.Monthly,
		NextBilling: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
	if err := store.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if err := proc.ProcessDue(ctx, now); err != nil {
		t.Fatalf("process: %v", err)
	}

	subs, _ := store.SubscriptionsByUser(ctx, u.ID)
	want := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
	if !subs[0].NextBilling.Equal(want) {
		t.Fatalf("next billing = %v, want %v", subs[0].NextBilling, want)
	}

	// Subscriptions never touch the ledger.
	txs, _ := store.TransactionsByUser(ctx, u.ID)
	if len(txs) != 0 {
		t.Fatalf("subscription advance wrote %d ledger entries", len(txs))
	}
}

func TestAdvanceCycle(t *testing.T) {
	base := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		cycle core.BillingCycle
		want  time.Time
	}{
		{core.Weekly, time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)},
		{core.Monthly, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, // Jan 31 + 1 month normalizes past Feb
		{core.Yearly, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for i, c := range cases {
		if got := AdvanceCycle(base, c.cycle); !got.Equal(c.want) {
			t.Fatalf("case %d: AdvanceCycle(%v) = %v, want %v", i, c.cycle, got, c.want)
		}
	}
}

func TestUserPreferencesValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	userSvc := NewUserService(store, testLogger())
	ctx := context.Background()
	u := seedUser(t, store, "prefs@example.com")

	cases := []struct {
		name  string
		prefs core.Preferences
		ok    bool
	}{
		{"valid", core.Preferences{Currency: "EUR", Locale: "it", Theme: "dark", DateFormat: "DD/MM/YYYY"}, true},
		{"empty currency", core.Preferences{Currency: "", Theme: "light"}, false},
		{"bad theme", core.Preferences{Currency: "USD", Theme: "solarized"}, false},
	}
	for _, c := range cases {
		_, err := userSvc.UpdatePreferences(ctx, u.ID, c.prefs)
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !core.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", c.name, err)
		}
	}

	got, err := userSvc.Profile(ctx, u.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got.Preferences.Currency != "EUR" || got.Preferences.Theme != "dark" {
		t.Fatalf("preferences not persisted: %+v", got.Preferences)
	}
}

func TestReportCachesRegisterWithManager(t *testing.T) {
	manager := cache.NewManager()
	NewReportService(storage.NewMemoryStore(), manager, testLogger())
	manager.StartCleanup(10 * time.Millisecond)
	manager.Stop()
}
