package core

import (
	"testing"
	"time"
)

func TestProgressClamped(t *testing.T) {
	g := Goal{TargetAmount: Money{Cents: 50000}}
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		available     int64
		wantPercent   float64
		wantRemaining int64
	}{
		{0, 0, 50000},
		{25000, 50, 25000},
		{50000, 100, 0},
		{999999, 100, 0},  // clamped high
		{-10000, 0, 60000}, // clamped low, remaining grows past target
	}
	for i, tc := range cases {
		p := Progress(g, Money{Cents: tc.available}, now)
		if p.Percent != tc.wantPercent {
			t.Fatalf("case %d expected percent %f, got %f", i, tc.wantPercent, p.Percent)
		}
		if p.Remaining.Cents != tc.wantRemaining {
			t.Fatalf("case %d expected remaining %d, got %d", i, tc.wantRemaining, p.Remaining.Cents)
		}
	}
}

func TestProgressMonotone(t *testing.T) {
	g := Goal{TargetAmount: Money{Cents: 33300}}
	now := time.Now()
	prev := -1.0
	for cents := int64(0); cents <= 40000; cents += 1000 {
		p := Progress(g, Money{Cents: cents}, now)
		if p.Percent < prev {
			t.Fatalf("progress decreased at %d cents: %f < %f", cents, p.Percent, prev)
		}
		if p.Percent < 0 || p.Percent > 100 {
			t.Fatalf("progress out of bounds at %d cents: %f", cents, p.Percent)
		}
		prev = p.Percent
	}
}

func TestProgressDaysLeft(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	g := Goal{TargetAmount: Money{Cents: 100}, Deadline: now.AddDate(0, 0, 10)}
	p := Progress(g, Money{}, now)
	if p.DaysLeft == nil || *p.DaysLeft != 10 {
		t.Fatalf("expected 10 days left, got %v", p.DaysLeft)
	}

	// Overdue goals report negative days without special handling.
	g.Deadline = now.AddDate(0, 0, -3)
	p = Progress(g, Money{}, now)
	if p.DaysLeft == nil || *p.DaysLeft != -3 {
		t.Fatalf("expected -3 days left, got %v", p.DaysLeft)
	}

	// No deadline, no countdown.
	g.Deadline = time.Time{}
	p = Progress(g, Money{}, now)
	if p.DaysLeft != nil {
		t.Fatalf("expected nil days left, got %v", p.DaysLeft)
	}
}

func TestProgressSharedBalanceAcrossGoals(t *testing.T) {
	// Every goal is measured against the same global balance, so two goals
	// can both be complete on the same funds.
	now := time.Now()
	available := Money{Cents: 100000}
	a := Progress(Goal{TargetAmount: Money{Cents: 60000}}, available, now)
	b := Progress(Goal{TargetAmount: Money{Cents: 80000}}, available, now)
	if a.Percent != 100 || b.Percent != 100 {
		t.Fatalf("expected both goals complete, got %f and %f", a.Percent, b.Percent)
	}
}
