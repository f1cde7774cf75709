package core

import "testing"

func TestNormalizedMonthlyCost(t *testing.T) {
	cases := []struct {
		name string
		subs []Subscription
		want int64
	}{
		{"empty", nil, 0},
		{"monthly passes through", []Subscription{
			{Amount: Money{Cents: 999}, Cycle: Monthly, Active: true},
		}, 999},
		{"yearly divides by 12", []Subscription{
			{Amount: Money{Cents: 12000}, Cycle: Yearly, Active: true},
		}, 1000},
		{"weekly multiplies by 4", []Subscription{
			{Amount: Money{Cents: 1000}, Cycle: Weekly, Active: true},
		}, 4000},
		{"inactive contributes nothing", []Subscription{
			{Amount: Money{Cents: 5000}, Cycle: Monthly, Active: false},
		}, 0},
		{"mixed", []Subscription{
			{Amount: Money{Cents: 12000}, Cycle: Yearly, Active: true},
			{Amount: Money{Cents: 1000}, Cycle: Weekly, Active: true},
			{Amount: Money{Cents: 700}, Cycle: Monthly, Active: true},
			{Amount: Money{Cents: 100000}, Cycle: Monthly, Active: false},
		}, 1000 + 4000 + 700},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizedMonthlyCost(tc.subs)
			if got.Cents != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got.Cents)
			}
		})
	}
}

func TestNormalizedYearlyRounding(t *testing.T) {
	// 100.00 / 12 = 8.333... rounds to 8.33
	got := NormalizedMonthlyCost([]Subscription{
		{Amount: Money{Cents: 10000}, Cycle: Yearly, Active: true},
	})
	if got.Cents != 833 {
		t.Fatalf("expected 833, got %d", got.Cents)
	}
}
