package core

import (
	"sort"
	"time"
)

// Summary is the aggregate of a transaction set: totals, net and savings
// rate. All sums are order-independent; an empty set yields all zeros.
type Summary struct {
	Income      Money   `json:"income"`
	Expenses    Money   `json:"expenses"`
	Net         Money   `json:"net"`
	SavingsRate float64 `json:"savings_rate"`
}

// Summarize reduces a transaction set to its totals. The savings rate is
// net/income as a percentage and is defined as 0 when income is zero.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expenses)
	if s.Income.Cents != 0 {
		s.SavingsRate = float64(s.Net.Cents) / float64(s.Income.Cents) * 100
	}
	return s
}

// AvailableBalance is the global net of all-time income minus all-time
// expenses. It may be negative.
func AvailableBalance(txs []Transaction) Money {
	s := Summarize(txs)
	return s.Net
}

// CategoryShare is one row of an expense breakdown.
type CategoryShare struct {
	Category string  `json:"category"`
	Amount   Money   `json:"amount"`
	Percent  float64 `json:"percent"`
}

// BreakdownByCategory partitions all expense amounts by category, sorted
// descending by amount (ties broken by name for a stable order). Percentages
// are relative to total expenses; the shares always sum to the expense total.
func BreakdownByCategory(txs []Transaction) []CategoryShare {
	sums := make(map[string]int64)
	var total int64
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		sums[t.Category] += t.Amount.Cents
		total += t.Amount.Cents
	}
	shares := make([]CategoryShare, 0, len(sums))
	for cat, cents := range sums {
		sh := CategoryShare{Category: cat, Amount: Money{Cents: cents}}
		if total != 0 {
			sh.Percent = float64(cents) / float64(total) * 100
		}
		shares = append(shares, sh)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

// MonthBucket is one month of a trend series.
type MonthBucket struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Income   Money      `json:"income"`
	Expenses Money      `json:"expenses"`
	Net      Money      `json:"net"`
}

// MonthlyTrend buckets transactions by calendar month for the trailing
// `months` months ending at ref. Months without transactions appear with
// zero totals so the series is always exactly `months` long, oldest first.
func MonthlyTrend(txs []Transaction, ref time.Time, months int) []MonthBucket {
	if months <= 0 {
		return nil
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	buckets := make([]MonthBucket, months)
	index := make(map[string]int, months)
	for i := range buckets {
		m := first.AddDate(0, i, 0)
		buckets[i] = MonthBucket{Year: m.Year(), Month: m.Month()}
		index[MonthKey(m)] = i
	}

	for _, t := range txs {
		i, ok := index[MonthKey(t.Date)]
		if !ok {
			continue
		}
		switch t.Type {
		case Income:
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		case Expense:
			buckets[i].Expenses = buckets[i].Expenses.Add(t.Amount)
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expenses)
	}
	return buckets
}
