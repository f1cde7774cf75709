package core

// NormalizedMonthlyCost converts a subscription set to an equivalent monthly
// figure. Only active subscriptions count. The conversion factors are fixed:
// monthly amounts pass through, yearly amounts divide by 12 (half-up on
// cents), and weekly amounts multiply by exactly 4.
func NormalizedMonthlyCost(subs []Subscription) Money {
	var total int64
	for _, s := range subs {
		if !s.Active {
			continue
		}
		total += normalizedCycleCents(s.Amount.Cents, s.Cycle)
	}
	return Money{Cents: total}
}

func normalizedCycleCents(cents int64, cycle BillingCycle) int64 {
	switch cycle {
	case Monthly:
		return cents
	case Yearly:
		return (cents + 6) / 12
	case Weekly:
		return cents * 4
	default:
		return 0
	}
}
