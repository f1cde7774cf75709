package core

import (
	"math"
	"time"
)

// GoalProgress is the derived display state of a goal. The numerator is the
// user's single global available balance, shared by every goal the user owns;
// it is not drawn from the goal's own CurrentAmount. Several goals can
// therefore show full progress against the same funds.
type GoalProgress struct {
	Percent   float64 `json:"percent"`
	Remaining Money   `json:"remaining"`
	DaysLeft  *int    `json:"days_left,omitempty"`
}

// Progress computes a goal's completion against the given available balance.
// Percent is clamped to [0, 100]; a goal past its deadline reports negative
// DaysLeft without any state change.
func Progress(g Goal, available Money, now time.Time) GoalProgress {
	p := GoalProgress{}
	if g.TargetAmount.Cents > 0 {
		p.Percent = float64(available.Cents) / float64(g.TargetAmount.Cents) * 100
		if p.Percent < 0 {
			p.Percent = 0
		}
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	remaining := g.TargetAmount.Sub(available)
	if remaining.IsNegative() {
		remaining = Money{}
	}
	p.Remaining = remaining
	if !g.Deadline.IsZero() {
		days := int(math.Ceil(g.Deadline.Sub(now).Hours() / 24))
		p.DaysLeft = &days
	}
	return p
}
