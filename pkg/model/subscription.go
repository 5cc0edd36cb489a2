package model

import (
	"time"
)

// SubscriptionAccount is the per-owner prepaid hour ledger. Invariants:
//
//	0 <= HoursUsed <= PlanHoursPerPeriod + HoursRolledOver
//	HoursRolledOver <= RolloverCapFraction * PlanHoursPerPeriod
//
// Every mutation goes through a version-conditioned write.
type SubscriptionAccount struct {
	OwnerID             string    `json:"owner_id" bson:"_id" validate:"required"`
	PlanHoursPerPeriod  float64   `json:"plan_hours_per_period" bson:"plan_hours_per_period" validate:"required,gt=0"`
	RolloverCapFraction float64   `json:"rollover_cap_fraction" bson:"rollover_cap_fraction" validate:"min=0,max=0.5"`
	PeriodStart         time.Time `json:"current_period_start" bson:"current_period_start" validate:"required"`
	PeriodEnd           time.Time `json:"current_period_end" bson:"current_period_end" validate:"required,gtfield=PeriodStart"`
	HoursUsed           float64   `json:"hours_used_this_period" bson:"hours_used_this_period" validate:"min=0"`
	HoursRolledOver     float64   `json:"hours_rolled_over" bson:"hours_rolled_over" validate:"min=0"`
	Active              bool      `json:"active" bson:"active"`
	Version             int64     `json:"version" bson:"version"`
}

// Remaining is the spendable hour balance, never negative.
func (a *SubscriptionAccount) Remaining() float64 {
	remaining := a.PlanHoursPerPeriod + a.HoursRolledOver - a.HoursUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PeriodElapsed reports whether now is at or past the period boundary, which
// means the lazy rollover must run before the account is used.
func (a *SubscriptionAccount) PeriodElapsed(now time.Time) bool {
	return !now.Before(a.PeriodEnd)
}
