package pricing

import "math"

// Ad-hoc hourly rates per service type.
const (
	DaycareHourlyRate  = 15.00
	BoardingHourlyRate = 45.00
	GroomingHourlyRate = 60.00
	WalkingHourlyRate  = 25.00
	TrainingHourlyRate = 75.00
	DefaultHourlyRate  = 30.00
)

var adHocRates = map[string]float64{
	"daycare":  DaycareHourlyRate,
	"boarding": BoardingHourlyRate,
	"grooming": GroomingHourlyRate,
	"walking":  WalkingHourlyRate,
	"training": TrainingHourlyRate,
}

// AdHocRate returns the per-hour ad-hoc rate for a service type.
func AdHocRate(serviceType string) float64 {
	if rate, ok := adHocRates[serviceType]; ok {
		return rate
	}
	return DefaultHourlyRate
}

// Inputs are the facts the calculator needs; it never touches a store.
type Inputs struct {
	DurationHours    float64
	RemainingHours   float64 // spendable subscription balance, 0 when none
	Subscribed       bool
	AdHocRate        float64
	OverageRate      float64
	SubscriptionRate float64
}

// Quote is the split of a booking's duration into prepaid subscription hours
// and billed hours, with the resulting price. Subscription hours add nothing
// to the total (they are prepaid); SubscriptionValue reports what the
// consumed hours are worth at the subscription rate for display purposes.
type Quote struct {
	HoursFromSubscription float64 `json:"hours_from_subscription"`
	HoursOverage          float64 `json:"hours_overage"`
	Total                 float64 `json:"total"`
	SubscriptionValue     float64 `json:"subscription_value"`
}

// Calculate splits the duration and prices the billable remainder.
// Subscription hours are consumed first, up to the remaining balance. Hours
// beyond the balance are billed at the overage rate for subscribers; without
// a subscription the whole duration is billed at the ad-hoc rate with a
// one-hour minimum charge.
func Calculate(in Inputs) Quote {
	if in.DurationHours <= 0 {
		return Quote{}
	}

	if !in.Subscribed {
		billable := in.DurationHours
		if billable < 1 {
			billable = 1
		}
		return Quote{
			HoursOverage: in.DurationHours,
			Total:        round2(billable * in.AdHocRate),
		}
	}

	subHours := math.Min(in.DurationHours, in.RemainingHours)
	overage := in.DurationHours - subHours

	return Quote{
		HoursFromSubscription: subHours,
		HoursOverage:          overage,
		Total:                 round2(overage * in.OverageRate),
		SubscriptionValue:     round2(subHours * in.SubscriptionRate),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
