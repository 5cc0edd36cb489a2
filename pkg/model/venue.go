package model

import (
	"strings"
	"time"
)

// Service types offered by venues.
const (
	ServiceDaycare  = "daycare"
	ServiceBoarding = "boarding"
	ServiceGrooming = "grooming"
	ServiceWalking  = "walking"
	ServiceTraining = "training"
)

// DayHours is the operating window for a single weekday. Start and End are
// local times of day in HH:MM.
type DayHours struct {
	Open  bool   `json:"open" bson:"open"`
	Start string `json:"start,omitempty" bson:"start,omitempty" validate:"omitempty,valid_time_of_day"`
	End   string `json:"end,omitempty" bson:"end,omitempty" validate:"omitempty,valid_time_of_day"`
}

// Venue is read-only in this service; venue administration owns the records.
type Venue struct {
	ID              string              `json:"id" bson:"_id" validate:"required"`
	Name            string              `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Capacity        int                 `json:"capacity" bson:"capacity" validate:"required,min=1,max=500"`
	OperatingHours  map[string]DayHours `json:"operating_hours" bson:"operating_hours" validate:"required"`
	Services        []string            `json:"services" bson:"services" validate:"required,min=1,dive,oneof=daycare boarding grooming walking training"`
	SlotDurationMin int                 `json:"slot_duration" bson:"slot_duration" validate:"required,min=15,max=480"`
	TimeZone        string              `json:"time_zone,omitempty" bson:"time_zone,omitempty" validate:"omitempty,timezone"`
}

// HoursFor returns the operating hours for the weekday of t. The second
// return is false when the venue is closed that day.
func (v *Venue) HoursFor(t time.Time) (DayHours, bool) {
	day := strings.ToLower(t.Weekday().String())
	hours, ok := v.OperatingHours[day]
	if !ok || !hours.Open {
		return DayHours{}, false
	}
	return hours, true
}

// Offers reports whether the venue offers the given service type.
func (v *Venue) Offers(serviceType string) bool {
	for _, s := range v.Services {
		if s == serviceType {
			return true
		}
	}
	return false
}

// SlotDuration returns the venue's slot granularity as a duration.
func (v *Venue) SlotDuration() time.Duration {
	return time.Duration(v.SlotDurationMin) * time.Minute
}

// Location resolves the venue's time zone, falling back to UTC.
func (v *Venue) Location() *time.Location {
	if v.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
