package model

import "time"

// Window is one candidate booking interval derived from venue operating
// hours and slot granularity.
type Window struct {
	Start time.Time `json:"window_start"`
	End   time.Time `json:"window_end"`
}

// WindowAvailability is a window annotated with its capacity snapshot. The
// raw Reserved count is kept for diagnostics; FreeCapacity is floored at
// zero.
type WindowAvailability struct {
	Start        time.Time `json:"window_start"`
	End          time.Time `json:"window_end"`
	Capacity     int       `json:"capacity"`
	Reserved     int       `json:"reserved"`
	FreeCapacity int       `json:"free_capacity"`
}
