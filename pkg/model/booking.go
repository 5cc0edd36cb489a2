package model

import (
	"time"
)

// Booking status values. A booking is persisted pending while the capacity
// claim and ledger debit are in flight and becomes confirmed only when both
// succeeded.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

type Booking struct {
	ID                    string    `json:"id,omitempty" bson:"_id,omitempty"`
	IdempotencyKey        string    `json:"idempotency_key" bson:"idempotency_key" validate:"required,min=8,max=128"`
	DogID                 string    `json:"dog_id" bson:"dog_id" validate:"required"`
	OwnerID               string    `json:"owner_id" bson:"owner_id" validate:"required"`
	VenueID               string    `json:"venue_id" bson:"venue_id" validate:"required"`
	ServiceType           string    `json:"service_type" bson:"service_type" validate:"required,oneof=daycare boarding grooming walking training"`
	StartTime             time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime               time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status                string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	Price                 float64   `json:"price" bson:"price" validate:"min=0"`
	HoursFromSubscription float64   `json:"hours_from_subscription" bson:"hours_from_subscription" validate:"min=0"`
	HoursOverage          float64   `json:"hours_overage" bson:"hours_overage" validate:"min=0"`
	SpecialInstructions   string    `json:"special_instructions,omitempty" bson:"special_instructions,omitempty" validate:"omitempty,max=500"`
	CreatedAt             time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" bson:"updated_at"`
}

// DurationHours is the booked interval length in hours.
func (b *Booking) DurationHours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

// Overlaps reports whether the booking interval intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// BookingRequest is the external create-booking input. The owner_id must come
// from the identity layer, never trusted from an unauthenticated caller.
type BookingRequest struct {
	OwnerID             string    `json:"owner_id" validate:"required"`
	DogID               string    `json:"dog_id" validate:"required"`
	VenueID             string    `json:"venue_id" validate:"required"`
	ServiceType         string    `json:"service_type" validate:"required,oneof=daycare boarding grooming walking training"`
	StartTime           time.Time `json:"start_time" validate:"required"`
	EndTime             time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	IdempotencyKey      string    `json:"idempotency_key" validate:"required,min=8,max=128"`
	DeclineOverage      bool      `json:"decline_overage,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
}

// Dog records are owned by the external dog-management service; only the
// ownership link is read here.
type Dog struct {
	ID      string `json:"id" bson:"_id"`
	OwnerID string `json:"owner_id" bson:"owner_id"`
	Name    string `json:"name" bson:"name"`
}
