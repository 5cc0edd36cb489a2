package service

import (
	"context"
	"time"

	"dogdays/pkg/kafka"
	"dogdays/pkg/model"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"

	eventSource = "reservations"
)

// BookingEvent is the payload published on booking lifecycle transitions.
// Keyed by venue so one venue's events stay ordered on one partition.
type BookingEvent struct {
	BookingID             string    `json:"booking_id"`
	VenueID               string    `json:"venue_id"`
	OwnerID               string    `json:"owner_id"`
	DogID                 string    `json:"dog_id"`
	ServiceType           string    `json:"service_type"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	Price                 float64   `json:"price"`
	HoursFromSubscription float64   `json:"hours_from_subscription"`
	HoursOverage          float64   `json:"hours_overage"`
}

// EventPublisher emits booking lifecycle events. Publishing is best-effort:
// the booking transition is already durable when the event goes out.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
}

type kafkaEventPublisher struct {
	producer *kafka.Producer
}

func NewKafkaEventPublisher(producer *kafka.Producer) EventPublisher {
	return &kafkaEventPublisher{producer: producer}
}

func (p *kafkaEventPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingConfirmed, booking)
}

func (p *kafkaEventPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCancelled, booking)
}

func (p *kafkaEventPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg := kafka.NewMessage().
		WithKey(booking.VenueID).
		WithValue(BookingEvent{
			BookingID:             booking.ID,
			VenueID:               booking.VenueID,
			OwnerID:               booking.OwnerID,
			DogID:                 booking.DogID,
			ServiceType:           booking.ServiceType,
			StartTime:             booking.StartTime,
			EndTime:               booking.EndTime,
			Price:                 booking.Price,
			HoursFromSubscription: booking.HoursFromSubscription,
			HoursOverage:          booking.HoursOverage,
		}).
		WithEventType(eventType).
		WithCorrelationID(booking.IdempotencyKey).
		WithSource(eventSource).
		Build()

	return p.producer.Publish(ctx, msg)
}
