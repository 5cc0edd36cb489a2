package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "dogdays"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Optimistic-claim retry budget: contention is resolved by re-reading and
	// re-applying, never by waiting on a lock.
	DefaultClaimRetryAttempts = 5
	DefaultClaimRetryBackoff  = 25 * time.Millisecond

	DefaultDefaultSlotDurationMin = 60
	DefaultMaxAvailabilityDays    = 31

	DefaultOverageHourlyRate      = 18.0
	DefaultSubscriptionHourlyRate = 12.0
	DefaultRolloverCapFraction    = 0.5

	// Cancellations earlier than start_time minus this cutoff refund consumed
	// subscription hours; later ones forfeit them.
	DefaultRefundCutoff = 0 * time.Hour

	DefaultBookingEventsTopic    = "booking.confirmed"
	DefaultBookingEventsDLQTopic = "booking.confirmed.dlq"

	DefaultPaginationLimit = 100
)
