package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvClaimRetryAttempts = "CLAIM_RETRY_ATTEMPTS"
	EnvClaimRetryBackoff  = "CLAIM_RETRY_BACKOFF"

	EnvDefaultSlotDurationMin = "DEFAULT_SLOT_DURATION_MIN"
	EnvMaxAvailabilityDays    = "MAX_AVAILABILITY_DAYS"

	EnvOverageHourlyRate      = "OVERAGE_HOURLY_RATE"
	EnvSubscriptionHourlyRate = "SUBSCRIPTION_HOURLY_RATE"
	EnvRolloverCapFraction    = "ROLLOVER_CAP_FRACTION"
	EnvRefundCutoff           = "REFUND_CUTOFF"

	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
)
