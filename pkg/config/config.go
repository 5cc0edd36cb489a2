package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dogdays/pkg/client"
	"dogdays/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ClaimRetryAttempts int
	ClaimRetryBackoff  time.Duration

	DefaultSlotDurationMin int
	MaxAvailabilityDays    int

	OverageHourlyRate      float64
	SubscriptionHourlyRate float64
	RolloverCapFraction    float64
	RefundCutoff           time.Duration

	BookingEventsTopic    string
	BookingEventsDLQTopic string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ClaimRetryAttempts: getEnvNum(EnvClaimRetryAttempts, DefaultClaimRetryAttempts),
		ClaimRetryBackoff:  getEnvDuration(EnvClaimRetryBackoff, DefaultClaimRetryBackoff),

		DefaultSlotDurationMin: getEnvNum(EnvDefaultSlotDurationMin, DefaultDefaultSlotDurationMin),
		MaxAvailabilityDays:    getEnvNum(EnvMaxAvailabilityDays, DefaultMaxAvailabilityDays),

		OverageHourlyRate:      getEnvFloat(EnvOverageHourlyRate, DefaultOverageHourlyRate),
		SubscriptionHourlyRate: getEnvFloat(EnvSubscriptionHourlyRate, DefaultSubscriptionHourlyRate),
		RolloverCapFraction:    getEnvFloat(EnvRolloverCapFraction, DefaultRolloverCapFraction),
		RefundCutoff:           getEnvDuration(EnvRefundCutoff, DefaultRefundCutoff),

		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		problems = append(problems, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		problems = append(problems, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		problems = append(problems, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		problems = append(problems, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.ClaimRetryAttempts < 1 || cfg.ClaimRetryAttempts > 20 {
		problems = append(problems, fmt.Sprintf("ClaimRetryAttempts must be between 1 and 20, got: %d", cfg.ClaimRetryAttempts))
	}
	if cfg.ClaimRetryBackoff <= 0 {
		problems = append(problems, fmt.Sprintf("ClaimRetryBackoff must be positive, got: %s", cfg.ClaimRetryBackoff))
	}

	if cfg.DefaultSlotDurationMin < 15 || cfg.DefaultSlotDurationMin > 480 {
		problems = append(problems, fmt.Sprintf("DefaultSlotDurationMin must be between 15 and 480, got: %d", cfg.DefaultSlotDurationMin))
	}
	if cfg.MaxAvailabilityDays < 1 {
		problems = append(problems, fmt.Sprintf("MaxAvailabilityDays must be positive, got: %d", cfg.MaxAvailabilityDays))
	}

	if cfg.OverageHourlyRate < 0 {
		problems = append(problems, fmt.Sprintf("OverageHourlyRate cannot be negative, got: %f", cfg.OverageHourlyRate))
	}
	if cfg.SubscriptionHourlyRate < 0 {
		problems = append(problems, fmt.Sprintf("SubscriptionHourlyRate cannot be negative, got: %f", cfg.SubscriptionHourlyRate))
	}
	if cfg.RolloverCapFraction < 0 || cfg.RolloverCapFraction > 0.5 {
		problems = append(problems, fmt.Sprintf("RolloverCapFraction must be between 0 and 0.5, got: %f", cfg.RolloverCapFraction))
	}
	if cfg.RefundCutoff < 0 {
		problems = append(problems, fmt.Sprintf("RefundCutoff cannot be negative, got: %s", cfg.RefundCutoff))
	}

	if cfg.BookingEventsTopic == "" {
		problems = append(problems, "BookingEventsTopic cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"claim_retry_attempts", cfg.ClaimRetryAttempts,
		"claim_retry_backoff", cfg.ClaimRetryBackoff,
		"default_slot_duration_min", cfg.DefaultSlotDurationMin,
		"max_availability_days", cfg.MaxAvailabilityDays,
		"overage_hourly_rate", cfg.OverageHourlyRate,
		"subscription_hourly_rate", cfg.SubscriptionHourlyRate,
		"rollover_cap_fraction", cfg.RolloverCapFraction,
		"refund_cutoff", cfg.RefundCutoff,
		"booking_events_topic", cfg.BookingEventsTopic,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
