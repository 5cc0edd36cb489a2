package main

import (
	"context"
	"time"

	bookinghandler "dogdays/internal/bookings/handler"
	bookingrepository "dogdays/internal/bookings/repository"
	bookingservice "dogdays/internal/bookings/service"
	"dogdays/internal/bookings/validator"
	ledgerhandler "dogdays/internal/ledger/handler"
	ledgerrepository "dogdays/internal/ledger/repository"
	ledgerservice "dogdays/internal/ledger/service"
	slothandler "dogdays/internal/slots/handler"
	slotservice "dogdays/internal/slots/service"
	venuerepository "dogdays/internal/venues/repository"
	"dogdays/pkg/app"
	"dogdays/pkg/config"
	"dogdays/pkg/kafka"
	kafkaconfig "dogdays/pkg/kafka/config"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Reservations service")
	cfg.SetMongo()

	reservationService, availabilityService, ledgerSvc := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		bookinghandler.NewBookingHandler(reservationService, cfg.Log),
		slothandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		ledgerhandler.NewBalanceHandler(ledgerSvc, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (bookingservice.ReservationService, slotservice.AvailabilityService, ledgerservice.LedgerService) {
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	occupancyRepo := bookingrepository.NewMongoOccupancyRepository(cfg)
	ledgerRepo := ledgerrepository.NewMongoLedgerRepository(cfg)
	venueDir := venuerepository.NewMongoVenueDirectory(cfg)
	dogDir := venuerepository.NewMongoDogDirectory(cfg)

	ensureIndexes(cfg)

	ledgerSvc := ledgerservice.NewLedgerService(ledgerRepo, cfg)
	availabilityService := slotservice.NewAvailabilityService(venueDir, bookingRepo, occupancyRepo, cfg)

	producer, err := kafka.NewProducer(kafkaconfig.Load(), cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	publisher := bookingservice.NewKafkaEventPublisher(producer)

	reservationService := bookingservice.NewReservationService(
		bookingRepo,
		occupancyRepo,
		venueDir,
		dogDir,
		ledgerSvc,
		validator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService, availabilityService, ledgerSvc
}

func ensureIndexes(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bookingrepository.EnsureBookingIndexes(ctx, cfg); err != nil {
		cfg.Log.Fatal("Failed to create booking indexes", "error", err)
	}
	if err := bookingrepository.EnsureOccupancyIndexes(ctx, cfg); err != nil {
		cfg.Log.Fatal("Failed to create occupancy indexes", "error", err)
	}
}
