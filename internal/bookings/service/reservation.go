package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	bookingerrors "dogdays/internal/bookings/errors"
	"dogdays/internal/bookings/repository"
	"dogdays/internal/bookings/validator"
	ledgerservice "dogdays/internal/ledger/service"
	"dogdays/internal/pricing"
	slotservice "dogdays/internal/slots/service"
	venueerrors "dogdays/internal/venues/errors"
	venuerepository "dogdays/internal/venues/repository"
	"dogdays/pkg/config"
	apperrors "dogdays/pkg/errors"
	"dogdays/pkg/model"
)

// ReservationService coordinates the booking lifecycle. Creation runs a
// fixed sequence against single-document conditional writes: persist the
// request as pending, claim per-window capacity optimistically, debit the
// subscription ledger, then flip the record to confirmed. Any failure after
// a step took effect is compensated in reverse order.
type ReservationService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, id, ownerID string) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
}

type reservationService struct {
	bookings  repository.BookingRepository
	occupancy repository.OccupancyRepository
	venues    venuerepository.VenueDirectory
	dogs      venuerepository.DogDirectory
	ledger    ledgerservice.LedgerService
	validator *validator.BookingValidator
	publisher EventPublisher
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	bookings repository.BookingRepository,
	occupancy repository.OccupancyRepository,
	venues venuerepository.VenueDirectory,
	dogs venuerepository.DogDirectory,
	ledger ledgerservice.LedgerService,
	bookingValidator *validator.BookingValidator,
	publisher EventPublisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		bookings:  bookings,
		occupancy: occupancy,
		venues:    venues,
		dogs:      dogs,
		ledger:    ledger,
		validator: bookingValidator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	venue, err := s.venues.FindByID(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, venueerrors.ErrVenueNotFound) {
			return nil, apperrors.NotFoundWithID("Venue", req.VenueID)
		}
		return nil, apperrors.Internal("Failed to load venue", err)
	}
	if err := s.validator.ValidateAgainstVenue(req, venue); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, apperrors.InvalidInput(err.Error())
		}
		return nil, apperrors.Internal("Failed to validate booking against venue", err)
	}

	dog, err := s.dogs.FindByID(ctx, req.DogID)
	if err != nil {
		if errors.Is(err, venueerrors.ErrDogNotFound) {
			return nil, apperrors.NotFoundWithID("Dog", req.DogID)
		}
		return nil, apperrors.Internal("Failed to load dog", err)
	}
	if dog.OwnerID != req.OwnerID {
		return nil, apperrors.Forbidden("Dog does not belong to the requesting owner")
	}

	booking := &model.Booking{
		ID:                  uuid.New().String(),
		IdempotencyKey:      req.IdempotencyKey,
		DogID:               req.DogID,
		OwnerID:             req.OwnerID,
		VenueID:             req.VenueID,
		ServiceType:         req.ServiceType,
		StartTime:           req.StartTime.UTC(),
		EndTime:             req.EndTime.UTC(),
		SpecialInstructions: req.SpecialInstructions,
	}

	// Idempotency gate. If another request already inserted this key the
	// stored record is the answer, whatever state it reached.
	if err := s.bookings.InsertPending(ctx, booking); err != nil {
		if errors.Is(err, bookingerrors.ErrDuplicateIdempotency) {
			existing, findErr := s.bookings.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if findErr != nil {
				return nil, apperrors.Internal("Failed to load existing booking for idempotency key", findErr)
			}
			s.cfg.Log.Info("Duplicate booking request absorbed",
				"booking_id", existing.ID,
				"idempotency_key", req.IdempotencyKey,
			)
			return existing, nil
		}
		return nil, apperrors.Internal("Failed to persist booking", err)
	}

	claimed, err := s.claimCapacity(ctx, venue, booking)
	if err != nil {
		s.compensate(ctx, booking, claimed, false)
		return nil, err
	}

	quote, accountVersion, err := s.price(ctx, req, booking)
	if err != nil {
		s.compensate(ctx, booking, claimed, false)
		return nil, err
	}

	booking.Price = quote.Total
	booking.HoursFromSubscription = quote.HoursFromSubscription
	booking.HoursOverage = quote.HoursOverage

	if quote.HoursFromSubscription > 0 {
		// debit rewrites the price fields when a requote was needed.
		if err := s.debit(ctx, req, booking, quote, accountVersion); err != nil {
			s.compensate(ctx, booking, claimed, false)
			return nil, err
		}
	}

	booking.Status = model.BookingConfirmed
	if err := s.bookings.UpdateStatusConditional(ctx, booking, model.BookingPending); err != nil {
		s.compensate(ctx, booking, claimed, true)
		return nil, apperrors.Internal("Failed to confirm booking", err)
	}

	if err := s.publisher.BookingConfirmed(ctx, booking); err != nil {
		// The confirmation is durable; the event stream catches up via
		// reconciliation, so a publish failure is not a booking failure.
		s.cfg.Log.Error("Failed to publish booking confirmed event",
			"booking_id", booking.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Booking confirmed",
		"booking_id", booking.ID,
		"venue_id", booking.VenueID,
		"owner_id", booking.OwnerID,
		"price", booking.Price,
	)
	return booking, nil
}

// claimCapacity reserves one unit in every window bucket the booking spans.
// Buckets are claimed one at a time with a version precondition; a stale
// version rolls back the partial claim and retries the whole set, so two
// racing requests for the last unit cannot both win.
func (s *reservationService) claimCapacity(ctx context.Context, venue *model.Venue, booking *model.Booking) ([]string, error) {
	windows := slotservice.BucketWindows(venue, booking.StartTime, booking.EndTime)
	if len(windows) == 0 {
		return nil, apperrors.InvalidInput("Booking does not cover any slot window")
	}

	buckets := make([]*model.OccupancyBucket, 0, len(windows))
	ids := make([]string, 0, len(windows))
	for _, w := range windows {
		id := model.BucketID(venue.ID, w.Start)
		buckets = append(buckets, &model.OccupancyBucket{
			ID:          id,
			VenueID:     venue.ID,
			BucketStart: w.Start.UTC(),
			BucketEnd:   w.End.UTC(),
			Capacity:    venue.Capacity,
		})
		ids = append(ids, id)
	}

	if err := s.occupancy.EnsureBuckets(ctx, buckets); err != nil {
		return nil, apperrors.Internal("Failed to materialize occupancy buckets", err)
	}

	for attempt := 0; attempt < s.cfg.ClaimRetryAttempts; attempt++ {
		current, err := s.occupancy.GetBuckets(ctx, ids)
		if err != nil {
			return nil, apperrors.Internal("Failed to load occupancy buckets", err)
		}
		if len(current) != len(ids) {
			return nil, apperrors.Internal("Occupancy buckets missing after materialization", nil)
		}

		// A full bucket on a consistent read is a real capacity miss,
		// not a race; no amount of retrying frees it.
		for _, bucket := range current {
			if bucket.Free() == 0 {
				return nil, apperrors.SlotUnavailable("Requested window has no free capacity")
			}
		}

		claimed := make([]string, 0, len(current))
		stale := false
		for _, bucket := range current {
			if err := s.occupancy.IncrementReserved(ctx, bucket.ID, bucket.Version); err != nil {
				if errors.Is(err, bookingerrors.ErrBucketVersionStale) {
					stale = true
					break
				}
				s.releaseBuckets(ctx, claimed)
				return nil, apperrors.Internal("Failed to claim occupancy bucket", err)
			}
			claimed = append(claimed, bucket.ID)
		}
		if !stale {
			return claimed, nil
		}

		s.releaseBuckets(ctx, claimed)
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, apperrors.ConcurrencyConflict("Could not claim capacity under contention, please retry")
}

// price turns the request into a quote. Without a subscription account the
// whole duration is billed ad hoc; with one, remaining hours are consumed
// first and the rest is overage.
func (s *reservationService) price(ctx context.Context, req *model.BookingRequest, booking *model.Booking) (pricing.Quote, int64, error) {
	inputs := pricing.Inputs{
		DurationHours:    booking.DurationHours(),
		AdHocRate:        pricing.AdHocRate(booking.ServiceType),
		OverageRate:      s.cfg.OverageHourlyRate,
		SubscriptionRate: s.cfg.SubscriptionHourlyRate,
	}

	account, err := s.ledger.GetBalance(ctx, booking.OwnerID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return pricing.Calculate(inputs), 0, nil
		}
		return pricing.Quote{}, 0, err
	}

	inputs.Subscribed = account.Active
	inputs.RemainingHours = account.Remaining()
	quote := pricing.Calculate(inputs)

	if quote.HoursOverage > 0 && req.DeclineOverage {
		return pricing.Quote{}, 0, apperrors.OverageDeclined("Booking exceeds the subscription balance and overage was declined")
	}
	return quote, account.Version, nil
}

// debit consumes the quoted subscription hours. A concurrent ledger write
// invalidates the quote, so the loop re-reads, re-quotes and re-checks the
// overage decision before retrying.
func (s *reservationService) debit(ctx context.Context, req *model.BookingRequest, booking *model.Booking, quote pricing.Quote, accountVersion int64) error {
	currentQuote := quote
	currentVersion := accountVersion

	for attempt := 0; attempt < s.cfg.ClaimRetryAttempts; attempt++ {
		err := s.ledger.Debit(ctx, booking.OwnerID, currentQuote.HoursFromSubscription, currentVersion)
		if err == nil {
			booking.Price = currentQuote.Total
			booking.HoursFromSubscription = currentQuote.HoursFromSubscription
			booking.HoursOverage = currentQuote.HoursOverage
			return nil
		}
		if !apperrors.IsCode(err, apperrors.CodeConcurrencyConflict) &&
			!apperrors.IsCode(err, apperrors.CodeInsufficientBalance) {
			return err
		}

		if backoffErr := s.backoff(ctx, attempt); backoffErr != nil {
			return backoffErr
		}

		requote, version, requoteErr := s.price(ctx, req, booking)
		if requoteErr != nil {
			return requoteErr
		}
		if requote.HoursFromSubscription == 0 {
			booking.Price = requote.Total
			booking.HoursFromSubscription = 0
			booking.HoursOverage = requote.HoursOverage
			return nil
		}
		currentQuote = requote
		currentVersion = version
	}
	return apperrors.ConcurrencyConflict("Subscription ledger under contention, please retry")
}

// compensate unwinds a failed creation: release the claimed capacity,
// refund any debited hours, and remove the pending record. Each step is
// best-effort; reconciliation covers anything that slips through.
func (s *reservationService) compensate(ctx context.Context, booking *model.Booking, claimed []string, refundHours bool) {
	s.releaseBuckets(ctx, claimed)

	if refundHours && booking.HoursFromSubscription > 0 {
		if err := s.ledger.Credit(ctx, booking.OwnerID, booking.HoursFromSubscription); err != nil {
			s.cfg.Log.Error("Compensation credit failed",
				"booking_id", booking.ID,
				"owner_id", booking.OwnerID,
				"hours", booking.HoursFromSubscription,
				"error", err,
			)
		}
	}

	if err := s.bookings.Delete(ctx, booking.ID); err != nil {
		s.cfg.Log.Error("Failed to remove pending booking during compensation",
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (s *reservationService) releaseBuckets(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.occupancy.Release(ctx, id); err != nil {
			s.cfg.Log.Error("Failed to release occupancy bucket",
				"bucket_id", id,
				"error", err,
			)
		}
	}
}

func (s *reservationService) Get(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingerrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to load booking", err)
	}
	return booking, nil
}

func (s *reservationService) ListByOwner(ctx context.Context, ownerID string, limit, offset int64) ([]*model.Booking, int64, error) {
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("Owner ID cannot be empty")
	}
	limit = int64(config.NormalizePaginationLimit(int(limit)))
	offset = config.NormalizeOffset(offset)

	bookings, total, err := s.bookings.FindByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, total, nil
}

// Cancel moves a confirmed booking to cancelled, releases its capacity and
// refunds subscription hours when the cutoff allows. Cancelling an already
// cancelled or completed booking is a no-op that returns the current state.
func (s *reservationService) Cancel(ctx context.Context, id, ownerID string) (*model.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && booking.OwnerID != ownerID {
		return nil, apperrors.Forbidden("Booking belongs to a different owner")
	}

	switch booking.Status {
	case model.BookingCancelled, model.BookingCompleted:
		return booking, nil
	case model.BookingPending:
		return nil, apperrors.Conflict("Booking is still being processed")
	}

	refundable := booking.HoursFromSubscription > 0 &&
		s.now().Before(booking.StartTime.Add(-s.cfg.RefundCutoff))

	booking.Status = model.BookingCancelled
	if err := s.bookings.UpdateStatusConditional(ctx, booking, model.BookingConfirmed); err != nil {
		if errors.Is(err, bookingerrors.ErrStatusMismatch) {
			// Lost the transition race: report whatever state won.
			current, findErr := s.bookings.FindByID(ctx, id)
			if findErr == nil && current.Status != model.BookingConfirmed {
				return current, nil
			}
			return nil, apperrors.ConcurrencyConflict("Booking changed while cancelling, please retry")
		}
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.releaseBookingCapacity(ctx, booking)

	if refundable {
		if err := s.ledger.Credit(ctx, booking.OwnerID, booking.HoursFromSubscription); err != nil {
			s.cfg.Log.Error("Cancellation refund failed",
				"booking_id", booking.ID,
				"owner_id", booking.OwnerID,
				"hours", booking.HoursFromSubscription,
				"error", err,
			)
		}
	}

	if err := s.publisher.BookingCancelled(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking cancelled event",
			"booking_id", booking.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", booking.ID,
		"refunded_hours", refundable,
	)
	return booking, nil
}

// Complete marks a confirmed booking completed once its window has ended.
func (s *reservationService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case model.BookingCompleted:
		return booking, nil
	case model.BookingPending, model.BookingCancelled:
		return nil, apperrors.Conflict("Only confirmed bookings can be completed")
	}

	if s.now().Before(booking.EndTime) {
		return nil, apperrors.Conflict("Booking cannot be completed before it ends")
	}

	booking.Status = model.BookingCompleted
	if err := s.bookings.UpdateStatusConditional(ctx, booking, model.BookingConfirmed); err != nil {
		if errors.Is(err, bookingerrors.ErrStatusMismatch) {
			return nil, apperrors.ConcurrencyConflict("Booking changed while completing, please retry")
		}
		return nil, apperrors.Internal("Failed to complete booking", err)
	}

	s.cfg.Log.Info("Booking completed", "booking_id", booking.ID)
	return booking, nil
}

func (s *reservationService) releaseBookingCapacity(ctx context.Context, booking *model.Booking) {
	venue, err := s.venues.FindByID(ctx, booking.VenueID)
	if err != nil {
		s.cfg.Log.Error("Failed to load venue for capacity release",
			"booking_id", booking.ID,
			"venue_id", booking.VenueID,
			"error", err,
		)
		return
	}

	windows := slotservice.BucketWindows(venue, booking.StartTime, booking.EndTime)
	ids := make([]string, 0, len(windows))
	for _, w := range windows {
		ids = append(ids, model.BucketID(venue.ID, w.Start))
	}
	s.releaseBuckets(ctx, ids)
}

func (s *reservationService) backoff(ctx context.Context, attempt int) error {
	delay := s.cfg.ClaimRetryBackoff * time.Duration(1<<attempt)
	select {
	case <-ctx.Done():
		return apperrors.Timeout("Request cancelled while waiting to retry")
	case <-time.After(delay):
		return nil
	}
}
