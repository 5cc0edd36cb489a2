package service

import (
	"context"
	"errors"
	"time"

	venueerrors "dogdays/internal/venues/errors"
	"dogdays/internal/venues/repository"
	"dogdays/pkg/config"
	apperrors "dogdays/pkg/errors"
	"dogdays/pkg/model"
)

// BookingReader is the slice of the booking store availability needs:
// confirmed bookings whose interval overlaps a range.
type BookingReader interface {
	FindConfirmedOverlapping(ctx context.Context, venueID string, start, end time.Time) ([]*model.Booking, error)
}

// OccupancyStore exposes the materialized occupancy buckets for drift
// checking and repair.
type OccupancyStore interface {
	FindByVenueRange(ctx context.Context, venueID string, start, end time.Time) ([]*model.OccupancyBucket, error)
	SetReserved(ctx context.Context, id string, reserved int, expectedVersion int64) error
}

type AvailabilityService interface {
	Availability(ctx context.Context, venueID string, date time.Time, serviceType string) ([]model.WindowAvailability, error)
	AvailabilityRange(ctx context.Context, venueID string, startDate, endDate time.Time) (map[string][]model.WindowAvailability, error)
	Reconcile(ctx context.Context, venueID string, date time.Time, repair bool) ([]BucketDrift, error)
}

// BucketDrift reports a materialized occupancy bucket whose reserved count
// disagrees with the count recomputed from confirmed bookings.
type BucketDrift struct {
	BucketID   string    `json:"bucket_id"`
	Start      time.Time `json:"bucket_start"`
	Stored     int       `json:"stored_reserved"`
	Recomputed int       `json:"recomputed_reserved"`
}

type availabilityService struct {
	venues    repository.VenueDirectory
	bookings  BookingReader
	occupancy OccupancyStore
	cfg       *config.Config
}

func NewAvailabilityService(
	venues repository.VenueDirectory,
	bookings BookingReader,
	occupancy OccupancyStore,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		venues:    venues,
		bookings:  bookings,
		occupancy: occupancy,
		cfg:       cfg,
	}
}

// Availability reports the free windows for one venue and date. The result
// is a best-effort snapshot: it may be stale by the time the caller books,
// and the binding capacity check happens in the reservation path.
func (s *availabilityService) Availability(ctx context.Context, venueID string, date time.Time, serviceType string) ([]model.WindowAvailability, error) {
	venue, err := s.venue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	if serviceType != "" && !venue.Offers(serviceType) {
		return []model.WindowAvailability{}, nil
	}

	windows, err := GenerateWindows(venue, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate slot windows", err)
	}
	if len(windows) == 0 {
		return []model.WindowAvailability{}, nil
	}

	bookings, err := s.bookings.FindConfirmedOverlapping(ctx, venueID, windows[0].Start, windows[len(windows)-1].End)
	if err != nil {
		return nil, apperrors.Internal("Failed to load bookings for availability", err)
	}

	return annotate(venue, windows, bookings), nil
}

// AvailabilityRange is the multi-date form, capped by MaxAvailabilityDays.
func (s *availabilityService) AvailabilityRange(ctx context.Context, venueID string, startDate, endDate time.Time) (map[string][]model.WindowAvailability, error) {
	venue, err := s.venue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	byDate, err := GenerateWindowsRange(venue, startDate, endDate, s.cfg.MaxAvailabilityDays)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	result := make(map[string][]model.WindowAvailability, len(byDate))
	for day, windows := range byDate {
		if len(windows) == 0 {
			result[day] = []model.WindowAvailability{}
			continue
		}
		bookings, err := s.bookings.FindConfirmedOverlapping(ctx, venueID, windows[0].Start, windows[len(windows)-1].End)
		if err != nil {
			return nil, apperrors.Internal("Failed to load bookings for availability", err)
		}
		result[day] = annotate(venue, windows, bookings)
	}
	return result, nil
}

// Reconcile recomputes each bucket's reserved count from confirmed bookings
// and reports any bucket where the materialized value disagrees. The
// materialized counters are a cache of the booking set; they must never be
// treated as an independent source of truth. With repair set, drifted
// buckets are rewritten to the recomputed count.
func (s *availabilityService) Reconcile(ctx context.Context, venueID string, date time.Time, repair bool) ([]BucketDrift, error) {
	venue, err := s.venue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	windows, err := GenerateWindows(venue, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate slot windows", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	dayStart, dayEnd := windows[0].Start, windows[len(windows)-1].End
	buckets, err := s.occupancy.FindByVenueRange(ctx, venueID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to load occupancy buckets", err)
	}
	bookings, err := s.bookings.FindConfirmedOverlapping(ctx, venueID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to load bookings for reconciliation", err)
	}

	var drifts []BucketDrift
	for _, bucket := range buckets {
		recomputed := 0
		for _, b := range bookings {
			if b.Overlaps(bucket.BucketStart, bucket.BucketEnd) {
				recomputed++
			}
		}
		if recomputed != bucket.Reserved {
			drifts = append(drifts, BucketDrift{
				BucketID:   bucket.ID,
				Start:      bucket.BucketStart,
				Stored:     bucket.Reserved,
				Recomputed: recomputed,
			})
			if repair {
				if err := s.occupancy.SetReserved(ctx, bucket.ID, recomputed, bucket.Version); err != nil {
					// A stale version means a claim landed mid-scan; the
					// next reconcile pass will see the fresh count.
					s.cfg.Log.Warn("Occupancy repair skipped",
						"bucket_id", bucket.ID,
						"error", err,
					)
				}
			}
		}
	}

	if len(drifts) > 0 {
		s.cfg.Log.Warn("Occupancy drift detected",
			"venue_id", venueID,
			"date", date.Format(dateLayout),
			"buckets", len(drifts),
		)
	}
	return drifts, nil
}

func (s *availabilityService) venue(ctx context.Context, venueID string) (*model.Venue, error) {
	if venueID == "" {
		return nil, apperrors.InvalidInput("Venue ID cannot be empty")
	}
	venue, err := s.venues.FindByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, venueerrors.ErrVenueNotFound) {
			return nil, apperrors.NotFoundWithID("Venue", venueID)
		}
		return nil, apperrors.Internal("Failed to load venue", err)
	}
	return venue, nil
}

// annotate computes per-window reserved counts from overlapping confirmed
// bookings and keeps only windows with free capacity, carrying the raw
// counts for diagnostics.
func annotate(venue *model.Venue, windows []model.Window, bookings []*model.Booking) []model.WindowAvailability {
	result := make([]model.WindowAvailability, 0, len(windows))
	for _, w := range windows {
		reserved := 0
		for _, b := range bookings {
			if b.Overlaps(w.Start, w.End) {
				reserved++
			}
		}
		free := venue.Capacity - reserved
		if free < 0 {
			free = 0
		}
		if free > 0 {
			result = append(result, model.WindowAvailability{
				Start:        w.Start,
				End:          w.End,
				Capacity:     venue.Capacity,
				Reserved:     reserved,
				FreeCapacity: free,
			})
		}
	}
	return result
}
