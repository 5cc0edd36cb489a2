package service

import (
	"context"
	"io"
	"testing"
	"time"

	venueerrors "dogdays/internal/venues/errors"
	"dogdays/pkg/config"
	apperrors "dogdays/pkg/errors"
	"dogdays/pkg/logger"
	"dogdays/pkg/model"
)

type stubVenueDirectory struct {
	venue *model.Venue
}

func (s *stubVenueDirectory) FindByID(_ context.Context, id string) (*model.Venue, error) {
	if s.venue == nil || s.venue.ID != id {
		return nil, venueerrors.ErrVenueNotFound
	}
	return s.venue, nil
}

type stubBookingReader struct {
	bookings []*model.Booking
}

func (s *stubBookingReader) FindConfirmedOverlapping(_ context.Context, venueID string, start, end time.Time) ([]*model.Booking, error) {
	var matches []*model.Booking
	for _, b := range s.bookings {
		if b.VenueID == venueID && b.Status == model.BookingConfirmed && b.Overlaps(start, end) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

type stubOccupancyStore struct {
	buckets  []*model.OccupancyBucket
	repaired map[string]int
}

func (s *stubOccupancyStore) FindByVenueRange(_ context.Context, venueID string, start, end time.Time) ([]*model.OccupancyBucket, error) {
	var matches []*model.OccupancyBucket
	for _, b := range s.buckets {
		if b.VenueID == venueID && b.BucketStart.Before(end) && b.BucketEnd.After(start) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

func (s *stubOccupancyStore) SetReserved(_ context.Context, id string, reserved int, _ int64) error {
	if s.repaired == nil {
		s.repaired = make(map[string]int)
	}
	s.repaired[id] = reserved
	return nil
}

func availabilityVenue(capacity int) *model.Venue {
	return &model.Venue{
		ID:       "venue-1",
		Name:     "Happy Paws",
		Capacity: capacity,
		OperatingHours: map[string]model.DayHours{
			"monday": {Open: true, Start: "09:00", End: "12:00"},
		},
		Services:        []string{model.ServiceDaycare},
		SlotDurationMin: 60,
	}
}

func confirmedBooking(start, end time.Time) *model.Booking {
	return &model.Booking{
		ID:        "booking-" + start.Format("15:04"),
		VenueID:   "venue-1",
		Status:    model.BookingConfirmed,
		StartTime: start,
		EndTime:   end,
	}
}

func newAvailabilityFixture(capacity int, bookings []*model.Booking, buckets []*model.OccupancyBucket) (AvailabilityService, *stubOccupancyStore) {
	cfg := &config.Config{
		Log:                 logger.New(logger.Config{Output: io.Discard}),
		MaxAvailabilityDays: 31,
	}
	occupancy := &stubOccupancyStore{buckets: buckets}
	svc := NewAvailabilityService(
		&stubVenueDirectory{venue: availabilityVenue(capacity)},
		&stubBookingReader{bookings: bookings},
		occupancy,
		cfg,
	)
	return svc, occupancy
}

func TestAvailability(t *testing.T) {
	t.Run("full windows are omitted", func(t *testing.T) {
		// Capacity 1 and a 9-10 booking leaves 10-11 and 11-12 free.
		svc, _ := newAvailabilityFixture(1, []*model.Booking{
			confirmedBooking(
				time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC),
			),
		}, nil)

		windows, err := svc.Availability(context.Background(), "venue-1", monday, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(windows) != 2 {
			t.Fatalf("expected 2 free windows, got %d", len(windows))
		}
		if !windows[0].Start.Equal(time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("expected first free window at 10:00, got %v", windows[0].Start)
		}
	})

	t.Run("partially booked windows carry counts", func(t *testing.T) {
		svc, _ := newAvailabilityFixture(3, []*model.Booking{
			confirmedBooking(
				time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2027, 3, 1, 11, 0, 0, 0, time.UTC),
			),
		}, nil)

		windows, err := svc.Availability(context.Background(), "venue-1", monday, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(windows) != 3 {
			t.Fatalf("expected all 3 windows free, got %d", len(windows))
		}
		if windows[0].Reserved != 1 || windows[0].FreeCapacity != 2 {
			t.Errorf("expected 9:00 window 1 reserved / 2 free, got %d/%d",
				windows[0].Reserved, windows[0].FreeCapacity)
		}
		if windows[2].Reserved != 0 || windows[2].FreeCapacity != 3 {
			t.Errorf("expected 11:00 window untouched, got %d/%d",
				windows[2].Reserved, windows[2].FreeCapacity)
		}
	})

	t.Run("unoffered service yields empty list", func(t *testing.T) {
		svc, _ := newAvailabilityFixture(3, nil, nil)

		windows, err := svc.Availability(context.Background(), "venue-1", monday, model.ServiceGrooming)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(windows) != 0 {
			t.Errorf("expected empty list for unoffered service, got %d", len(windows))
		}
	})

	t.Run("unknown venue maps to not found", func(t *testing.T) {
		svc, _ := newAvailabilityFixture(3, nil, nil)

		_, err := svc.Availability(context.Background(), "venue-9", monday, "")
		if !apperrors.IsCode(err, apperrors.CodeNotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestAvailabilityRange(t *testing.T) {
	svc, _ := newAvailabilityFixture(3, nil, nil)

	byDate, err := svc.AvailabilityRange(context.Background(), "venue-1", monday, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byDate["2027-03-01"]) != 3 {
		t.Errorf("expected 3 windows on monday, got %d", len(byDate["2027-03-01"]))
	}
	if len(byDate["2027-03-02"]) != 0 {
		t.Errorf("expected closed tuesday, got %d windows", len(byDate["2027-03-02"]))
	}
}

func TestReconcile(t *testing.T) {
	bucketStart := time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC)
	booking := confirmedBooking(bucketStart, bucketStart.Add(time.Hour))
	driftedID := model.BucketID("venue-1", bucketStart)

	newBuckets := func() []*model.OccupancyBucket {
		return []*model.OccupancyBucket{
			{
				ID:          driftedID,
				VenueID:     "venue-1",
				BucketStart: bucketStart,
				BucketEnd:   bucketStart.Add(time.Hour),
				Capacity:    3,
				Reserved:    3, // one confirmed booking, so two units leaked
				Version:     7,
			},
			{
				ID:          model.BucketID("venue-1", bucketStart.Add(time.Hour)),
				VenueID:     "venue-1",
				BucketStart: bucketStart.Add(time.Hour),
				BucketEnd:   bucketStart.Add(2 * time.Hour),
				Capacity:    3,
				Reserved:    0,
				Version:     2,
			},
		}
	}

	t.Run("reports drifted buckets", func(t *testing.T) {
		svc, occupancy := newAvailabilityFixture(3, []*model.Booking{booking}, newBuckets())

		drifts, err := svc.Reconcile(context.Background(), "venue-1", monday, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drifts) != 1 {
			t.Fatalf("expected 1 drifted bucket, got %d", len(drifts))
		}
		if drifts[0].Stored != 3 || drifts[0].Recomputed != 1 {
			t.Errorf("expected stored 3 / recomputed 1, got %d/%d", drifts[0].Stored, drifts[0].Recomputed)
		}
		if len(occupancy.repaired) != 0 {
			t.Error("expected no repair without the repair flag")
		}
	})

	t.Run("repairs drift when asked", func(t *testing.T) {
		svc, occupancy := newAvailabilityFixture(3, []*model.Booking{booking}, newBuckets())

		if _, err := svc.Reconcile(context.Background(), "venue-1", monday, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := occupancy.repaired[driftedID]; got != 1 {
			t.Errorf("expected bucket repaired to 1, got %d", got)
		}
		if len(occupancy.repaired) != 1 {
			t.Errorf("expected only the drifted bucket repaired, got %d", len(occupancy.repaired))
		}
	})
}
