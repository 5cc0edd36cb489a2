package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	bookingerrors "dogdays/internal/bookings/errors"
	"dogdays/internal/bookings/validator"
	ledgererrors "dogdays/internal/ledger/errors"
	ledgerservice "dogdays/internal/ledger/service"
	venueerrors "dogdays/internal/venues/errors"
	"dogdays/pkg/config"
	apperrors "dogdays/pkg/errors"
	"dogdays/pkg/logger"
	"dogdays/pkg/model"
)

type fakeBookingRepository struct {
	mu       sync.Mutex
	byID     map[string]model.Booking
	byIdem   map[string]string
	inserted int
}

func newFakeBookingRepository() *fakeBookingRepository {
	return &fakeBookingRepository{
		byID:   make(map[string]model.Booking),
		byIdem: make(map[string]string),
	}
}

func (f *fakeBookingRepository) InsertPending(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byIdem[booking.IdempotencyKey]; exists {
		return bookingerrors.ErrDuplicateIdempotency
	}
	now := time.Now().UTC()
	booking.Status = model.BookingPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	f.byID[booking.ID] = *booking
	f.byIdem[booking.IdempotencyKey] = booking.ID
	f.inserted++
	return nil
}

func (f *fakeBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.byID[id]
	if !ok {
		return nil, bookingerrors.ErrBookingNotFound
	}
	copied := booking
	return &copied, nil
}

func (f *fakeBookingRepository) FindByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byIdem[key]
	if !ok {
		return nil, bookingerrors.ErrBookingNotFound
	}
	booking := f.byID[id]
	copied := booking
	return &copied, nil
}

func (f *fakeBookingRepository) FindByOwner(_ context.Context, ownerID string, limit, offset int64) ([]*model.Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []*model.Booking
	for _, booking := range f.byID {
		if booking.OwnerID == ownerID {
			copied := booking
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartTime.After(matches[j].StartTime)
	})
	total := int64(len(matches))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

func (f *fakeBookingRepository) FindConfirmedOverlapping(_ context.Context, venueID string, start, end time.Time) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []*model.Booking
	for _, booking := range f.byID {
		if booking.VenueID == venueID && booking.Status == model.BookingConfirmed && booking.Overlaps(start, end) {
			copied := booking
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

func (f *fakeBookingRepository) UpdateStatusConditional(_ context.Context, booking *model.Booking, fromStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[booking.ID]
	if !ok || stored.Status != fromStatus {
		return bookingerrors.ErrStatusMismatch
	}
	booking.UpdatedAt = time.Now().UTC()
	f.byID[booking.ID] = *booking
	return nil
}

func (f *fakeBookingRepository) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if booking, ok := f.byID[id]; ok {
		delete(f.byIdem, booking.IdempotencyKey)
		delete(f.byID, id)
	}
	return nil
}

type fakeOccupancyRepository struct {
	mu      sync.Mutex
	buckets map[string]model.OccupancyBucket
}

func newFakeOccupancyRepository() *fakeOccupancyRepository {
	return &fakeOccupancyRepository{buckets: make(map[string]model.OccupancyBucket)}
}

func (f *fakeOccupancyRepository) EnsureBuckets(_ context.Context, buckets []*model.OccupancyBucket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bucket := range buckets {
		if _, exists := f.buckets[bucket.ID]; !exists {
			stored := *bucket
			stored.Reserved = 0
			stored.Version = 0
			f.buckets[bucket.ID] = stored
		}
	}
	return nil
}

func (f *fakeOccupancyRepository) GetBuckets(_ context.Context, ids []string) ([]*model.OccupancyBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*model.OccupancyBucket, 0, len(ids))
	for _, id := range ids {
		if bucket, ok := f.buckets[id]; ok {
			copied := bucket
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeOccupancyRepository) IncrementReserved(_ context.Context, id string, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok {
		return bookingerrors.ErrBucketNotFound
	}
	if bucket.Version != expectedVersion {
		return bookingerrors.ErrBucketVersionStale
	}
	bucket.Reserved++
	bucket.Version++
	f.buckets[id] = bucket
	return nil
}

func (f *fakeOccupancyRepository) Release(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok || bucket.Reserved == 0 {
		return nil
	}
	bucket.Reserved--
	bucket.Version++
	f.buckets[id] = bucket
	return nil
}

func (f *fakeOccupancyRepository) FindByVenueRange(_ context.Context, venueID string, start, end time.Time) ([]*model.OccupancyBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.OccupancyBucket
	for _, bucket := range f.buckets {
		if bucket.VenueID == venueID && bucket.BucketStart.Before(end) && bucket.BucketEnd.After(start) {
			copied := bucket
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeOccupancyRepository) SetReserved(_ context.Context, id string, reserved int, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok {
		return bookingerrors.ErrBucketNotFound
	}
	if bucket.Version != expectedVersion {
		return bookingerrors.ErrBucketVersionStale
	}
	bucket.Reserved = reserved
	bucket.Version++
	f.buckets[id] = bucket
	return nil
}

func (f *fakeOccupancyRepository) reserved(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[id].Reserved
}

func (f *fakeOccupancyRepository) maxReserved() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, bucket := range f.buckets {
		if bucket.Reserved > highest {
			highest = bucket.Reserved
		}
	}
	return highest
}

type fakeVenueDirectory struct {
	venues map[string]*model.Venue
}

func (f *fakeVenueDirectory) FindByID(_ context.Context, id string) (*model.Venue, error) {
	venue, ok := f.venues[id]
	if !ok {
		return nil, venueerrors.ErrVenueNotFound
	}
	return venue, nil
}

type fakeDogDirectory struct {
	dogs map[string]*model.Dog
}

func (f *fakeDogDirectory) FindByID(_ context.Context, id string) (*model.Dog, error) {
	dog, ok := f.dogs[id]
	if !ok {
		return nil, venueerrors.ErrDogNotFound
	}
	return dog, nil
}

type fakeLedgerRepository struct {
	mu       sync.Mutex
	accounts map[string]model.SubscriptionAccount
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{accounts: make(map[string]model.SubscriptionAccount)}
}

func (f *fakeLedgerRepository) Create(_ context.Context, account *model.SubscriptionAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.Version = 0
	f.accounts[account.OwnerID] = *account
	return nil
}

func (f *fakeLedgerRepository) FindByOwner(_ context.Context, ownerID string) (*model.SubscriptionAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[ownerID]
	if !ok {
		return nil, ledgererrors.ErrAccountNotFound
	}
	copied := account
	return &copied, nil
}

func (f *fakeLedgerRepository) ReplaceConditional(_ context.Context, account *model.SubscriptionAccount, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[account.OwnerID]
	if !ok {
		return ledgererrors.ErrAccountNotFound
	}
	if stored.Version != expectedVersion {
		return ledgererrors.ErrVersionMismatch
	}
	account.Version = expectedVersion + 1
	f.accounts[account.OwnerID] = *account
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (f *fakePublisher) BookingConfirmed(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, booking.ID)
	return nil
}

func (f *fakePublisher) BookingCancelled(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, booking.ID)
	return nil
}

func (f *fakePublisher) confirmedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmed)
}

type fixture struct {
	svc       *reservationService
	bookings  *fakeBookingRepository
	occupancy *fakeOccupancyRepository
	ledger    *fakeLedgerRepository
	publisher *fakePublisher
	venue     *model.Venue
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                    logger.New(logger.Config{Output: io.Discard}),
		ClaimRetryAttempts:     5,
		ClaimRetryBackoff:      time.Millisecond,
		OverageHourlyRate:      18.0,
		SubscriptionHourlyRate: 12.0,
		RefundCutoff:           0,
	}
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	venue := &model.Venue{
		ID:       "venue-1",
		Name:     "Happy Paws",
		Capacity: capacity,
		OperatingHours: map[string]model.DayHours{
			"monday":  {Open: true, Start: "08:00", End: "18:00"},
			"tuesday": {Open: true, Start: "08:00", End: "18:00"},
		},
		Services:        []string{model.ServiceDaycare, model.ServiceWalking, model.ServiceBoarding},
		SlotDurationMin: 60,
	}

	cfg := testConfig()
	bookings := newFakeBookingRepository()
	occupancy := newFakeOccupancyRepository()
	ledgerRepo := newFakeLedgerRepository()
	publisher := &fakePublisher{}

	svc := NewReservationService(
		bookings,
		occupancy,
		&fakeVenueDirectory{venues: map[string]*model.Venue{venue.ID: venue}},
		&fakeDogDirectory{dogs: map[string]*model.Dog{
			"dog-1": {ID: "dog-1", OwnerID: "owner-1", Name: "Rex"},
			"dog-2": {ID: "dog-2", OwnerID: "owner-2", Name: "Luna"},
		}},
		ledgerservice.NewLedgerService(ledgerRepo, cfg),
		validator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	).(*reservationService)

	return &fixture{
		svc:       svc,
		bookings:  bookings,
		occupancy: occupancy,
		ledger:    ledgerRepo,
		publisher: publisher,
		venue:     venue,
	}
}

// 2027-03-01 is a Monday.
func request(key string, startHour, endHour int) *model.BookingRequest {
	return &model.BookingRequest{
		OwnerID:        "owner-1",
		DogID:          "dog-1",
		VenueID:        "venue-1",
		ServiceType:    model.ServiceDaycare,
		StartTime:      time.Date(2027, 3, 1, startHour, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2027, 3, 1, endHour, 0, 0, 0, time.UTC),
		IdempotencyKey: key,
	}
}

func (f *fixture) subscribe(t *testing.T, planHours, used float64) {
	t.Helper()
	periodStart := time.Date(2027, 2, 15, 0, 0, 0, 0, time.UTC)
	err := f.ledger.Create(context.Background(), &model.SubscriptionAccount{
		OwnerID:             "owner-1",
		PlanHoursPerPeriod:  planHours,
		RolloverCapFraction: 0.5,
		PeriodStart:         periodStart,
		PeriodEnd:           periodStart.AddDate(0, 1, 0),
		HoursUsed:           used,
		Active:              true,
	})
	if err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}

func TestCreateAdHocBooking(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	booking, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.BookingConfirmed {
		t.Errorf("expected confirmed, got %s", booking.Status)
	}
	// 3 hours of daycare at 15/hour, no subscription.
	if booking.Price != 45 {
		t.Errorf("expected price 45, got %f", booking.Price)
	}
	if booking.HoursFromSubscription != 0 {
		t.Errorf("expected no subscription hours, got %f", booking.HoursFromSubscription)
	}
	if f.publisher.confirmedCount() != 1 {
		t.Errorf("expected 1 confirmed event, got %d", f.publisher.confirmedCount())
	}
	for hour := 9; hour < 12; hour++ {
		id := model.BucketID("venue-1", time.Date(2027, 3, 1, hour, 0, 0, 0, time.UTC))
		if got := f.occupancy.reserved(id); got != 1 {
			t.Errorf("expected bucket %s reserved 1, got %d", id, got)
		}
	}
}

func TestCreateSubscriptionSplit(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }
	// 20 plan hours with 15 used leaves 5 remaining.
	f.subscribe(t, 20, 15)

	first, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.HoursFromSubscription != 3 || first.HoursOverage != 0 {
		t.Errorf("expected 3 subscription hours and no overage, got %f/%f",
			first.HoursFromSubscription, first.HoursOverage)
	}
	if first.Price != 0 {
		t.Errorf("expected prepaid booking priced at 0, got %f", first.Price)
	}

	second, err := f.svc.Create(context.Background(), request("req-0002-bbbb", 13, 17))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.HoursFromSubscription != 2 || second.HoursOverage != 2 {
		t.Errorf("expected 2 subscription hours and 2 overage, got %f/%f",
			second.HoursFromSubscription, second.HoursOverage)
	}
	// 2 overage hours at 18/hour.
	if second.Price != 36 {
		t.Errorf("expected price 36, got %f", second.Price)
	}

	account, _ := f.ledger.FindByOwner(context.Background(), "owner-1")
	if account.Remaining() != 0 {
		t.Errorf("expected balance fully consumed, got %f", account.Remaining())
	}
}

func TestCreateOverageDeclined(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }
	f.subscribe(t, 20, 18)

	req := request("req-0001-aaaa", 9, 13)
	req.DeclineOverage = true

	_, err := f.svc.Create(context.Background(), req)
	if !apperrors.IsCode(err, apperrors.CodeOverageDeclined) {
		t.Fatalf("expected OVERAGE_DECLINED, got %v", err)
	}

	// The claim must be unwound and the pending record removed.
	id := model.BucketID("venue-1", time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC))
	if got := f.occupancy.reserved(id); got != 0 {
		t.Errorf("expected capacity released, got reserved %d", got)
	}
	if _, err := f.bookings.FindByIdempotencyKey(context.Background(), "req-0001-aaaa"); err == nil {
		t.Error("expected pending booking removed during compensation")
	}
	account, _ := f.ledger.FindByOwner(context.Background(), "owner-1")
	if account.HoursUsed != 18 {
		t.Errorf("expected ledger untouched, got %f hours used", account.HoursUsed)
	}
}

func TestCreateSlotUnavailable(t *testing.T) {
	f := newFixture(t, 1)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	if _, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.Create(context.Background(), request("req-0002-bbbb", 10, 12))
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Fatalf("expected SLOT_UNAVAILABLE, got %v", err)
	}

	// The 11:00 bucket was never claimable alone; it must not leak a unit.
	id := model.BucketID("venue-1", time.Date(2027, 3, 1, 11, 0, 0, 0, time.UTC))
	if got := f.occupancy.reserved(id); got != 0 {
		t.Errorf("expected untouched bucket, got reserved %d", got)
	}
}

func TestCreateIdempotentReplay(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	first, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replay, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}

	if replay.ID != first.ID {
		t.Errorf("expected replay to return booking %s, got %s", first.ID, replay.ID)
	}
	if f.bookings.inserted != 1 {
		t.Errorf("expected a single stored booking, got %d", f.bookings.inserted)
	}
	id := model.BucketID("venue-1", time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC))
	if got := f.occupancy.reserved(id); got != 1 {
		t.Errorf("expected a single reservation after replay, got %d", got)
	}
}

func TestCreateConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*model.Booking, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Errorf("worker %d got booking %s, want %s", i, results[i].ID, results[0].ID)
		}
	}
	if f.bookings.inserted != 1 {
		t.Errorf("expected a single stored booking, got %d", f.bookings.inserted)
	}
	id := model.BucketID("venue-1", time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC))
	if got := f.occupancy.reserved(id); got != 1 {
		t.Errorf("expected a single reservation, got %d", got)
	}
}

func TestCreateConcurrentCapacityRace(t *testing.T) {
	f := newFixture(t, 2)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	keys := []string{"req-0001-aaaa", "req-0002-bbbb", "req-0003-cccc"}
	var wg sync.WaitGroup
	errs := make([]error, len(keys))

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), request(key, 9, 11))
		}(i, key)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) &&
			!apperrors.IsCode(err, apperrors.CodeConcurrencyConflict) {
			t.Errorf("unexpected failure mode: %v", err)
		}
	}
	if succeeded != 2 {
		t.Errorf("expected exactly 2 of 3 requests to win capacity 2, got %d", succeeded)
	}
	if got := f.occupancy.maxReserved(); got > 2 {
		t.Errorf("reserved count %d exceeds capacity 2", got)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }
	f.subscribe(t, 20, 0)

	booking, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), booking.ID, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	id := model.BucketID("venue-1", time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC))
	if got := f.occupancy.reserved(id); got != 0 {
		t.Errorf("expected capacity released, got reserved %d", got)
	}
	account, _ := f.ledger.FindByOwner(context.Background(), "owner-1")
	if account.HoursUsed != 0 {
		t.Errorf("expected hours refunded, got %f used", account.HoursUsed)
	}

	// Cancelling again is a no-op returning the current state.
	again, err := f.svc.Cancel(context.Background(), booking.ID, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error on repeat cancel: %v", err)
	}
	if again.Status != model.BookingCancelled {
		t.Errorf("expected cancelled on repeat, got %s", again.Status)
	}
	if got := f.occupancy.reserved(id); got != 0 {
		t.Errorf("expected no double release, got reserved %d", got)
	}
}

func TestCancelAfterStartKeepsHours(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }
	f.subscribe(t, 20, 0)

	booking, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Past the start time: capacity is still released but the consumed
	// hours stay consumed.
	f.svc.now = func() time.Time { return time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC) }

	if _, err := f.svc.Cancel(context.Background(), booking.ID, "owner-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account, _ := f.ledger.FindByOwner(context.Background(), "owner-1")
	if account.HoursUsed != 2 {
		t.Errorf("expected hours kept after cutoff, got %f used", account.HoursUsed)
	}
}

func TestCancelWrongOwner(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	booking, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Cancel(context.Background(), booking.ID, "owner-2")
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	booking, err := f.svc.Create(context.Background(), request("req-0001-aaaa", 9, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Complete(context.Background(), booking.ID)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT before the booking ends, got %v", err)
	}

	f.svc.now = func() time.Time { return time.Date(2027, 3, 1, 12, 0, 0, 0, time.UTC) }
	completed, err := f.svc.Complete(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Status != model.BookingCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}

	// Completing again is a no-op.
	again, err := f.svc.Complete(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("unexpected error on repeat complete: %v", err)
	}
	if again.Status != model.BookingCompleted {
		t.Errorf("expected completed on repeat, got %s", again.Status)
	}
}

func TestCreateDogOwnershipEnforced(t *testing.T) {
	f := newFixture(t, 5)
	f.svc.now = func() time.Time { return time.Date(2027, 2, 20, 0, 0, 0, 0, time.UTC) }

	req := request("req-0001-aaaa", 9, 11)
	req.DogID = "dog-2"

	_, err := f.svc.Create(context.Background(), req)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected FORBIDDEN for another owner's dog, got %v", err)
	}
}
