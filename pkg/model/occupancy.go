package model

import (
	"fmt"
	"time"
)

// OccupancyBucket is the materialized reserved-count for one slot-granularity
// window at one venue. It is the unit of the optimistic capacity claim: every
// increment carries a version precondition, so two concurrent claims on the
// same bucket cannot both apply against the same read.
//
// The bucket is a materialization of the count of confirmed bookings
// overlapping the window; Reconcile recomputes it from bookings to verify the
// two never drift apart.
type OccupancyBucket struct {
	ID          string    `json:"id" bson:"_id"`
	VenueID     string    `json:"venue_id" bson:"venue_id"`
	BucketStart time.Time `json:"bucket_start" bson:"bucket_start"`
	BucketEnd   time.Time `json:"bucket_end" bson:"bucket_end"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	Reserved    int       `json:"reserved" bson:"reserved"`
	Version     int64     `json:"version" bson:"version"`
}

// BucketID builds the deterministic bucket key for a venue and window start.
func BucketID(venueID string, bucketStart time.Time) string {
	return fmt.Sprintf("%s#%s", venueID, bucketStart.UTC().Format(time.RFC3339))
}

// Free is the remaining capacity, floored at zero.
func (b *OccupancyBucket) Free() int {
	free := b.Capacity - b.Reserved
	if free < 0 {
		return 0
	}
	return free
}
