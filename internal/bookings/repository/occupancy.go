package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingerrors "dogdays/internal/bookings/errors"
	"dogdays/pkg/config"
	"dogdays/pkg/model"
)

const (
	OccupancyCollection = "OccupancyBuckets"
)

// OccupancyRepository persists per-window reserved counts. IncrementReserved
// is the optimistic claim primitive: the write is conditioned on the version
// the caller read, so a lost race shows up as ErrBucketVersionStale rather
// than a silent double-claim.
type OccupancyRepository interface {
	EnsureBuckets(ctx context.Context, buckets []*model.OccupancyBucket) error
	GetBuckets(ctx context.Context, ids []string) ([]*model.OccupancyBucket, error)
	IncrementReserved(ctx context.Context, id string, expectedVersion int64) error
	Release(ctx context.Context, id string) error
	FindByVenueRange(ctx context.Context, venueID string, start, end time.Time) ([]*model.OccupancyBucket, error)
	SetReserved(ctx context.Context, id string, reserved int, expectedVersion int64) error
}

type mongoOccupancyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:        cfg,
		collection: db.Collection(OccupancyCollection),
	}
}

// EnsureBuckets upserts the bucket documents with $setOnInsert so an
// existing bucket's reserved count and version are never touched. Safe to
// call from every reservation attempt.
func (r *mongoOccupancyRepository) EnsureBuckets(ctx context.Context, buckets []*model.OccupancyBucket) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(buckets))
	for _, bucket := range buckets {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": bucket.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"venue_id":     bucket.VenueID,
				"bucket_start": bucket.BucketStart,
				"bucket_end":   bucket.BucketEnd,
				"capacity":     bucket.Capacity,
				"reserved":     0,
				"version":      int64(0),
			}}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := r.collection.BulkWrite(ctx, models, opts); err != nil {
		return fmt.Errorf("failed to ensure occupancy buckets: %w", err)
	}
	return nil
}

func (r *mongoOccupancyRepository) GetBuckets(ctx context.Context, ids []string) ([]*model.OccupancyBucket, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancy buckets: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []*model.OccupancyBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode occupancy buckets: %w", err)
	}
	return buckets, nil
}

// IncrementReserved adds one reservation to the bucket, conditioned on the
// version the caller observed.
func (r *mongoOccupancyRepository) IncrementReserved(ctx context.Context, id string, expectedVersion int64) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{"$inc": bson.M{"reserved": 1, "version": 1}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment reserved count: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingerrors.ErrBucketVersionStale
	}
	return nil
}

// Release decrements the reserved count. The reserved>0 guard keeps a
// double compensation from driving the count negative; an unmatched release
// is quietly absorbed for the same reason.
func (r *mongoOccupancyRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "reserved": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"reserved": -1, "version": 1}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release reserved count: %w", err)
	}
	return nil
}

func (r *mongoOccupancyRepository) FindByVenueRange(ctx context.Context, venueID string, start, end time.Time) ([]*model.OccupancyBucket, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"venue_id":     venueID,
		"bucket_start": bson.M{"$lt": end},
		"bucket_end":   bson.M{"$gt": start},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find occupancy buckets: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []*model.OccupancyBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode occupancy buckets: %w", err)
	}
	return buckets, nil
}

// SetReserved overwrites the reserved count, used by reconciliation to
// correct drift. Version-conditioned like every other write.
func (r *mongoOccupancyRepository) SetReserved(ctx context.Context, id string, reserved int, expectedVersion int64) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"reserved": reserved},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set reserved count: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingerrors.ErrBucketVersionStale
	}
	return nil
}

// EnsureOccupancyIndexes creates the range-scan index. Called once at
// startup.
func EnsureOccupancyIndexes(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	collection := db.Collection(OccupancyCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "venue_id", Value: 1}, {Key: "bucket_start", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create occupancy indexes: %w", err)
	}
	return nil
}
