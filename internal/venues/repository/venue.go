package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	venueerrors "dogdays/internal/venues/errors"
	"dogdays/pkg/config"
	"dogdays/pkg/model"
)

const (
	VenuesCollection = "Venues"
	DogsCollection   = "Dogs"
)

// VenueDirectory reads venue configuration. Venue records are owned by the
// venue-administration service; nothing here writes them.
type VenueDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
}

// DogDirectory resolves dog ownership. Dog records are owned by the external
// dog-management service.
type DogDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Dog, error)
}

type mongoVenueDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVenueDirectory(cfg *config.Config) VenueDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVenueDirectory{
		cfg:        cfg,
		collection: db.Collection(VenuesCollection),
	}
}

func (r *mongoVenueDirectory) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var venue model.Venue
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueerrors.ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}

	if venue.SlotDurationMin == 0 {
		venue.SlotDurationMin = r.cfg.DefaultSlotDurationMin
	}
	return &venue, nil
}

type mongoDogDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDogDirectory(cfg *config.Config) DogDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDogDirectory{
		cfg:        cfg,
		collection: db.Collection(DogsCollection),
	}
}

func (r *mongoDogDirectory) FindByID(ctx context.Context, id string) (*model.Dog, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var dog model.Dog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&dog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueerrors.ErrDogNotFound
		}
		return nil, fmt.Errorf("failed to find dog: %w", err)
	}

	return &dog, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}
