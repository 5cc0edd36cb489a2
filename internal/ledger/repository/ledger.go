package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	ledgererrors "dogdays/internal/ledger/errors"
	"dogdays/pkg/config"
	"dogdays/pkg/model"
)

const (
	CollectionName = "SubscriptionAccounts"
)

// LedgerRepository persists subscription accounts. The only write primitive
// is a version-conditioned replace: there is no unconditional update, so
// every mutation is a compare-and-swap.
type LedgerRepository interface {
	Create(ctx context.Context, account *model.SubscriptionAccount) error
	FindByOwner(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error)
	ReplaceConditional(ctx context.Context, account *model.SubscriptionAccount, expectedVersion int64) error
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoLedgerRepository) Create(ctx context.Context, account *model.SubscriptionAccount) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	account.Version = 0
	if _, err := r.collection.InsertOne(ctx, account); err != nil {
		return fmt.Errorf("failed to create subscription account: %w", err)
	}
	return nil
}

func (r *mongoLedgerRepository) FindByOwner(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var account model.SubscriptionAccount
	err := r.collection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledgererrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find subscription account: %w", err)
	}
	return &account, nil
}

// ReplaceConditional writes the account only if the stored version still
// equals expectedVersion. A zero match count means another writer got there
// first and the caller must re-read before retrying.
func (r *mongoLedgerRepository) ReplaceConditional(ctx context.Context, account *model.SubscriptionAccount, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	account.Version = expectedVersion + 1
	filter := bson.M{"_id": account.OwnerID, "version": expectedVersion}

	result, err := r.collection.ReplaceOne(ctx, filter, account)
	if err != nil {
		account.Version = expectedVersion
		return fmt.Errorf("failed to update subscription account: %w", err)
	}
	if result.MatchedCount == 0 {
		account.Version = expectedVersion
		return ledgererrors.ErrVersionMismatch
	}
	return nil
}

func (r *mongoLedgerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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
