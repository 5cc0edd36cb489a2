package service

import (
	"context"
	"errors"
	"math"
	"time"

	ledgererrors "dogdays/internal/ledger/errors"
	"dogdays/internal/ledger/repository"
	"dogdays/pkg/config"
	apperrors "dogdays/pkg/errors"
	"dogdays/pkg/model"
)

// LedgerService manages prepaid hour balances. Debit takes the version the
// caller read so the caller controls the read-decide-write cycle; Credit and
// AdvancePeriod run their own bounded compare-and-swap loops.
type LedgerService interface {
	GetBalance(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error)
	Debit(ctx context.Context, ownerID string, hours float64, expectedVersion int64) error
	Credit(ctx context.Context, ownerID string, hours float64) error
	AdvancePeriod(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error)
}

type ledgerService struct {
	repo repository.LedgerRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewLedgerService(repo repository.LedgerRepository, cfg *config.Config) LedgerService {
	return &ledgerService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// GetBalance loads the account, first settling any elapsed periods. The
// rollover is applied lazily on access rather than by a scheduler.
func (s *ledgerService) GetBalance(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	account, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if account.PeriodElapsed(s.now()) {
		return s.AdvancePeriod(ctx, ownerID)
	}
	return account, nil
}

// Debit consumes hours against the balance the caller read. A version
// mismatch means concurrent mutation: the caller re-reads, re-prices and
// retries within its own budget.
func (s *ledgerService) Debit(ctx context.Context, ownerID string, hours float64, expectedVersion int64) error {
	if hours <= 0 {
		return apperrors.InvalidInput("Debit hours must be positive")
	}

	account, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	if account.Version != expectedVersion {
		return apperrors.ConcurrencyConflict("Subscription account changed since read")
	}
	if hours > account.Remaining() {
		return apperrors.InsufficientBalance("Subscription balance is insufficient for this debit")
	}

	account.HoursUsed += hours
	if err := s.repo.ReplaceConditional(ctx, account, expectedVersion); err != nil {
		if errors.Is(err, ledgererrors.ErrVersionMismatch) {
			return apperrors.ConcurrencyConflict("Subscription account changed since read")
		}
		return apperrors.Internal("Failed to debit subscription account", err)
	}

	s.cfg.Log.Info("Subscription hours debited",
		"owner_id", ownerID,
		"hours", hours,
		"remaining", account.Remaining(),
	)
	return nil
}

// Credit refunds hours, capped so HoursUsed never drops below zero. Used by
// the cancellation refund path and by claim compensation, so it retries
// contention internally.
func (s *ledgerService) Credit(ctx context.Context, ownerID string, hours float64) error {
	if hours <= 0 {
		return apperrors.InvalidInput("Credit hours must be positive")
	}

	for attempt := 0; attempt < s.cfg.ClaimRetryAttempts; attempt++ {
		account, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}

		account.HoursUsed = math.Max(0, account.HoursUsed-hours)
		err = s.repo.ReplaceConditional(ctx, account, account.Version)
		if err == nil {
			s.cfg.Log.Info("Subscription hours credited",
				"owner_id", ownerID,
				"hours", hours,
				"remaining", account.Remaining(),
			)
			return nil
		}
		if !errors.Is(err, ledgererrors.ErrVersionMismatch) {
			return apperrors.Internal("Failed to credit subscription account", err)
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return err
		}
	}
	return apperrors.ConcurrencyConflict("Subscription account under contention, credit not applied")
}

// AdvancePeriod settles elapsed periods: rollover = min(unused hours,
// cap fraction x allocation), usage resets, and the period windows move
// forward one month at a time until they cover now. Idempotent: a second
// caller observes no elapsed period and returns the account unchanged.
func (s *ledgerService) AdvancePeriod(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error) {
	for attempt := 0; attempt < s.cfg.ClaimRetryAttempts; attempt++ {
		account, err := s.load(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if !account.PeriodElapsed(now) {
			return account, nil
		}

		expectedVersion := account.Version
		for account.PeriodElapsed(now) {
			rolloverCap := account.RolloverCapFraction * account.PlanHoursPerPeriod
			account.HoursRolledOver = math.Min(account.Remaining(), rolloverCap)
			account.HoursUsed = 0
			account.PeriodStart = account.PeriodEnd
			account.PeriodEnd = account.PeriodEnd.AddDate(0, 1, 0)
		}

		err = s.repo.ReplaceConditional(ctx, account, expectedVersion)
		if err == nil {
			s.cfg.Log.Info("Subscription period advanced",
				"owner_id", ownerID,
				"period_start", account.PeriodStart,
				"period_end", account.PeriodEnd,
				"hours_rolled_over", account.HoursRolledOver,
			)
			return account, nil
		}
		if !errors.Is(err, ledgererrors.ErrVersionMismatch) {
			return nil, apperrors.Internal("Failed to advance subscription period", err)
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, apperrors.ConcurrencyConflict("Subscription account under contention, period not advanced")
}

func (s *ledgerService) load(ctx context.Context, ownerID string) (*model.SubscriptionAccount, error) {
	account, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAccountNotFound) {
			return nil, apperrors.NotFoundWithID("Subscription account", ownerID)
		}
		return nil, apperrors.Internal("Failed to load subscription account", err)
	}
	return account, nil
}

func (s *ledgerService) backoff(ctx context.Context, attempt int) error {
	delay := s.cfg.ClaimRetryBackoff * time.Duration(1<<attempt)
	select {
	case <-ctx.Done():
		return apperrors.Timeout("Request cancelled while waiting to retry")
	case <-time.After(delay):
		return nil
	}
}
