package services

import (
	"context"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/storage"
)

// QuotaLedger owns every read and mutation of a user's consumed
// storage. Nothing else in the service touches storage_used.
type QuotaLedger struct {
	accounts storage.AccountStore
}

func NewQuotaLedger(accounts storage.AccountStore) *QuotaLedger {
	return &QuotaLedger{accounts: accounts}
}

// Usage returns the owner's current counters.
func (l *QuotaLedger) Usage(ctx context.Context, ownerID string) (*models.User, error) {
	u, err := l.accounts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	return u, nil
}

// CheckAdmission is the optimistic quota check at intent-creation
// time. It places no hold: concurrent intents can each pass and
// jointly over-commit before either confirms. Enforcement happens
// against the committed total only.
func (l *QuotaLedger) CheckAdmission(ctx context.Context, ownerID string, size int64) error {
	u, err := l.Usage(ctx, ownerID)
	if err != nil {
		return err
	}
	if u.StorageUsed+size > u.StorageLimit {
		return apperr.New(apperr.KindQuotaExceeded,
			"storage quota exceeded: used %d + requested %d > limit %d",
			u.StorageUsed, size, u.StorageLimit)
	}
	return nil
}

// Increment adds amount to the owner's consumed storage. Used on
// confirm, with the verified object size.
func (l *QuotaLedger) Increment(ctx context.Context, ownerID string, amount int64) error {
	return l.accounts.IncrementUsage(ctx, ownerID, amount)
}

// GuardedDecrement subtracts amount only if the counter currently
// covers it. A failed guard means a bug or an already-reclaimed file;
// callers must abort the operation that asked for it.
func (l *QuotaLedger) GuardedDecrement(ctx context.Context, ownerID string, amount int64) error {
	if amount == 0 {
		return nil
	}
	ok, err := l.accounts.DecrementUsageGuarded(ctx, ownerID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindInconsistentState,
			"guarded decrement of %d failed: storage_used below amount", amount)
	}
	return nil
}
