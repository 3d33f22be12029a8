// Package quota tracks daily usage of the external YouTube API budget.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavasques/scribesync/storage"
)

// DefaultDailyLimit is the YouTube Data API default daily quota in units.
const DefaultDailyLimit = 10000

// ExceededError is returned when a reservation would exceed the daily
// limit. ResetAt is the next midnight of the tracker's clock; the tracker
// does not schedule anything itself, callers only display it.
type ExceededError struct {
	// Used is the quota units already consumed today.
	Used int
	// Cost is the reservation that was denied.
	Cost int
	// Limit is the configured daily limit.
	Limit int
	// ResetAt is when the daily counter rolls over.
	ResetAt time.Time
}

// Error returns a string representation of the quota error.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota: daily limit exceeded (%d used + %d requested > %d), resets at %s",
		e.Used, e.Cost, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// Tracker is a stateless-per-call guard over the persisted per-day usage
// counter. Concurrent increments from independent processes are accepted
// as eventually consistent; no distributed lock is taken.
type Tracker struct {
	store      storage.QuotaStore
	dailyLimit int
	log        zerolog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewTracker creates a quota tracker over the given store. A non-positive
// dailyLimit falls back to DefaultDailyLimit.
func NewTracker(store storage.QuotaStore, dailyLimit int, log zerolog.Logger) *Tracker {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Tracker{
		store:      store,
		dailyLimit: dailyLimit,
		log:        log,
		now:        time.Now,
	}
}

// CheckAndReserve reports whether a call of the given cost may proceed.
// It returns an *ExceededError when used+cost would exceed the daily
// limit, and nil when the call is allowed. It does not record usage;
// call RecordUsage after a successful dispatch.
func (t *Tracker) CheckAndReserve(ctx context.Context, cost int) error {
	used, err := t.usedToday(ctx)
	if err != nil {
		return err
	}

	if used+cost > t.dailyLimit {
		return &ExceededError{
			Used:    used,
			Cost:    cost,
			Limit:   t.dailyLimit,
			ResetAt: t.resetAt(),
		}
	}
	return nil
}

// RecordUsage persists an incremented usage counter for today.
func (t *Tracker) RecordUsage(ctx context.Context, cost int) error {
	date := t.dateKey()

	record, err := t.store.GetQuotaRecord(ctx, date)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("quota: read usage: %w", err)
		}
		record = &storage.QuotaRecord{Date: date}
	}

	record.RequestsUsed += cost
	if err := t.store.PutQuotaRecord(ctx, record); err != nil {
		return fmt.Errorf("quota: persist usage: %w", err)
	}

	t.log.Debug().
		Str("date", date).
		Int("cost", cost).
		Int("used", record.RequestsUsed).
		Int("limit", t.dailyLimit).
		Msg("quota usage recorded")
	return nil
}

// Remaining returns the quota units left today.
func (t *Tracker) Remaining(ctx context.Context) (int, error) {
	used, err := t.usedToday(ctx)
	if err != nil {
		return 0, err
	}
	remaining := t.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// usedToday reads today's persisted counter, treating an absent record
// as zero usage.
func (t *Tracker) usedToday(ctx context.Context) (int, error) {
	record, err := t.store.GetQuotaRecord(ctx, t.dateKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota: read usage: %w", err)
	}
	return record.RequestsUsed, nil
}

// dateKey returns today's calendar day in the tracker's clock.
func (t *Tracker) dateKey() string {
	return t.now().Format("2006-01-02")
}

// resetAt returns the next midnight of the tracker's clock.
func (t *Tracker) resetAt() time.Time {
	now := t.now()
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
