package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavasques/scribesync/storage"
)

// memQuotaStore implements storage.QuotaStore in memory.
type memQuotaStore struct {
	records map[string]*storage.QuotaRecord
}

func newMemQuotaStore() *memQuotaStore {
	return &memQuotaStore{records: make(map[string]*storage.QuotaRecord)}
}

func (m *memQuotaStore) GetQuotaRecord(ctx context.Context, date string) (*storage.QuotaRecord, error) {
	if r, ok := m.records[date]; ok {
		rec := *r
		return &rec, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memQuotaStore) PutQuotaRecord(ctx context.Context, record *storage.QuotaRecord) error {
	rec := *record
	m.records[record.Date] = &rec
	return nil
}

func newTestTracker(store storage.QuotaStore, limit int, now time.Time) *Tracker {
	tr := NewTracker(store, limit, zerolog.Nop())
	tr.now = func() time.Time { return now }
	return tr
}

func TestCheckAndReserveAllowsWithinLimit(t *testing.T) {
	store := newMemQuotaStore()
	tr := newTestTracker(store, 100, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if err := tr.CheckAndReserve(ctx, 100); err != nil {
		t.Fatalf("CheckAndReserve(100) with empty usage: %v", err)
	}

	// An absent record counts as zero usage; nothing was recorded yet.
	remaining, err := tr.Remaining(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 100 {
		t.Errorf("Remaining() = %d, want 100", remaining)
	}
}

func TestCheckAndReserveDeniesAtBoundary(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tr := newTestTracker(store, 100, now)
	ctx := context.Background()

	if err := tr.RecordUsage(ctx, 99); err != nil {
		t.Fatal(err)
	}

	// One unit left: a cost-1 call passes, a cost-2 call does not.
	if err := tr.CheckAndReserve(ctx, 1); err != nil {
		t.Errorf("CheckAndReserve(1) at 99/100: %v", err)
	}

	err := tr.CheckAndReserve(ctx, 2)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("CheckAndReserve(2) error = %v, want *ExceededError", err)
	}
	if exceeded.Used != 99 || exceeded.Limit != 100 {
		t.Errorf("ExceededError = %+v, want used 99 limit 100", exceeded)
	}

	wantReset := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if !exceeded.ResetAt.Equal(wantReset) {
		t.Errorf("ResetAt = %v, want next midnight %v", exceeded.ResetAt, wantReset)
	}
}

func TestRecordUsagePersistsIncrements(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tr := newTestTracker(store, 1000, now)
	ctx := context.Background()

	for _, cost := range []int{1, 100, 1} {
		if err := tr.RecordUsage(ctx, cost); err != nil {
			t.Fatal(err)
		}
	}

	record, err := store.GetQuotaRecord(ctx, "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}
	if record.RequestsUsed != 102 {
		t.Errorf("RequestsUsed = %d, want 102", record.RequestsUsed)
	}
}

func TestDayRolloverStartsFreshCounter(t *testing.T) {
	store := newMemQuotaStore()
	ctx := context.Background()

	day1 := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	tr := newTestTracker(store, 100, day1)
	if err := tr.RecordUsage(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if err := tr.CheckAndReserve(ctx, 1); err == nil {
		t.Fatal("expected denial at limit")
	}

	// Next day: new record, full budget; yesterday's record survives.
	tr.now = func() time.Time { return day1.Add(2 * time.Hour) }
	if err := tr.CheckAndReserve(ctx, 100); err != nil {
		t.Errorf("CheckAndReserve after rollover: %v", err)
	}
	if _, err := store.GetQuotaRecord(ctx, "2026-08-28"); err != nil {
		t.Error("previous day's record was not preserved")
	}
}
