package youtube

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/gavasques/scribesync/logging"
	"github.com/gavasques/scribesync/quota"
	"github.com/gavasques/scribesync/ratelimit"
	"github.com/gavasques/scribesync/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FetchErrorKind
	}{
		{
			"quota reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}},
			KindQuotaExceeded,
		},
		{
			"daily limit reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}},
			KindQuotaExceeded,
		},
		{
			"rate limit reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			KindRateLimited,
		},
		{
			"http 429",
			&googleapi.Error{Code: 429},
			KindRateLimited,
		},
		{
			"http 401",
			&googleapi.Error{Code: 401},
			KindAuthExpired,
		},
		{
			"plain 403",
			&googleapi.Error{Code: 403},
			KindAuthExpired,
		},
		{
			"http 503",
			&googleapi.Error{Code: 503},
			KindNetwork,
		},
		{
			"http 404",
			&googleapi.Error{Code: 404},
			KindUnknown,
		},
		{
			"deadline",
			context.DeadlineExceeded,
			KindNetwork,
		},
		{
			"wrapped googleapi error",
			fmt.Errorf("call failed: %w", &googleapi.Error{Code: 500}),
			KindNetwork,
		},
		{
			"opaque error",
			errors.New("something odd"),
			KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) does not wrap the cause", tt.err)
			}
		})
	}
}

func TestClassifyPassesThroughFetchError(t *testing.T) {
	orig := &FetchError{Kind: KindQuotaExceeded, ResetAt: time.Now().Add(time.Hour)}
	got := classify(fmt.Errorf("dispatch: %w", orig))
	if got != orig {
		t.Errorf("classify returned %v, want the original typed error", got)
	}
}

func TestFetchErrorTransience(t *testing.T) {
	tests := []struct {
		kind      FetchErrorKind
		transient bool
		fatal     bool
	}{
		{KindNetwork, true, false},
		{KindRateLimited, true, false},
		{KindQuotaExceeded, false, true},
		{KindAuthExpired, false, true},
		{KindUnknown, false, false},
	}
	for _, tt := range tests {
		fe := &FetchError{Kind: tt.kind}
		if fe.IsTransient() != tt.transient {
			t.Errorf("%v: IsTransient = %v, want %v", tt.kind, fe.IsTransient(), tt.transient)
		}
		if fe.IsFatal() != tt.fatal {
			t.Errorf("%v: IsFatal = %v, want %v", tt.kind, fe.IsFatal(), tt.fatal)
		}
	}
}

func TestClassifyItem(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     ItemType
	}{
		{30 * time.Second, ItemTypeShort},
		{61 * time.Second, ItemTypeShort},
		{62 * time.Second, ItemTypeRegular},
		{10 * time.Minute, ItemTypeRegular},
		{0, ItemTypeRegular}, // unknown duration defaults to regular
	}
	for _, tt := range tests {
		if got := classifyItem(tt.duration); got != tt.want {
			t.Errorf("classifyItem(%v) = %v, want %v", tt.duration, got, tt.want)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT45S", 45 * time.Second},
		{"PT1M1S", 61 * time.Second},
		{"PT10M", 10 * time.Minute},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"P1DT1H", 25 * time.Hour},
		{"", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseISODuration(tt.in); got != tt.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// exhaustedQuotaStore reports today's budget as fully used.
type exhaustedQuotaStore struct {
	used int
}

func (s *exhaustedQuotaStore) GetQuotaRecord(_ context.Context, date string) (*storage.QuotaRecord, error) {
	return &storage.QuotaRecord{Date: date, RequestsUsed: s.used}, nil
}

func (s *exhaustedQuotaStore) PutQuotaRecord(_ context.Context, record *storage.QuotaRecord) error {
	s.used = record.RequestsUsed
	return nil
}

func testFetcher(t *testing.T, store storage.QuotaStore, limiter *ratelimit.Limiter) *DataAPIFetcher {
	t.Helper()
	deps := FetcherDeps{
		Quota:   quota.NewTracker(store, quota.DefaultDailyLimit, logging.Nop()),
		Limiter: limiter,
		Logger:  logging.Nop(),
	}
	f, err := NewDataAPIFetcherWithService(nil, "UCabcdefghijklmnopqrstuv", deps)
	if err != nil {
		t.Fatalf("NewDataAPIFetcherWithService: %v", err)
	}
	return f
}

func TestGateDeniesOnQuota(t *testing.T) {
	store := &exhaustedQuotaStore{used: quota.DefaultDailyLimit}
	f := testFetcher(t, store, ratelimit.NewLimiter(time.Minute, 30))

	err := f.gate(context.Background(), 1)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindQuotaExceeded {
		t.Fatalf("gate() = %v, want quota-exceeded fetch error", err)
	}
	if fe.ResetAt.IsZero() {
		t.Error("quota denial carries no reset time")
	}
}

func TestGateDeniesOnRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(time.Minute, 2)
	limiter.Increment()
	limiter.Increment()

	f := testFetcher(t, &exhaustedQuotaStore{}, limiter)

	err := f.gate(context.Background(), 1)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindRateLimited {
		t.Fatalf("gate() = %v, want rate-limited fetch error", err)
	}
	if !fe.IsTransient() {
		t.Error("rate-limited denial should be transient")
	}
}

func TestGateChecksQuotaBeforeLimiter(t *testing.T) {
	// Both gates closed: quota wins, since it is the scarcer resource.
	limiter := ratelimit.NewLimiter(time.Minute, 1)
	limiter.Increment()
	store := &exhaustedQuotaStore{used: quota.DefaultDailyLimit}

	f := testFetcher(t, store, limiter)

	err := f.gate(context.Background(), 1)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindQuotaExceeded {
		t.Fatalf("gate() = %v, want quota precedence", err)
	}
}

func TestGateAllowsAndConsumesNothing(t *testing.T) {
	limiter := ratelimit.NewLimiter(time.Minute, 5)
	store := &exhaustedQuotaStore{}
	f := testFetcher(t, store, limiter)

	if err := f.gate(context.Background(), 1); err != nil {
		t.Fatalf("gate() = %v, want nil", err)
	}

	// Passing the gate reserves nothing; accounting happens after the
	// dispatched call succeeds.
	if store.used != 0 {
		t.Errorf("quota used = %d after gate check", store.used)
	}
	if got := limiter.Remaining(); got != 5 {
		t.Errorf("limiter remaining = %d, want 5", got)
	}
}

func TestDispatchRecordsUsageOnSuccess(t *testing.T) {
	limiter := ratelimit.NewLimiter(time.Minute, 5)
	store := &exhaustedQuotaStore{}
	f := testFetcher(t, store, limiter)

	err := f.dispatch(context.Background(), 2, func() error { return nil })
	if err != nil {
		t.Fatalf("dispatch = %v", err)
	}
	if store.used != 2 {
		t.Errorf("quota used = %d, want 2", store.used)
	}
	if got := limiter.Remaining(); got != 4 {
		t.Errorf("limiter remaining = %d, want 4", got)
	}
}

func TestDispatchSkipsAccountingOnFailure(t *testing.T) {
	limiter := ratelimit.NewLimiter(time.Minute, 5)
	store := &exhaustedQuotaStore{}
	f := testFetcher(t, store, limiter)

	err := f.dispatch(context.Background(), 1, func() error {
		return &googleapi.Error{Code: 503}
	})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindNetwork {
		t.Fatalf("dispatch = %v, want network fetch error", err)
	}
	if store.used != 0 {
		t.Errorf("quota used = %d after failed call", store.used)
	}
	if got := limiter.Remaining(); got != 5 {
		t.Errorf("limiter remaining = %d, want 5", got)
	}
}

func TestFetchErrorKindHelpers(t *testing.T) {
	quotaErr := fmt.Errorf("wrap: %w", &FetchError{Kind: KindQuotaExceeded})
	if !IsQuotaExceeded(quotaErr) {
		t.Error("IsQuotaExceeded missed a wrapped quota error")
	}
	if IsAuthExpired(quotaErr) || IsRateLimited(quotaErr) {
		t.Error("kind helpers matched the wrong kind")
	}
	if IsQuotaExceeded(errors.New("plain")) {
		t.Error("IsQuotaExceeded matched an untyped error")
	}
}

func TestInvalidChannelReference(t *testing.T) {
	// The fetcher has no service wired; a malformed reference must be
	// rejected before any call is even constructed.
	for _, channel := range []string{"not a channel", "", "UCtooshort", "watch?v=dQw4w9WgXcQ"} {
		f := testFetcher(t, &exhaustedQuotaStore{}, ratelimit.NewLimiter(time.Minute, 30))
		f.channel = channel

		err := f.ensureResolved(context.Background())
		if !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("ensureResolved() with channel %q = %v, want ErrInvalidChannel", channel, err)
		}
	}
}
