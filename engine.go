package scribesync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gavasques/scribesync/config"
	"github.com/gavasques/scribesync/ingest"
	"github.com/gavasques/scribesync/progress"
	"github.com/gavasques/scribesync/quota"
	"github.com/gavasques/scribesync/ratelimit"
	"github.com/gavasques/scribesync/retry"
	"github.com/gavasques/scribesync/storage"
	"github.com/gavasques/scribesync/syncer"
	"github.com/gavasques/scribesync/youtube"
)

// SyncLimiterKey is the rate-limiter purpose key for catalog sync calls.
// Other subsystems (e.g. AI processing) use their own keys and never
// share a window with sync.
const SyncLimiterKey = "youtube-sync"

// Engine wires the sync components over one local store. It is the
// library's assembly point; each SyncChannel call produces a fresh
// controller, since controllers are spent after one run.
type Engine struct {
	cfg      *config.Config
	store    *storage.BoltStore
	tracker  *quota.Tracker
	limiters *ratelimit.Registry
	log      zerolog.Logger
}

// NewEngine opens the local store and builds the shared collaborators.
func NewEngine(cfg *config.Config, log zerolog.Logger) (*Engine, error) {
	store, err := storage.NewBoltStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		store:    store,
		tracker:  quota.NewTracker(store, cfg.YouTube.DailyQuotaLimit, log),
		limiters: ratelimit.NewRegistry(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests),
		log:      log,
	}, nil
}

// Store exposes the underlying record store.
func (e *Engine) Store() *storage.BoltStore { return e.store }

// Quota exposes the shared quota tracker.
func (e *Engine) Quota() *quota.Tracker { return e.tracker }

// Close releases the engine's resources.
func (e *Engine) Close() error { return e.store.Close() }

// SyncChannel starts a sync run for the given channel reference (a
// "UC..." ID or an "@handle") and returns its controller. The reporter
// may be nil; run outcomes are always persisted to the store.
func (e *Engine) SyncChannel(ctx context.Context, channel string, runCfg syncer.Config, reporter progress.Reporter) (*syncer.Controller, error) {
	if e.cfg.YouTube.APIKey == "" {
		return nil, fmt.Errorf("youtube api key not configured")
	}

	fetcher, err := youtube.NewDataAPIFetcher(ctx, channel, e.cfg.YouTube.APIKey, youtube.FetcherDeps{
		Quota:   e.tracker,
		Limiter: e.limiters.Get(SyncLimiterKey),
		Logger:  e.log,
	})
	if err != nil {
		return nil, err
	}

	reducer := ingest.NewReducer(e.store, e.log)
	ctrl := syncer.NewController(fetcher, reducer, reporter, e.log)
	ctrl.RunStore = e.store
	ctrl.RetryConfig = retry.Config{
		MaxAttempts:    e.cfg.Retry.MaxAttempts,
		InitialBackoff: e.cfg.Retry.InitialBackoff,
		MaxBackoff:     e.cfg.Retry.MaxBackoff,
		Multiplier:     e.cfg.Retry.Multiplier,
		JitterFraction: 0.2,
	}

	if err := ctrl.Start(ctx, runCfg); err != nil {
		return nil, err
	}
	return ctrl, nil
}
