// Package syncer orchestrates repeated page fetch and ingest cycles as a
// pausable state machine, independent of any rendering layer.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavasques/scribesync/ingest"
	"github.com/gavasques/scribesync/progress"
	"github.com/gavasques/scribesync/retry"
	"github.com/gavasques/scribesync/storage"
	"github.com/gavasques/scribesync/youtube"
)

// errStopRequested signals the loop that a stop or cancellation was
// observed between iterations.
var errStopRequested = errors.New("syncer: stop requested")

// Controller drives one sync run: gate, fetch, ingest, report, repeat.
// A controller holds at most one run and is spent once that run reaches
// a terminal phase; a new run requires a fresh controller, which
// prevents accidental continuation with stale cursor semantics.
type Controller struct {
	// RetryConfig bounds transient-failure retries. Set before Start.
	RetryConfig retry.Config
	// RunStore, when set, receives a SyncRunRecord on terminal
	// transitions. Set before Start.
	RunStore storage.SyncRunStore

	fetcher  youtube.PageFetcher
	reducer  *ingest.Reducer
	reporter progress.Reporter
	log      zerolog.Logger

	// now is injectable for tests.
	now func() time.Time

	mu       sync.Mutex
	cfg      Config
	state    State
	started  bool
	stopReq  bool
	resumeCh chan struct{} // non-nil while paused; closed by Resume/Stop
	done     chan struct{}
}

// NewController creates a controller over the given collaborators. The
// reporter may be nil when no observer is interested.
func NewController(fetcher youtube.PageFetcher, reducer *ingest.Reducer, reporter progress.Reporter, log zerolog.Logger) *Controller {
	return &Controller{
		RetryConfig: retry.DefaultConfig(),
		fetcher:     fetcher,
		reducer:     reducer,
		reporter:    reporter,
		log:         log,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

// Start validates the configuration and launches the run loop. It
// returns a *ConfigurationError before any network call when the
// configuration could never make progress, and an error when the
// controller was already started.
func (c *Controller) Start(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("syncer: controller already started; a finished run requires a fresh controller")
	}
	c.started = true
	c.cfg = cfg
	c.state = State{
		Phase:     PhaseRunning,
		StartTime: c.now(),
	}
	c.mu.Unlock()

	c.log.Info().
		Str("mode", cfg.Mode.String()).
		Bool("include_shorts", cfg.IncludeShorts).
		Bool("sync_metadata", cfg.SyncMetadata).
		Msg("sync run starting")

	go c.run(ctx)
	return nil
}

// Pause suspends the loop between iterations. A fetch already in flight
// completes and its results are ingested first; pausing never preempts a
// dispatched call. No-op unless running.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseRunning {
		return
	}
	c.state.Phase = PhasePaused
	c.resumeCh = make(chan struct{})
}

// Resume re-enters the loop from the last confirmed cursor. No page is
// skipped, though the page in flight at pause time may be re-fetched;
// idempotent upserts tolerate that. No-op unless paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhasePaused || c.resumeCh == nil {
		return
	}
	c.state.Phase = PhaseRunning
	close(c.resumeCh)
	c.resumeCh = nil
}

// Stop requests a graceful end of the run. Best-effort: a fetch in
// flight completes and is still ingested, after which the loop observes
// the flag and transitions to Completed with totals preserved. A
// user-initiated stop is not a failure.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase.Terminal() {
		return
	}
	c.stopReq = true
	if c.state.Phase == PhaseRunning || c.state.Phase == PhasePaused {
		c.state.Phase = PhaseStopping
	}
	if c.resumeCh != nil {
		close(c.resumeCh)
		c.resumeCh = nil
	}
}

// Wait blocks until the run reaches a terminal phase and returns the
// final state.
func (c *Controller) Wait() State {
	<-c.done
	return c.State()
}

// Done exposes the run's completion channel.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns a copy of the controller's live state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.ItemErrors = append([]string(nil), c.state.ItemErrors...)
	return s
}

// run is the controller loop. Pages are strictly sequential: the cursor
// from page N is required to fetch page N+1.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	for {
		if err := c.awaitRunnable(ctx); err != nil {
			c.finishStopped()
			return
		}

		page, outcome, err := c.processPage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.finishStopped()
				return
			}
			c.finishError(err)
			return
		}

		c.applyPage(page, outcome)
		c.publishPage(page, outcome)

		if reason, stop := c.stopReason(page); stop {
			c.finishCompleted(reason)
			return
		}
	}
}

// awaitRunnable blocks while paused and reports stop requests and
// context cancellation. Pause and stop are cooperative: they are only
// observed here, between iterations.
func (c *Controller) awaitRunnable(ctx context.Context) error {
	pausedReported := false
	for {
		c.mu.Lock()
		if c.stopReq || ctx.Err() != nil {
			c.mu.Unlock()
			return errStopRequested
		}
		ch := c.resumeCh
		c.mu.Unlock()

		if ch == nil {
			return nil
		}

		if !pausedReported {
			pausedReported = true
			c.publish("paused", "sync paused", progress.PageStats{})
			c.log.Info().Msg("sync paused")
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return errStopRequested
		}
	}
}

// processPage fetches the page at the last confirmed cursor and folds it
// into the store as one retried unit, with exponential backoff up to the
// configured attempt budget. Fatal fetch errors escalate immediately. An
// unreachable store surfaces as a Network-class failure, same as a
// transport error; re-running the unit is safe because the cursor only
// advances in applyPage and upserts are idempotent.
func (c *Controller) processPage(ctx context.Context) (*youtube.PageResult, ingest.Outcome, error) {
	c.mu.Lock()
	cursor := c.state.Cursor
	c.mu.Unlock()

	fetchCfg := youtube.FetchConfig{
		SyncMetadata: c.cfg.SyncMetadata,
		PageSize:     int64(c.cfg.PageSize),
	}
	filters := ingest.Filters{
		IncludeRegular: c.cfg.IncludeRegular,
		IncludeShorts:  c.cfg.IncludeShorts,
	}

	var (
		page    *youtube.PageResult
		outcome ingest.Outcome
	)
	err := retry.Do(ctx, c.RetryConfig, retry.IsTransientFetch, func(ctx context.Context) error {
		var err error
		page, err = c.fetcher.FetchPage(ctx, cursor, fetchCfg)
		if err != nil {
			return err
		}
		outcome, err = c.reducer.Ingest(ctx, page, c.fetcher.ChannelID(), filters)
		if err != nil {
			return &youtube.FetchError{Kind: youtube.KindNetwork, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, ingest.Outcome{}, err
	}
	return page, outcome, nil
}

// applyPage folds one ingested page into the run state. The cursor only
// advances here, after the page is confirmed.
func (c *Controller) applyPage(page *youtube.PageResult, outcome ingest.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.PagesProcessed++
	c.state.Totals.Processed += len(page.Items)
	c.state.Totals.New += outcome.New
	c.state.Totals.Updated += outcome.Updated
	c.state.Totals.Errors += len(outcome.Errors)
	c.state.ItemErrors = append(c.state.ItemErrors, outcome.Errors...)
	c.state.Cursor = page.NextCursor
	if page.TotalEstimate > 0 {
		c.state.TotalEstimate = page.TotalEstimate
	}

	if outcome.IsEmpty() {
		c.state.EmptyPageStreak++
	} else {
		c.state.EmptyPageStreak = 0
	}
}

// stopReason evaluates the continue/stop decision for the page just
// processed.
func (c *Controller) stopReason(page *youtube.PageResult) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if page.NextCursor == "" {
		return "catalog exhausted", true
	}

	switch c.cfg.Mode {
	case ModeIncremental:
		if c.state.PagesProcessed*c.cfg.PageSize >= c.cfg.MaxItems {
			return "max items reached", true
		}
	case ModeFull, ModeDeep:
		if c.state.EmptyPageStreak >= c.cfg.MaxEmptyPages {
			return "empty-page streak reached", true
		}
	}
	return "", false
}

// finishCompleted ends the run normally, emitting the final snapshot and
// persisting the run record.
func (c *Controller) finishCompleted(reason string) {
	c.mu.Lock()
	c.state.Phase = PhaseCompleted
	totals := c.state.Totals
	c.mu.Unlock()

	c.publish("completed", "sync completed: "+reason, progress.PageStats{})
	c.persistRun()
	c.log.Info().
		Str("reason", reason).
		Int("processed", totals.Processed).
		Int("new", totals.New).
		Int("updated", totals.Updated).
		Msg("sync run completed")
}

// finishStopped ends the run after a user stop or cancellation,
// preserving totals accumulated so far.
func (c *Controller) finishStopped() {
	c.mu.Lock()
	c.state.Phase = PhaseCompleted
	c.mu.Unlock()

	c.publish("stopped", "sync stopped", progress.PageStats{})
	c.persistRun()
	c.log.Info().Msg("sync run stopped")
}

// finishError ends the run on a fatal fetch error or an exhausted retry
// budget. The run does not auto-retry from here; a new Start is
// required.
func (c *Controller) finishError(err error) {
	c.mu.Lock()
	c.state.Phase = PhaseError
	c.state.LastError = err
	c.mu.Unlock()

	c.publish("error", "sync failed: "+err.Error(), progress.PageStats{})
	c.persistRun()
	c.log.Error().Err(err).Msg("sync run failed")
}

// publishPage emits the per-page snapshot.
func (c *Controller) publishPage(page *youtube.PageResult, outcome ingest.Outcome) {
	c.mu.Lock()
	pageNum := c.state.PagesProcessed
	c.mu.Unlock()

	stats := progress.PageStats{
		VideosInPage:       len(page.Items),
		NewInPage:          outcome.New,
		UpdatedInPage:      outcome.Updated,
		IsEmptyPage:        outcome.IsEmpty(),
		TotalChannelVideos: page.TotalEstimate,
	}
	c.publish("syncing", fmt.Sprintf("page %d processed", pageNum), stats)
}

// publish builds a self-contained snapshot of the current state and
// hands it to the reporter. Snapshots are published only from the loop
// goroutine, strictly in page order.
func (c *Controller) publish(step, message string, stats progress.PageStats) {
	if c.reporter == nil {
		return
	}

	c.mu.Lock()
	snap := progress.Snapshot{
		Step:                 step,
		Current:              c.state.PagesProcessed,
		Message:              message,
		Errors:               append([]string(nil), c.state.ItemErrors...),
		CurrentPage:          c.state.PagesProcessed,
		VideosProcessed:      c.state.Totals.Processed,
		TotalVideosEstimated: c.state.TotalEstimate,
		PageStats:            stats,
	}

	if c.state.TotalEstimate > 0 && c.cfg.PageSize > 0 {
		snap.TotalPages = (c.state.TotalEstimate + c.cfg.PageSize - 1) / c.cfg.PageSize
		snap.Total = snap.TotalPages
	}

	elapsed := c.now().Sub(c.state.StartTime)
	snap.Speed.ElapsedMs = elapsed.Milliseconds()
	if minutes := elapsed.Minutes(); minutes > 0 {
		snap.Speed.VideosPerMinute = float64(c.state.Totals.Processed) / minutes
	}
	if c.state.TotalEstimate > 0 && snap.Speed.VideosPerMinute > 0 {
		remaining := c.state.TotalEstimate - c.state.Totals.Processed
		if remaining > 0 {
			etaMinutes := float64(remaining) / snap.Speed.VideosPerMinute
			snap.Speed.ETA = c.now().Add(time.Duration(etaMinutes * float64(time.Minute)))
		}
	}
	c.mu.Unlock()

	c.reporter.Publish(snap)
}

// persistRun writes the terminal run record, when a run store is
// configured. Persistence failures are logged, never escalated.
func (c *Controller) persistRun() {
	if c.RunStore == nil {
		return
	}

	c.mu.Lock()
	record := &storage.SyncRunRecord{
		ChannelID:      c.fetcher.ChannelID(),
		Mode:           c.cfg.Mode.String(),
		Phase:          c.state.Phase.String(),
		PagesProcessed: c.state.PagesProcessed,
		Processed:      c.state.Totals.Processed,
		New:            c.state.Totals.New,
		Updated:        c.state.Totals.Updated,
		ErrorCount:     c.state.Totals.Errors,
		Cursor:         c.state.Cursor,
		StartedAt:      c.state.StartTime,
		FinishedAt:     c.now(),
	}
	if c.state.LastError != nil {
		record.LastError = c.state.LastError.Error()
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.RunStore.PutSyncRun(ctx, record); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist sync run record")
	}
}
