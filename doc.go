// Package scribesync synchronizes a YouTube channel catalog into a local
// keyed record store, page by page.
//
// The engine pulls the channel's uploads playlist through the YouTube
// Data API v3, respecting the external daily quota and a local
// fixed-window rate limit, and converges whether run as a quick
// incremental pass or an exhaustive full/deep pass.
//
// # Quick Start
//
// Run an incremental sync and follow its progress:
//
//	engine, err := scribesync.NewEngine(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	feed := progress.NewBroadcaster()
//	ctrl, err := engine.SyncChannel(ctx, "@somechannel", syncer.Config{
//		Mode:           syncer.ModeIncremental,
//		IncludeRegular: true,
//		IncludeShorts:  true,
//		MaxItems:       50,
//	}, feed)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	updates, cancel := feed.Subscribe(16)
//	defer cancel()
//	go func() {
//		for snap := range updates {
//			fmt.Printf("page %d: %d processed\n", snap.CurrentPage, snap.VideosProcessed)
//		}
//	}()
//	final := ctrl.Wait()
//	feed.Close()
//
// # Architecture
//
// Leaf components are pure functions over their inputs; the controller
// owns all live run state:
//
//   - quota: per-day counter over the external API budget
//   - ratelimit: fixed-window local request gate, keyed by purpose
//   - youtube: one paginated call per page, typed failure outcomes
//   - ingest: per-item new/updated/unchanged decisions and upserts
//   - syncer: the pausable fetch-ingest state machine
//   - progress: one-way snapshot feed observers subscribe to
//
// Pause, resume, and stop are cooperative: they take effect between page
// iterations, never preempting a fetch already in flight.
package scribesync
