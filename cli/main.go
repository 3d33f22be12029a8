package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gavasques/scribesync"
	"github.com/gavasques/scribesync/config"
	"github.com/gavasques/scribesync/logging"
	"github.com/gavasques/scribesync/progress"
	"github.com/gavasques/scribesync/syncer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "sync":
		cmdSync(args)
	case "status":
		cmdStatus(args)
	case "videos":
		cmdVideos(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `scribesync - YouTube channel catalog synchronization

Usage:
  scribesync sync [flags] <channel>     Sync a channel catalog into the local store
  scribesync status [flags]             Show quota usage and recent runs
  scribesync videos [flags]             List stored video records
  scribesync help                       Show this help message

Examples:
  scribesync sync @somechannel                         # quick incremental pass
  scribesync sync --mode deep @somechannel             # exhaustive pass
  scribesync sync --mode full --no-shorts UCxxxxxxxxxxxxxxxxxxxxxx
  scribesync status
  scribesync videos --channel UCxxxxxxxxxxxxxxxxxxxxxx

During a sync, press Ctrl-C once for a graceful stop (totals preserved),
twice to exit immediately.

For help on a specific command: scribesync <command> -h
`)
}

// loadConfig loads configuration and builds the engine shared by all
// commands.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func cmdSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default: user config dir)")
	mode := fs.String("mode", "", "Sync mode: incremental, full, or deep (default from config)")
	maxItems := fs.Int("max", 0, "Max items for incremental mode (default from config)")
	maxEmptyPages := fs.Int("empty-pages", 0, "Empty-page streak ending a full/deep run")
	noShorts := fs.Bool("no-shorts", false, "Exclude YouTube Shorts")
	noRegular := fs.Bool("no-regular", false, "Exclude regular videos (shorts only)")
	noMetadata := fs.Bool("no-metadata", false, "Skip per-page metadata hydration (cheaper)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scribesync sync [flags] <channel>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing channel\n")
		fs.Usage()
		os.Exit(1)
	}
	channel := argv[0]

	cfg := loadConfig(*configPath)
	log := logging.Console(cfg.LogLevel)

	modeName := cfg.Sync.Mode
	if *mode != "" {
		modeName = *mode
	}
	runMode, err := syncer.ParseMode(modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runCfg := syncer.Config{
		Mode:           runMode,
		IncludeRegular: cfg.Sync.IncludeRegular && !*noRegular,
		IncludeShorts:  cfg.Sync.IncludeShorts && !*noShorts,
		SyncMetadata:   cfg.Sync.SyncMetadata && !*noMetadata,
		MaxItems:       cfg.Sync.MaxItems,
		MaxEmptyPages:  cfg.Sync.MaxEmptyPages,
		PageSize:       cfg.Sync.PageSize,
	}
	if *maxItems > 0 {
		runCfg.MaxItems = *maxItems
	}
	if *maxEmptyPages > 0 {
		runCfg.MaxEmptyPages = *maxEmptyPages
	}

	engine, err := scribesync.NewEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	feed := progress.NewBroadcaster()
	defer feed.Close()
	reporter := progress.Multi{feed, progress.NewLogReporter(log)}

	ctrl, err := engine.SyncChannel(context.Background(), channel, runCfg, reporter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// First interrupt stops gracefully, the second exits immediately.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "\nStopping after the current page (Ctrl-C again to exit now)...")
		ctrl.Stop()
		<-sigs
		os.Exit(130)
	}()

	updates, cancel := feed.Subscribe(32)
	defer cancel()

	go func() {
		for snap := range updates {
			if snap.Step != "syncing" {
				continue
			}
			fmt.Printf("page %d: %d videos (%d new, %d updated)  %.1f videos/min\n",
				snap.CurrentPage,
				snap.VideosProcessed,
				snap.PageStats.NewInPage,
				snap.PageStats.UpdatedInPage,
				snap.Speed.VideosPerMinute)
		}
	}()

	final := ctrl.Wait()

	fmt.Printf("\nSync %s: %d pages, %d processed, %d new, %d updated, %d errors\n",
		final.Phase,
		final.PagesProcessed,
		final.Totals.Processed,
		final.Totals.New,
		final.Totals.Updated,
		final.Totals.Errors)

	for _, itemErr := range final.ItemErrors {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", itemErr)
	}

	if final.Phase == syncer.PhaseError {
		fmt.Fprintf(os.Stderr, "Error: %v\n", final.LastError)
		os.Exit(1)
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	channel := fs.String("channel", "", "Limit run history to one channel ID")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scribesync status [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	log := logging.Console(cfg.LogLevel)

	engine, err := scribesync.NewEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()

	remaining, err := engine.Quota().Remaining(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading quota: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Quota remaining today: %d units\n\n", remaining)

	runs, err := engine.Store().ListSyncRuns(ctx, *channel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No sync runs recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tCHANNEL\tMODE\tPHASE\tPAGES\tPROCESSED\tNEW\tUPDATED\tERRORS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			run.FinishedAt.Format(time.RFC3339),
			run.ChannelID,
			run.Mode,
			run.Phase,
			run.PagesProcessed,
			run.Processed,
			run.New,
			run.Updated,
			run.ErrorCount)
	}
	w.Flush()
}

func cmdVideos(args []string) {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	channel := fs.String("channel", "", "Limit listing to one channel ID")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scribesync videos [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	log := logging.Console(cfg.LogLevel)

	engine, err := scribesync.NewEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	videos, err := engine.Store().ListVideosByChannel(context.Background(), *channel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing videos: %v\n", err)
		os.Exit(1)
	}
	if len(videos) == 0 {
		fmt.Println("No videos stored.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPUBLISHED\tDURATION\tTITLE")
	for _, v := range videos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.YouTubeID,
			v.Type,
			v.PublishedAt.Format("2006-01-02"),
			(time.Duration(v.DurationSeconds) * time.Second).String(),
			v.Title)
	}
	w.Flush()
	fmt.Printf("\n%d videos\n", len(videos))
}
