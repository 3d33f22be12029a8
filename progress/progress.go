// Package progress carries structured sync progress snapshots from the
// controller to its observers. Observers subscribe to this feed only,
// never to controller internals.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProcessingSpeed holds throughput figures derived for one snapshot.
type ProcessingSpeed struct {
	// VideosPerMinute is processed items divided by elapsed minutes.
	VideosPerMinute float64 `json:"videosPerMinute"`
	// ElapsedMs is wall time since the run started, in milliseconds.
	ElapsedMs int64 `json:"elapsedTimeMs"`
	// ETA is the estimated completion time; zero when the total is
	// unknown.
	ETA time.Time `json:"eta,omitempty"`
}

// PageStats describes the page that produced a snapshot.
type PageStats struct {
	// VideosInPage is the raw item count of the page.
	VideosInPage int `json:"videosInPage"`
	// NewInPage is the count of newly inserted items.
	NewInPage int `json:"newInPage"`
	// UpdatedInPage is the count of items updated in place.
	UpdatedInPage int `json:"updatedInPage"`
	// IsEmptyPage is true when the page contributed zero new items.
	IsEmptyPage bool `json:"isEmptyPage"`
	// TotalChannelVideos is the API's channel-wide estimate, zero when
	// unknown.
	TotalChannelVideos int `json:"totalChannelVideos"`
}

// Snapshot is one immutable progress report. Each snapshot is
// self-contained so late subscribers never see a stale partial.
type Snapshot struct {
	// Step names the controller phase ("syncing", "paused", "completed",
	// "error", "stopped").
	Step string `json:"step"`
	// Current and Total express coarse progress in pages.
	Current int `json:"current"`
	Total   int `json:"total"`
	// Message is a human-readable progress line.
	Message string `json:"message"`
	// Errors is the accumulated item-level error list for the run.
	Errors []string `json:"errors,omitempty"`
	// CurrentPage is the number of pages processed so far.
	CurrentPage int `json:"currentPage"`
	// TotalPages is the expected page count, zero when unknown.
	TotalPages int `json:"totalPages"`
	// VideosProcessed is the count of items seen across all pages.
	VideosProcessed int `json:"videosProcessed"`
	// TotalVideosEstimated is the channel-wide estimate, zero when
	// unknown.
	TotalVideosEstimated int `json:"totalVideosEstimated"`
	// Speed holds derived throughput figures.
	Speed ProcessingSpeed `json:"processingSpeed"`
	// PageStats describes the page that produced this snapshot.
	PageStats PageStats `json:"pageStats"`
}

// ProgressPercentage derives completion as a fraction of the estimated
// total when available, falling back to page counts.
func (s Snapshot) ProgressPercentage() float64 {
	if s.TotalVideosEstimated > 0 {
		return 100 * float64(s.VideosProcessed) / float64(s.TotalVideosEstimated)
	}
	if s.TotalPages > 0 {
		return 100 * float64(s.CurrentPage) / float64(s.TotalPages)
	}
	return 0
}

// Reporter is a passive one-way sink for progress snapshots. Reporters
// hold no state between publishes.
type Reporter interface {
	Publish(s Snapshot)
}

// Multi fans one publish out to several reporters in order.
type Multi []Reporter

// Publish forwards the snapshot to every reporter.
func (m Multi) Publish(s Snapshot) {
	for _, r := range m {
		r.Publish(s)
	}
}

// LogReporter writes each snapshot as a structured log line.
type LogReporter struct {
	log zerolog.Logger
}

// NewLogReporter creates a reporter over the given logger.
func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Publish logs the snapshot.
func (r *LogReporter) Publish(s Snapshot) {
	r.log.Info().
		Str("step", s.Step).
		Int("page", s.CurrentPage).
		Int("processed", s.VideosProcessed).
		Int("new_in_page", s.PageStats.NewInPage).
		Int("updated_in_page", s.PageStats.UpdatedInPage).
		Float64("videos_per_minute", s.Speed.VideosPerMinute).
		Msg(s.Message)
}

// Broadcaster fans snapshots out to channel subscribers. Publish never
// blocks: when a subscriber's buffer is full its oldest snapshot is
// dropped, so a slow consumer cannot stall the sync loop. Snapshots are
// delivered to each subscriber in publish order.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel plus a cancel function. The channel is closed on
// cancel or when the broadcaster closes.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Snapshot)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Snapshot, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to every subscriber without blocking.
func (b *Broadcaster) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		for {
			select {
			case ch <- s:
			default:
				// Full buffer: drop the oldest and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close closes all subscriber channels. Further publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
