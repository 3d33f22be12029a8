// Package youtube provides paginated catalog fetching from the YouTube
// Data API v3.
package youtube

import (
	"context"
	"time"
)

// ItemType classifies a raw catalog item.
type ItemType string

const (
	// ItemTypeRegular is a standard long-form video.
	ItemTypeRegular ItemType = "video"
	// ItemTypeShort is a YouTube Short.
	ItemTypeShort ItemType = "short"
)

// shortMaxDuration is the cutoff used to classify Shorts. The Data API
// carries no explicit flag, so anything at or under this length is
// treated as a Short.
const shortMaxDuration = 61 * time.Second

// CatalogItem is the raw external representation of one video. It is
// transient: mapped into persisted records by the ingestion reducer and
// never mutated after receipt.
type CatalogItem struct {
	// ID is the YouTube video ID.
	ID string
	// Title is the video title.
	Title string
	// Description is the raw description. May be truncated unless the
	// page was hydrated via a metadata call.
	Description string
	// PublishedAt is when the video was published.
	PublishedAt time.Time
	// Duration is the video length. Zero when metadata hydration was
	// skipped.
	Duration time.Duration
	// Type distinguishes regular videos from Shorts.
	Type ItemType
}

// PageResult is one fetched page of the catalog. It is produced by a
// PageFetcher, consumed once by the ingestion reducer, then discarded.
type PageResult struct {
	// Items are the raw catalog items in this page.
	Items []CatalogItem
	// NextCursor is the opaque token for the next page; empty when the
	// catalog is exhausted.
	NextCursor string
	// TotalEstimate is the API's estimate of the channel's total video
	// count, zero when unknown.
	TotalEstimate int
}

// FetchConfig configures one paginated call.
type FetchConfig struct {
	// SyncMetadata requests full descriptions and durations via an extra
	// metadata call per page (one additional quota unit).
	SyncMetadata bool
	// PageSize is the number of items per page (max 50, the API ceiling).
	PageSize int64
}

// PageFetcher performs one paginated call against the external catalog.
// Implementations never retry internally; retry policy belongs to the
// caller.
type PageFetcher interface {
	// FetchPage fetches the page at cursor. An empty cursor means the
	// first page. Failures are reported as *FetchError.
	FetchPage(ctx context.Context, cursor string, cfg FetchConfig) (*PageResult, error)

	// ChannelID returns the resolved channel ID, empty until the first
	// successful fetch.
	ChannelID() string
}

// classifyItem derives the item type from its duration.
func classifyItem(d time.Duration) ItemType {
	if d > 0 && d <= shortMaxDuration {
		return ItemTypeShort
	}
	return ItemTypeRegular
}
