package storage

import "time"

// VideoType classifies a catalog entry.
type VideoType string

const (
	// VideoTypeRegular is a standard long-form video.
	VideoTypeRegular VideoType = "video"
	// VideoTypeShort is a YouTube Short.
	VideoTypeShort VideoType = "short"
)

// VideoRecord is the persisted representation of one catalog video.
// Records are keyed by their external YouTube ID; re-ingesting the same
// video replaces the same record (upsert-by-external-id).
type VideoRecord struct {
	// ID is the internal unique identifier (UUID), assigned on first insert.
	ID string `json:"id"`
	// YouTubeID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	YouTubeID string `json:"youtube_id"`
	// ChannelID is the YouTube channel ID this video belongs to.
	ChannelID string `json:"channel_id"`
	// Title is the video title.
	Title string `json:"title"`
	// Description is the raw video description from YouTube.
	Description string `json:"description,omitempty"`
	// PublishedAt is when the video was published on YouTube.
	PublishedAt time.Time `json:"published_at"`
	// DurationSeconds is the video length in seconds. Zero when metadata
	// hydration was skipped for the page that ingested it.
	DurationSeconds int `json:"duration_seconds"`
	// Type distinguishes regular videos from Shorts.
	Type VideoType `json:"type"`
	// CreatedAt is when this record was first inserted.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when this record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Changed reports whether any tracked field differs between the stored
// record and an incoming one. Tracked fields: title, description,
// duration, publish date.
func (v *VideoRecord) Changed(incoming *VideoRecord) bool {
	if v.Title != incoming.Title {
		return true
	}
	if v.Description != incoming.Description {
		return true
	}
	if v.DurationSeconds != incoming.DurationSeconds {
		return true
	}
	if !v.PublishedAt.Equal(incoming.PublishedAt) {
		return true
	}
	return false
}

// QuotaRecord tracks external API usage for one calendar day.
// A new record is created on the first call of the day; the previous
// day's record is superseded, never deleted.
type QuotaRecord struct {
	// Date is the calendar day in "2006-01-02" form, in the tracker's zone.
	Date string `json:"date"`
	// RequestsUsed is the quota units consumed so far today.
	RequestsUsed int `json:"requests_used"`
	// UpdatedAt is when this record was last incremented.
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncRunRecord is the persisted outcome of one sync run, written when the
// run reaches a terminal phase. Kept as history for the dashboard.
type SyncRunRecord struct {
	// ID is the run identifier (UUID).
	ID string `json:"id"`
	// ChannelID is the channel that was synced.
	ChannelID string `json:"channel_id"`
	// Mode is the sync mode that was requested ("incremental", "full", "deep").
	Mode string `json:"mode"`
	// Phase is the terminal phase ("completed", "error").
	Phase string `json:"phase"`
	// PagesProcessed is the number of pages fetched and ingested.
	PagesProcessed int `json:"pages_processed"`
	// Processed is the total count of items seen across all pages.
	Processed int `json:"processed"`
	// New is the count of newly inserted records.
	New int `json:"new"`
	// Updated is the count of records updated in place.
	Updated int `json:"updated"`
	// ErrorCount is the count of item-level ingestion errors.
	ErrorCount int `json:"error_count"`
	// Cursor is the last confirmed pagination cursor, empty once exhausted.
	Cursor string `json:"cursor,omitempty"`
	// LastError holds the terminal error message for failed runs.
	LastError string `json:"last_error,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run reached its terminal phase.
	FinishedAt time.Time `json:"finished_at"`
}
