// Package ingest applies fetched catalog pages to the local store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gavasques/scribesync/storage"
	"github.com/gavasques/scribesync/youtube"
)

// Filters selects which item types a page contributes.
type Filters struct {
	// IncludeRegular admits standard long-form videos.
	IncludeRegular bool
	// IncludeShorts admits YouTube Shorts.
	IncludeShorts bool
}

// Outcome summarizes one ingested page. It is a value type, accumulated
// into run totals and then discarded.
type Outcome struct {
	// New is the count of items inserted for the first time.
	New int
	// Updated is the count of items whose tracked fields changed.
	Updated int
	// Errors collects per-item failures; a failed item never aborts the
	// rest of the page.
	Errors []string
}

// IsEmpty reports whether the page contributed zero new items. Empty
// pages feed the controller's empty-page streak, the termination signal
// for open-ended passes: catalogs are returned newest-first, so several
// consecutive empty pages mean older content is already ingested.
func (o Outcome) IsEmpty() bool {
	return o.New == 0
}

// Reducer decides per item whether it is new, updated, or unchanged
// relative to stored state, and applies upserts.
type Reducer struct {
	store storage.VideoStore
	log   zerolog.Logger
}

// NewReducer creates a reducer over the given video store.
func NewReducer(store storage.VideoStore, log zerolog.Logger) *Reducer {
	return &Reducer{store: store, log: log}
}

// Ingest applies one fetched page. Items are filtered by type before
// processing; unchanged items count toward neither new nor updated.
// Per-item failures are collected in the outcome and never abort the
// page. An unreachable store is different: no later item can succeed
// either, so the page is abandoned and the error returned for the
// caller to treat as an infrastructure failure. Re-ingesting the same
// page after the store recovers is safe; upserts are idempotent.
func (r *Reducer) Ingest(ctx context.Context, page *youtube.PageResult, channelID string, filters Filters) (Outcome, error) {
	var outcome Outcome

	for _, item := range page.Items {
		if !filters.admits(item.Type) {
			continue
		}

		status, err := r.upsert(ctx, item, channelID)
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				return outcome, fmt.Errorf("ingest: store unavailable: %w", err)
			}
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", item.ID, err))
			r.log.Warn().Err(err).Str("video", item.ID).Msg("item ingestion failed")
			continue
		}

		switch status {
		case statusNew:
			outcome.New++
		case statusUpdated:
			outcome.Updated++
		}
	}

	r.log.Debug().
		Int("page_items", len(page.Items)).
		Int("new", outcome.New).
		Int("updated", outcome.Updated).
		Int("errors", len(outcome.Errors)).
		Msg("page ingested")

	return outcome, nil
}

type upsertStatus int

const (
	statusUnchanged upsertStatus = iota
	statusNew
	statusUpdated
)

// upsert inserts or updates the record for one item, keyed by its
// external ID. Re-ingesting an identical item is a no-op, which makes
// page application idempotent.
func (r *Reducer) upsert(ctx context.Context, item youtube.CatalogItem, channelID string) (upsertStatus, error) {
	incoming := recordFromItem(item, channelID)

	existing, err := r.store.GetVideoByYouTubeID(ctx, item.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return statusUnchanged, err
		}
		if err := r.store.CreateVideo(ctx, incoming); err != nil {
			return statusUnchanged, err
		}
		return statusNew, nil
	}

	if !existing.Changed(incoming) {
		return statusUnchanged, nil
	}

	if err := r.store.UpdateVideo(ctx, incoming); err != nil {
		return statusUnchanged, err
	}
	return statusUpdated, nil
}

// admits reports whether the filter set accepts an item type.
func (f Filters) admits(t youtube.ItemType) bool {
	switch t {
	case youtube.ItemTypeShort:
		return f.IncludeShorts
	default:
		return f.IncludeRegular
	}
}

// recordFromItem maps a transient catalog item into a persisted record.
func recordFromItem(item youtube.CatalogItem, channelID string) *storage.VideoRecord {
	recordType := storage.VideoTypeRegular
	if item.Type == youtube.ItemTypeShort {
		recordType = storage.VideoTypeShort
	}
	return &storage.VideoRecord{
		YouTubeID:       item.ID,
		ChannelID:       channelID,
		Title:           item.Title,
		Description:     item.Description,
		PublishedAt:     item.PublishedAt,
		DurationSeconds: int(item.Duration.Seconds()),
		Type:            recordType,
	}
}
