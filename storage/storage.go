// Package storage provides abstractions for persisting scribesync data.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrUnavailable indicates the backing store cannot be reached at
	// all. Implementations map transport- and handle-level failures to
	// it; callers treat it as a transient infrastructure outage rather
	// than a per-record failure.
	ErrUnavailable = errors.New("storage: unavailable")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("create", "read", "update", "delete").
	Op string
	// Entity is the entity type ("video", "quota", "run").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the composed storage interface for all scribesync data.
// Implementations must be safe for concurrent use.
type Store interface {
	VideoStore
	QuotaStore
	SyncRunStore

	// Close releases any resources held by the store.
	Close() error
}

// VideoStore handles persisted catalog records. The lookup key is the
// external YouTube ID; internal IDs are assigned by the store on create.
type VideoStore interface {
	// GetVideoByYouTubeID retrieves a video record by its YouTube ID.
	// Returns ErrNotFound (wrapped) if no record exists.
	GetVideoByYouTubeID(ctx context.Context, youtubeID string) (*VideoRecord, error)
	// CreateVideo inserts a new video record.
	CreateVideo(ctx context.Context, video *VideoRecord) error
	// UpdateVideo replaces an existing video record.
	UpdateVideo(ctx context.Context, video *VideoRecord) error
	// ListVideosByChannel retrieves all stored records for a channel.
	ListVideosByChannel(ctx context.Context, channelID string) ([]*VideoRecord, error)
	// CountVideos returns the total number of stored video records.
	CountVideos(ctx context.Context) (int, error)
}

// QuotaStore persists per-day external API usage counters.
type QuotaStore interface {
	// GetQuotaRecord retrieves the usage record for a calendar day
	// ("2006-01-02"). Returns ErrNotFound (wrapped) if no calls were
	// made that day.
	GetQuotaRecord(ctx context.Context, date string) (*QuotaRecord, error)
	// PutQuotaRecord creates or replaces the usage record for its date.
	PutQuotaRecord(ctx context.Context, record *QuotaRecord) error
}

// SyncRunStore persists terminal sync run outcomes.
type SyncRunStore interface {
	// PutSyncRun creates or replaces a run record.
	PutSyncRun(ctx context.Context, run *SyncRunRecord) error
	// GetSyncRun retrieves a run record by ID.
	GetSyncRun(ctx context.Context, id string) (*SyncRunRecord, error)
	// ListSyncRuns retrieves all run records for a channel, unordered.
	ListSyncRuns(ctx context.Context, channelID string) ([]*SyncRunRecord, error)
}
