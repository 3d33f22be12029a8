package scribesync

import (
	"github.com/gavasques/scribesync/quota"
	"github.com/gavasques/scribesync/storage"
	"github.com/gavasques/scribesync/syncer"
	"github.com/gavasques/scribesync/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, scribesync.ErrChannelNotFound) {
//		fmt.Println("Channel not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var fetchErr *scribesync.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("Fetch failed: %s\n", fetchErr.Kind)
//	}

// Type aliases for convenient error handling.
type (
	// FetchError is the typed outcome of a failed catalog call.
	FetchError = youtube.FetchError
	// ConfigurationError rejects an invalid sync configuration before
	// any network call.
	ConfigurationError = syncer.ConfigurationError
	// QuotaExceededError reports a denied quota reservation with its
	// reset time.
	QuotaExceededError = quota.ExceededError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrChannelNotFound indicates the YouTube channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrInvalidChannel indicates the channel reference could not be parsed.
	ErrInvalidChannel = youtube.ErrInvalidChannel

	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates an entity already exists in storage.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
)
