package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	bucketVideos = []byte("videos")
	bucketQuota  = []byte("quota")
	bucketRuns   = []byte("runs")
)

const openTimeout = 1 * time.Second

// BoltStore implements Store using BoltDB. Video records are keyed by
// their YouTube ID, quota records by calendar day, run records by run ID.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB store at the given path and
// ensures all buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Entity: "store", Err: ErrInvalidInput}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketVideos, bucketQuota, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// get unmarshals the value at key into dest. Returns ErrNotFound if absent
// and ErrStorageCorrupt if the stored bytes do not decode.
func (s *BoltStore) get(bucket []byte, key string, dest any) error {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return mapHandleErr(err)
	}
	if data == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrStorageCorrupt
	}
	return nil
}

// put marshals value and writes it at key.
func (s *BoltStore) put(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	return mapHandleErr(err)
}

// mapHandleErr maps handle-level failures, a closed or lost database, to
// the ErrUnavailable sentinel.
func mapHandleErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrUnavailable
	}
	return err
}

// --- VideoStore implementation ---

func (s *BoltStore) GetVideoByYouTubeID(ctx context.Context, youtubeID string) (*VideoRecord, error) {
	var video VideoRecord
	if err := s.get(bucketVideos, youtubeID, &video); err != nil {
		return nil, &StorageError{Op: "read", Entity: "video", ID: youtubeID, Err: err}
	}
	return &video, nil
}

func (s *BoltStore) CreateVideo(ctx context.Context, video *VideoRecord) error {
	if video.YouTubeID == "" {
		return &StorageError{Op: "create", Entity: "video", Err: ErrInvalidInput}
	}

	if _, err := s.GetVideoByYouTubeID(ctx, video.YouTubeID); err == nil {
		return &StorageError{Op: "create", Entity: "video", ID: video.YouTubeID, Err: ErrAlreadyExists}
	}

	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now

	if err := s.put(bucketVideos, video.YouTubeID, video); err != nil {
		return &StorageError{Op: "create", Entity: "video", ID: video.YouTubeID, Err: err}
	}
	return nil
}

func (s *BoltStore) UpdateVideo(ctx context.Context, video *VideoRecord) error {
	existing, err := s.GetVideoByYouTubeID(ctx, video.YouTubeID)
	if err != nil {
		return &StorageError{Op: "update", Entity: "video", ID: video.YouTubeID, Err: ErrNotFound}
	}

	// Identity and creation time survive updates.
	video.ID = existing.ID
	video.CreatedAt = existing.CreatedAt
	video.UpdatedAt = time.Now()

	if err := s.put(bucketVideos, video.YouTubeID, video); err != nil {
		return &StorageError{Op: "update", Entity: "video", ID: video.YouTubeID, Err: err}
	}
	return nil
}

func (s *BoltStore) ListVideosByChannel(ctx context.Context, channelID string) ([]*VideoRecord, error) {
	var videos []*VideoRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVideos).ForEach(func(k, v []byte) error {
			var video VideoRecord
			if err := json.Unmarshal(v, &video); err != nil {
				return ErrStorageCorrupt
			}
			if channelID == "" || video.ChannelID == channelID {
				videos = append(videos, &video)
			}
			return nil
		})
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "video", Err: mapHandleErr(err)}
	}
	return videos, nil
}

func (s *BoltStore) CountVideos(ctx context.Context) (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketVideos).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "count", Entity: "video", Err: mapHandleErr(err)}
	}
	return count, nil
}

// --- QuotaStore implementation ---

func (s *BoltStore) GetQuotaRecord(ctx context.Context, date string) (*QuotaRecord, error) {
	var record QuotaRecord
	if err := s.get(bucketQuota, date, &record); err != nil {
		return nil, &StorageError{Op: "read", Entity: "quota", ID: date, Err: err}
	}
	return &record, nil
}

func (s *BoltStore) PutQuotaRecord(ctx context.Context, record *QuotaRecord) error {
	if record.Date == "" {
		return &StorageError{Op: "write", Entity: "quota", Err: ErrInvalidInput}
	}
	record.UpdatedAt = time.Now()
	if err := s.put(bucketQuota, record.Date, record); err != nil {
		return &StorageError{Op: "write", Entity: "quota", ID: record.Date, Err: err}
	}
	return nil
}

// --- SyncRunStore implementation ---

func (s *BoltStore) PutSyncRun(ctx context.Context, run *SyncRunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.put(bucketRuns, run.ID, run); err != nil {
		return &StorageError{Op: "write", Entity: "run", ID: run.ID, Err: err}
	}
	return nil
}

func (s *BoltStore) GetSyncRun(ctx context.Context, id string) (*SyncRunRecord, error) {
	var run SyncRunRecord
	if err := s.get(bucketRuns, id, &run); err != nil {
		return nil, &StorageError{Op: "read", Entity: "run", ID: id, Err: err}
	}
	return &run, nil
}

func (s *BoltStore) ListSyncRuns(ctx context.Context, channelID string) ([]*SyncRunRecord, error) {
	var runs []*SyncRunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run SyncRunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return ErrStorageCorrupt
			}
			if channelID == "" || run.ChannelID == channelID {
				runs = append(runs, &run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "run", Err: mapHandleErr(err)}
	}
	return runs, nil
}
