package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/orbitshield/cachesync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketTables = []byte("tables")
	bucketGlobal = []byte("global")
)

// Global bucket keys
const (
	keyLastSync     = "last_sync"
	keyConnectivity = "connectivity"
)

// tableMeta is the persisted per-table bookkeeping entry
type tableMeta struct {
	RecordCount int       `json:"record_count"`
	LastSync    time.Time `json:"last_sync"`
}

// BoltStore implements domain.MetadataStore using BoltDB. It owns sync
// bookkeeping exclusively; snapshot contents live in the snapshot store.
type BoltStore struct {
	db        *bolt.DB
	snapshots domain.SnapshotStore
	cacheDir  string
	logger    *slog.Logger
}

var _ domain.MetadataStore = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the bookkeeping database at path.
// Snapshot-file facts in Status come from the given snapshot store.
func NewBoltStore(path, cacheDir string, snapshots domain.SnapshotStore, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketTables, bucketGlobal} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, snapshots: snapshots, cacheDir: cacheDir, logger: logger}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// === Generic helpers ===

func (s *BoltStore) get(bucket []byte, key string, dest interface{}) bool {
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *BoltStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

// === Bookkeeping ===

// RecordSync updates a table's entry and bumps the global last-sync
// timestamp in one transaction.
func (s *BoltStore) RecordSync(table domain.Table, count int, at time.Time) error {
	entry, err := json.Marshal(tableMeta{RecordCount: count, LastSync: at})
	if err != nil {
		return err
	}
	global, err := json.Marshal(at)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketTables).Put([]byte(table), entry); err != nil {
			return err
		}
		return tx.Bucket(bucketGlobal).Put([]byte(keyLastSync), global)
	})
}

// SetConnectivity records the latest remote reachability observation.
func (s *BoltStore) SetConnectivity(mode domain.Connectivity) error {
	return s.set(bucketGlobal, keyConnectivity, mode)
}

// Connectivity returns the last observed reachability, or unknown
// before the first remote attempt.
func (s *BoltStore) Connectivity() domain.Connectivity {
	var mode domain.Connectivity
	if !s.get(bucketGlobal, keyConnectivity, &mode) {
		return domain.ConnectivityUnknown
	}
	return mode
}

// Status combines persisted bookkeeping with snapshot-file facts.
// Only bounded local reads happen here; the remote store is never
// consulted.
func (s *BoltStore) Status() (*domain.CacheStatus, error) {
	status := &domain.CacheStatus{
		CacheDir:       s.cacheDir,
		SupabaseStatus: s.Connectivity(),
		Tables:         make(map[domain.Table]domain.TableStatus, len(domain.Tables())),
	}

	var lastSync time.Time
	if s.get(bucketGlobal, keyLastSync, &lastSync) {
		status.LastSync = &lastSync
	}

	for _, table := range domain.Tables() {
		var entry domain.TableStatus
		var meta tableMeta
		if s.get(bucketTables, string(table), &meta) {
			entry.RecordCount = meta.RecordCount
			ts := meta.LastSync
			entry.LastSync = &ts
		}
		entry.CacheExists, entry.FileSizeKB = s.snapshots.Stat(table)
		status.Tables[table] = entry
	}

	return status, nil
}
