package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/orbitshield/cachesync/internal/domain"
)

// FileStore persists one JSON snapshot file per table under a cache
// directory. Writes go to a temp file that is renamed into place once
// fully written, so a crash mid-write never corrupts the previous good
// snapshot and readers see either the old or the new snapshot, whole.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[domain.Table]*sync.Mutex // Per-table write serialization
}

var _ domain.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a snapshot store rooted at dir. The directory
// is created lazily on first save, so an out-of-band wipe of the cache
// directory reads as cache miss rather than a fatal condition.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		locks:  make(map[domain.Table]*sync.Mutex),
	}
}

// Dir returns the cache directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

// snapshotPath returns the snapshot file path for a table
func (s *FileStore) snapshotPath(table domain.Table) string {
	return filepath.Join(s.dir, string(table)+".json")
}

// tableLock returns the write lock for a table, creating it on demand
func (s *FileStore) tableLock(table domain.Table) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[table]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[table] = lock
	}
	return lock
}

// Save durably replaces the snapshot for a table. Writes for different
// tables proceed concurrently; writes for the same table serialize.
func (s *FileStore) Save(table domain.Table, records []domain.Record) error {
	lock := s.tableLock(table)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if records == nil {
		records = []domain.Record{}
	}
	snap := domain.Snapshot{
		Table:     table,
		Records:   records,
		FetchedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for %s: %w", table, err)
	}

	// Write to a temp file and publish via rename. Rename within one
	// directory is atomic on POSIX filesystems.
	tmp, err := os.CreateTemp(s.dir, string(table)+".json.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot for %s: %w", table, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot for %s: %w", table, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot for %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot for %s: %w", table, err)
	}

	if err := os.Rename(tmpPath, s.snapshotPath(table)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish snapshot for %s: %w", table, err)
	}

	s.logger.Debug("snapshot saved", "table", table, "records", len(records))
	return nil
}

// Load returns the most recently saved snapshot for a table. A missing
// file and an unreadable one are reported identically as ErrCacheMiss
// so callers degrade to "no cached data" instead of failing.
func (s *FileStore) Load(table domain.Table) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		s.logger.Warn("snapshot unreadable", "table", table, "error", err)
		return nil, domain.ErrCacheMiss
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot corrupt", "table", table, "error", err)
		return nil, domain.ErrCacheMiss
	}

	return &snap, nil
}

// Stat reports snapshot file existence and size in KB for a table.
func (s *FileStore) Stat(table domain.Table) (bool, float64) {
	info, err := os.Stat(s.snapshotPath(table))
	if err != nil {
		return false, 0
	}
	sizeKB := math.Round(float64(info.Size())/1024*100) / 100
	return true, sizeKB
}
