package domain

import "time"

// SnapshotStore persists whole-table snapshots locally.
// Implementations must replace snapshots atomically: a reader observes
// either the prior complete snapshot or the new one, never a mix.
type SnapshotStore interface {
	// Save durably replaces the snapshot for a table. It has no
	// metadata side effects.
	Save(table Table, records []Record) error

	// Load returns the most recently saved snapshot. Missing and
	// unreadable snapshots are both reported as ErrCacheMiss.
	Load(table Table) (*Snapshot, error)

	// Stat reports whether a snapshot file currently exists for a
	// table and its size in KB. Used for status derivation only.
	Stat(table Table) (exists bool, sizeKB float64)
}

// MetadataStore records sync outcomes and connectivity observations.
type MetadataStore interface {
	// RecordSync updates a table's record count and sync timestamp,
	// and bumps the global last-sync timestamp.
	RecordSync(table Table, count int, at time.Time) error

	// SetConnectivity records the latest remote reachability
	// observation. Idempotent.
	SetConnectivity(mode Connectivity) error

	// Connectivity returns the last observed reachability.
	Connectivity() Connectivity

	// Status combines persisted bookkeeping with snapshot-file facts.
	Status() (*CacheStatus, error)

	Close() error
}
