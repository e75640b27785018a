package domain

import "time"

// Record is one row from a remote table. The cache never interprets
// record contents; they are stored and returned as-is, which keeps
// cached data forward-compatible with remote schema changes.
type Record map[string]any

// Snapshot is the complete contents of one table as last captured
// from the remote store. Records keep remote fetch order.
type Snapshot struct {
	Table     Table     `json:"table"`
	Records   []Record  `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Connectivity is the last observed reachability of the remote store.
type Connectivity string

const (
	ConnectivityUnknown Connectivity = "unknown"
	ConnectivityOnline  Connectivity = "online"
	ConnectivityOffline Connectivity = "offline"
)

// Source identifies where a resolved read came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// TableStatus combines persisted sync bookkeeping for one table with
// facts derived from its snapshot file at status time.
type TableStatus struct {
	CacheExists bool       `json:"cache_exists"`
	RecordCount int        `json:"record_count"`
	LastSync    *time.Time `json:"last_sync"`
	FileSizeKB  float64    `json:"file_size_kb"`
}

// CacheStatus is the read-only view of global and per-table sync state.
type CacheStatus struct {
	CacheDir       string                `json:"cache_dir"`
	LastSync       *time.Time            `json:"last_sync"`
	SupabaseStatus Connectivity          `json:"supabase_status"`
	Tables         map[Table]TableStatus `json:"tables"`
}
