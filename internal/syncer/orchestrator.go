// Package syncer drives table refresh against the remote store and
// decides, per read, whether to serve live or cached data.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orbitshield/cachesync/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TableResult is the outcome of syncing one table.
type TableResult struct {
	Table domain.Table
	Count int
	Err   error
}

// Summary aggregates per-table outcomes of a full sync.
type Summary struct {
	Results map[domain.Table]TableResult
	Total   int
}

// Orchestrator refreshes table snapshots from the remote store.
// Failures stay per-table: one table's failed fetch never aborts the
// rest, and callers get typed results rather than panics.
type Orchestrator struct {
	fetcher domain.TableFetcher
	store   domain.SnapshotStore
	meta    domain.MetadataStore
	timeout time.Duration // Bound on a single table fetch
	logger  *slog.Logger

	// Coalesces concurrent syncs of the same table onto one in-flight
	// fetch. Syncs are idempotent full replacements, so every caller
	// can safely share the winner's result.
	group singleflight.Group

	mu    sync.Mutex
	locks map[domain.Table]*sync.Mutex // Per-table persist serialization
}

// NewOrchestrator creates a sync orchestrator. timeout bounds each
// table's remote fetch so a slow remote cannot stall a full sync
// indefinitely.
func NewOrchestrator(fetcher domain.TableFetcher, store domain.SnapshotStore, meta domain.MetadataStore, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		meta:    meta,
		timeout: timeout,
		logger:  logger,
		locks:   make(map[domain.Table]*sync.Mutex),
	}
}

// persistLock returns the persist lock for a table, creating it on demand
func (o *Orchestrator) persistLock(table domain.Table) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[table]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[table] = lock
	}
	return lock
}

// SyncTable refreshes one table and records the connectivity
// observation from its outcome.
func (o *Orchestrator) SyncTable(ctx context.Context, table domain.Table) TableResult {
	res := o.doSync(ctx, table)

	mode := domain.ConnectivityOnline
	if errors.Is(res.Err, domain.ErrRemoteUnavailable) {
		mode = domain.ConnectivityOffline
	}
	if err := o.meta.SetConnectivity(mode); err != nil {
		o.logger.Warn("failed to record connectivity", "error", err)
	}

	return res
}

// SyncAll refreshes every table in the fixed set, continuing past
// per-table failures. Connectivity ends up online if any table's fetch
// reached the remote, offline only when every fetch found it
// unreachable.
func (o *Orchestrator) SyncAll(ctx context.Context) Summary {
	o.logger.Info("starting full sync")

	summary := Summary{Results: make(map[domain.Table]TableResult, len(domain.Tables()))}
	reachable := false

	for _, table := range domain.Tables() {
		res := o.doSync(ctx, table)
		summary.Results[table] = res

		if res.Err == nil {
			summary.Total += res.Count
			reachable = true
		} else if !errors.Is(res.Err, domain.ErrRemoteUnavailable) {
			// A rejected request or a local persist failure still
			// means the remote endpoint answered.
			reachable = true
		}
	}

	mode := domain.ConnectivityOffline
	if reachable {
		mode = domain.ConnectivityOnline
	}
	if err := o.meta.SetConnectivity(mode); err != nil {
		o.logger.Warn("failed to record connectivity", "error", err)
	}

	o.logger.Info("full sync complete", "total", summary.Total, "connectivity", mode)
	return summary
}

// doSync runs one table sync under the single-flight group.
func (o *Orchestrator) doSync(ctx context.Context, table domain.Table) TableResult {
	v, _, shared := o.group.Do(string(table), func() (interface{}, error) {
		return o.syncTable(ctx, table), nil
	})
	if shared {
		o.logger.Debug("sync coalesced with in-flight sync", "table", table)
	}
	return v.(TableResult)
}

func (o *Orchestrator) syncTable(ctx context.Context, table domain.Table) TableResult {
	fctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	records, err := o.fetcher.FetchAll(fctx, table)
	if err != nil {
		o.logger.Warn("table sync failed", "table", table, "error", err)
		return TableResult{Table: table, Err: err}
	}

	if err := o.persist(table, records); err != nil {
		o.logger.Error("table sync persist failed", "table", table, "error", err)
		return TableResult{Table: table, Err: err}
	}

	o.logger.Info("table synced", "table", table, "records", len(records))
	return TableResult{Table: table, Count: len(records)}
}

// persist is the single write path for remote-fetched records, shared
// by table syncs and by remote-backed reads that refresh the cache.
// Metadata is recorded only after the snapshot write succeeds, and the
// pair commits under a per-table lock so the published snapshot and
// the recorded metadata always come from the same fetch.
func (o *Orchestrator) persist(table domain.Table, records []domain.Record) error {
	lock := o.persistLock(table)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.Save(table, records); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := o.meta.RecordSync(table, len(records), time.Now().UTC()); err != nil {
		return fmt.Errorf("recording sync metadata: %w", err)
	}
	return nil
}
