package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/orbitshield/cachesync/internal/domain"
)

const defaultFetchTimeout = 10 * time.Second

// ReadResult is the outcome of a resolved table read.
type ReadResult struct {
	Table     domain.Table
	Records   []domain.Record
	Source    domain.Source
	FetchedAt time.Time
}

// Resolver serves table reads: try the remote store under a bounded
// timeout, fall back to the cached snapshot when the remote cannot be
// reached. The decision is re-evaluated on every call; there is no
// sticky offline mode, so fresh data always wins once the remote
// recovers.
type Resolver struct {
	orch   *Orchestrator
	logger *slog.Logger
}

// NewResolver creates a fallback resolver on top of the orchestrator's
// fetcher and stores. The orchestrator's fetch timeout bounds each
// remote attempt, keeping one timeout policy for both paths.
func NewResolver(orch *Orchestrator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{orch: orch, logger: logger}
}

// Resolve returns the best available records for a table.
//
// Remote success refreshes the cache best-effort through the same
// persist path used by syncs. A rejected request propagates without
// consulting the cache: the request itself was invalid, the remote is
// not down. Anything else degrades to the cached snapshot, or to
// ErrNoData when no snapshot exists. Cache fallback never panics and
// never fabricates records.
func (r *Resolver) Resolve(ctx context.Context, table domain.Table) (*ReadResult, error) {
	fctx, cancel := context.WithTimeout(ctx, r.orch.timeout)
	defer cancel()

	records, err := r.orch.fetcher.FetchAll(fctx, table)
	if err == nil {
		if serr := r.orch.meta.SetConnectivity(domain.ConnectivityOnline); serr != nil {
			r.logger.Warn("failed to record connectivity", "error", serr)
		}
		if perr := r.orch.persist(table, records); perr != nil {
			// Best effort: a failed write-back never fails the read.
			r.logger.Warn("cache write-back failed", "table", table, "error", perr)
		}
		return &ReadResult{
			Table:     table,
			Records:   records,
			Source:    domain.SourceRemote,
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	if errors.Is(err, domain.ErrRemoteRejected) {
		return nil, err
	}

	// Unreachable or timed out: serve the last good snapshot.
	if serr := r.orch.meta.SetConnectivity(domain.ConnectivityOffline); serr != nil {
		r.logger.Warn("failed to record connectivity", "error", serr)
	}

	snap, lerr := r.orch.store.Load(table)
	if lerr != nil {
		r.logger.Warn("remote unreachable and no cached snapshot", "table", table, "error", err)
		return nil, domain.ErrNoData
	}

	r.logger.Info("serving cached snapshot", "table", table, "records", len(snap.Records), "fetched_at", snap.FetchedAt)
	return &ReadResult{
		Table:     table,
		Records:   snap.Records,
		Source:    domain.SourceCache,
		FetchedAt: snap.FetchedAt,
	}, nil
}
