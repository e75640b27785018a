package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orbitshield/cachesync/internal/config"
	"github.com/orbitshield/cachesync/internal/domain"
	"github.com/orbitshield/cachesync/internal/metadata"
	"github.com/orbitshield/cachesync/internal/store"
)

// fakeFetcher is a scriptable domain.TableFetcher for tests.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[domain.Table]int
	records map[domain.Table][]domain.Record
	errs    map[domain.Table]error

	// When set, FetchAll blocks until the channel closes or the
	// context expires.
	block chan struct{}
}

func (f *fakeFetcher) FetchAll(ctx context.Context, table domain.Table) ([]domain.Record, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[domain.Table]int)
	}
	f.calls[table]++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	return f.records[table], nil
}

func (f *fakeFetcher) callCount(table domain.Table) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table]
}

type testEnv struct {
	orch      *Orchestrator
	resolver  *Resolver
	snapshots *store.FileStore
	meta      *metadata.BoltStore
}

func newTestEnv(t *testing.T, fetcher domain.TableFetcher, timeout time.Duration) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := config.NullLogger()
	snapshots := store.NewFileStore(dir, logger)
	meta, err := metadata.NewBoltStore(filepath.Join(dir, "meta.db"), dir, snapshots, logger)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	orch := NewOrchestrator(fetcher, snapshots, meta, timeout, logger)
	return &testEnv{
		orch:      orch,
		resolver:  NewResolver(orch, logger),
		snapshots: snapshots,
		meta:      meta,
	}
}

func records(ids ...string) []domain.Record {
	out := make([]domain.Record, len(ids))
	for i, id := range ids {
		out[i] = domain.Record{"id": id}
	}
	return out
}
