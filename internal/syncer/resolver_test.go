package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitshield/cachesync/internal/domain"
)

func TestResolveRemoteSuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("s1", "s2"),
		},
	}
	env := newTestEnv(t, fetcher, time.Second)

	res, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRemote, res.Source)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "s1", res.Records[0]["id"])
	assert.Equal(t, domain.ConnectivityOnline, env.meta.Connectivity())

	// The read refreshed the cache through the sync persist path
	snap, err := env.snapshots.Load(domain.TableSatellites)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)

	status, err := env.meta.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, status.Tables[domain.TableSatellites].RecordCount)
}

func TestResolveFallsBackToCache(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[domain.Table]error{domain.TableSatellites: domain.ErrRemoteUnavailable},
	}
	env := newTestEnv(t, fetcher, time.Second)

	require.NoError(t, env.snapshots.Save(domain.TableSatellites, records("cached-1", "cached-2", "cached-3")))

	res, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, res.Source)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "cached-1", res.Records[0]["id"])
	assert.Equal(t, domain.ConnectivityOffline, env.meta.Connectivity())
}

func TestResolveTimeoutServesCache(t *testing.T) {
	// The fetcher hangs until the per-attempt timeout expires
	fetcher := &fakeFetcher{block: make(chan struct{})}
	env := newTestEnv(t, fetcher, 50*time.Millisecond)

	require.NoError(t, env.snapshots.Save(domain.TableSatellites, records("stale-but-here")))

	start := time.Now()
	res, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second, "timeout must bound the remote attempt")
	assert.Equal(t, domain.SourceCache, res.Source)
	assert.Equal(t, "stale-but-here", res.Records[0]["id"])
	assert.Equal(t, domain.ConnectivityOffline, env.meta.Connectivity())
}

func TestResolveRejectedPropagates(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[domain.Table]error{domain.TableSatellites: domain.ErrRemoteRejected},
	}
	env := newTestEnv(t, fetcher, time.Second)

	// Even with a cached snapshot available, a rejected request is
	// surfaced rather than masked by fallback.
	require.NoError(t, env.snapshots.Save(domain.TableSatellites, records("cached")))

	res, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
	assert.Nil(t, res)
}

func TestResolveNoData(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[domain.Table]error{domain.TableDebris: domain.ErrRemoteUnavailable},
	}
	env := newTestEnv(t, fetcher, time.Second)

	res, err := env.resolver.Resolve(context.Background(), domain.TableDebris)
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.Nil(t, res)
	assert.Equal(t, domain.ConnectivityOffline, env.meta.Connectivity())
}

// shiftingFetcher returns a different-sized record set on every call,
// so snapshot contents and metadata counts from different fetches are
// distinguishable.
type shiftingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *shiftingFetcher) FetchAll(_ context.Context, _ domain.Table) ([]domain.Record, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls%7 + 1
	f.mu.Unlock()

	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"id": fmt.Sprintf("rec-%d", i)}
	}
	return out, nil
}

func TestConcurrentWriteBackAndSyncKeepMetadataPaired(t *testing.T) {
	fetcher := &shiftingFetcher{}
	env := newTestEnv(t, fetcher, time.Second)

	// Reads write back to the cache while syncs of the same table run;
	// the published snapshot and the recorded count must always land
	// from the same fetch.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if i%2 == 0 {
					res := env.orch.SyncTable(context.Background(), domain.TableSatellites)
					assert.NoError(t, res.Err)
				} else {
					_, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
					assert.NoError(t, err)
				}
			}
		}(i)
	}
	wg.Wait()

	snap, err := env.snapshots.Load(domain.TableSatellites)
	require.NoError(t, err)

	status, err := env.meta.Status()
	require.NoError(t, err)
	assert.Equal(t, len(snap.Records), status.Tables[domain.TableSatellites].RecordCount)
}

func TestResolveNoStickyOffline(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[domain.Table]error{domain.TableSatellites: domain.ErrRemoteUnavailable},
	}
	env := newTestEnv(t, fetcher, time.Second)
	require.NoError(t, env.snapshots.Save(domain.TableSatellites, records("cached")))

	res, err := env.resolver.Resolve(context.Background(), domain.TableSatellites)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, res.Source)

	// The remote recovers; the very next read prefers fresh data
	fetcher.mu.Lock()
	fetcher.errs = nil
	fetcher.records = map[domain.Table][]domain.Record{
		domain.TableSatellites: records("fresh-1", "fresh-2"),
	}
	fetcher.mu.Unlock()

	res, err = env.resolver.Resolve(context.Background(), domain.TableSatellites)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRemote, res.Source)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, domain.ConnectivityOnline, env.meta.Connectivity())
}
