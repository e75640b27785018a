package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitshield/cachesync/internal/domain"
)

func TestSyncTableSuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("s1", "s2", "s3"),
		},
	}
	env := newTestEnv(t, fetcher, time.Second)

	res := env.orch.SyncTable(context.Background(), domain.TableSatellites)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Count)

	snap, err := env.snapshots.Load(domain.TableSatellites)
	require.NoError(t, err)
	require.Len(t, snap.Records, 3)
	assert.Equal(t, "s1", snap.Records[0]["id"])

	status, err := env.meta.Status()
	require.NoError(t, err)
	assert.Equal(t, 3, status.Tables[domain.TableSatellites].RecordCount)
	assert.Equal(t, domain.ConnectivityOnline, status.SupabaseStatus)
	require.NotNil(t, status.LastSync)
}

func TestSyncTableFailureLeavesSnapshotUntouched(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("old-1", "old-2"),
		},
	}
	env := newTestEnv(t, fetcher, time.Second)

	res := env.orch.SyncTable(context.Background(), domain.TableSatellites)
	require.NoError(t, res.Err)

	fetcher.mu.Lock()
	fetcher.errs = map[domain.Table]error{domain.TableSatellites: domain.ErrRemoteUnavailable}
	fetcher.mu.Unlock()

	res = env.orch.SyncTable(context.Background(), domain.TableSatellites)
	assert.ErrorIs(t, res.Err, domain.ErrRemoteUnavailable)

	// The last good snapshot survives the failed sync
	snap, err := env.snapshots.Load(domain.TableSatellites)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, "old-1", snap.Records[0]["id"])

	assert.Equal(t, domain.ConnectivityOffline, env.meta.Connectivity())
}

func TestSyncReplacesWholesale(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("a", "b", "c", "d", "e"),
		},
	}
	env := newTestEnv(t, fetcher, time.Second)

	res := env.orch.SyncTable(context.Background(), domain.TableSatellites)
	require.NoError(t, res.Err)
	assert.Equal(t, 5, res.Count)

	fetcher.mu.Lock()
	fetcher.records[domain.TableSatellites] = records("1", "2", "3", "4", "5", "6", "7")
	fetcher.mu.Unlock()

	res = env.orch.SyncTable(context.Background(), domain.TableSatellites)
	require.NoError(t, res.Err)
	assert.Equal(t, 7, res.Count)

	// Full replace: 7 records, not a merge to 12
	snap, err := env.snapshots.Load(domain.TableSatellites)
	require.NoError(t, err)
	require.Len(t, snap.Records, 7)
	assert.Equal(t, "1", snap.Records[0]["id"])
	assert.Equal(t, "7", snap.Records[6]["id"])
}

func TestSyncAllPartialFailure(t *testing.T) {
	// Remote has satellites, debris is unreachable, the rest are empty
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("s1", "s2", "s3"),
		},
		errs: map[domain.Table]error{
			domain.TableDebris: domain.ErrRemoteUnavailable,
		},
	}
	env := newTestEnv(t, fetcher, time.Second)

	summary := env.orch.SyncAll(context.Background())

	require.Len(t, summary.Results, len(domain.Tables()))
	assert.Equal(t, 3, summary.Results[domain.TableSatellites].Count)
	require.NoError(t, summary.Results[domain.TableSatellites].Err)
	assert.ErrorIs(t, summary.Results[domain.TableDebris].Err, domain.ErrRemoteUnavailable)
	assert.Equal(t, 3, summary.Total)

	status, err := env.meta.Status()
	require.NoError(t, err)
	assert.True(t, status.Tables[domain.TableSatellites].CacheExists)
	assert.Equal(t, 3, status.Tables[domain.TableSatellites].RecordCount)
	assert.False(t, status.Tables[domain.TableDebris].CacheExists)

	// The remote answered for at least one table
	assert.Equal(t, domain.ConnectivityOnline, status.SupabaseStatus)
}

func TestSyncAllEveryTableUnreachable(t *testing.T) {
	errs := make(map[domain.Table]error)
	for _, table := range domain.Tables() {
		errs[table] = domain.ErrRemoteUnavailable
	}
	env := newTestEnv(t, &fakeFetcher{errs: errs}, time.Second)

	summary := env.orch.SyncAll(context.Background())

	assert.Zero(t, summary.Total)
	for _, table := range domain.Tables() {
		assert.ErrorIs(t, summary.Results[table].Err, domain.ErrRemoteUnavailable)
	}
	assert.Equal(t, domain.ConnectivityOffline, env.meta.Connectivity())
}

func TestSyncAllRejectedStillCountsAsReachable(t *testing.T) {
	errs := make(map[domain.Table]error)
	for _, table := range domain.Tables() {
		errs[table] = domain.ErrRemoteUnavailable
	}
	// One table got an answer, even if it was a refusal
	errs[domain.TableAlerts] = domain.ErrRemoteRejected
	env := newTestEnv(t, &fakeFetcher{errs: errs}, time.Second)

	env.orch.SyncAll(context.Background())
	assert.Equal(t, domain.ConnectivityOnline, env.meta.Connectivity())
}

func TestConcurrentSyncsCoalesce(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Table][]domain.Record{
			domain.TableSatellites: records("s1", "s2"),
		},
		block: make(chan struct{}),
	}
	env := newTestEnv(t, fetcher, 5*time.Second)

	const callers = 4
	var wg sync.WaitGroup
	results := make([]TableResult, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.orch.SyncTable(context.Background(), domain.TableSatellites)
		}(i)
	}

	// Let every caller reach the in-flight sync before releasing it
	require.Eventually(t, func() bool {
		return fetcher.callCount(domain.TableSatellites) >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(fetcher.block)
	wg.Wait()

	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, 2, res.Count)
	}

	// One fetch served every caller
	assert.Equal(t, 1, fetcher.callCount(domain.TableSatellites))
}
