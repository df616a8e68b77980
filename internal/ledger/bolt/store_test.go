package bolt_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/ledger/bolt"
)

func openStore(t *testing.T, path string) *bolt.Store {
	t.Helper()
	store, err := bolt.Open(path)
	require.NoError(t, err)
	return store
}

func TestStore_EmptyDatabase(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.bolt"))
	t.Cleanup(func() { _ = store.Close() })

	state, err := store.Load(context.Background())

	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{}, state)
}

func TestStore_MutationsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.bolt")
	store := openStore(t, path)

	state, err := store.SetLimit(ctx, 1000)
	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{Limit: 1000}, state)

	state, err = store.Add(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{Used: 50, Limit: 1000}, state)

	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	t.Cleanup(func() { _ = reopened.Close() })

	state, err = reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{Used: 50, Limit: 1000}, state)

	state, err = reopened.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{Used: 0, Limit: 1000}, state)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.bolt"))
	t.Cleanup(func() { _ = store.Close() })

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Add(ctx, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(workers*3), state.Used)
}

func TestStore_CanceledContext(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.bolt"))
	t.Cleanup(func() { _ = store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Add(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}
