package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/mocks"
)

func TestCheckQuota(t *testing.T) {
	tests := []struct {
		name    string
		used    int64
		limit   int64
		allowed bool
	}{
		{name: "empty ledger", used: 0, limit: 1000, allowed: true},
		{name: "one unit left", used: 999, limit: 1000, allowed: true},
		{name: "exactly at the limit", used: 1000, limit: 1000, allowed: false},
		{name: "over the limit", used: 1049, limit: 1000, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.allowed, domain.CheckQuota(tt.used, tt.limit))
		})
	}
}

func TestNewLedger(t *testing.T) {
	t.Run("should reject a nil store", func(t *testing.T) {
		ledger, err := domain.NewLedger(nil, 1000)
		require.Error(t, err)
		require.Nil(t, ledger)
	})

	t.Run("should reject a non-positive default limit", func(t *testing.T) {
		ledger, err := domain.NewLedger(mocks.NewMockLedgerStore(t), 0)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		require.Nil(t, ledger)
	})
}

func TestLedger_ReadUsage(t *testing.T) {
	t.Run("should apply the default limit when none is persisted", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Load(mock.Anything).Return(domain.LedgerState{Used: 12}, nil)

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		state, err := ledger.ReadUsage(context.Background())
		require.NoError(t, err)
		require.Equal(t, domain.LedgerState{Used: 12, Limit: 1000}, state)
	})

	t.Run("should prefer the persisted limit", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Load(mock.Anything).Return(domain.LedgerState{Used: 12, Limit: 50}, nil)

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		state, err := ledger.ReadUsage(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(50), state.Limit)
	})

	t.Run("should wrap store failures as storage unavailable", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Load(mock.Anything).Return(domain.LedgerState{}, errors.New("disk gone"))

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		_, err = ledger.ReadUsage(context.Background())
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)
		require.Contains(t, err.Error(), "disk gone")
	})

	tests := []struct {
		name  string
		cause error
	}{
		{name: "canceled", cause: context.Canceled},
		{name: "deadline exceeded", cause: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run("should keep caller "+tt.name+" distinct from storage failures", func(t *testing.T) {
			store := mocks.NewMockLedgerStore(t)
			store.EXPECT().Load(mock.Anything).Return(domain.LedgerState{}, tt.cause)

			ledger, err := domain.NewLedger(store, 1000)
			require.NoError(t, err)

			_, err = ledger.ReadUsage(context.Background())
			require.ErrorIs(t, err, tt.cause)
			require.NotErrorIs(t, err, domain.ErrStorageUnavailable)
		})
	}
}

func TestLedger_RecordUsage(t *testing.T) {
	t.Run("should add the delta", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Add(mock.Anything, int64(50)).Return(domain.LedgerState{Used: 50}, nil)

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		state, err := ledger.RecordUsage(context.Background(), 50)
		require.NoError(t, err)
		require.Equal(t, domain.LedgerState{Used: 50, Limit: 1000}, state)
	})

	t.Run("should reject negative deltas without touching the store", func(t *testing.T) {
		ledger, err := domain.NewLedger(mocks.NewMockLedgerStore(t), 1000)
		require.NoError(t, err)

		_, err = ledger.RecordUsage(context.Background(), -1)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("should not double wrap storage errors", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Add(mock.Anything, int64(1)).
			Return(domain.LedgerState{}, domain.ErrStorageUnavailable)

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		_, err = ledger.RecordUsage(context.Background(), 1)
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)
		require.Equal(t, "record usage: usage storage unavailable", err.Error())
	})
}

func TestLedger_ResetUsage(t *testing.T) {
	store := mocks.NewMockLedgerStore(t)
	store.EXPECT().Reset(mock.Anything).Return(domain.LedgerState{Used: 0, Limit: 300}, nil)

	ledger, err := domain.NewLedger(store, 1000)
	require.NoError(t, err)

	state, err := ledger.ResetUsage(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.LedgerState{Used: 0, Limit: 300}, state)
}

func TestLedger_SetLimit(t *testing.T) {
	t.Run("should persist a positive limit", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().SetLimit(mock.Anything, int64(2000)).
			Return(domain.LedgerState{Used: 7, Limit: 2000}, nil)

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		state, err := ledger.SetLimit(context.Background(), 2000)
		require.NoError(t, err)
		require.Equal(t, int64(2000), state.Limit)
	})

	for _, limit := range []int64{0, -5} {
		t.Run("should reject invalid limit", func(t *testing.T) {
			ledger, err := domain.NewLedger(mocks.NewMockLedgerStore(t), 1000)
			require.NoError(t, err)

			_, err = ledger.SetLimit(context.Background(), limit)
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestCharge_Commit(t *testing.T) {
	t.Run("should record usage exactly once", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Add(mock.Anything, int64(50)).
			Return(domain.LedgerState{Used: 50}, nil).
			Once()

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		charge := ledger.NewCharge(50)
		require.Equal(t, int64(50), charge.Units())

		first, err := charge.Commit(context.Background())
		require.NoError(t, err)

		second, err := charge.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("should repeat the first failure without retrying", func(t *testing.T) {
		store := mocks.NewMockLedgerStore(t)
		store.EXPECT().Add(mock.Anything, int64(3)).
			Return(domain.LedgerState{}, errors.New("locked")).
			Once()

		ledger, err := domain.NewLedger(store, 1000)
		require.NoError(t, err)

		charge := ledger.NewCharge(3)

		_, err = charge.Commit(context.Background())
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)

		_, err = charge.Commit(context.Background())
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}
