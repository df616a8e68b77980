package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/chatrelay/internal/observability"
)

// Ledger enforces the usage quota on top of a LedgerStore. The store is the
// single source of truth; nothing is cached between calls.
type Ledger struct {
	store        LedgerStore
	defaultLimit int64
}

// NewLedger creates a ledger whose ceiling falls back to defaultLimit when
// none has been persisted.
func NewLedger(store LedgerStore, defaultLimit int64) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store cannot be nil")
	}

	if defaultLimit <= 0 {
		return nil, fmt.Errorf("%w: default limit must be positive, got %d", ErrInvalidArgument, defaultLimit)
	}

	return &Ledger{
		store:        store,
		defaultLimit: defaultLimit,
	}, nil
}

// CheckQuota reports whether another request may start.
func CheckQuota(used, limit int64) bool {
	return used < limit
}

// ReadUsage returns the current state with the effective limit resolved.
func (l *Ledger) ReadUsage(ctx context.Context) (LedgerState, error) {
	state, err := l.store.Load(ctx)
	if err != nil {
		return LedgerState{}, storageError("read usage", err)
	}

	return l.resolve(state), nil
}

// RecordUsage adds delta units to the used counter.
func (l *Ledger) RecordUsage(ctx context.Context, delta int64) (LedgerState, error) {
	if delta < 0 {
		return LedgerState{}, fmt.Errorf("%w: usage delta must not be negative, got %d", ErrInvalidArgument, delta)
	}

	state, err := l.store.Add(ctx, delta)
	if err != nil {
		return LedgerState{}, storageError("record usage", err)
	}

	observability.FromContext(ctx).Info("usage recorded",
		observability.Int64("delta", delta),
		observability.Int64("used", state.Used),
	)

	return l.resolve(state), nil
}

// ResetUsage zeroes the used counter.
func (l *Ledger) ResetUsage(ctx context.Context) (LedgerState, error) {
	state, err := l.store.Reset(ctx)
	if err != nil {
		return LedgerState{}, storageError("reset usage", err)
	}

	observability.FromContext(ctx).Info("usage counter reset")

	return l.resolve(state), nil
}

// SetLimit persists a new ceiling. The limit must be positive.
func (l *Ledger) SetLimit(ctx context.Context, newLimit int64) (LedgerState, error) {
	if newLimit <= 0 {
		return LedgerState{}, fmt.Errorf("%w: limit must be a positive integer, got %d", ErrInvalidArgument, newLimit)
	}

	state, err := l.store.SetLimit(ctx, newLimit)
	if err != nil {
		return LedgerState{}, storageError("set limit", err)
	}

	observability.FromContext(ctx).Info("usage limit updated",
		observability.Int64("limit", newLimit),
	)

	return l.resolve(state), nil
}

// NewCharge prepares a charge of units that can be committed at most once.
func (l *Ledger) NewCharge(units int64) *Charge {
	return &Charge{
		ledger: l,
		units:  units,
	}
}

func (l *Ledger) resolve(state LedgerState) LedgerState {
	if state.Limit <= 0 {
		state.Limit = l.defaultLimit
	}
	return state
}

// storageError marks err as a storage failure. Cancellation and deadlines
// belong to the caller and keep their own identity.
func storageError(op string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// Charge is the pending cost of one completion. Commit records it on the
// first call only; later calls return the first outcome.
type Charge struct {
	ledger *Ledger
	units  int64

	once  sync.Once
	state LedgerState
	err   error
}

// Units returns the charged units.
func (c *Charge) Units() int64 {
	return c.units
}

// Commit records the charge in the ledger.
func (c *Charge) Commit(ctx context.Context) (LedgerState, error) {
	c.once.Do(func() {
		c.state, c.err = c.ledger.RecordUsage(ctx, c.units)
	})
	return c.state, c.err
}
