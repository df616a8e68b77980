// Package bolt provides a LedgerStore kept in a bbolt database. Writes run in
// bbolt update transactions, which the database serializes.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/davidbz/chatrelay/internal/domain"
)

const (
	openTimeout = 2 * time.Second
	dirPerm     = 0o755
	filePerm    = 0o600
)

//nolint:gochecknoglobals // Bucket and key names
var (
	ledgerBucket = []byte("ledger")
	stateKey     = []byte("state")
)

// Store is a bbolt-backed LedgerStore.
type Store struct {
	db *bolt.DB
}

var _ domain.LedgerStore = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger bolt path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(ledgerBucket)
		return createErr
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the current state.
func (s *Store) Load(ctx context.Context) (domain.LedgerState, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerState{}, err
	}

	var state domain.LedgerState
	err := s.db.View(func(tx *bolt.Tx) error {
		var readErr error
		state, readErr = readState(tx)
		return readErr
	})
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	return state, nil
}

// Add increments the used units by delta.
func (s *Store) Add(ctx context.Context, delta int64) (domain.LedgerState, error) {
	return s.update(ctx, func(state *domain.LedgerState) {
		state.Used += delta
	})
}

// Reset sets the used units to zero.
func (s *Store) Reset(ctx context.Context) (domain.LedgerState, error) {
	return s.update(ctx, func(state *domain.LedgerState) {
		state.Used = 0
	})
}

// SetLimit persists a new ceiling.
func (s *Store) SetLimit(ctx context.Context, limit int64) (domain.LedgerState, error) {
	return s.update(ctx, func(state *domain.LedgerState) {
		state.Limit = limit
	})
}

func (s *Store) update(ctx context.Context, apply func(state *domain.LedgerState)) (domain.LedgerState, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerState{}, err
	}

	var state domain.LedgerState
	err := s.db.Update(func(tx *bolt.Tx) error {
		current, readErr := readState(tx)
		if readErr != nil {
			return readErr
		}

		apply(&current)

		encoded, encodeErr := json.Marshal(current)
		if encodeErr != nil {
			return encodeErr
		}

		if putErr := tx.Bucket(ledgerBucket).Put(stateKey, encoded); putErr != nil {
			return putErr
		}

		state = current
		return nil
	})
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	return state, nil
}

func readState(tx *bolt.Tx) (domain.LedgerState, error) {
	bucket := tx.Bucket(ledgerBucket)
	if bucket == nil {
		return domain.LedgerState{}, errors.New("ledger bucket missing")
	}

	var state domain.LedgerState
	raw := bucket.Get(stateKey)
	if len(raw) == 0 {
		return state, nil
	}

	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.LedgerState{}, fmt.Errorf("failed to decode ledger state: %w", err)
	}

	return state, nil
}
