// Package file provides a LedgerStore persisted as a single JSON document.
//
// The document holds at least numberOfUsedTokens and optionally maxTokenLimit.
// Every mutation re-reads the file, edits only the ledger keys so unknown keys
// survive, and replaces the file atomically. Mutations are serialized by the
// store, so it must be the only writer of the file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/davidbz/chatrelay/internal/domain"
)

const (
	usedKey  = "numberOfUsedTokens"
	limitKey = "maxTokenLimit"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is a file-backed LedgerStore.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ domain.LedgerStore = (*Store)(nil)

// New creates a store at path. A missing file is created with zero usage.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger file path cannot be empty")
	}

	s := &Store{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), dirPerm); mkErr != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", mkErr)
		}
		if writeErr := s.write([]byte(`{"numberOfUsedTokens":0}`)); writeErr != nil {
			return nil, writeErr
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat ledger file: %w", err)
	}

	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current state.
func (s *Store) Load(ctx context.Context) (domain.LedgerState, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, state, err := s.read()
	return state, err
}

// Add increments the used units by delta.
func (s *Store) Add(ctx context.Context, delta int64) (domain.LedgerState, error) {
	return s.mutate(ctx, func(state *domain.LedgerState) {
		state.Used += delta
	})
}

// Reset sets the used units to zero.
func (s *Store) Reset(ctx context.Context) (domain.LedgerState, error) {
	return s.mutate(ctx, func(state *domain.LedgerState) {
		state.Used = 0
	})
}

// SetLimit persists a new ceiling.
func (s *Store) SetLimit(ctx context.Context, limit int64) (domain.LedgerState, error) {
	return s.mutate(ctx, func(state *domain.LedgerState) {
		state.Limit = limit
	})
}

func (s *Store) mutate(ctx context.Context, apply func(state *domain.LedgerState)) (domain.LedgerState, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, state, err := s.read()
	if err != nil {
		return domain.LedgerState{}, err
	}

	apply(&state)

	doc, err = sjson.SetBytes(doc, usedKey, state.Used)
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("failed to encode %s: %w", usedKey, err)
	}

	if state.Limit > 0 {
		doc, err = sjson.SetBytes(doc, limitKey, state.Limit)
		if err != nil {
			return domain.LedgerState{}, fmt.Errorf("failed to encode %s: %w", limitKey, err)
		}
	}

	if err := s.write(doc); err != nil {
		return domain.LedgerState{}, err
	}

	return state, nil
}

func (s *Store) read() ([]byte, domain.LedgerState, error) {
	doc, err := os.ReadFile(s.path)
	if err != nil {
		return nil, domain.LedgerState{}, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	state, err := Decode(doc)
	if err != nil {
		return nil, domain.LedgerState{}, err
	}

	return doc, state, nil
}

// Decode parses a ledger document.
func Decode(doc []byte) (domain.LedgerState, error) {
	if !gjson.ValidBytes(doc) {
		return domain.LedgerState{}, fmt.Errorf("%w: ledger file is not valid json", domain.ErrStorageUnavailable)
	}

	used := gjson.GetBytes(doc, usedKey)
	if used.Type != gjson.Number {
		return domain.LedgerState{}, fmt.Errorf("%w: ledger file has no numeric %s", domain.ErrStorageUnavailable, usedKey)
	}

	state := domain.LedgerState{Used: used.Int()}

	if limit := gjson.GetBytes(doc, limitKey); limit.Exists() {
		if limit.Type != gjson.Number {
			return domain.LedgerState{}, fmt.Errorf("%w: ledger file has non-numeric %s", domain.ErrStorageUnavailable, limitKey)
		}
		state.Limit = limit.Int()
	}

	return state, nil
}

// write replaces the file through a temporary file in the same directory.
func (s *Store) write(doc []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	return nil
}
