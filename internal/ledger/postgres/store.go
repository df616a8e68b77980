// Package postgres provides a LedgerStore kept in a single PostgreSQL row.
//
// Every mutation is one UPDATE ... RETURNING statement, so the database
// applies concurrent increments atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidbz/chatrelay/internal/domain"
)

const ledgerRowID = 1

// Store is a PostgreSQL-backed LedgerStore.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

var _ domain.LedgerStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTable sets the table name (default "chatrelay_ledger").
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// New creates a new PostgreSQL-backed LedgerStore.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:  pool,
		table: "chatrelay_ledger",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a pool for dsn and ensures the schema exists.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	s := New(pool, opts...)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the ledger table and its single row if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SMALLINT PRIMARY KEY,
			used BIGINT NOT NULL DEFAULT 0,
			max_limit BIGINT
		)`, s.tableIdent())
	if _, err := s.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}

	seed := fmt.Sprintf(`INSERT INTO %s (id, used) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`, s.tableIdent())
	if _, err := s.pool.Exec(ctx, seed, ledgerRowID); err != nil {
		return fmt.Errorf("failed to seed ledger row: %w", err)
	}

	return nil
}

// Load reads the current state.
func (s *Store) Load(ctx context.Context) (domain.LedgerState, error) {
	q := fmt.Sprintf(`SELECT used, COALESCE(max_limit, 0) FROM %s WHERE id = $1`, s.tableIdent())
	return s.queryState(ctx, "load", q, ledgerRowID)
}

// Add increments the used units by delta.
func (s *Store) Add(ctx context.Context, delta int64) (domain.LedgerState, error) {
	q := fmt.Sprintf(`UPDATE %s SET used = used + $2 WHERE id = $1
		RETURNING used, COALESCE(max_limit, 0)`, s.tableIdent())
	return s.queryState(ctx, "add", q, ledgerRowID, delta)
}

// Reset sets the used units to zero.
func (s *Store) Reset(ctx context.Context) (domain.LedgerState, error) {
	q := fmt.Sprintf(`UPDATE %s SET used = 0 WHERE id = $1
		RETURNING used, COALESCE(max_limit, 0)`, s.tableIdent())
	return s.queryState(ctx, "reset", q, ledgerRowID)
}

// SetLimit persists a new ceiling.
func (s *Store) SetLimit(ctx context.Context, limit int64) (domain.LedgerState, error) {
	q := fmt.Sprintf(`UPDATE %s SET max_limit = $2 WHERE id = $1
		RETURNING used, COALESCE(max_limit, 0)`, s.tableIdent())
	return s.queryState(ctx, "set limit", q, ledgerRowID, limit)
}

func (s *Store) queryState(ctx context.Context, op, q string, args ...any) (domain.LedgerState, error) {
	var state domain.LedgerState
	err := s.pool.QueryRow(ctx, q, args...).Scan(&state.Used, &state.Limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerState{}, fmt.Errorf("%w: postgres %s: ledger row missing", domain.ErrStorageUnavailable, op)
	}
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: postgres %s: %w", domain.ErrStorageUnavailable, op, err)
	}
	return state, nil
}

func (s *Store) tableIdent() string {
	return pgx.Identifier{s.table}.Sanitize()
}
