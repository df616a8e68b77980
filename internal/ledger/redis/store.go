// Package redis provides a LedgerStore kept in a Redis hash.
//
// Increments use HINCRBY inside MULTI/EXEC, so concurrent relays sharing one
// Redis never lose an update.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/davidbz/chatrelay/internal/domain"
)

const (
	usedField  = "numberOfUsedTokens"
	limitField = "maxTokenLimit"
)

// Store is a Redis-backed LedgerStore.
type Store struct {
	client goredis.Cmdable
	key    string
}

var _ domain.LedgerStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKey sets the hash key (default "chatrelay:ledger").
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a new Redis-backed LedgerStore.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    "chatrelay:ledger",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the current state.
func (s *Store) Load(ctx context.Context) (domain.LedgerState, error) {
	values, err := s.client.HMGet(ctx, s.key, usedField, limitField).Result()
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: redis load: %w", domain.ErrStorageUnavailable, err)
	}

	used, err := parseField(values[0])
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: redis %s: %w", domain.ErrStorageUnavailable, usedField, err)
	}

	limit, err := parseField(values[1])
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: redis %s: %w", domain.ErrStorageUnavailable, limitField, err)
	}

	return domain.LedgerState{Used: used, Limit: limit}, nil
}

// Add increments the used units by delta.
func (s *Store) Add(ctx context.Context, delta int64) (domain.LedgerState, error) {
	var used *goredis.IntCmd
	var limit *goredis.StringCmd

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		used = pipe.HIncrBy(ctx, s.key, usedField, delta)
		limit = pipe.HGet(ctx, s.key, limitField)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return domain.LedgerState{}, fmt.Errorf("%w: redis add: %w", domain.ErrStorageUnavailable, err)
	}

	return stateFrom(used.Val(), limit)
}

// Reset sets the used units to zero.
func (s *Store) Reset(ctx context.Context) (domain.LedgerState, error) {
	var limit *goredis.StringCmd

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.key, usedField, 0)
		limit = pipe.HGet(ctx, s.key, limitField)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return domain.LedgerState{}, fmt.Errorf("%w: redis reset: %w", domain.ErrStorageUnavailable, err)
	}

	return stateFrom(0, limit)
}

// SetLimit persists a new ceiling.
func (s *Store) SetLimit(ctx context.Context, limit int64) (domain.LedgerState, error) {
	var used *goredis.StringCmd

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.key, limitField, limit)
		used = pipe.HGet(ctx, s.key, usedField)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return domain.LedgerState{}, fmt.Errorf("%w: redis set limit: %w", domain.ErrStorageUnavailable, err)
	}

	usedValue, err := optionalInt(used)
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: redis %s: %w", domain.ErrStorageUnavailable, usedField, err)
	}

	return domain.LedgerState{Used: usedValue, Limit: limit}, nil
}

func stateFrom(used int64, limit *goredis.StringCmd) (domain.LedgerState, error) {
	limitValue, err := optionalInt(limit)
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("%w: redis %s: %w", domain.ErrStorageUnavailable, limitField, err)
	}
	return domain.LedgerState{Used: used, Limit: limitValue}, nil
}

func optionalInt(cmd *goredis.StringCmd) (int64, error) {
	value, err := cmd.Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return value, err
}

func parseField(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected value type %T", value)
	}
}
