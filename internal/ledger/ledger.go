// Package ledger builds the usage ledger store selected by configuration.
package ledger

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/ledger/bolt"
	"github.com/davidbz/chatrelay/internal/ledger/file"
	"github.com/davidbz/chatrelay/internal/ledger/postgres"
	ledgerredis "github.com/davidbz/chatrelay/internal/ledger/redis"
	"github.com/davidbz/chatrelay/internal/observability"
)

// Backend names.
const (
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const connectTimeout = 5 * time.Second

// NewStore opens the configured ledger store (DI constructor). Stores holding
// connections implement io.Closer.
func NewStore(
	cfg *config.LedgerConfig,
	redisCfg *config.RedisConfig,
	pgCfg *config.PostgresConfig,
) (domain.LedgerStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	logger := observability.FromContext(ctx)
	logger.Info("opening usage ledger", observability.String("backend", cfg.Backend))

	switch cfg.Backend {
	case "", BackendFile:
		store, err := file.New(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		return store, nil

	case BackendBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return store, nil

	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis not available at %s: %w", redisCfg.Addr, err)
		}
		return &redisStore{
			Store:  ledgerredis.New(client, ledgerredis.WithKey(redisCfg.Key)),
			client: client,
		}, nil

	case BackendPostgres:
		store, err := postgres.Connect(ctx, pgCfg.DSN, postgres.WithTable(pgCfg.Table))
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// redisStore ties the client lifetime to the store.
type redisStore struct {
	*ledgerredis.Store
	client *goredis.Client
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
