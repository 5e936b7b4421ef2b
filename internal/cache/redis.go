package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettlementCache keeps recently settled webhook responses so replayed
// notifications can be answered without touching the database.
type SettlementCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewSettlementCache(cfg Config) (*SettlementCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SettlementCache{client: rdb, ttl: cfg.TTL}, nil
}

func settlementKey(reference string) string {
	return "settlement:" + reference
}

// Get returns the cached settlement response for a reference, or redis.Nil
// wrapped in an error if nothing is cached.
func (sc *SettlementCache) Get(ctx context.Context, reference string) ([]byte, error) {
	data, err := sc.client.Get(ctx, settlementKey(reference)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("settlement not cached: %w", err)
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

func (sc *SettlementCache) Set(ctx context.Context, reference string, response []byte) error {
	if err := sc.client.Set(ctx, settlementKey(reference), response, sc.ttl).Err(); err != nil {
		return fmt.Errorf("cache write error: %w", err)
	}
	return nil
}

func (sc *SettlementCache) Close() error {
	return sc.client.Close()
}
