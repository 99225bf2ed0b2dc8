package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StockSentinel/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis stores series as JSON strings with a TTL.
type Redis struct {
	client *goredis.Client
}

// NewRedis connects and pings the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (model.Series, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.Series{}, false, nil
	}
	if err != nil {
		return model.Series{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var s model.Series
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Series{}, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return s, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, s model.Series, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
