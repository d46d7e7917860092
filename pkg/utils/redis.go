package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisClientName tags connections opened by the API in CLIENT LIST.
const DefaultRedisClientName = "dashboard-api"

var ErrRedisAddrRequired = errors.New("redis addr is required")

// RedisConfig configures the client behind the token denylist. Every
// authenticated request performs one lookup, so commands time out quickly
// and a stalled Redis fails the request rather than holding it.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ClientName string

	DialTimeout    time.Duration
	CommandTimeout time.Duration
	// PoolSize 0 keeps the go-redis default of ten connections per CPU.
	PoolSize int
}

func (c RedisConfig) resolved() RedisConfig {
	if c.ClientName == "" {
		c.ClientName = DefaultRedisClientName
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 500 * time.Millisecond
	}
	if c.PoolSize < 0 {
		c.PoolSize = 0
	}
	return c
}

// OpenRedis connects to Redis and checks it with PING within DialTimeout.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrRedisAddrRequired
	}
	cfg = cfg.resolved()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   cfg.ClientName,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.CommandTimeout,
		WriteTimeout: cfg.CommandTimeout,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.CommandTimeout + time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
