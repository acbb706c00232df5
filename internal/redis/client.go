package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig describes the Redis connection used for booking locks.
// Zero values fall back to the defaults below.
type ClientConfig struct {
	Addr     string
	Username string
	Password string

	PoolSize    int
	OpTimeout   time.Duration // per-command read and write timeout
	PingTimeout time.Duration
}

const (
	defaultPoolSize    = 10
	defaultOpTimeout   = 2 * time.Second
	defaultPingTimeout = 5 * time.Second
)

func (c ClientConfig) options() *redis.Options {
	poolSize := c.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	opTimeout := c.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	}
}

// NewRedisClient connects and pings. The client is closed again when the
// ping fails, so callers only own it on success.
func NewRedisClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(cfg.options())

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
