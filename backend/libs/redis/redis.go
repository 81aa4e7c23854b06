package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the client. Zero timeouts and pool size fall back to defaults.
type Options struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o Options) clientOptions() *redis.Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 3 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	return &redis.Options{
		Addr:         strings.TrimSpace(o.Addr),
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
	}
}

// NewRedisClient returns a go-redis client that has answered PING.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	clientOpts := opts.clientOptions()
	if clientOpts.Addr == "" {
		return nil, errors.New("redis: addr is empty")
	}
	if clientOpts.DB < 0 {
		return nil, fmt.Errorf("redis: invalid db %d", clientOpts.DB)
	}

	client := redis.NewClient(clientOpts)

	pingCtx, cancel := context.WithTimeout(ctx, clientOpts.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", clientOpts.Addr, err)
	}
	return client, nil
}
