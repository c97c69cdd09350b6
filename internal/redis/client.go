// Package redis wraps go-redis so stores depend on an interface
package redis

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/numenera-api/internal/errors"
)

// Options tunes the client pool. Fields left at zero keep the go-redis
// defaults, or the values from a URL endpoint.
type Options struct {
	PoolSize        int
	MinIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxRetries      int
	DB              int
	UseTLS          bool
}

// NewClient creates a client for a single Redis instance. The endpoint is
// either host:port or a redis:// / rediss:// URL carrying credentials and DB.
// Connections are opened lazily.
func NewClient(endpoint string, opts *Options) (Client, error) {
	if endpoint == "" {
		return nil, errors.InvalidArgument("redis endpoint is required")
	}
	if opts == nil {
		opts = &Options{}
	}

	redisOpts := &redis.Options{Addr: endpoint}
	if strings.Contains(endpoint, "://") {
		parsed, err := redis.ParseURL(endpoint)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid redis URL")
		}
		redisOpts = parsed
	}

	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	if opts.MinIdleConns > 0 {
		redisOpts.MinIdleConns = opts.MinIdleConns
	}
	if opts.ConnMaxIdleTime > 0 {
		redisOpts.ConnMaxIdleTime = opts.ConnMaxIdleTime
	}
	if opts.MaxRetries != 0 {
		redisOpts.MaxRetries = opts.MaxRetries
	}
	if opts.DB > 0 {
		redisOpts.DB = opts.DB
	}
	if opts.UseTLS && redisOpts.TLSConfig == nil {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return redis.NewClient(redisOpts), nil
}

// Ping checks the connection, reporting failures as Unavailable
func Ping(ctx context.Context, client Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "redis is unreachable")
	}
	return nil
}
