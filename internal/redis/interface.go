package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis used by the stores. Any redis.UniversalClient satisfies it.
type Client interface {
	redis.UniversalClient
}
