package actor

import (
	"context"
	"encoding/json"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	redisclient "github.com/KirkDiggler/numenera-api/internal/redis"
)

const (
	// Key pattern: actor:{id}
	actorKeyPrefix = "actor:"

	errActorIDEmpty = "actor ID cannot be empty"
	errActorNil     = "actor cannot be nil"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
}

// NewRedisRepository creates a new Redis repository for actors
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{
		client: cfg.Client,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

// Get retrieves an actor by ID
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	data, err := r.client.Get(ctx, r.buildKey(input.ID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("actor %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get actor from Redis")
	}

	actor, err := decodeActor(data)
	if err != nil {
		return nil, err
	}

	return &GetOutput{Actor: actor}, nil
}

// Save creates or replaces an actor
func (r *redisRepository) Save(ctx context.Context, input SaveInput) (*SaveOutput, error) {
	if input.Actor == nil {
		return nil, errors.InvalidArgument(errActorNil)
	}
	if input.Actor.ID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	data, err := json.Marshal(input.Actor)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal actor")
	}

	if err := r.client.Set(ctx, r.buildKey(input.Actor.ID), data, 0).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to store actor in Redis")
	}

	return &SaveOutput{Actor: input.Actor}, nil
}

// ApplyUpdate sets one pool value inside a WATCH transaction so concurrent
// writers to the same actor do not lose updates. With Expected set it is a
// compare-and-set on the pool value.
func (r *redisRepository) ApplyUpdate(ctx context.Context, input ApplyUpdateInput) (*ApplyUpdateOutput, error) {
	if input.ActorID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	stat, err := parsePoolPath(input.Path)
	if err != nil {
		return nil, err
	}
	if input.Value < 0 {
		return nil, errors.InvalidArgumentf("pool value cannot be negative: %d", input.Value)
	}

	key := r.buildKey(input.ActorID)
	var updated *numenera.Actor

	txErr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf("actor %s not found", input.ActorID)
			}
			return errors.Wrapf(err, "failed to get actor from Redis")
		}

		actor, err := decodeActor(data)
		if err != nil {
			return err
		}

		block, ok := actor.Stats[stat]
		if !ok {
			return errors.InvalidArgumentf("actor %s has no %s pool", input.ActorID, stat)
		}
		if input.Expected != nil && block.Pool.Value != *input.Expected {
			return errors.FailedPreconditionf("%s pool of actor %s changed", stat, input.ActorID).
				WithMeta("expected", *input.Expected).
				WithMeta("actual", block.Pool.Value)
		}
		block.Pool.Value = input.Value
		actor.Stats[stat] = block

		encoded, err := json.Marshal(actor)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal actor")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "failed to update actor in Redis")
		}

		updated = actor
		return nil
	}, key)
	if txErr != nil {
		if errors.Is(txErr, redis.TxFailedErr) {
			return nil, errors.WrapWithCode(txErr, errors.CodeUnavailable, "actor changed during update")
		}
		return nil, errors.Wrap(txErr, "failed to apply actor update")
	}

	return &ApplyUpdateOutput{Actor: updated}, nil
}

// ListIDs walks the actor keyspace with SCAN
func (r *redisRepository) ListIDs(ctx context.Context, input ListIDsInput) (*ListIDsOutput, error) {
	ids := []string{}

	iter := r.client.Scan(ctx, 0, actorKeyPrefix+"*", input.BatchSize).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), actorKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan actors")
	}

	return &ListIDsOutput{IDs: ids}, nil
}

// Delete removes an actor
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	n, err := r.client.Del(ctx, r.buildKey(input.ID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete actor from Redis")
	}

	return &DeleteOutput{Deleted: n > 0}, nil
}

func (r *redisRepository) buildKey(id string) string {
	return actorKeyPrefix + id
}

func decodeActor(data []byte) (*numenera.Actor, error) {
	var actor numenera.Actor
	if err := json.Unmarshal(data, &actor); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal actor")
	}
	if actor.Stats == nil {
		actor.Stats = map[numenera.Stat]numenera.StatBlock{}
	}
	return &actor, nil
}

// parsePoolPath accepts only "stats.<stat>.pool.value"
func parsePoolPath(path string) (numenera.Stat, error) {
	parts := strings.Split(path, ".")
	if len(parts) != 4 || parts[0] != "stats" || parts[2] != "pool" || parts[3] != "value" {
		return numenera.StatNone, errors.InvalidArgumentf("unsupported update path: %q", path)
	}

	stat, ok := numenera.ParseStat(parts[1])
	if !ok || !stat.IsSet() {
		return numenera.StatNone, errors.InvalidArgumentf("unknown stat in update path: %q", path)
	}
	return stat, nil
}
