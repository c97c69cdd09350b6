package rollsession

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/numenera-api/internal/redis"
)

const (
	// Key patterns:
	//   roll_history:{entity_id}:{context}        hash of created_at and expires_at
	//   roll_history:{entity_id}:{context}:rolls  list of roll JSON, oldest first
	historyKeyPrefix = "roll_history:"
	rollsKeySuffix   = ":rolls"
	defaultTTL       = 24 * time.Hour

	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"

	maxRollsPerSession = 100

	errEntityIDEmpty = "entity ID cannot be empty"
	errContextEmpty  = "context cannot be empty"
	errRollIDEmpty   = "roll ID cannot be empty"
	errTTLNegative   = "TTL cannot be negative"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock

	// TTL overrides the default history lifetime
	TTL time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Client == nil {
		vb.RequiredField("Client")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.TTL < 0 {
		vb.Field("TTL", "cannot be negative")
	}

	return vb.Build()
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
	ttl    time.Duration
}

// NewRedisRepository creates a new Redis repository for roll histories
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
		ttl:    ttl,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

type historyKeys struct {
	meta  string
	rolls string
}

func keysFor(entityID, context string) historyKeys {
	meta := historyKeyPrefix + entityID + ":" + context
	return historyKeys{meta: meta, rolls: meta + rollsKeySuffix}
}

func validateScope(entityID, context string) error {
	if entityID == "" {
		return errors.InvalidArgument(errEntityIDEmpty)
	}
	if context == "" {
		return errors.InvalidArgument(errContextEmpty)
	}
	return nil
}

// Append pushes the roll and trims the list inside one MULTI, then reads the
// history back in the same transaction
func (r *redisRepository) Append(ctx context.Context, input AppendInput) (*AppendOutput, error) {
	if err := validateScope(input.EntityID, input.Context); err != nil {
		return nil, err
	}
	if input.Roll.RollID == "" {
		return nil, errors.InvalidArgument(errRollIDEmpty)
	}
	if input.TTL < 0 {
		return nil, errors.InvalidArgument(errTTLNegative)
	}

	ttl := input.TTL
	if ttl == 0 {
		ttl = r.ttl
	}

	encoded, err := json.Marshal(input.Roll)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal roll")
	}

	now := r.clock.Now()
	keys := keysFor(input.EntityID, input.Context)

	var (
		meta  *redis.MapStringStringCmd
		rolls *redis.StringSliceCmd
	)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, keys.rolls, encoded)
		pipe.LTrim(ctx, keys.rolls, -maxRollsPerSession, -1)
		pipe.HSetNX(ctx, keys.meta, fieldCreatedAt, now.Format(time.RFC3339Nano))
		pipe.HSet(ctx, keys.meta, fieldExpiresAt, now.Add(ttl).Format(time.RFC3339Nano))
		pipe.Expire(ctx, keys.rolls, ttl)
		pipe.Expire(ctx, keys.meta, ttl)
		meta = pipe.HGetAll(ctx, keys.meta)
		rolls = pipe.LRange(ctx, keys.rolls, 0, -1)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to append roll in Redis")
	}

	session, err := decodeHistory(input.EntityID, input.Context, meta.Val(), rolls.Val())
	if err != nil {
		return nil, err
	}

	return &AppendOutput{Session: session}, nil
}

// Get retrieves a roll history by entity ID and context
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if err := validateScope(input.EntityID, input.Context); err != nil {
		return nil, err
	}

	keys := keysFor(input.EntityID, input.Context)

	var (
		meta  *redis.MapStringStringCmd
		rolls *redis.StringSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, keys.meta)
		rolls = pipe.LRange(ctx, keys.rolls, 0, -1)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get roll history from Redis")
	}
	if len(meta.Val()) == 0 {
		return nil, errors.NotFoundf("no %s rolls for %s", input.Context, input.EntityID)
	}

	session, err := decodeHistory(input.EntityID, input.Context, meta.Val(), rolls.Val())
	if err != nil {
		return nil, err
	}

	// Redis TTL and the injected clock can disagree; the clock wins
	if r.clock.Now().After(session.ExpiresAt) {
		_ = r.client.Del(ctx, keys.meta, keys.rolls)
		return nil, errors.NotFoundf("%s rolls for %s have expired", input.Context, input.EntityID)
	}

	return &GetOutput{Session: session}, nil
}

// Delete removes a roll history and reports how many rolls it held
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if err := validateScope(input.EntityID, input.Context); err != nil {
		return nil, err
	}

	keys := keysFor(input.EntityID, input.Context)

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.LLen(ctx, keys.rolls)
		pipe.Del(ctx, keys.meta, keys.rolls)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete roll history from Redis")
	}

	return &DeleteOutput{
		// nolint:gosec // capped at maxRollsPerSession
		RollsDeleted: int32(count.Val()),
	}, nil
}

func decodeHistory(entityID, context string, meta map[string]string, encoded []string) (*RollSession, error) {
	session := &RollSession{
		EntityID: entityID,
		Context:  context,
		Rolls:    make([]TaskRoll, 0, len(encoded)),
	}

	var err error
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, meta[fieldCreatedAt]); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s of roll history", fieldCreatedAt)
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339Nano, meta[fieldExpiresAt]); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s of roll history", fieldExpiresAt)
	}

	for _, raw := range encoded {
		var roll TaskRoll
		if err := json.Unmarshal([]byte(raw), &roll); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal roll")
		}
		session.Rolls = append(session.Rolls, roll)
	}

	return session, nil
}
