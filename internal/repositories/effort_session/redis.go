package effortsession

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
	//   effort_session:{id}             session JSON, expires with the session
	//   effort_session:actor:{actor_id} ID of the actor's open dialog
	sessionKeyPrefix = "effort_session:"
	actorKeyPrefix   = "effort_session:actor:"
	defaultTTL       = time.Hour

	errSessionNil     = "session cannot be nil"
	errSessionIDEmpty = "session ID cannot be empty"
	errActorIDEmpty   = "actor ID cannot be empty"
	errSessionExpired = "session has already expired"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock
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

	return vb.Build()
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// NewRedisRepository creates a new Redis repository for dialog sessions
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

// Create stores a session and points the actor mapping at it, dropping any
// dialog the actor already had open
func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	session := input.Session
	if err := validateSession(session); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = now.Add(defaultTTL)
	}

	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, errors.InvalidArgument(errSessionExpired)
	}

	actorKey := actorKeyPrefix + session.ActorID
	existingID, err := r.client.Get(ctx, actorKey).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrapf(err, "failed to check existing session")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal session")
	}

	pipe := r.client.TxPipeline()
	if existingID != "" && existingID != session.ID {
		pipe.Del(ctx, sessionKeyPrefix+existingID)
	}
	pipe.Set(ctx, sessionKeyPrefix+session.ID, data, ttl)
	pipe.Set(ctx, actorKey, session.ID, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to create session")
	}

	output := &CreateOutput{Session: session}
	if existingID != session.ID {
		output.ReplacedID = existingID
	}

	return output, nil
}

// Get retrieves a session by ID
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	key := sessionKeyPrefix + input.ID
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("effort session %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get session from Redis")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session")
	}

	if r.clock.Now().After(session.ExpiresAt) {
		_ = r.client.Del(ctx, key)
		return nil, errors.NotFoundf("effort session %s has expired", input.ID)
	}

	return &GetOutput{Session: &session}, nil
}

// GetByActorID retrieves the actor's open dialog
func (r *redisRepository) GetByActorID(ctx context.Context, input GetByActorIDInput) (*GetByActorIDOutput, error) {
	if input.ActorID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	actorKey := actorKeyPrefix + input.ActorID
	sessionID, err := r.client.Get(ctx, actorKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("no effort session open for actor %s", input.ActorID)
		}
		return nil, errors.Wrapf(err, "failed to get actor session mapping")
	}

	getOutput, err := r.Get(ctx, GetInput{ID: sessionID})
	if err != nil {
		if errors.IsNotFound(err) {
			r.client.Del(ctx, actorKey)
		}
		return nil, err
	}

	return &GetByActorIDOutput{Session: getOutput.Session}, nil
}

// Update replaces a stored session with its remaining TTL
func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	session := input.Session
	if err := validateSession(session); err != nil {
		return nil, err
	}

	updated, err := r.compareAndSwap(ctx, session.ID, func(stored *Session) (*Session, error) {
		if stored.State != session.State {
			return nil, errors.FailedPreconditionf("effort session %s is %s", session.ID, stored.State)
		}
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateOutput{Session: updated}, nil
}

// Transition moves a session between states inside a WATCH transaction
func (r *redisRepository) Transition(ctx context.Context, input TransitionInput) (*TransitionOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if input.From == "" || input.To == "" {
		return nil, errors.InvalidArgument("both states of a transition are required")
	}

	updated, err := r.compareAndSwap(ctx, input.ID, func(stored *Session) (*Session, error) {
		if stored.State != input.From {
			return nil, errors.FailedPreconditionf("effort session %s is %s, not %s", input.ID, stored.State, input.From)
		}
		stored.State = input.To
		stored.LastRejection = input.LastRejection
		if input.Config != nil {
			stored.Config = *input.Config
		}
		return stored, nil
	})
	if err != nil {
		return nil, err
	}

	return &TransitionOutput{Session: updated}, nil
}

// compareAndSwap reads the session under WATCH, lets next derive its
// replacement and writes it in MULTI. A concurrent write to the session makes
// the transaction fail, reported as FailedPrecondition.
func (r *redisRepository) compareAndSwap(
	ctx context.Context,
	id string,
	next func(stored *Session) (*Session, error),
) (*Session, error) {
	key := sessionKeyPrefix + id
	var result *Session

	txErr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf("effort session %s not found", id)
			}
			return errors.Wrapf(err, "failed to get session from Redis")
		}

		var stored Session
		if err := json.Unmarshal(data, &stored); err != nil {
			return errors.Wrapf(err, "failed to unmarshal session")
		}

		now := r.clock.Now()
		if now.After(stored.ExpiresAt) {
			return errors.NotFoundf("effort session %s has expired", id)
		}

		replacement, err := next(&stored)
		if err != nil {
			return err
		}

		ttl := replacement.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return errors.InvalidArgument(errSessionExpired)
		}

		encoded, err := json.Marshal(replacement)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal session")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, ttl)
			return nil
		})
		if err != nil {
			return err
		}

		result = replacement
		return nil
	}, key)
	if txErr != nil {
		if errors.Is(txErr, redis.TxFailedErr) {
			return nil, errors.WrapWithCode(txErr, errors.CodeFailedPrecondition,
				"effort session "+id+" changed concurrently")
		}
		return nil, errors.Wrap(txErr, "failed to update effort session")
	}

	return result, nil
}

// Delete removes a session and its actor mapping when the mapping still points at it
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	key := sessionKeyPrefix + input.ID
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("effort session %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get session from Redis")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session")
	}

	actorKey := actorKeyPrefix + session.ActorID
	mappedID, err := r.client.Get(ctx, actorKey).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrapf(err, "failed to get actor session mapping")
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if mappedID == input.ID {
		pipe.Del(ctx, actorKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to delete session")
	}

	return &DeleteOutput{}, nil
}

func validateSession(session *Session) error {
	if session == nil {
		return errors.InvalidArgument(errSessionNil)
	}
	if session.ID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if session.ActorID == "" {
		return errors.InvalidArgument(errActorIDEmpty)
	}
	return nil
}
