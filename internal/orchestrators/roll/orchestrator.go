// Package roll resolves Numenera d20 task rolls and keeps them in a roll session
package roll

//go:generate mockgen -destination=mock/mock_service.go -package=rollmock github.com/KirkDiggler/numenera-api/internal/orchestrators/roll Service

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/pkg/clock"
	"github.com/KirkDiggler/numenera-api/internal/pkg/idgen"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
)

const (
	// ContextEffort groups rolls made from the Effort dialog
	ContextEffort = "effort"

	// DefaultSessionTTL is how long a roll history is kept without new rolls
	DefaultSessionTTL = 24 * time.Hour

	// EventRollResolved is published after every task roll
	EventRollResolved = "numenera.roll.resolved"

	d20 = 20
)

// Service defines the interface for task roll operations
type Service interface {
	RollSkill(ctx context.Context, input *RollSkillInput) (*RollOutput, error)
	RollAttribute(ctx context.Context, input *RollAttributeInput) (*RollOutput, error)
	GetRollSession(ctx context.Context, input *GetRollSessionInput) (*GetRollSessionOutput, error)
	ClearRollSession(ctx context.Context, input *ClearRollSessionInput) (*ClearRollSessionOutput, error)
}

// Config holds the dependencies for the roll orchestrator
type Config struct {
	RollSessionRepo rollsession.Repository
	IDGenerator     idgen.Generator
	Roller          dice.Roller
	EventBus        events.EventBus
	Clock           clock.Clock

	// SessionTTL overrides DefaultSessionTTL for new roll sessions
	SessionTTL time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.RollSessionRepo == nil {
		vb.RequiredField("RollSessionRepo")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.SessionTTL < 0 {
		vb.Field("SessionTTL", "cannot be negative")
	}

	return vb.Build()
}

type orchestrator struct {
	rollSessionRepo rollsession.Repository
	idGen           idgen.Generator
	roller          dice.Roller
	eventBus        events.EventBus
	clock           clock.Clock
	sessionTTL      time.Duration
}

// NewOrchestrator creates a new roll orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL == 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &orchestrator{
		rollSessionRepo: cfg.RollSessionRepo,
		idGen:           cfg.IDGenerator,
		roller:          cfg.Roller,
		eventBus:        cfg.EventBus,
		clock:           cfg.Clock,
		sessionTTL:      sessionTTL,
	}, nil
}

// RollSkill rolls a task through one of the actor's skills
func (o *orchestrator) RollSkill(ctx context.Context, input *RollSkillInput) (*RollOutput, error) {
	if input.Actor == nil {
		return nil, errors.InvalidArgument("actor is required")
	}
	if input.Skill == nil {
		return nil, errors.InvalidArgument("skill is required")
	}

	return o.roll(ctx, input.Actor, input.Skill.Name, input.Request, input.TTL)
}

// RollAttribute rolls a task with a bare stat
func (o *orchestrator) RollAttribute(ctx context.Context, input *RollAttributeInput) (*RollOutput, error) {
	if input.Actor == nil {
		return nil, errors.InvalidArgument("actor is required")
	}
	if !input.Stat.IsSet() {
		return nil, errors.InvalidArgument("stat is required")
	}

	return o.roll(ctx, input.Actor, input.Stat.Short(), input.Request, input.TTL)
}

func (o *orchestrator) roll(
	ctx context.Context,
	actor *numenera.Actor,
	description string,
	request effort.RollRequest,
	ttl time.Duration,
) (*RollOutput, error) {
	if actor.ID == "" {
		return nil, errors.InvalidArgument("actor ID is required")
	}
	if request.FinalTaskLevel < 0 {
		return nil, errors.InvalidArgumentf("final task level cannot be negative: %d", request.FinalTaskLevel)
	}

	die, err := o.roller.Roll(d20)
	if err != nil {
		return nil, errors.Wrap(err, "failed to roll d20")
	}

	success, special := Resolve(die, request.FinalTaskLevel)

	// nolint:gosec // task levels and dice are small
	roll := &rollsession.TaskRoll{
		RollID:       o.idGen.Generate(),
		Die:          int32(die),
		TaskLevel:    int32(request.FinalTaskLevel),
		TargetNumber: int32(TargetNumber(request.FinalTaskLevel)),
		EffortLevel:  int32(request.EffortLevel),
		Success:      success,
		Special:      special,
		Description:  description,
		RolledAt:     o.clock.Now(),
	}

	session, err := o.appendRoll(ctx, actor.ID, roll, ttl)
	if err != nil {
		return nil, err
	}

	o.publishResolved(ctx, actor, roll)

	slog.Info("Task rolled",
		"actor_id", actor.ID,
		"description", description,
		"die", die,
		"task_level", request.FinalTaskLevel,
		"effort_level", request.EffortLevel,
		"success", success,
		"special", special,
		"roll_id", roll.RollID,
	)

	return &RollOutput{
		Roll:    roll,
		Session: session,
	}, nil
}

func (o *orchestrator) appendRoll(
	ctx context.Context,
	entityID string,
	roll *rollsession.TaskRoll,
	ttl time.Duration,
) (*rollsession.RollSession, error) {
	if ttl == 0 {
		ttl = o.sessionTTL
	}

	appendOutput, err := o.rollSessionRepo.Append(ctx, rollsession.AppendInput{
		EntityID: entityID,
		Context:  ContextEffort,
		Roll:     *roll,
		TTL:      ttl,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record roll")
	}

	return appendOutput.Session, nil
}

// publishResolved never fails the roll; the die is already cast
func (o *orchestrator) publishResolved(ctx context.Context, actor *numenera.Actor, roll *rollsession.TaskRoll) {
	event := events.NewGameEvent(EventRollResolved, actor, nil)
	event.Context().Set("roll_id", roll.RollID)
	event.Context().Set("die", int(roll.Die))
	event.Context().Set("task_level", int(roll.TaskLevel))
	event.Context().Set("effort_level", int(roll.EffortLevel))
	event.Context().Set("success", roll.Success)
	event.Context().Set("special", roll.Special)

	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish roll event",
			"actor_id", actor.ID,
			"roll_id", roll.RollID,
			"error", err,
		)
	}
}

// GetRollSession retrieves the actor's roll history in a context
func (o *orchestrator) GetRollSession(ctx context.Context, input *GetRollSessionInput) (*GetRollSessionOutput, error) {
	if input.EntityID == "" {
		return nil, errors.InvalidArgument("entity ID is required")
	}
	if input.Context == "" {
		return nil, errors.InvalidArgument("context is required")
	}

	getOutput, err := o.rollSessionRepo.Get(ctx, rollsession.GetInput{
		EntityID: input.EntityID,
		Context:  input.Context,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get roll session")
	}

	return &GetRollSessionOutput{
		Session: getOutput.Session,
	}, nil
}

// ClearRollSession removes the actor's roll history in a context
func (o *orchestrator) ClearRollSession(
	ctx context.Context,
	input *ClearRollSessionInput,
) (*ClearRollSessionOutput, error) {
	if input.EntityID == "" {
		return nil, errors.InvalidArgument("entity ID is required")
	}
	if input.Context == "" {
		return nil, errors.InvalidArgument("context is required")
	}

	deleteOutput, err := o.rollSessionRepo.Delete(ctx, rollsession.DeleteInput{
		EntityID: input.EntityID,
		Context:  input.Context,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete roll session")
	}

	slog.Info("Roll session cleared",
		"entity_id", input.EntityID,
		"context", input.Context,
		"rolls_deleted", deleteOutput.RollsDeleted,
	)

	return &ClearRollSessionOutput{
		RollsDeleted: deleteOutput.RollsDeleted,
	}, nil
}
