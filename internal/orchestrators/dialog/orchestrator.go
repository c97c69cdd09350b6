// Package dialog implements the "Roll with Effort" dialog on top of the
// Effort calculator. Sessions live in the effort session store; every call
// reloads the actor so the view reflects the current pools.
package dialog

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/orchestrators/roll"
	"github.com/KirkDiggler/numenera-api/internal/pkg/clock"
	"github.com/KirkDiggler/numenera-api/internal/pkg/idgen"
	actorrepo "github.com/KirkDiggler/numenera-api/internal/repositories/actor"
	effortsession "github.com/KirkDiggler/numenera-api/internal/repositories/effort_session"
	"github.com/KirkDiggler/numenera-api/internal/services/dialog"
)

// DefaultSessionTTL applies when neither the request nor the config sets one
const DefaultSessionTTL = time.Hour

// Config holds the dependencies for the dialog orchestrator
type Config struct {
	ActorRepo   actorrepo.Repository
	SessionRepo effortsession.Repository
	RollService roll.Service
	IDGenerator idgen.Generator
	Clock       clock.Clock
	Localizer   numenera.Localizer

	// SessionTTL overrides DefaultSessionTTL
	SessionTTL time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.ActorRepo == nil {
		vb.RequiredField("ActorRepo")
	}
	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.RollService == nil {
		vb.RequiredField("RollService")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.Localizer == nil {
		vb.RequiredField("Localizer")
	}
	if c.SessionTTL < 0 {
		vb.Field("SessionTTL", "cannot be negative")
	}

	return vb.Build()
}

// Orchestrator implements the dialog.Service interface
type Orchestrator struct {
	actorRepo   actorrepo.Repository
	sessionRepo effortsession.Repository
	rollService roll.Service
	idGen       idgen.Generator
	clock       clock.Clock
	localizer   numenera.Localizer
	sessionTTL  time.Duration
}

// New creates a new dialog orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	return &Orchestrator{
		actorRepo:   cfg.ActorRepo,
		sessionRepo: cfg.SessionRepo,
		rollService: cfg.RollService,
		idGen:       cfg.IDGenerator,
		clock:       cfg.Clock,
		localizer:   cfg.Localizer,
		sessionTTL:  ttl,
	}, nil
}

var _ dialog.Service = (*Orchestrator)(nil)

// OpenSession starts a dialog for an actor, replacing any dialog it already had
// open. With Resume set, an open dialog that is still editable is returned instead.
func (o *Orchestrator) OpenSession(ctx context.Context, input *dialog.OpenSessionInput) (*dialog.OpenSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("actorID", input.ActorID, vb)
	if _, ok := numenera.ParseStat(string(input.Stat)); !ok {
		vb.Fieldf("stat", "unknown stat %q", input.Stat)
	}
	if input.TTL < 0 {
		vb.Field("ttl", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	actor, err := o.loadActor(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if input.Resume {
		open, err := o.openSessionOf(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			return &dialog.OpenSessionOutput{
				Session: o.buildView(open, actor, input.Locale),
				Resumed: true,
			}, nil
		}
	}

	var skill *numenera.Skill
	if input.SkillID != "" {
		skill = actor.Skill(input.SkillID)
		if skill == nil {
			return nil, errors.InvalidArgumentf("actor %s does not have skill %s", actor.ID, input.SkillID)
		}
	}

	ttl := input.TTL
	if ttl == 0 {
		ttl = o.sessionTTL
	}

	now := o.clock.Now()
	session := &effortsession.Session{
		ID:        o.idGen.Generate(),
		ActorID:   actor.ID,
		Config:    *effort.NewRollConfiguration(input.Stat, skill),
		State:     effortsession.StateEditing,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	createOutput, err := o.sessionRepo.Create(ctx, effortsession.CreateInput{Session: session})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create effort session")
	}

	if createOutput.ReplacedID != "" {
		slog.Info("Replaced open effort session",
			"actor_id", actor.ID,
			"session_id", session.ID,
			"replaced_id", createOutput.ReplacedID,
		)
	}

	return &dialog.OpenSessionOutput{
		Session: o.buildView(createOutput.Session, actor, input.Locale),
	}, nil
}

// ApplyEdit applies one form submission and returns the recomputed view
func (o *Orchestrator) ApplyEdit(ctx context.Context, input *dialog.ApplyEditInput) (*dialog.ApplyEditOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	session, err := o.loadEditableSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	actor, err := o.loadActor(ctx, session.ActorID)
	if err != nil {
		return nil, err
	}

	if err := validateEdit(input.Edit, actor); err != nil {
		return nil, err
	}

	effort.RefreshSkill(&session.Config, actor)
	effort.ApplyEdit(&session.Config, input.Edit, actor)
	session.LastRejection = ""

	updateOutput, err := o.sessionRepo.Update(ctx, effortsession.UpdateInput{Session: session})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update effort session")
	}

	return &dialog.ApplyEditOutput{
		Session: o.buildView(updateOutput.Session, actor, input.Locale),
	}, nil
}

// GetSession returns the current view of a dialog
func (o *Orchestrator) GetSession(ctx context.Context, input *dialog.GetSessionInput) (*dialog.GetSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	getOutput, err := o.sessionRepo.Get(ctx, effortsession.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get effort session")
	}

	actor, err := o.loadActor(ctx, getOutput.Session.ActorID)
	if err != nil {
		return nil, err
	}

	return &dialog.GetSessionOutput{
		Session: o.buildView(getOutput.Session, actor, input.Locale),
	}, nil
}

// Submit validates the dialog against the actor's current pools, deducts the
// Effort cost and rolls. Only one of several concurrent submits of a session
// gets past the editing to submitting transition. A rejected submit leaves the
// session editable.
func (o *Orchestrator) Submit(ctx context.Context, input *dialog.SubmitInput) (*dialog.SubmitOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	transitionOutput, err := o.sessionRepo.Transition(ctx, effortsession.TransitionInput{
		ID:   input.SessionID,
		From: effortsession.StateEditing,
		To:   effortsession.StateSubmitting,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start submitting effort session")
	}
	session := transitionOutput.Session

	actor, err := o.loadActor(ctx, session.ActorID)
	if err != nil {
		o.reopen(ctx, session, "")
		return nil, err
	}

	if skill := session.Config.Skill; skill != nil && !effort.RefreshSkill(&session.Config, actor) {
		err := errors.FailedPreconditionf("The actor no longer has the skill %s", skill.Name).
			WithMeta("skill_id", skill.ID)
		o.reject(ctx, session, actor, err)
		return nil, err
	}

	submission, err := effort.SubmitRoll(&session.Config, actor)
	if err != nil {
		o.reject(ctx, session, actor, err)
		return nil, err
	}

	output := &dialog.SubmitOutput{
		Request:   submission.Request,
		Cost:      submission.Cost,
		Deduction: submission.Deduction,
	}

	if deduction := submission.Deduction; deduction != nil {
		if err := o.deduct(ctx, deduction, submission.Cost); err != nil {
			o.reject(ctx, session, actor, err)
			return nil, err
		}
		output.DeductionApplied = true
	}

	rollOutput, err := o.dispatchRoll(ctx, actor, submission.Request)
	if err != nil {
		if submission.Deduction != nil {
			o.refund(ctx, submission.Deduction, submission.Cost)
		}
		o.reopen(ctx, session, "")
		return nil, errors.Wrap(err, "failed to roll")
	}
	output.Roll = rollOutput.Roll

	session.State = effortsession.StateCommitted
	if _, err := o.sessionRepo.Delete(ctx, effortsession.DeleteInput{ID: session.ID}); err != nil {
		slog.Error("Failed to delete committed effort session", "session_id", session.ID, "error", err)
	}

	slog.Info("Effort roll committed",
		"session_id", session.ID,
		"actor_id", actor.ID,
		"effort", submission.Request.EffortLevel,
		"final_task_level", submission.Request.FinalTaskLevel,
		"cost", submission.Cost,
		"success", rollOutput.Roll.Success,
	)

	return output, nil
}

// CloseSession discards a dialog without rolling
func (o *Orchestrator) CloseSession(ctx context.Context, input *dialog.CloseSessionInput) (*dialog.CloseSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	if _, err := o.sessionRepo.Delete(ctx, effortsession.DeleteInput{ID: input.SessionID}); err != nil {
		return nil, errors.Wrap(err, "failed to delete effort session")
	}

	return &dialog.CloseSessionOutput{}, nil
}

func (o *Orchestrator) dispatchRoll(
	ctx context.Context,
	actor *numenera.Actor,
	request effort.RollRequest,
) (*roll.RollOutput, error) {
	if request.Target.IsSkill() {
		return o.rollService.RollSkill(ctx, &roll.RollSkillInput{
			Actor:   actor,
			Skill:   request.Target.Skill,
			Request: request,
		})
	}

	return o.rollService.RollAttribute(ctx, &roll.RollAttributeInput{
		Actor:   actor,
		Stat:    request.Target.Stat,
		Request: request,
	})
}

// deduct lowers the pool only if it still holds the value the cost was
// computed from
func (o *Orchestrator) deduct(ctx context.Context, deduction *effort.PoolDeduction, cost int) error {
	expected := deduction.NewValue + cost

	_, err := o.actorRepo.ApplyUpdate(ctx, actorrepo.ApplyUpdateInput{
		ActorID:  deduction.ActorID,
		Path:     deduction.Path,
		Value:    deduction.NewValue,
		Expected: &expected,
	})
	if err != nil {
		return errors.Wrapf(err, "%s pool changed before the Effort cost could be deducted", deduction.Stat)
	}

	return nil
}

// refund gives back a deducted cost after the roll failed
func (o *Orchestrator) refund(ctx context.Context, deduction *effort.PoolDeduction, cost int) {
	expected := deduction.NewValue

	_, err := o.actorRepo.ApplyUpdate(ctx, actorrepo.ApplyUpdateInput{
		ActorID:  deduction.ActorID,
		Path:     deduction.Path,
		Value:    deduction.NewValue + cost,
		Expected: &expected,
	})
	if err != nil {
		slog.Error("Failed to refund Effort cost",
			"actor_id", deduction.ActorID,
			"path", deduction.Path,
			"cost", cost,
			"error", err,
		)
	}
}

func (o *Orchestrator) reject(ctx context.Context, session *effortsession.Session, actor *numenera.Actor, err error) {
	reason := errors.GetMessage(err)
	o.reopen(ctx, session, reason)

	slog.Info("Effort roll rejected",
		"session_id", session.ID,
		"actor_id", actor.ID,
		"stat", session.Config.Stat,
		"effort", session.Config.CurrentEffort,
		"reason", reason,
	)
}

// reopen puts a submitting session back into editing, keeping any
// configuration change made while submitting
func (o *Orchestrator) reopen(ctx context.Context, session *effortsession.Session, rejection string) {
	_, err := o.sessionRepo.Transition(ctx, effortsession.TransitionInput{
		ID:            session.ID,
		From:          effortsession.StateSubmitting,
		To:            effortsession.StateEditing,
		LastRejection: rejection,
		Config:        &session.Config,
	})
	if err != nil {
		slog.Error("Failed to reopen effort session", "session_id", session.ID, "error", err)
	}
}

// openSessionOf returns the actor's editable dialog, nil when there is none
func (o *Orchestrator) openSessionOf(ctx context.Context, actorID string) (*effortsession.Session, error) {
	getOutput, err := o.sessionRepo.GetByActorID(ctx, effortsession.GetByActorIDInput{ActorID: actorID})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to look up open effort session")
	}

	if getOutput.Session.State != effortsession.StateEditing {
		return nil, nil
	}
	return getOutput.Session, nil
}

func (o *Orchestrator) loadActor(ctx context.Context, actorID string) (*numenera.Actor, error) {
	getOutput, err := o.actorRepo.Get(ctx, actorrepo.GetInput{ID: actorID})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get actor %s", actorID)
	}
	return getOutput.Actor, nil
}

func (o *Orchestrator) loadEditableSession(ctx context.Context, sessionID string) (*effortsession.Session, error) {
	getOutput, err := o.sessionRepo.Get(ctx, effortsession.GetInput{ID: sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get effort session")
	}

	session := getOutput.Session
	if session.State != effortsession.StateEditing {
		return nil, errors.FailedPreconditionf("effort session %s is %s", session.ID, session.State)
	}

	return session, nil
}

func (o *Orchestrator) buildView(session *effortsession.Session, actor *numenera.Actor, locale string) *dialog.View {
	cfg := session.Config
	effort.RefreshSkill(&cfg, actor)
	summary := effort.Summarize(&cfg, actor)

	warning := summary.Warning
	if locale != "" && summary.WarningKey != "" {
		warning = o.localizer.Localize(locale, summary.WarningKey)
	}

	var statLabel string
	if cfg.Stat.IsSet() {
		statLabel = o.localizer.Localize(locale, cfg.Stat.LocalizationKey())
	}

	skills := make([]numenera.Skill, len(actor.Skills))
	copy(skills, actor.Skills)

	return &dialog.View{
		SessionID:      session.ID,
		ActorID:        session.ActorID,
		State:          session.State,
		Stat:           cfg.Stat,
		StatLabel:      statLabel,
		Skill:          cfg.Skill,
		Skills:         skills,
		Assets:         cfg.Assets,
		CurrentEffort:  cfg.CurrentEffort,
		MaxEffortLevel: actor.Effort,
		TaskLevel:      cfg.TaskLevel,
		FinalLevel:     summary.FinalLevel,
		Cost:           summary.Cost,
		Current:        summary.Current,
		Remaining:      summary.Remaining,
		Modifiers:      summary.Modifiers,
		Warning:        warning,
		LastRejection:  session.LastRejection,
		ExpiresAt:      session.ExpiresAt,
	}
}

func validateEdit(edit effort.Edit, actor *numenera.Actor) error {
	vb := errors.NewValidationBuilder()

	errors.ValidateMin("assets", edit.Assets, 0, vb)
	errors.ValidateRange("currentEffort", edit.CurrentEffort, 0, actor.Effort, vb)
	errors.ValidateMin("taskLevel", edit.TaskLevel, effort.DefaultTaskLevel, vb)

	if _, ok := numenera.ParseStat(string(edit.Stat)); !ok {
		vb.Fieldf("stat", "unknown stat %q", edit.Stat)
	}
	if edit.SkillID != "" && actor.Skill(edit.SkillID) == nil {
		vb.Fieldf("skillID", "actor does not have skill %s", edit.SkillID)
	}

	return vb.Build()
}
