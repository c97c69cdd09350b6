// Package v1alpha1 exposes the Effort dialog, roll history and item defaults over gRPC
package v1alpha1

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/orchestrators/roll"
	"github.com/KirkDiggler/numenera-api/internal/services/dialog"
)

// HandlerConfig holds dependencies for the Effort handler
type HandlerConfig struct {
	DialogService dialog.Service
	RollService   roll.Service
	Localizer     numenera.Localizer
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DialogService == nil {
		vb.RequiredField("DialogService")
	}
	if c.RollService == nil {
		vb.RequiredField("RollService")
	}
	if c.Localizer == nil {
		vb.RequiredField("Localizer")
	}

	return vb.Build()
}

// Handler implements EffortServiceServer
type Handler struct {
	dialogService dialog.Service
	rollService   roll.Service
	localizer     numenera.Localizer
}

// NewHandler creates a new Effort handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{
		dialogService: cfg.DialogService,
		rollService:   cfg.RollService,
		localizer:     cfg.Localizer,
	}, nil
}

var _ EffortServiceServer = (*Handler)(nil)

// OpenSession opens a dialog for an actor
func (h *Handler) OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &dialog.OpenSessionInput{
		ActorID: f.getString("actorId"),
		Stat:    f.getStat("stat"),
		SkillID: f.getString("skillId"),
		Locale:  f.getString("locale"),
		TTL:     time.Duration(f.getInt("ttlSeconds", 0)) * time.Second,
		Resume:  f.getBool("resume"),
	}
	if input.ActorID == "" {
		f.vb.RequiredField("actorId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.dialogService.OpenSession(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(map[string]any{
		"session": viewValue(output.Session),
		"resumed": output.Resumed,
	})
}

// ApplyEdit applies one dialog form submission
func (h *Handler) ApplyEdit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &dialog.ApplyEditInput{
		SessionID: f.getString("sessionId"),
		Locale:    f.getString("locale"),
		Edit: effort.Edit{
			Assets:        f.getInt("assets", 0),
			CurrentEffort: f.getInt("currentEffort", 0),
			TaskLevel:     f.getInt("taskLevel", effort.DefaultTaskLevel),
			SkillID:       f.getString("skillId"),
			Stat:          f.getStat("stat"),
		},
	}
	if input.SessionID == "" {
		f.vb.RequiredField("sessionId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.dialogService.ApplyEdit(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(map[string]any{"session": viewValue(output.Session)})
}

// GetSession returns the current dialog view
func (h *Handler) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &dialog.GetSessionInput{
		SessionID: f.getString("sessionId"),
		Locale:    f.getString("locale"),
	}
	if input.SessionID == "" {
		f.vb.RequiredField("sessionId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.dialogService.GetSession(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(map[string]any{"session": viewValue(output.Session)})
}

// Submit rolls the dialog
func (h *Handler) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &dialog.SubmitInput{SessionID: f.getString("sessionId")}
	if input.SessionID == "" {
		f.vb.RequiredField("sessionId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.dialogService.Submit(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(submitValue(output))
}

// CloseSession discards a dialog
func (h *Handler) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &dialog.CloseSessionInput{SessionID: f.getString("sessionId")}
	if input.SessionID == "" {
		f.vb.RequiredField("sessionId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	if _, err := h.dialogService.CloseSession(ctx, input); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(map[string]any{})
}

// PrepareRecursion fills the defaults of a recursion item
func (h *Handler) PrepareRecursion(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	locale := f.getString("locale")
	recursion := recursionFromFields(f.sub("recursion"))
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	recursion.PrepareData(h.localizer, locale)

	return h.respond(map[string]any{"recursion": recursionValue(recursion)})
}

// GetRollHistory returns an actor's recent task rolls, oldest first
func (h *Handler) GetRollHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &roll.GetRollSessionInput{
		EntityID: f.getString("actorId"),
		Context:  f.getStringOr("context", roll.ContextEffort),
	}
	if input.EntityID == "" {
		f.vb.RequiredField("actorId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.rollService.GetRollSession(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(historyValue(output.Session))
}

// ClearRollHistory forgets an actor's task rolls
func (h *Handler) ClearRollHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	input := &roll.ClearRollSessionInput{
		EntityID: f.getString("actorId"),
		Context:  f.getStringOr("context", roll.ContextEffort),
	}
	if input.EntityID == "" {
		f.vb.RequiredField("actorId")
	}
	if err := f.err(); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	output, err := h.rollService.ClearRollSession(ctx, input)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return h.respond(map[string]any{"rollsDeleted": int(output.RollsDeleted)})
}

func (h *Handler) respond(value map[string]any) (*structpb.Struct, error) {
	out, err := toStruct(value)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		return nil, errors.ToGRPCError(err)
	}
	return out, nil
}
