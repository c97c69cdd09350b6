package v1alpha1

import (
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
	"github.com/KirkDiggler/numenera-api/internal/services/dialog"
)

// fields reads typed values out of a request document, collecting every
// problem into one validation error
type fields struct {
	values map[string]*structpb.Value
	vb     *errors.ValidationBuilder
}

func newFields(s *structpb.Struct) *fields {
	return &fields{
		values: s.GetFields(),
		vb:     errors.NewValidationBuilder(),
	}
}

func (f *fields) sub(name string) *fields {
	v, ok := f.values[name]
	if !ok {
		return &fields{values: nil, vb: f.vb}
	}
	s := v.GetStructValue()
	if s == nil {
		f.vb.Field(name, "must be an object")
	}
	return &fields{values: s.GetFields(), vb: f.vb}
}

func (f *fields) getString(name string) string {
	v, ok := f.values[name]
	if !ok {
		return ""
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return ""
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		f.vb.Field(name, "must be a string")
		return ""
	}
	return s.StringValue
}

// getStringOr returns fallback for an absent or empty field
func (f *fields) getStringOr(name, fallback string) string {
	if value := f.getString(name); value != "" {
		return value
	}
	return fallback
}

func (f *fields) getBool(name string) bool {
	v, ok := f.values[name]
	if !ok {
		return false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		f.vb.Field(name, "must be a boolean")
		return false
	}
	return b.BoolValue
}

// getInt accepts whole numbers only; fallback is returned when the field is absent
func (f *fields) getInt(name string, fallback int) int {
	v, ok := f.values[name]
	if !ok {
		return fallback
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		f.vb.Field(name, "must be a number")
		return fallback
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		f.vb.Field(name, "must be a whole number")
		return fallback
	}
	return int(n.NumberValue)
}

func (f *fields) getStat(name string) numenera.Stat {
	raw := f.getString(name)
	stat, ok := numenera.ParseStat(raw)
	if !ok {
		f.vb.Fieldf(name, "unknown stat %q", raw)
	}
	return stat
}

func (f *fields) err() error {
	return f.vb.Build()
}

func skillValue(skill *numenera.Skill) any {
	if skill == nil {
		return nil
	}
	return map[string]any{
		"id":         skill.ID,
		"name":       skill.Name,
		"stat":       string(skill.Stat),
		"skillLevel": int(skill.SkillLevel),
		"inability":  skill.Inability,
	}
}

func viewValue(view *dialog.View) map[string]any {
	skills := make([]any, 0, len(view.Skills))
	for i := range view.Skills {
		skills = append(skills, skillValue(&view.Skills[i]))
	}

	modifiers := make([]any, 0, len(view.Modifiers))
	for _, m := range view.Modifiers {
		modifiers = append(modifiers, map[string]any{"title": m.Title, "value": m.Value})
	}

	out := map[string]any{
		"sessionId":      view.SessionID,
		"actorId":        view.ActorID,
		"state":          string(view.State),
		"stat":           string(view.Stat),
		"statLabel":      view.StatLabel,
		"skill":          skillValue(view.Skill),
		"skills":         skills,
		"assets":         view.Assets,
		"currentEffort":  view.CurrentEffort,
		"maxEffortLevel": view.MaxEffortLevel,
		"taskLevel":      view.TaskLevel,
		"finalLevel":     view.FinalLevel,
		"cost":           view.Cost,
		"modifiers":      modifiers,
		"warning":        view.Warning,
		"canSubmit":      view.CanSubmit(),
		"expiresAt":      view.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if view.Current != nil {
		out["current"] = *view.Current
	}
	if view.Remaining != nil {
		out["remaining"] = *view.Remaining
	}
	if view.LastRejection != "" {
		out["lastRejection"] = view.LastRejection
	}

	return out
}

func requestValue(request effort.RollRequest) map[string]any {
	return map[string]any{
		"effortLevel":    request.EffortLevel,
		"finalTaskLevel": request.FinalTaskLevel,
		"target": map[string]any{
			"skill": skillValue(request.Target.Skill),
			"stat":  string(request.Target.Stat),
		},
	}
}

func rollValue(roll *rollsession.TaskRoll) any {
	if roll == nil {
		return nil
	}
	return rollFields(roll)
}

func rollFields(roll *rollsession.TaskRoll) map[string]any {
	return map[string]any{
		"rollId":       roll.RollID,
		"die":          int(roll.Die),
		"taskLevel":    int(roll.TaskLevel),
		"targetNumber": int(roll.TargetNumber),
		"effortLevel":  int(roll.EffortLevel),
		"success":      roll.Success,
		"special":      roll.Special,
		"description":  roll.Description,
	}
}

func historyValue(session *rollsession.RollSession) map[string]any {
	rolls := make([]any, 0, len(session.Rolls))
	for i := range session.Rolls {
		value := rollFields(&session.Rolls[i])
		value["rolledAt"] = session.Rolls[i].RolledAt.UTC().Format(time.RFC3339)
		rolls = append(rolls, value)
	}

	return map[string]any{
		"actorId":   session.EntityID,
		"context":   session.Context,
		"rolls":     rolls,
		"createdAt": session.CreatedAt.UTC().Format(time.RFC3339),
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func submitValue(out *dialog.SubmitOutput) map[string]any {
	value := map[string]any{
		"request":          requestValue(out.Request),
		"cost":             out.Cost,
		"deductionApplied": out.DeductionApplied,
		"roll":             rollValue(out.Roll),
	}
	if d := out.Deduction; d != nil {
		value["deduction"] = map[string]any{
			"actorId":  d.ActorID,
			"stat":     string(d.Stat),
			"path":     d.Path,
			"newValue": d.NewValue,
		}
	}
	return value
}

func recursionFromFields(f *fields) *numenera.Recursion {
	return &numenera.Recursion{
		ID:             f.getString("id"),
		Name:           f.getString("name"),
		Img:            f.getString("img"),
		Active:         f.getBool("active"),
		Level:          f.getInt("level", 0),
		Laws:           f.getString("laws"),
		Race:           f.getString("race"),
		Trait:          f.getString("trait"),
		Focus:          f.getString("focus"),
		FocusAbilities: f.getString("focusAbilities"),
	}
}

func recursionValue(r *numenera.Recursion) map[string]any {
	return map[string]any{
		"id":             r.ID,
		"type":           numenera.ItemTypeRecursion,
		"name":           r.Name,
		"img":            r.Img,
		"active":         r.Active,
		"level":          r.Level,
		"laws":           r.Laws,
		"race":           r.Race,
		"trait":          r.Trait,
		"focus":          r.Focus,
		"focusAbilities": r.FocusAbilities,
	}
}

func toStruct(value map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode response")
	}
	return s, nil
}
