package effort

import (
	"fmt"

	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
)

// Catalog keys of the two warnings
const (
	KeyMissingStat      = "NUMENERA.effort.missingStat"
	KeyInsufficientPool = "NUMENERA.effort.insufficientPool"
)

const (
	msgMissingStat       = "You must provide a stat before using Effort"
	msgInsufficientPool  = "Insufficient points in this pool for this level of Effort"
	inabilityModifier    = "+ 1"
	inabilityLevelChange = 1
)

// Match with errors.Is; the calculator returns fresh copies carrying metadata.
var (
	ErrMissingStat      = errors.FailedPrecondition(msgMissingStat)
	ErrInsufficientPool = errors.ResourceExhausted(msgInsufficientPool)
)

// Modifier is one display line of the task modifier list
type Modifier struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Target is what the roll is made with: a skill, or the bare stat
type Target struct {
	Skill *numenera.Skill `json:"skill,omitempty"`
	Stat  numenera.Stat   `json:"stat"`
}

// IsSkill reports whether the roll goes through a skill
func (t Target) IsSkill() bool {
	return t.Skill != nil
}

// RollRequest is the finalized roll handed to the roll dispatcher
type RollRequest struct {
	EffortLevel    int    `json:"effortLevel"`
	FinalTaskLevel int    `json:"finalTaskLevel"`
	Target         Target `json:"target"`
}

// PoolDeduction instructs the actor store to lower a pool
type PoolDeduction struct {
	ActorID  string        `json:"actorId"`
	Stat     numenera.Stat `json:"stat"`
	Path     string        `json:"path"`
	NewValue int           `json:"newValue"`
}

// Submission is the result of a successful submit
type Submission struct {
	Request RollRequest
	Cost    int
	// Deduction is nil for zero-cost rolls
	Deduction *PoolDeduction
}

// Summary holds the derived fields shown by the dialog
type Summary struct {
	FinalLevel int
	Cost       int
	// Current and Remaining are nil while no stat is chosen
	Current   *int
	Remaining *int
	Modifiers []Modifier
	Warning   string
	// WarningKey is the catalog key of Warning
	WarningKey string
}

// ComputeFinalLevel returns the task level after Effort, assets and skill
// training. It never goes below 0.
func ComputeFinalLevel(cfg *RollConfiguration) int {
	level := cfg.TaskLevel - cfg.CurrentEffort - cfg.Assets

	if cfg.Skill != nil {
		level -= int(cfg.Skill.SkillLevel)
		if cfg.Skill.Inability {
			level += inabilityLevelChange
		}
	}

	return max(level, 0)
}

// ComputeCost returns the pool points the current Effort costs, 0 without a stat
func ComputeCost(cfg *RollConfiguration, pool Pool) int {
	if !cfg.Stat.IsSet() {
		return 0
	}
	return pool.EffortCostFromStat(cfg.Stat, cfg.CurrentEffort)
}

// ComputeModifiers lists the active modifiers for display
func ComputeModifiers(cfg *RollConfiguration) []Modifier {
	modifiers := []Modifier{}

	if skill := cfg.Skill; skill != nil {
		switch skill.SkillLevel {
		case numenera.SkillTrained:
			modifiers = append(modifiers, Modifier{
				Title: skill.Name + " training",
				Value: fmt.Sprint(-int(skill.SkillLevel)),
			})
		case numenera.SkillSpecialized:
			modifiers = append(modifiers, Modifier{
				Title: skill.Name + " specialization",
				Value: fmt.Sprint(-int(skill.SkillLevel)),
			})
		}

		if skill.Inability {
			modifiers = append(modifiers, Modifier{
				Title: skill.Name + " inability",
				Value: inabilityModifier,
			})
		}
	}

	if cfg.Assets > 0 {
		modifiers = append(modifiers, Modifier{
			Title: fmt.Sprintf("%d Asset(s)", cfg.Assets),
			Value: fmt.Sprintf("- %d", cfg.Assets),
		})
	}

	if cfg.CurrentEffort > 0 {
		modifiers = append(modifiers, Modifier{
			Title: fmt.Sprintf("%d Effort", cfg.CurrentEffort),
			Value: fmt.Sprintf("- %d", cfg.CurrentEffort),
		})
	}

	return modifiers
}

// ValidateAffordability checks that a stat is chosen and its pool covers the cost
func ValidateAffordability(cfg *RollConfiguration, pool Pool) error {
	if !cfg.Stat.IsSet() {
		return errors.FailedPrecondition(msgMissingStat)
	}

	cost := ComputeCost(cfg, pool)
	poolValue := pool.PoolValue(cfg.Stat)
	if cost > poolValue {
		return errors.ResourceExhausted(msgInsufficientPool).
			WithMeta("stat", cfg.Stat.Short()).
			WithMeta("cost", cost).
			WithMeta("pool", poolValue)
	}

	return nil
}

// Summarize computes every derived dialog field in one pass
func Summarize(cfg *RollConfiguration, pool Pool) *Summary {
	summary := &Summary{
		FinalLevel: ComputeFinalLevel(cfg),
		Cost:       ComputeCost(cfg, pool),
		Modifiers:  ComputeModifiers(cfg),
	}

	if cfg.Stat.IsSet() {
		current := pool.PoolValue(cfg.Stat)
		remaining := current - summary.Cost
		summary.Current = &current
		summary.Remaining = &remaining
	}

	if err := ValidateAffordability(cfg, pool); err != nil {
		summary.Warning = errors.GetMessage(err)
		summary.WarningKey = WarningKey(err)
	}

	return summary
}

// SubmitRoll validates against the given pool snapshot and builds the roll
// request. A deduction is only produced when the Effort costs something.
func SubmitRoll(cfg *RollConfiguration, pool Pool) (*Submission, error) {
	if err := ValidateAffordability(cfg, pool); err != nil {
		return nil, err
	}

	submission := &Submission{
		Request: RollRequest{
			EffortLevel:    cfg.CurrentEffort,
			FinalTaskLevel: ComputeFinalLevel(cfg),
			Target: Target{
				Skill: cfg.Skill,
				Stat:  cfg.Stat,
			},
		},
		Cost: ComputeCost(cfg, pool),
	}

	if submission.Cost > 0 {
		submission.Deduction = &PoolDeduction{
			ActorID:  pool.GetID(),
			Stat:     cfg.Stat,
			Path:     numenera.PoolPath(cfg.Stat),
			NewValue: pool.PoolValue(cfg.Stat) - submission.Cost,
		}
	}

	return submission, nil
}

// WarningKey maps a calculator error to its catalog key, "" for other errors
func WarningKey(err error) string {
	switch {
	case errors.Is(err, ErrMissingStat):
		return KeyMissingStat
	case errors.Is(err, ErrInsufficientPool):
		return KeyInsufficientPool
	default:
		return ""
	}
}
