// Package effort computes the "Roll with Effort" dialog: Effort cost, final task
// level, the modifier list and the submit rules. Everything here is pure; pools,
// skills and persistence are reached through the small interfaces below.
package effort

import (
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
)

// DefaultTaskLevel is the task level of a fresh configuration
const DefaultTaskLevel = 1

// Pool is the actor capability the calculator reads from
type Pool interface {
	GetID() string
	PoolValue(stat numenera.Stat) int
	EffortCostFromStat(stat numenera.Stat, effortLevel int) int
}

// SkillLookup resolves an owned skill, returning nil when it is unknown
type SkillLookup interface {
	Skill(id string) *numenera.Skill
}

// RollConfiguration is the editable state of one dialog session
type RollConfiguration struct {
	Stat          numenera.Stat   `json:"stat"`
	Skill         *numenera.Skill `json:"skill,omitempty"`
	Assets        int             `json:"assets"`
	CurrentEffort int             `json:"currentEffort"`
	TaskLevel     int             `json:"taskLevel"`
}

// NewRollConfiguration returns the defaults of a fresh dialog. When no stat is
// given the initiating skill's stat is used.
func NewRollConfiguration(stat numenera.Stat, skill *numenera.Skill) *RollConfiguration {
	if !stat.IsSet() && skill != nil {
		stat = skill.Stat
	}

	return &RollConfiguration{
		Stat:      stat,
		Skill:     skill,
		TaskLevel: DefaultTaskLevel,
	}
}

// Edit is one submission of the dialog form. A blank SkillID means no skill is
// selected; a blank Stat means the stat select was left empty.
type Edit struct {
	Assets        int
	CurrentEffort int
	TaskLevel     int
	SkillID       string
	Stat          numenera.Stat
}

// ApplyEdit copies the numeric fields and then applies the first matching rule:
//
//  1. a different skill was selected: adopt it and take its stat
//  2. a different stat was selected: adopt it
//  3. no skill is selected: drop the skill, keep the stat
func ApplyEdit(cfg *RollConfiguration, edit Edit, skills SkillLookup) {
	cfg.Assets = edit.Assets
	cfg.CurrentEffort = edit.CurrentEffort
	cfg.TaskLevel = edit.TaskLevel

	switch {
	case edit.SkillID != "" && (cfg.Skill == nil || cfg.Skill.ID != edit.SkillID):
		cfg.Skill = skills.Skill(edit.SkillID)
		if cfg.Skill != nil {
			cfg.Stat = cfg.Skill.Stat
		}
	case edit.Stat.IsSet() && edit.Stat != cfg.Stat:
		cfg.Stat = edit.Stat
	case edit.SkillID == "":
		cfg.Skill = nil
	}
}

// RefreshSkill replaces the configured skill with the owner's current copy so
// training and inability changes made since the dialog opened apply. It reports
// false, leaving no skill selected, when the skill is no longer owned.
func RefreshSkill(cfg *RollConfiguration, skills SkillLookup) bool {
	if cfg.Skill == nil {
		return true
	}

	cfg.Skill = skills.Skill(cfg.Skill.ID)
	return cfg.Skill != nil
}
