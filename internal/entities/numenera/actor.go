package numenera

import (
	"fmt"

	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/numenera-api/internal/errors"
)

const (
	// EntityTypePC is the rpg-toolkit entity type of player characters
	EntityTypePC = "pc"

	firstEffortLevelCost = 3
	extraEffortLevelCost = 2
)

// Pool is the spendable part of a stat
type Pool struct {
	Value int `json:"value" yaml:"value"`
	Max   int `json:"max" yaml:"max"`
}

// StatBlock is one stat on the character sheet
type StatBlock struct {
	Pool Pool `json:"pool" yaml:"pool"`
	Edge int  `json:"edge" yaml:"edge"`
}

// Actor is a player character
type Actor struct {
	ID     string             `json:"id" yaml:"id"`
	Name   string             `json:"name" yaml:"name"`
	Tier   int                `json:"tier" yaml:"tier"`
	Effort int                `json:"effort" yaml:"effort"` // maximum Effort level
	Stats  map[Stat]StatBlock `json:"stats" yaml:"stats"`
	Skills []Skill            `json:"skills" yaml:"skills"`
}

var _ core.Entity = (*Actor)(nil)

// GetID returns the actor's ID
func (a *Actor) GetID() string {
	return a.ID
}

// GetType returns the entity type for rpg-toolkit
func (a *Actor) GetType() string {
	return EntityTypePC
}

// PoolValue returns the current points in the stat's pool, 0 for an unknown stat
func (a *Actor) PoolValue(stat Stat) int {
	return a.Stats[stat].Pool.Value
}

// EffortCostFromStat returns the pool points spent to apply effortLevel levels
// of Effort. The first level costs 3, each further level 2, and the stat's Edge
// is subtracted once. Cost never goes below 0.
func (a *Actor) EffortCostFromStat(stat Stat, effortLevel int) int {
	if effortLevel <= 0 {
		return 0
	}

	cost := firstEffortLevelCost + (effortLevel-1)*extraEffortLevelCost - a.Stats[stat].Edge
	if cost < 0 {
		return 0
	}
	return cost
}

// Skill looks up an owned skill by ID. It returns nil when the actor does not own it.
func (a *Actor) Skill(id string) *Skill {
	for i := range a.Skills {
		if a.Skills[i].ID == id {
			skill := a.Skills[i]
			return &skill
		}
	}
	return nil
}

// PoolPath returns the update path of the stat's pool value
func PoolPath(stat Stat) string {
	return fmt.Sprintf("stats.%s.pool.value", stat.Short())
}

// Validate checks the sheet invariants the Effort dialog relies on
func (a *Actor) Validate() error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRequired("id", a.ID, vb)
	errors.ValidateMin("effort", a.Effort, 0, vb)

	for stat, block := range a.Stats {
		parsed, ok := ParseStat(string(stat))
		if !ok || !stat.IsSet() {
			vb.Fieldf("stats", "unknown stat %q", stat)
			continue
		}
		// pools are looked up by the canonical key
		if parsed != stat {
			vb.Fieldf("stats", "stat %q must be written %q", stat, parsed)
			continue
		}
		errors.ValidateRange("stats."+stat.Short()+".pool.value", block.Pool.Value, 0, block.Pool.Max, vb)
		errors.ValidateMin("stats."+stat.Short()+".edge", block.Edge, 0, vb)
	}

	seen := make(map[string]bool, len(a.Skills))
	for i, skill := range a.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		if skill.ID == "" {
			vb.RequiredField(field + ".id")
		} else if seen[skill.ID] {
			vb.Fieldf(field+".id", "duplicate skill %s", skill.ID)
		}
		seen[skill.ID] = true

		if !skill.Stat.IsSet() {
			vb.RequiredField(field + ".stat")
		} else if parsed, ok := ParseStat(string(skill.Stat)); !ok {
			vb.Fieldf(field+".stat", "unknown stat %q", skill.Stat)
		} else if parsed != skill.Stat {
			vb.Fieldf(field+".stat", "stat %q must be written %q", skill.Stat, parsed)
		}
		errors.ValidateRange(field+".skillLevel", int(skill.SkillLevel), int(SkillUntrained), int(SkillSpecialized), vb)
	}

	return vb.Build()
}
