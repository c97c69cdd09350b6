// Package builders provides test data builders for creating test fixtures
package builders

import (
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
)

// ActorBuilder provides a fluent interface for building test actors
type ActorBuilder struct {
	actor *numenera.Actor
}

// NewActorBuilder creates a tier 1 character with full pools of 10, no Edge and
// a maximum Effort of 1
func NewActorBuilder() *ActorBuilder {
	stats := make(map[numenera.Stat]numenera.StatBlock, len(numenera.Stats))
	for _, stat := range numenera.Stats {
		stats[stat] = numenera.StatBlock{Pool: numenera.Pool{Value: 10, Max: 10}}
	}

	return &ActorBuilder{
		actor: &numenera.Actor{
			ID:     "pc-test-123",
			Name:   "Test Glaive",
			Tier:   1,
			Effort: 1,
			Stats:  stats,
		},
	}
}

// WithID sets the actor ID
func (b *ActorBuilder) WithID(id string) *ActorBuilder {
	b.actor.ID = id
	return b
}

// WithEffort sets the maximum Effort level
func (b *ActorBuilder) WithEffort(effort int) *ActorBuilder {
	b.actor.Effort = effort
	return b
}

// WithPool sets a stat's current pool value
func (b *ActorBuilder) WithPool(stat numenera.Stat, value int) *ActorBuilder {
	block := b.actor.Stats[stat]
	block.Pool.Value = value
	if block.Pool.Max < value {
		block.Pool.Max = value
	}
	b.actor.Stats[stat] = block
	return b
}

// WithEdge sets a stat's Edge
func (b *ActorBuilder) WithEdge(stat numenera.Stat, edge int) *ActorBuilder {
	block := b.actor.Stats[stat]
	block.Edge = edge
	b.actor.Stats[stat] = block
	return b
}

// WithSkill adds an owned skill
func (b *ActorBuilder) WithSkill(skill numenera.Skill) *ActorBuilder {
	b.actor.Skills = append(b.actor.Skills, skill)
	return b
}

// Build returns the actor
func (b *ActorBuilder) Build() *numenera.Actor {
	return b.actor
}
