package effort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
)

// fixedPool answers every cost lookup with the same value
type fixedPool struct {
	id    string
	cost  int
	value int
}

func (p *fixedPool) GetID() string                             { return p.id }
func (p *fixedPool) PoolValue(numenera.Stat) int               { return p.value }
func (p *fixedPool) EffortCostFromStat(numenera.Stat, int) int { return p.cost }

type skillBook map[string]*numenera.Skill

func (b skillBook) Skill(id string) *numenera.Skill { return b[id] }

var (
	climbing = &numenera.Skill{
		ID: "sk_climb", Name: "Climbing", Stat: numenera.StatMight, SkillLevel: numenera.SkillTrained,
	}
	lore = &numenera.Skill{
		ID: "sk_lore", Name: "Numenera lore", Stat: numenera.StatIntellect,
		SkillLevel: numenera.SkillSpecialized, Inability: true,
	}
	books = skillBook{climbing.ID: climbing, lore.ID: lore}
)

type CalculatorTestSuite struct {
	suite.Suite
	actor *numenera.Actor
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorTestSuite))
}

func (s *CalculatorTestSuite) SetupTest() {
	s.actor = &numenera.Actor{
		ID:     "pc_1",
		Effort: 2,
		Stats: map[numenera.Stat]numenera.StatBlock{
			numenera.StatMight:     {Pool: numenera.Pool{Value: 10, Max: 12}, Edge: 1},
			numenera.StatSpeed:     {Pool: numenera.Pool{Value: 2, Max: 9}, Edge: 0},
			numenera.StatIntellect: {Pool: numenera.Pool{Value: 11, Max: 11}, Edge: 0},
		},
	}
}

func (s *CalculatorTestSuite) TestNewRollConfiguration() {
	s.Run("defaults", func() {
		cfg := effort.NewRollConfiguration(numenera.StatSpeed, nil)
		s.Equal(numenera.StatSpeed, cfg.Stat)
		s.Equal(0, cfg.Assets)
		s.Equal(0, cfg.CurrentEffort)
		s.Equal(effort.DefaultTaskLevel, cfg.TaskLevel)
	})

	s.Run("stat from initiating skill", func() {
		cfg := effort.NewRollConfiguration(numenera.StatNone, climbing)
		s.Equal(numenera.StatMight, cfg.Stat)
		s.Equal(climbing, cfg.Skill)
	})

	s.Run("explicit stat wins over skill", func() {
		cfg := effort.NewRollConfiguration(numenera.StatSpeed, climbing)
		s.Equal(numenera.StatSpeed, cfg.Stat)
	})
}

func (s *CalculatorTestSuite) TestComputeFinalLevel() {
	testCases := []struct {
		name     string
		cfg      effort.RollConfiguration
		expected int
	}{
		{
			name:     "effort and assets",
			cfg:      effort.RollConfiguration{TaskLevel: 5, CurrentEffort: 2, Assets: 1},
			expected: 2,
		},
		{
			name:     "specialized with inability",
			cfg:      effort.RollConfiguration{TaskLevel: 3, CurrentEffort: 1, Skill: lore},
			expected: 1,
		},
		{
			name:     "trained",
			cfg:      effort.RollConfiguration{TaskLevel: 4, Skill: climbing},
			expected: 3,
		},
		{
			name:     "floored at zero",
			cfg:      effort.RollConfiguration{TaskLevel: 1, CurrentEffort: 3, Assets: 2, Skill: climbing},
			expected: 0,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := tc.cfg
			s.Equal(tc.expected, effort.ComputeFinalLevel(&cfg))
		})
	}
}

func (s *CalculatorTestSuite) TestComputeCost() {
	cfg := &effort.RollConfiguration{Stat: numenera.StatMight, CurrentEffort: 2, TaskLevel: 3}
	s.Equal(4, effort.ComputeCost(cfg, s.actor))

	cfg.Stat = numenera.StatNone
	s.Equal(0, effort.ComputeCost(cfg, s.actor))
}

func (s *CalculatorTestSuite) TestComputeModifiers() {
	s.Run("all lines in order", func() {
		cfg := &effort.RollConfiguration{Skill: lore, Assets: 1, CurrentEffort: 2, TaskLevel: 4}
		s.Equal([]effort.Modifier{
			{Title: "Numenera lore specialization", Value: "-2"},
			{Title: "Numenera lore inability", Value: "+ 1"},
			{Title: "1 Asset(s)", Value: "- 1"},
			{Title: "2 Effort", Value: "- 2"},
		}, effort.ComputeModifiers(cfg))
	})

	s.Run("trained skill only", func() {
		cfg := &effort.RollConfiguration{Skill: climbing, TaskLevel: 2}
		s.Equal([]effort.Modifier{
			{Title: "Climbing training", Value: "-1"},
		}, effort.ComputeModifiers(cfg))
	})

	s.Run("untrained skill adds nothing", func() {
		cfg := &effort.RollConfiguration{
			Skill:     &numenera.Skill{Name: "Swimming", SkillLevel: numenera.SkillUntrained},
			TaskLevel: 2,
		}
		s.Empty(effort.ComputeModifiers(cfg))
	})

	s.Run("effort line counts effort not assets", func() {
		cfg := &effort.RollConfiguration{Assets: 2, CurrentEffort: 1, TaskLevel: 5}
		mods := effort.ComputeModifiers(cfg)
		s.Require().Len(mods, 2)
		s.Equal("1 Effort", mods[1].Title)
	})
}

func (s *CalculatorTestSuite) TestValidateAffordability() {
	s.Run("missing stat", func() {
		err := effort.ValidateAffordability(&effort.RollConfiguration{TaskLevel: 1}, s.actor)
		s.True(errors.Is(err, effort.ErrMissingStat))
		s.Equal("You must provide a stat before using Effort", errors.GetMessage(err))
	})

	s.Run("insufficient pool", func() {
		pool := &fixedPool{id: "pc_2", cost: 7, value: 5}
		cfg := &effort.RollConfiguration{Stat: numenera.StatMight, CurrentEffort: 3, TaskLevel: 4}

		err := effort.ValidateAffordability(cfg, pool)
		s.True(errors.Is(err, effort.ErrInsufficientPool))
		s.Equal(7, errors.GetMeta(err)["cost"])
		s.Equal(5, errors.GetMeta(err)["pool"])
	})

	s.Run("exact pool is affordable", func() {
		pool := &fixedPool{id: "pc_2", cost: 5, value: 5}
		cfg := &effort.RollConfiguration{Stat: numenera.StatMight, CurrentEffort: 2, TaskLevel: 4}
		s.NoError(effort.ValidateAffordability(cfg, pool))
	})
}

func (s *CalculatorTestSuite) TestSummarize() {
	s.Run("with stat", func() {
		cfg := &effort.RollConfiguration{Stat: numenera.StatMight, CurrentEffort: 1, TaskLevel: 3}
		summary := effort.Summarize(cfg, s.actor)

		s.Equal(2, summary.FinalLevel)
		s.Equal(2, summary.Cost)
		s.Require().NotNil(summary.Current)
		s.Equal(10, *summary.Current)
		s.Equal(8, *summary.Remaining)
		s.Empty(summary.Warning)
	})

	s.Run("without stat", func() {
		summary := effort.Summarize(&effort.RollConfiguration{TaskLevel: 3}, s.actor)

		s.Equal(0, summary.Cost)
		s.Nil(summary.Current)
		s.Nil(summary.Remaining)
		s.Equal("You must provide a stat before using Effort", summary.Warning)
		s.Equal(effort.KeyMissingStat, summary.WarningKey)
	})

	s.Run("warns when pool is too low", func() {
		cfg := &effort.RollConfiguration{Stat: numenera.StatSpeed, CurrentEffort: 1, TaskLevel: 3}
		summary := effort.Summarize(cfg, s.actor)

		s.Equal(-1, *summary.Remaining)
		s.Equal("Insufficient points in this pool for this level of Effort", summary.Warning)
		s.Equal(effort.KeyInsufficientPool, summary.WarningKey)
	})
}

func (s *CalculatorTestSuite) TestSubmitRoll() {
	s.Run("deducts the cost", func() {
		cfg := &effort.RollConfiguration{Stat: numenera.StatMight, Skill: climbing, CurrentEffort: 2, TaskLevel: 5}

		submission, err := effort.SubmitRoll(cfg, s.actor)
		s.Require().NoError(err)
		s.Equal(2, submission.Request.EffortLevel)
		s.Equal(2, submission.Request.FinalTaskLevel)
		s.True(submission.Request.Target.IsSkill())
		s.Equal(4, submission.Cost)
		s.Equal(&effort.PoolDeduction{
			ActorID:  "pc_1",
			Stat:     numenera.StatMight,
			Path:     "stats.might.pool.value",
			NewValue: 6,
		}, submission.Deduction)
	})

	s.Run("zero cost issues no deduction", func() {
		cfg := &effort.RollConfiguration{Stat: numenera.StatIntellect, TaskLevel: 2}

		submission, err := effort.SubmitRoll(cfg, s.actor)
		s.Require().NoError(err)
		s.Nil(submission.Deduction)
		s.False(submission.Request.Target.IsSkill())
		s.Equal(numenera.StatIntellect, submission.Request.Target.Stat)
	})

	s.Run("rejected without stat", func() {
		_, err := effort.SubmitRoll(&effort.RollConfiguration{TaskLevel: 2}, s.actor)
		s.True(errors.IsFailedPrecondition(err))
	})

	s.Run("rejected when the pool shrank", func() {
		cfg := &effort.RollConfiguration{Stat: numenera.StatMight, CurrentEffort: 1, TaskLevel: 2}
		s.actor.Stats[numenera.StatMight] = numenera.StatBlock{Pool: numenera.Pool{Value: 1}, Edge: 1}

		_, err := effort.SubmitRoll(cfg, s.actor)
		s.True(errors.IsResourceExhausted(err))
	})
}

func TestApplyEdit(t *testing.T) {
	t.Run("selecting a skill overwrites a manual stat", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatSpeed, nil)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 3, SkillID: climbing.ID, Stat: numenera.StatSpeed}, books)

		require.NotNil(t, cfg.Skill)
		assert.Equal(t, climbing.ID, cfg.Skill.ID)
		assert.Equal(t, numenera.StatMight, cfg.Stat)
		assert.Equal(t, 3, cfg.TaskLevel)
	})

	t.Run("switching skills takes the new stat", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatNone, climbing)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 1, SkillID: lore.ID, Stat: numenera.StatMight}, books)

		assert.Equal(t, lore.ID, cfg.Skill.ID)
		assert.Equal(t, numenera.StatIntellect, cfg.Stat)
	})

	t.Run("direct stat change without skill", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatMight, nil)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 1, Stat: numenera.StatIntellect}, books)

		assert.Equal(t, numenera.StatIntellect, cfg.Stat)
		assert.Nil(t, cfg.Skill)
	})

	t.Run("deselecting a skill keeps the stat", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatNone, lore)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 2, Stat: numenera.StatIntellect}, books)

		assert.Nil(t, cfg.Skill)
		assert.Equal(t, numenera.StatIntellect, cfg.Stat)
	})

	t.Run("same skill keeps everything", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatNone, climbing)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 4, Assets: 1, CurrentEffort: 1, SkillID: climbing.ID, Stat: numenera.StatMight}, books)

		assert.Equal(t, climbing.ID, cfg.Skill.ID)
		assert.Equal(t, 1, cfg.Assets)
		assert.Equal(t, 1, cfg.CurrentEffort)
		assert.Equal(t, 4, cfg.TaskLevel)
	})

	t.Run("unknown skill clears the skill", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatNone, climbing)
		effort.ApplyEdit(cfg, effort.Edit{TaskLevel: 1, SkillID: "sk_missing"}, books)

		assert.Nil(t, cfg.Skill)
		assert.Equal(t, numenera.StatMight, cfg.Stat)
	})
}

func TestRefreshSkill(t *testing.T) {
	t.Run("picks up a changed skill level", func(t *testing.T) {
		stale := *climbing
		stale.SkillLevel = numenera.SkillUntrained
		cfg := effort.NewRollConfiguration(numenera.StatNone, &stale)

		require.True(t, effort.RefreshSkill(cfg, books))
		assert.Equal(t, numenera.SkillTrained, cfg.Skill.SkillLevel)
		assert.Equal(t, numenera.StatMight, cfg.Stat)
	})

	t.Run("removed skill is cleared", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatNone, &numenera.Skill{ID: "sk_gone", Stat: numenera.StatSpeed})

		assert.False(t, effort.RefreshSkill(cfg, books))
		assert.Nil(t, cfg.Skill)
		assert.Equal(t, numenera.StatSpeed, cfg.Stat)
	})

	t.Run("no skill is a no-op", func(t *testing.T) {
		cfg := effort.NewRollConfiguration(numenera.StatIntellect, nil)

		assert.True(t, effort.RefreshSkill(cfg, books))
		assert.Nil(t, cfg.Skill)
	})
}
