package roll

import (
	"time"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
)

// RollSkillInput defines the request for a task roll made with a skill
type RollSkillInput struct {
	Actor   *numenera.Actor
	Skill   *numenera.Skill
	Request effort.RollRequest
	TTL     time.Duration
}

// RollAttributeInput defines the request for a task roll made with a bare stat
type RollAttributeInput struct {
	Actor   *numenera.Actor
	Stat    numenera.Stat
	Request effort.RollRequest
	TTL     time.Duration
}

// RollOutput defines the response of either task roll
type RollOutput struct {
	Roll    *rollsession.TaskRoll
	Session *rollsession.RollSession
}

// GetRollSessionInput defines the request for getting a roll session
type GetRollSessionInput struct {
	EntityID string
	Context  string
}

// GetRollSessionOutput defines the response for getting a roll session
type GetRollSessionOutput struct {
	Session *rollsession.RollSession
}

// ClearRollSessionInput defines the request for clearing a roll session
type ClearRollSessionInput struct {
	EntityID string
	Context  string
}

// ClearRollSessionOutput defines the response for clearing a roll session
type ClearRollSessionOutput struct {
	RollsDeleted int32
}
