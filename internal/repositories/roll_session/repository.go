// Package rollsession stores resolved task rolls grouped by actor and context
package rollsession

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=rollsessionmock github.com/KirkDiggler/numenera-api/internal/repositories/roll_session Repository

// RollSession is the roll history of one actor in one context
type RollSession struct {
	// Actor that made the rolls (e.g., "pc_123")
	EntityID string

	// Context for grouping related rolls (e.g., "effort")
	Context string

	Rolls []TaskRoll

	CreatedAt time.Time
	ExpiresAt time.Time
}

// TaskRoll is one resolved d20 task roll
type TaskRoll struct {
	RollID string

	// Natural d20 result
	Die int32

	// Task level after Effort, assets and skills
	TaskLevel int32

	// TaskLevel x 3
	TargetNumber int32

	EffortLevel int32

	Success bool

	// Special result of a natural 1, 17, 18, 19 or 20; empty otherwise
	Special string

	// Skill name or stat the roll was made with
	Description string

	RolledAt time.Time
}

// AppendInput adds one roll to an actor's history, creating the history when
// it does not exist yet
type AppendInput struct {
	EntityID string
	Context  string
	Roll     TaskRoll

	// TTL is measured from this append; zero uses the repository default
	TTL time.Duration
}

// AppendOutput contains the history as it stands after the append
type AppendOutput struct {
	Session *RollSession
}

// GetInput contains parameters for retrieving a roll session
type GetInput struct {
	EntityID string
	Context  string
}

// GetOutput contains the result of retrieving a roll session
type GetOutput struct {
	Session *RollSession
}

// DeleteInput contains parameters for deleting a roll session
type DeleteInput struct {
	EntityID string
	Context  string
}

// DeleteOutput contains the result of deleting a roll session
type DeleteOutput struct {
	RollsDeleted int32
}

// Repository defines the interface for roll session storage operations
type Repository interface {
	// Append atomically adds a roll, keeping at most the latest 100, and
	// pushes the expiry out by the TTL
	Append(ctx context.Context, input AppendInput) (*AppendOutput, error)

	// Get retrieves a roll session by entity ID and context
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Delete removes a roll session
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}
