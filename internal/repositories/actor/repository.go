// Package actor stores Numenera characters
package actor

import (
	"context"

	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=actormock github.com/KirkDiggler/numenera-api/internal/repositories/actor Repository

// GetInput contains parameters for retrieving an actor
type GetInput struct {
	ID string
}

// GetOutput contains the retrieved actor
type GetOutput struct {
	Actor *numenera.Actor
}

// SaveInput contains the actor to store
type SaveInput struct {
	Actor *numenera.Actor
}

// SaveOutput contains the result of storing an actor
type SaveOutput struct {
	Actor *numenera.Actor
}

// ApplyUpdateInput sets the integer at Path on an actor, e.g.
// "stats.might.pool.value"
type ApplyUpdateInput struct {
	ActorID string
	Path    string
	Value   int

	// Expected, when set, is the value the pool must still hold. The update
	// fails with FailedPrecondition when it has changed.
	Expected *int
}

// ApplyUpdateOutput contains the actor after the update
type ApplyUpdateOutput struct {
	Actor *numenera.Actor
}

// ListIDsInput contains parameters for listing stored actors
type ListIDsInput struct {
	// Hint for the SCAN batch size; 0 lets Redis choose
	BatchSize int64
}

// ListIDsOutput contains the IDs of every stored actor
type ListIDsOutput struct {
	IDs []string
}

// DeleteInput contains parameters for deleting an actor
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of deleting an actor
type DeleteOutput struct {
	Deleted bool
}

// Repository defines the interface for actor storage operations
type Repository interface {
	// Get retrieves an actor by ID
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Save creates or replaces an actor
	Save(ctx context.Context, input SaveInput) (*SaveOutput, error)

	// ApplyUpdate changes one field of a stored actor
	ApplyUpdate(ctx context.Context, input ApplyUpdateInput) (*ApplyUpdateOutput, error)

	// ListIDs returns the IDs of every stored actor, in no particular order
	ListIDs(ctx context.Context, input ListIDsInput) (*ListIDsOutput, error)

	// Delete removes an actor
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}
