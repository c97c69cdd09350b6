// Package effortsession stores open "Roll with Effort" dialogs
package effortsession

import (
	"context"
	"time"

	"github.com/KirkDiggler/numenera-api/internal/effort"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=effortsessionmock github.com/KirkDiggler/numenera-api/internal/repositories/effort_session Repository

// State is the lifecycle position of a dialog
type State string

// States. A rejected submit returns the session to StateEditing with
// LastRejection set; committed sessions are deleted.
const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateCommitted  State = "committed"
)

// Session is one open dialog for one actor
type Session struct {
	ID      string                   `json:"id"`
	ActorID string                   `json:"actorId"`
	Config  effort.RollConfiguration `json:"config"`
	State   State                    `json:"state"`

	// Message of the last failed submit, cleared by the next edit
	LastRejection string `json:"lastRejection,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateInput contains the session to store. A zero ExpiresAt gets the default TTL.
type CreateInput struct {
	Session *Session
}

// CreateOutput contains the stored session
type CreateOutput struct {
	Session *Session

	// ID of the actor's previous dialog that was replaced, if any
	ReplacedID string
}

// GetInput contains parameters for retrieving a session
type GetInput struct {
	ID string
}

// GetOutput contains the retrieved session
type GetOutput struct {
	Session *Session
}

// GetByActorIDInput contains parameters for finding an actor's open dialog
type GetByActorIDInput struct {
	ActorID string
}

// GetByActorIDOutput contains the actor's open dialog
type GetByActorIDOutput struct {
	Session *Session
}

// UpdateInput contains the session to replace. The stored session must still
// be in Session.State.
type UpdateInput struct {
	Session *Session
}

// UpdateOutput contains the stored session
type UpdateOutput struct {
	Session *Session
}

// TransitionInput moves a session from one state to another
type TransitionInput struct {
	ID   string
	From State
	To   State

	// LastRejection replaces the stored rejection message
	LastRejection string

	// Config, when set, replaces the stored roll configuration
	Config *effort.RollConfiguration
}

// TransitionOutput contains the session after the transition
type TransitionOutput struct {
	Session *Session
}

// DeleteInput contains parameters for deleting a session
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of deleting a session
type DeleteOutput struct{}

// Repository defines the interface for dialog session storage
type Repository interface {
	// Create stores a session and makes it the actor's only open dialog
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// GetByActorID retrieves the actor's open dialog
	GetByActorID(ctx context.Context, input GetByActorIDInput) (*GetByActorIDOutput, error)

	// Update replaces a session, keeping its expiry. It fails with
	// FailedPrecondition when the stored state no longer matches.
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)

	// Transition atomically changes the state of a session. Only one of several
	// concurrent callers moving the same session out of From succeeds; the rest
	// get FailedPrecondition.
	Transition(ctx context.Context, input TransitionInput) (*TransitionOutput, error)

	// Delete removes a session
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}
