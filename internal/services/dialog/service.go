// Package dialog defines the interface for "Roll with Effort" dialog sessions
package dialog

//go:generate mockgen -destination=mock/mock_service.go -package=dialogmock github.com/KirkDiggler/numenera-api/internal/services/dialog Service

import (
	"context"
	"time"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	effortsession "github.com/KirkDiggler/numenera-api/internal/repositories/effort_session"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
)

// Service defines the interface for dialog operations
type Service interface {
	OpenSession(ctx context.Context, input *OpenSessionInput) (*OpenSessionOutput, error)
	ApplyEdit(ctx context.Context, input *ApplyEditInput) (*ApplyEditOutput, error)
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)
	Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error)
	CloseSession(ctx context.Context, input *CloseSessionInput) (*CloseSessionOutput, error)
}

// View is everything the dialog renders for one session
type View struct {
	SessionID string
	ActorID   string
	State     effortsession.State

	Stat numenera.Stat
	// StatLabel is the localized name of Stat, empty while no stat is chosen
	StatLabel string
	Skill     *numenera.Skill
	// Skills the actor can pick from
	Skills []numenera.Skill

	Assets         int
	CurrentEffort  int
	MaxEffortLevel int
	TaskLevel      int

	FinalLevel int
	Cost       int
	// Current and Remaining are nil while no stat is chosen
	Current   *int
	Remaining *int
	Modifiers []effort.Modifier

	// Warning disables submission
	Warning       string
	LastRejection string

	ExpiresAt time.Time
}

// CanSubmit reports whether the current configuration would be accepted
func (v *View) CanSubmit() bool {
	return v.Warning == ""
}

// OpenSessionInput defines the request for opening a dialog. Stat and SkillID
// are the initiating stat or skill; both may be blank.
type OpenSessionInput struct {
	ActorID string
	Stat    numenera.Stat
	SkillID string
	Locale  string
	TTL     time.Duration

	// Resume returns the actor's editable dialog, if any, instead of replacing it
	Resume bool
}

// OpenSessionOutput defines the response for opening a dialog
type OpenSessionOutput struct {
	Session *View
	// Resumed is true when Session is a dialog that was already open
	Resumed bool
}

// ApplyEditInput defines one submission of the dialog form
type ApplyEditInput struct {
	SessionID string
	Edit      effort.Edit
	Locale    string
}

// ApplyEditOutput defines the response for an edit
type ApplyEditOutput struct {
	Session *View
}

// GetSessionInput defines the request for reading a dialog
type GetSessionInput struct {
	SessionID string
	Locale    string
}

// GetSessionOutput defines the response for reading a dialog
type GetSessionOutput struct {
	Session *View
}

// SubmitInput defines the request for submitting a dialog
type SubmitInput struct {
	SessionID string
}

// SubmitOutput defines the response of a committed submit
type SubmitOutput struct {
	Request   effort.RollRequest
	Cost      int
	Deduction *effort.PoolDeduction
	// DeductionApplied is false when the roll cost nothing
	DeductionApplied bool
	Roll             *rollsession.TaskRoll
}

// CloseSessionInput defines the request for closing a dialog without rolling
type CloseSessionInput struct {
	SessionID string
}

// CloseSessionOutput defines the response for closing a dialog
type CloseSessionOutput struct{}
