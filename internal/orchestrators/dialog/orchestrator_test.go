package dialog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/i18n"
	dialogorch "github.com/KirkDiggler/numenera-api/internal/orchestrators/dialog"
	"github.com/KirkDiggler/numenera-api/internal/orchestrators/roll"
	rollmock "github.com/KirkDiggler/numenera-api/internal/orchestrators/roll/mock"
	"github.com/KirkDiggler/numenera-api/internal/pkg/clock"
	"github.com/KirkDiggler/numenera-api/internal/pkg/idgen"
	actorrepo "github.com/KirkDiggler/numenera-api/internal/repositories/actor"
	actormock "github.com/KirkDiggler/numenera-api/internal/repositories/actor/mock"
	effortsession "github.com/KirkDiggler/numenera-api/internal/repositories/effort_session"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
	"github.com/KirkDiggler/numenera-api/internal/services/dialog"
	"github.com/KirkDiggler/numenera-api/internal/testutils"
	"github.com/KirkDiggler/numenera-api/internal/testutils/builders"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	mockActorRepo   *actormock.MockRepository
	mockRollService *rollmock.MockService
	sessionRepo     effortsession.Repository
	clock           *clock.Fixed
	orchestrator    *dialogorch.Orchestrator
	ctx             context.Context
	actor           *numenera.Actor
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockActorRepo = actormock.NewMockRepository(s.ctrl)
	s.mockRollService = rollmock.NewMockService(s.ctrl)
	s.clock = &clock.Fixed{At: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s.ctx = context.Background()

	client, _ := testutils.CreateTestRedisClient(s.T())
	sessionRepo, err := effortsession.NewRedisRepository(&effortsession.Config{Client: client, Clock: s.clock})
	s.Require().NoError(err)
	s.sessionRepo = sessionRepo

	catalog, err := i18n.LoadEmbedded()
	s.Require().NoError(err)

	orchestrator, err := dialogorch.New(&dialogorch.Config{
		ActorRepo:   s.mockActorRepo,
		SessionRepo: s.sessionRepo,
		RollService: s.mockRollService,
		IDGenerator: idgen.NewSequential("es"),
		Clock:       s.clock,
		Localizer:   catalog,
	})
	s.Require().NoError(err)
	s.orchestrator = orchestrator

	// Might 5, Speed 10 with Edge 1, Effort up to 3
	s.actor = builders.NewActorBuilder().
		WithID("pc_1").
		WithEffort(3).
		WithPool(numenera.StatMight, 5).
		WithEdge(numenera.StatSpeed, 1).
		WithSkill(numenera.Skill{ID: "climbing", Name: "Climbing", Stat: numenera.StatMight, SkillLevel: numenera.SkillTrained}).
		WithSkill(numenera.Skill{ID: "lore", Name: "Lore", Stat: numenera.StatIntellect, SkillLevel: numenera.SkillSpecialized, Inability: true}).
		Build()
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorTestSuite) expectActor() {
	s.mockActorRepo.EXPECT().
		Get(s.ctx, actorrepo.GetInput{ID: "pc_1"}).
		Return(&actorrepo.GetOutput{Actor: s.actor}, nil)
}

func (s *OrchestratorTestSuite) open(stat numenera.Stat, skillID string) *dialog.View {
	s.expectActor()
	out, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{
		ActorID: "pc_1",
		Stat:    stat,
		SkillID: skillID,
	})
	s.Require().NoError(err)
	return out.Session
}

func (s *OrchestratorTestSuite) edit(sessionID string, edit effort.Edit, locale string) (*dialog.View, error) {
	out, err := s.orchestrator.ApplyEdit(s.ctx, &dialog.ApplyEditInput{
		SessionID: sessionID,
		Edit:      edit,
		Locale:    locale,
	})
	if err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (s *OrchestratorTestSuite) TestNew_MissingDependencies() {
	_, err := dialogorch.New(&dialogorch.Config{})
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
	s.Contains(err.Error(), "ActorRepo")
}

func (s *OrchestratorTestSuite) TestOpenSession_WithSkill() {
	view := s.open(numenera.StatNone, "climbing")

	s.Equal("es_1", view.SessionID)
	s.Equal(effortsession.StateEditing, view.State)
	s.Equal(numenera.StatMight, view.Stat)
	s.Equal("Might", view.StatLabel)
	s.Require().NotNil(view.Skill)
	s.Equal("climbing", view.Skill.ID)
	s.Len(view.Skills, 2)
	s.Equal(3, view.MaxEffortLevel)
	s.Equal(1, view.TaskLevel)
	s.Equal(0, view.FinalLevel)
	s.Equal(0, view.Cost)
	s.Require().NotNil(view.Current)
	s.Equal(5, *view.Current)
	s.Equal([]effort.Modifier{{Title: "Climbing training", Value: "-1"}}, view.Modifiers)
	s.True(view.CanSubmit())
	s.Equal(s.clock.At.Add(dialogorch.DefaultSessionTTL), view.ExpiresAt)
}

func (s *OrchestratorTestSuite) TestOpenSession_WithoutStat() {
	view := s.open(numenera.StatNone, "")

	s.Equal(numenera.StatNone, view.Stat)
	s.Empty(view.StatLabel)
	s.Nil(view.Current)
	s.Nil(view.Remaining)
	s.Equal("You must provide a stat before using Effort", view.Warning)
	s.False(view.CanSubmit())
}

func (s *OrchestratorTestSuite) TestOpenSession_Resume() {
	first := s.open(numenera.StatSpeed, "")

	s.expectActor()
	_, err := s.edit(first.SessionID, effort.Edit{Assets: 2, TaskLevel: 4, Stat: numenera.StatSpeed}, "")
	s.Require().NoError(err)

	s.expectActor()
	out, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{
		ActorID: "pc_1",
		Stat:    numenera.StatMight,
		Resume:  true,
	})
	s.Require().NoError(err)
	s.True(out.Resumed)
	s.Equal(first.SessionID, out.Session.SessionID)
	s.Equal(numenera.StatSpeed, out.Session.Stat)
	s.Equal(2, out.Session.Assets)
	s.Equal(4, out.Session.TaskLevel)

	// Without Resume the open dialog is replaced
	s.expectActor()
	out, err = s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{ActorID: "pc_1", Stat: numenera.StatMight})
	s.Require().NoError(err)
	s.False(out.Resumed)
	s.NotEqual(first.SessionID, out.Session.SessionID)

	_, err = s.sessionRepo.Get(s.ctx, effortsession.GetInput{ID: first.SessionID})
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestOpenSession_ResumeWithoutOpenDialog() {
	s.expectActor()
	out, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{
		ActorID: "pc_1",
		SkillID: "lore",
		Resume:  true,
	})
	s.Require().NoError(err)
	s.False(out.Resumed)
	s.Equal("es_1", out.Session.SessionID)
	s.Equal(numenera.StatIntellect, out.Session.Stat)
}

func (s *OrchestratorTestSuite) TestOpenSession_UnknownSkill() {
	s.expectActor()
	_, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{ActorID: "pc_1", SkillID: "flying"})
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestOpenSession_ActorNotFound() {
	s.mockActorRepo.EXPECT().
		Get(s.ctx, actorrepo.GetInput{ID: "pc_404"}).
		Return(nil, errors.NotFound("actor pc_404 not found"))

	_, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{ActorID: "pc_404"})
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestOpenSession_Validation() {
	_, err := s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.orchestrator.OpenSession(s.ctx, &dialog.OpenSessionInput{ActorID: "pc_1", Stat: "luck"})
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestApplyEdit_RecomputesView() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{
		Assets:        1,
		CurrentEffort: 2,
		TaskLevel:     5,
		Stat:          numenera.StatSpeed,
	}, "")
	s.Require().NoError(err)

	// 5 - 2 - 1
	s.Equal(2, view.FinalLevel)
	// 3 + 2 - Edge 1
	s.Equal(4, view.Cost)
	s.Equal(6, *view.Remaining)
	s.Equal([]effort.Modifier{
		{Title: "1 Asset(s)", Value: "- 1"},
		{Title: "2 Effort", Value: "- 2"},
	}, view.Modifiers)
	s.True(view.CanSubmit())
}

func (s *OrchestratorTestSuite) TestApplyEdit_SkillSelectionTakesItsStat() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{TaskLevel: 3, SkillID: "lore", Stat: numenera.StatSpeed}, "")
	s.Require().NoError(err)

	s.Equal(numenera.StatIntellect, view.Stat)
	// 3 - 2 + 1
	s.Equal(2, view.FinalLevel)

	s.expectActor()
	view, err = s.edit(view.SessionID, effort.Edit{TaskLevel: 3, Stat: numenera.StatIntellect}, "")
	s.Require().NoError(err)

	s.Nil(view.Skill)
	s.Equal(numenera.StatIntellect, view.Stat)
}

func (s *OrchestratorTestSuite) TestApplyEdit_LocalizedWarning() {
	view := s.open(numenera.StatMight, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{CurrentEffort: 2, TaskLevel: 3, Stat: numenera.StatMight}, "fr-FR")
	s.Require().NoError(err)

	s.Equal(5, view.Cost)
	s.Equal(0, *view.Remaining)
	s.Equal("Puissance", view.StatLabel)
	s.True(view.CanSubmit())

	s.expectActor()
	view, err = s.edit(view.SessionID, effort.Edit{CurrentEffort: 3, TaskLevel: 3, Stat: numenera.StatMight}, "fr-FR")
	s.Require().NoError(err)

	s.Equal(7, view.Cost)
	s.Equal("Pas assez de points dans cette réserve pour ce niveau d'Effort", view.Warning)
	s.False(view.CanSubmit())
}

func (s *OrchestratorTestSuite) TestApplyEdit_Validation() {
	view := s.open(numenera.StatMight, "")

	testCases := []struct {
		name string
		edit effort.Edit
	}{
		{"negative assets", effort.Edit{Assets: -1, TaskLevel: 1}},
		{"effort above actor max", effort.Edit{CurrentEffort: 4, TaskLevel: 1}},
		{"negative effort", effort.Edit{CurrentEffort: -1, TaskLevel: 1}},
		{"task level zero", effort.Edit{TaskLevel: 0}},
		{"unknown skill", effort.Edit{TaskLevel: 1, SkillID: "flying"}},
		{"unknown stat", effort.Edit{TaskLevel: 1, Stat: "luck"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.expectActor()
			_, err := s.edit(view.SessionID, tc.edit, "")
			s.True(errors.IsInvalidArgument(err))
		})
	}
}

func (s *OrchestratorTestSuite) TestApplyEdit_SessionNotFound() {
	_, err := s.edit("es_404", effort.Edit{TaskLevel: 1}, "")
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestSubmit_SkillRollWithDeduction() {
	view := s.open(numenera.StatNone, "climbing")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{CurrentEffort: 1, TaskLevel: 4, SkillID: "climbing"}, "")
	s.Require().NoError(err)

	s.expectActor()
	s.mockRollService.EXPECT().
		RollSkill(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roll.RollSkillInput) (*roll.RollOutput, error) {
			s.Equal("climbing", input.Skill.ID)
			s.Equal(1, input.Request.EffortLevel)
			// 4 - 1 - 1
			s.Equal(2, input.Request.FinalTaskLevel)
			return &roll.RollOutput{Roll: &rollsession.TaskRoll{RollID: "roll_1", Die: 11, Success: true}}, nil
		})
	s.mockActorRepo.EXPECT().
		ApplyUpdate(s.ctx, actorrepo.ApplyUpdateInput{
			ActorID:  "pc_1",
			Path:     "stats.might.pool.value",
			Value:    2,
			Expected: intPtr(5),
		}).
		Return(&actorrepo.ApplyUpdateOutput{}, nil)

	out, err := s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.Require().NoError(err)

	s.Equal(3, out.Cost)
	s.True(out.DeductionApplied)
	s.Require().NotNil(out.Deduction)
	s.Equal(2, out.Deduction.NewValue)
	s.Equal("roll_1", out.Roll.RollID)

	_, err = s.sessionRepo.Get(s.ctx, effortsession.GetInput{ID: view.SessionID})
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestSubmit_ZeroCostHasNoDeduction() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	s.mockRollService.EXPECT().
		RollAttribute(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roll.RollAttributeInput) (*roll.RollOutput, error) {
			s.Equal(numenera.StatSpeed, input.Stat)
			return &roll.RollOutput{Roll: &rollsession.TaskRoll{RollID: "roll_1", Die: 4}}, nil
		})

	out, err := s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.Require().NoError(err)

	s.Equal(0, out.Cost)
	s.Nil(out.Deduction)
	s.False(out.DeductionApplied)
}

func (s *OrchestratorTestSuite) TestSubmit_RejectedKeepsSessionEditable() {
	view := s.open(numenera.StatMight, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{CurrentEffort: 2, TaskLevel: 3, Stat: numenera.StatMight}, "")
	s.Require().NoError(err)

	// The pool dropped since the last edit
	s.actor.Stats[numenera.StatMight] = numenera.StatBlock{Pool: numenera.Pool{Value: 4, Max: 10}}
	s.expectActor()

	_, err = s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.Require().Error(err)
	s.True(errors.Is(err, effort.ErrInsufficientPool))

	s.expectActor()
	got, err := s.orchestrator.GetSession(s.ctx, &dialog.GetSessionInput{SessionID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(effortsession.StateEditing, got.Session.State)
	s.Equal("Insufficient points in this pool for this level of Effort", got.Session.LastRejection)

	// The next edit clears the rejection
	s.expectActor()
	view, err = s.edit(view.SessionID, effort.Edit{CurrentEffort: 1, TaskLevel: 3, Stat: numenera.StatMight}, "")
	s.Require().NoError(err)
	s.Empty(view.LastRejection)
}

func (s *OrchestratorTestSuite) TestSubmit_MissingStat() {
	view := s.open(numenera.StatNone, "")

	s.expectActor()
	_, err := s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.True(errors.Is(err, effort.ErrMissingStat))
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestSubmit_PoolChangedRejectsWithoutRolling() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{CurrentEffort: 1, TaskLevel: 2, Stat: numenera.StatSpeed}, "")
	s.Require().NoError(err)

	// Another client spent Speed between the read and the deduction
	s.expectActor()
	s.mockActorRepo.EXPECT().
		ApplyUpdate(s.ctx, actorrepo.ApplyUpdateInput{
			ActorID:  "pc_1",
			Path:     "stats.speed.pool.value",
			Value:    8,
			Expected: intPtr(10),
		}).
		Return(nil, errors.FailedPrecondition("speed pool of actor pc_1 changed"))

	_, err = s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.True(errors.IsFailedPrecondition(err))

	got, err := s.sessionRepo.Get(s.ctx, effortsession.GetInput{ID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(effortsession.StateEditing, got.Session.State)
	s.Contains(got.Session.LastRejection, "speed pool changed")
}

func (s *OrchestratorTestSuite) TestSubmit_RollFailureRefundsDeduction() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{CurrentEffort: 1, TaskLevel: 2, Stat: numenera.StatSpeed}, "")
	s.Require().NoError(err)

	s.expectActor()
	gomock.InOrder(
		s.mockActorRepo.EXPECT().
			ApplyUpdate(s.ctx, actorrepo.ApplyUpdateInput{
				ActorID:  "pc_1",
				Path:     "stats.speed.pool.value",
				Value:    8,
				Expected: intPtr(10),
			}).
			Return(&actorrepo.ApplyUpdateOutput{}, nil),
		s.mockRollService.EXPECT().
			RollAttribute(s.ctx, gomock.Any()).
			Return(nil, errors.Unavailable("redis down")),
		s.mockActorRepo.EXPECT().
			ApplyUpdate(s.ctx, actorrepo.ApplyUpdateInput{
				ActorID:  "pc_1",
				Path:     "stats.speed.pool.value",
				Value:    10,
				Expected: intPtr(8),
			}).
			Return(&actorrepo.ApplyUpdateOutput{}, nil),
	)

	_, err = s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.True(errors.IsUnavailable(err))

	got, err := s.sessionRepo.Get(s.ctx, effortsession.GetInput{ID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(effortsession.StateEditing, got.Session.State)
	s.Equal(1, got.Session.Config.CurrentEffort)
}

func (s *OrchestratorTestSuite) TestSubmit_RemovedSkillIsRejected() {
	view := s.open(numenera.StatNone, "climbing")

	// climbing is dropped from the character sheet while the dialog is open
	s.actor.Skills = s.actor.Skills[1:]
	s.expectActor()

	_, err := s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.True(errors.IsFailedPrecondition(err))
	s.Equal("climbing", errors.GetMeta(err)["skill_id"])

	s.expectActor()
	got, err := s.orchestrator.GetSession(s.ctx, &dialog.GetSessionInput{SessionID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(effortsession.StateEditing, got.Session.State)
	s.Nil(got.Session.Skill)
	s.Equal(numenera.StatMight, got.Session.Stat)
	s.Equal("The actor no longer has the skill Climbing", got.Session.LastRejection)
	s.Empty(got.Session.Modifiers)
}

func (s *OrchestratorTestSuite) TestSubmit_UsesCurrentSkillLevel() {
	view := s.open(numenera.StatNone, "climbing")

	s.expectActor()
	view, err := s.edit(view.SessionID, effort.Edit{TaskLevel: 4, SkillID: "climbing"}, "")
	s.Require().NoError(err)
	// 4 - 1
	s.Equal(3, view.FinalLevel)

	s.actor.Skills[0].SkillLevel = numenera.SkillSpecialized

	s.expectActor()
	got, err := s.orchestrator.GetSession(s.ctx, &dialog.GetSessionInput{SessionID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(2, got.Session.FinalLevel)
	s.Equal([]effort.Modifier{{Title: "Climbing specialization", Value: "-2"}}, got.Session.Modifiers)

	s.expectActor()
	s.mockRollService.EXPECT().
		RollSkill(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roll.RollSkillInput) (*roll.RollOutput, error) {
			s.Equal(numenera.SkillSpecialized, input.Skill.SkillLevel)
			s.Equal(2, input.Request.FinalTaskLevel)
			return &roll.RollOutput{Roll: &rollsession.TaskRoll{RollID: "roll_1"}}, nil
		})

	_, err = s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.Require().NoError(err)
}

func (s *OrchestratorTestSuite) TestSubmit_RollFailureReopensSession() {
	view := s.open(numenera.StatSpeed, "")

	s.expectActor()
	s.mockRollService.EXPECT().
		RollAttribute(s.ctx, gomock.Any()).
		Return(nil, errors.Unavailable("redis down"))

	_, err := s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.Require().Error(err)

	got, err := s.sessionRepo.Get(s.ctx, effortsession.GetInput{ID: view.SessionID})
	s.Require().NoError(err)
	s.Equal(effortsession.StateEditing, got.Session.State)
}

func (s *OrchestratorTestSuite) TestSubmit_NotEditable() {
	view := s.open(numenera.StatSpeed, "")

	_, err := s.sessionRepo.Transition(s.ctx, effortsession.TransitionInput{
		ID:   view.SessionID,
		From: effortsession.StateEditing,
		To:   effortsession.StateSubmitting,
	})
	s.Require().NoError(err)

	_, err = s.orchestrator.Submit(s.ctx, &dialog.SubmitInput{SessionID: view.SessionID})
	s.True(errors.IsFailedPrecondition(err))

	_, err = s.edit(view.SessionID, effort.Edit{TaskLevel: 1}, "")
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestCloseSession() {
	view := s.open(numenera.StatSpeed, "")

	_, err := s.orchestrator.CloseSession(s.ctx, &dialog.CloseSessionInput{SessionID: view.SessionID})
	s.Require().NoError(err)

	_, err = s.orchestrator.GetSession(s.ctx, &dialog.GetSessionInput{SessionID: view.SessionID})
	s.True(errors.IsNotFound(err))

	_, err = s.orchestrator.CloseSession(s.ctx, &dialog.CloseSessionInput{})
	s.True(errors.IsInvalidArgument(err))
}

func intPtr(v int) *int {
	return &v
}
