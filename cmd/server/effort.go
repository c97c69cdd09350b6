package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/numenera-api/internal/effort"
	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/i18n"
)

const (
	flagActorFile = "actor-file"
	flagActorID   = "actor-id"
	flagStat      = "stat"
	flagSkill     = "skill"
	flagEffort    = "effort"
	flagAssets    = "assets"
	flagTaskLevel = "task-level"
	flagLocale    = "locale"
	flagSubmit    = "submit"
)

// newEffortCmd builds the offline calculator command
func newEffortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "effort",
		Short: "Compute a Roll with Effort offline",
		Long: `Run the Effort calculator against an actor from a YAML file and print the
dialog summary: final task level, cost, remaining pool and modifiers.
With --submit the roll request and pool deduction are printed as well.`,
		Example: `  numenera-api effort --actor-file actors.yaml --skill sk_climb --effort 1 --task-level 4`,
		RunE:    runEffort,
	}

	cmd.Flags().String(flagActorFile, "", "YAML file with an actors list")
	cmd.Flags().String(flagActorID, "", "actor to use; optional when the file holds one actor")
	cmd.Flags().String(flagStat, "", "stat to roll (might, speed, intellect)")
	cmd.Flags().String(flagSkill, "", "ID of an owned skill; its stat overrides --stat")
	cmd.Flags().Int(flagEffort, 0, "levels of Effort to apply")
	cmd.Flags().Int(flagAssets, 0, "number of assets")
	cmd.Flags().Int(flagTaskLevel, effort.DefaultTaskLevel, "task difficulty before modifiers")
	cmd.Flags().String(flagLocale, "", "locale of the warning text, e.g. fr-FR")
	cmd.Flags().Bool(flagSubmit, false, "also build the roll request and pool deduction")
	_ = cmd.MarkFlagRequired(flagActorFile)

	return cmd
}

type effortReport struct {
	Actor      string            `yaml:"actor"`
	Stat       string            `yaml:"stat,omitempty"`
	Skill      string            `yaml:"skill,omitempty"`
	TaskLevel  int               `yaml:"taskLevel"`
	Effort     int               `yaml:"effort"`
	Assets     int               `yaml:"assets"`
	FinalLevel int               `yaml:"finalLevel"`
	Cost       int               `yaml:"cost"`
	Current    *int              `yaml:"current,omitempty"`
	Remaining  *int              `yaml:"remaining,omitempty"`
	Modifiers  []modifierReport  `yaml:"modifiers,omitempty"`
	Warning    string            `yaml:"warning,omitempty"`
	Submission *submissionReport `yaml:"submission,omitempty"`
	Rejection  string            `yaml:"rejection,omitempty"`
}

type modifierReport struct {
	Title string `yaml:"title"`
	Value string `yaml:"value"`
}

type submissionReport struct {
	EffortLevel    int              `yaml:"effortLevel"`
	FinalTaskLevel int              `yaml:"finalTaskLevel"`
	Skill          string           `yaml:"skill,omitempty"`
	Stat           string           `yaml:"stat"`
	Deduction      *deductionReport `yaml:"deduction,omitempty"`
}

type deductionReport struct {
	Path     string `yaml:"path"`
	NewValue int    `yaml:"newValue"`
}

func runEffort(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	path, _ := flags.GetString(flagActorFile)
	actors, err := loadActorFile(path)
	if err != nil {
		return err
	}

	actorID, _ := flags.GetString(flagActorID)
	actor, err := findActor(actors, actorID)
	if err != nil {
		return err
	}

	rawStat, _ := flags.GetString(flagStat)
	stat, ok := numenera.ParseStat(rawStat)
	if !ok {
		return errors.InvalidArgumentf("unknown stat %q", rawStat)
	}

	skillID, _ := flags.GetString(flagSkill)
	var skill *numenera.Skill
	if skillID != "" {
		if skill = actor.Skill(skillID); skill == nil {
			return errors.InvalidArgumentf("actor %s does not have skill %s", actor.ID, skillID)
		}
	}

	edit := effort.Edit{SkillID: skillID, Stat: stat}
	edit.CurrentEffort, _ = flags.GetInt(flagEffort)
	edit.Assets, _ = flags.GetInt(flagAssets)
	edit.TaskLevel, _ = flags.GetInt(flagTaskLevel)

	if edit.CurrentEffort < 0 || edit.CurrentEffort > actor.Effort {
		return errors.InvalidArgumentf("effort must be between 0 and %d", actor.Effort)
	}
	if edit.Assets < 0 {
		return errors.InvalidArgument("assets cannot be negative")
	}
	if edit.TaskLevel < 1 {
		return errors.InvalidArgument("task level must be at least 1")
	}

	cfg := effort.NewRollConfiguration(stat, skill)
	effort.ApplyEdit(cfg, edit, actor)

	report := newEffortReport(actor, cfg, effort.Summarize(cfg, actor))

	if locale, _ := flags.GetString(flagLocale); locale != "" && report.Warning != "" {
		catalog, err := i18n.LoadEmbedded()
		if err != nil {
			return err
		}
		report.Warning = catalog.Localize(locale, effort.WarningKey(effort.ValidateAffordability(cfg, actor)))
	}

	if submit, _ := flags.GetBool(flagSubmit); submit {
		submission, err := effort.SubmitRoll(cfg, actor)
		if err != nil {
			report.Rejection = errors.GetMessage(err)
		} else {
			report.Submission = newSubmissionReport(submission)
		}
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return nil
}

func newEffortReport(actor *numenera.Actor, cfg *effort.RollConfiguration, summary *effort.Summary) *effortReport {
	report := &effortReport{
		Actor:      actor.ID,
		Stat:       cfg.Stat.Short(),
		TaskLevel:  cfg.TaskLevel,
		Effort:     cfg.CurrentEffort,
		Assets:     cfg.Assets,
		FinalLevel: summary.FinalLevel,
		Cost:       summary.Cost,
		Current:    summary.Current,
		Remaining:  summary.Remaining,
		Warning:    summary.Warning,
	}
	if cfg.Skill != nil {
		report.Skill = cfg.Skill.ID
	}
	for _, m := range summary.Modifiers {
		report.Modifiers = append(report.Modifiers, modifierReport(m))
	}
	return report
}

func newSubmissionReport(submission *effort.Submission) *submissionReport {
	out := &submissionReport{
		EffortLevel:    submission.Request.EffortLevel,
		FinalTaskLevel: submission.Request.FinalTaskLevel,
		Stat:           submission.Request.Target.Stat.Short(),
	}
	if submission.Request.Target.IsSkill() {
		out.Skill = submission.Request.Target.Skill.ID
	}
	if d := submission.Deduction; d != nil {
		out.Deduction = &deductionReport{Path: d.Path, NewValue: d.NewValue}
	}
	return out
}
