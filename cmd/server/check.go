package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/redis"
	actorrepo "github.com/KirkDiggler/numenera-api/internal/repositories/actor"
)

const flagDelete = "delete"

// newCheckCmd builds the command that scans stored actors for bad records
func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan stored actors for corrupted or invalid records",
		Long: `Read every actor in Redis and report records that no longer decode or that
break the sheet rules the Effort dialog relies on (pool above its max,
negative Edge, unknown skill stat). With --delete the bad records are removed.`,
		RunE: runCheck,
	}

	cmd.Flags().Bool(flagDelete, false, "delete the actors that fail the check")
	addRedisFlags(cmd)

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	redisClient, err := newRedisClient(v)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	if err := redis.Ping(cmd.Context(), redisClient); err != nil {
		return err
	}

	repo, err := actorrepo.NewRedisRepository(&actorrepo.Config{Client: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create actor repository: %w", err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	deleteBad, _ := cmd.Flags().GetBool(flagDelete)

	list, err := repo.ListIDs(ctx, actorrepo.ListIDsInput{})
	if err != nil {
		return err
	}

	var bad []string
	for _, id := range list.IDs {
		problem := checkActor(ctx, repo, id)
		if problem == nil {
			continue
		}

		bad = append(bad, id)
		fmt.Fprintf(out, "✗ %s: %v\n", id, problem)

		if deleteBad {
			if _, err := repo.Delete(ctx, actorrepo.DeleteInput{ID: id}); err != nil {
				return fmt.Errorf("failed to delete actor %s: %w", id, err)
			}
			slog.Info("deleted invalid actor", "actor_id", id)
		}
	}

	fmt.Fprintf(out, "checked %d actors, %d invalid\n", len(list.IDs), len(bad))

	if len(bad) > 0 && !deleteBad {
		return errors.FailedPreconditionf("%d invalid actors; rerun with --%s to remove them", len(bad), flagDelete)
	}
	return nil
}

func checkActor(ctx context.Context, repo actorrepo.Repository, id string) error {
	got, err := repo.Get(ctx, actorrepo.GetInput{ID: id})
	if err != nil {
		return err
	}
	return got.Actor.Validate()
}
