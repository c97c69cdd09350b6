package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/numenera-api/internal/redis"
	actorrepo "github.com/KirkDiggler/numenera-api/internal/repositories/actor"
)

const flagFile = "file"

// newSeedCmd builds the command that loads actors from YAML into Redis
func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load actors from a YAML file into Redis",
		Long: `Validate every actor of a YAML file and save it to the actor store.
Existing actors with the same ID are replaced.`,
		RunE: runSeed,
	}

	cmd.Flags().String(flagFile, "", "YAML file with an actors list")
	_ = cmd.MarkFlagRequired(flagFile)
	addRedisFlags(cmd)

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString(flagFile)
	actors, err := loadActorFile(path)
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
	for _, actor := range actors {
		if _, err := repo.Save(ctx, actorrepo.SaveInput{Actor: actor}); err != nil {
			return fmt.Errorf("failed to save actor %s: %w", actor.ID, err)
		}
		slog.Debug("seeded actor", "actor_id", actor.ID, "skills", len(actor.Skills))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d actors from %s\n", len(actors), path)
	return nil
}
