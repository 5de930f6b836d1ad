package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/db"
)

var migrateNoSeed bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateNoSeed, "no-seed", false, "skip seeding builtin listings")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed listings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg := GetConfig()

		setup := newProgress(3)
		step := setup.Step("Opening database")
		database, err := db.Open(db.Config{Path: cfg.Database.Path})
		if err != nil {
			step.Fail(err)
			return &PreflightError{
				Message: fmt.Sprintf("failed to open database: %v", err),
				Hint:    "Check database.path and directory permissions",
			}
		}
		defer database.Close()
		step.Done()

		step = setup.Step("Applying migrations")
		applied, err := database.MigrateUp(ctx)
		if err != nil {
			step.Fail(err)
			return err
		}
		step.DoneWith(fmt.Sprintf("%d applied", applied))

		version, err := database.SchemaVersion(ctx)
		if err != nil {
			return err
		}

		seeded := 0
		step = setup.Step("Seeding listings")
		if migrateNoSeed {
			step.Skip("--no-seed")
		} else {
			seeded, err = seedListings(ctx, db.NewListingRepository(database))
			if err != nil {
				step.Fail(err)
				return fmt.Errorf("failed to seed listings: %w", err)
			}
			step.DoneWith(fmt.Sprintf("%d listings", seeded))
		}

		result := struct {
			Path    string `json:"path"`
			Applied int    `json:"applied"`
			Version int    `json:"version"`
			Seeded  int    `json:"seeded"`
		}{database.Path(), applied, version, seeded}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, result)
		}
		fmt.Printf("Database: %s\nApplied %d migration(s); schema version %d.\nSeeded %d listing(s).\n",
			result.Path, result.Applied, result.Version, result.Seeded)
		return nil
	},
}
