package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/apu-code-collab/apcc-api/internal/service"
)

const commandTimeout = 2 * time.Minute

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed {courses|frameworks|languages|all}",
	Short: "Insert the bundled reference data",
	Long: `Inserts the bundled university courses, frameworks and programming
languages. Rows that already exist are skipped, so seeding can be repeated.`,
	ValidArgs: []string{service.SeedCourses, service.SeedFrameworks, service.SeedLanguages, service.SeedAll},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runSeed,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	db, err := connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	cmd.Println("Database schema is up to date.")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	db, err := connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	results, err := db.Seed(ctx, args[0])
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	for _, r := range results {
		cmd.Printf("%-10s added %d, skipped %d\n", r.Target, r.Added, r.Skipped)
	}
	return nil
}
