// Command apcc runs maintenance tasks against the APU Code Collab database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apu-code-collab/apcc-api/internal/config"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// store is the database surface the commands need.
type store interface {
	Migrate(ctx context.Context) error
	Seed(ctx context.Context, target string) ([]service.SeedResult, error)
	Close()
}

// openStore connects to the database. Replaced in tests.
var openStore = func(ctx context.Context, databaseURL string) (store, error) {
	db, err := repository.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &dbStore{db: db, seeder: service.NewSeeder(repository.NewRepositories(db))}, nil
}

type dbStore struct {
	db     *repository.DB
	seeder *service.Seeder
}

func (s *dbStore) Migrate(ctx context.Context) error { return s.db.Migrate(ctx) }

func (s *dbStore) Seed(ctx context.Context, target string) ([]service.SeedResult, error) {
	return s.seeder.Run(ctx, target)
}

func (s *dbStore) Close() { s.db.Close() }

var databaseURL string

var rootCmd = &cobra.Command{
	Use:           "apcc",
	Short:         "APU Code Collab maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		utils.InitLogger(config.EnvDevelopment, "apcc-cli")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
}

// connect opens the store named by --database-url or the environment.
func connect(ctx context.Context) (store, error) {
	url := databaseURL
	if url == "" {
		url = config.Load().DatabaseURL
	}
	return openStore(ctx, url)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
