package cli

import (
	"context"
	"fmt"

	pgloader "anxiety-quiz-bot/internal/infra/postgres"
	"anxiety-quiz-bot/internal/infra/sqlstore"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "store the built-in questionnaire in postgres")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	url := postgresURL(cfg)
	if url != "" && !(cfg.Store.Driver == sqlstore.DriverPostgres && cfg.Store.DSN == url) {
		db, err := sqlstore.OpenPostgres(url)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := sqlstore.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	if !seed {
		return nil
	}
	if url == "" {
		return fmt.Errorf("--seed needs a postgres url")
	}
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	q := defaultQuestionnaire(cfg.Quiz.ID)
	if cfg.Quiz.QuestionsFile != "" {
		if q, err = loadQuestionnaireFile(cfg); err != nil {
			return err
		}
	}
	if err := pgloader.NewQuestionnaireLoader(pool).SaveQuestionnaire(ctx, q); err != nil {
		return err
	}
	log.InfoContext(ctx, "questionnaire seeded", "id", q.ID, "questions", q.Len())
	return nil
}
