package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/config"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/infra/memory"
	pgloader "anxiety-quiz-bot/internal/infra/postgres"
	infraredis "anxiety-quiz-bot/internal/infra/redis"
	"anxiety-quiz-bot/internal/infra/sqlstore"
	"anxiety-quiz-bot/internal/logging"
	"anxiety-quiz-bot/internal/telemetry"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// deps is everything a command needs, built from config.
type deps struct {
	cfg      config.Config
	log      *slog.Logger
	store    *sqlstore.Store
	redis    *redis.Client
	pool     *pgxpool.Pool
	sessions app.SessionRepository
	memory   *memory.SessionStore
	service  *app.QuizService
}

func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(os.Stderr, cfg)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newLogger(out io.Writer, cfg config.Config) *slog.Logger {
	return logging.New(out, cfg.Log.Level, cfg.Log.Format)
}

// openStore connects the answer store and brings its schema up to date.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*sqlstore.Store, error) {
	db, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, cfg.Location()), nil
}

func buildDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *deps, err error) {
	d := &deps{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	d.store, err = openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := telemetry.MonitorRedis(d.redis, log); err != nil {
			return nil, fmt.Errorf("monitor redis: %w", err)
		}
	}

	idleTTL := config.TTLDuration(cfg.Session.IdleTTL, 24*time.Hour)
	if d.redis != nil {
		d.sessions = infraredis.NewSessionStore(d.redis, config.TTLDuration(cfg.Redis.TTL, idleTTL))
	} else {
		d.memory = memory.NewSessionStore(idleTTL)
		d.sessions = d.memory
	}

	loader, err := d.questionnaireLoader(ctx)
	if err != nil {
		return nil, err
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	questions := memory.NewQuestionnaireRepository(cfg.Quiz.ID, loader, quizTTL)
	if _, err := questions.GetQuestionnaire(ctx); err != nil {
		return nil, fmt.Errorf("load questionnaire %q: %w", cfg.Quiz.ID, err)
	}

	d.service = app.NewQuizService(d.sessions, questions, d.store, log)
	return d, nil
}

func (d *deps) questionnaireLoader(ctx context.Context) (memory.QuestionnaireLoader, error) {
	var loader memory.QuestionnaireLoader
	switch d.cfg.Quiz.Source {
	case config.SourceBuiltin:
		loader = memory.NewStaticQuestionnaireLoader(defaultQuestionnaire(d.cfg.Quiz.ID))
	case config.SourceFile:
		q, err := loadQuestionnaireFile(d.cfg)
		if err != nil {
			return nil, err
		}
		loader = memory.NewStaticQuestionnaireLoader(q)
	case config.SourcePostgres:
		pool, err := d.postgresPool(ctx)
		if err != nil {
			return nil, err
		}
		loader = pgloader.NewQuestionnaireLoader(pool)
	default:
		return nil, fmt.Errorf("unknown questionnaire source %q", d.cfg.Quiz.Source)
	}

	if d.redis != nil {
		loader = infraredis.NewQuestionnaireCache(d.redis, loader, config.TTLDuration(d.cfg.Quiz.TTL, 10*time.Minute))
	}
	return loader, nil
}

// loadQuestionnaireFile reads quiz.questions_file and files it under quiz.id.
func loadQuestionnaireFile(cfg config.Config) (domain.Questionnaire, error) {
	q, err := memory.LoadQuestionnaireFile(cfg.Quiz.QuestionsFile)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	q.ID = cfg.Quiz.ID
	return q, nil
}

func (d *deps) postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	if d.pool != nil {
		return d.pool, nil
	}
	url := postgresURL(d.cfg)
	if url == "" {
		return nil, errors.New("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	d.pool = pool
	return pool, nil
}

func postgresURL(cfg config.Config) string {
	if cfg.Postgres.URL != "" {
		return cfg.Postgres.URL
	}
	if cfg.Store.Driver == sqlstore.DriverPostgres {
		return cfg.Store.DSN
	}
	return ""
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
}
