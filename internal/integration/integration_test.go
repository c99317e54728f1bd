package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/infra/memory"
	pgloader "anxiety-quiz-bot/internal/infra/postgres"
	infraredis "anxiety-quiz-bot/internal/infra/redis"
	"anxiety-quiz-bot/internal/infra/sqlstore"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := sqlstore.OpenPostgres(pgURL)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.New(db, time.UTC)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuestionnaireLoader(pool)
	if err := loader.SaveQuestionnaire(ctx, sampleQuestionnaire()); err != nil {
		t.Fatalf("seed questionnaire: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	cache := infraredis.NewQuestionnaireCache(redisClient, loader, 5*time.Minute)
	questions := memory.NewQuestionnaireRepository("anxiety", cache, time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(sessions, questions, store, nil)

	users := []struct {
		user    domain.User
		answers []string
		want    domain.ResultType
	}{
		{domain.User{ID: 1, Username: "alice"}, []string{"A", "A", "A", "A"}, domain.ResultCalm},
		{domain.User{ID: 2, Username: "bob"}, []string{"A", "A", "A", "A"}, domain.ResultCalm},
		{domain.User{ID: 3, Username: "carol"}, []string{"B", "B", "C", "B"}, domain.ResultCatastrophizer},
	}
	for _, u := range users {
		if err := service.StartAttempt(ctx, u.user); err != nil {
			t.Fatalf("start %d: %v", u.user.ID, err)
		}
		for i, label := range u.answers {
			if err := service.RecordAnswer(ctx, u.user.ID, i+1, label); err != nil {
				t.Fatalf("answer %d/%d: %v", u.user.ID, i+1, err)
			}
		}
		result, err := service.Finalize(ctx, u.user.ID)
		if err != nil {
			t.Fatalf("finalize %d: %v", u.user.ID, err)
		}
		if result.Type != u.want {
			t.Fatalf("user %d: expected %s, got %s", u.user.ID, u.want, result.Type)
		}
		if _, err := service.Finalize(ctx, u.user.ID); err != domain.ErrAlreadyFinalized {
			t.Fatalf("expected already finalized, got %v", err)
		}
	}

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Today != 3 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.Distribution[domain.ResultCalm] != 2 || stats.Distribution[domain.ResultCatastrophizer] != 1 {
		t.Fatalf("unexpected distribution %+v", stats.Distribution)
	}

	results, err := service.Results(ctx, 3)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || results[0].Answers[3] != "C" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestionnaire() domain.Questionnaire {
	options := []string{"Stay calm", "Expect the worst", "Assume they judge me", "Redo it until perfect"}
	return domain.Questionnaire{
		ID:    "anxiety",
		Title: "Integration",
		Questions: []domain.Question{
			{Ordinal: 1, Prompt: "A late reply.", Options: options},
			{Ordinal: 2, Prompt: "A call from the boss.", Options: options},
			{Ordinal: 3, Prompt: "A quiet friend.", Options: options},
			{Ordinal: 4, Prompt: "A typo.", Options: options},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
