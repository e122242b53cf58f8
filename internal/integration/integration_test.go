package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"enem-simulado-service/internal/app"
	"enem-simulado-service/internal/domain"
	"enem-simulado-service/internal/infra/memory"
	pgstore "enem-simulado-service/internal/infra/postgres"
	pgmigrations "enem-simulado-service/internal/infra/postgres/migrations"
	"github.com/jackc/pgx/v4/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAttemptLifecycleOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()
	applyMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewProgressStore(pool)
	source := memory.NewStaticQuestionSource([]domain.Exam{{Year: 2020}})
	source.Add(2020, domain.Matematica, sampleQuestions(2020, domain.QuestionsPerAttempt))
	service := app.NewSimuladoService(store, source)

	if _, err := service.RegisterUser(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := service.StartAttempt(ctx, "u1", 2020, "matematica", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(result.Questions) != domain.QuestionsPerAttempt {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerAttempt, len(result.Questions))
	}

	// One wrong answer costs a life, the rest complete the attempt.
	feedback, err := service.SubmitAnswer(ctx, "u1", result.Questions[0].QuestionID, "B")
	if err != nil {
		t.Fatalf("submit wrong: %v", err)
	}
	if feedback.Correct || feedback.Lives != domain.MaxLives-1 {
		t.Fatalf("expected life lost, got %+v", feedback)
	}
	for _, q := range result.Questions[1:] {
		if feedback, err = service.SubmitAnswer(ctx, "u1", q.QuestionID, "A"); err != nil {
			t.Fatalf("submit %s: %v", q.QuestionID, err)
		}
	}
	if !feedback.Completed || feedback.Score == nil || *feedback.Score != domain.QuestionsPerAttempt-1 {
		t.Fatalf("expected completed attempt with score %d, got %+v", domain.QuestionsPerAttempt-1, feedback)
	}

	// The persisted document survives a fresh store instance.
	detail, err := app.NewSimuladoService(pgstore.NewProgressStore(pool), source).
		GetAttemptDetails(ctx, "u1", "matematica", "", 1)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if detail.Status != domain.AttemptCompleted {
		t.Fatalf("expected completed attempt, got %s", detail.Status)
	}
}

func TestOptimisticConcurrencyOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()
	applyMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewProgressStore(pool)
	if err := store.Create(ctx, domain.NewUserProgress("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, version, err := store.LoadForUpdate(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second := first.Clone()

	first.Points = 1
	if err := store.Commit(ctx, first, version); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second.Points = 2
	if err := store.Commit(ctx, second, version); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSweepOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()
	applyMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewProgressStore(pool)
	now := time.Now().UTC().Truncate(time.Second)

	due := now.Add(-time.Minute)
	hurt := domain.NewUserProgress("hurt")
	hurt.Lives = 2
	hurt.NextLifeAt = &due
	if err := store.Create(ctx, hurt); err != nil {
		t.Fatalf("create hurt: %v", err)
	}
	if err := store.Create(ctx, domain.NewUserProgress("full")); err != nil {
		t.Fatalf("create full: %v", err)
	}

	sweeper := app.NewLivesSweeperWithClock(store, time.Hour, func() time.Time { return now })
	updated, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated user, got %d", updated)
	}

	progress, _, err := store.LoadForUpdate(ctx, "hurt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if progress.Lives != 3 {
		t.Fatalf("expected 3 lives after sweep, got %d", progress.Lives)
	}
}

func sampleQuestions(year, n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			QuestionID: fmt.Sprintf("%d-%d", year, i),
			Index:      i,
			Year:       year,
			Alternatives: []domain.Alternative{
				{Letter: "A", Text: "certa"},
				{Letter: "B", Text: "errada"},
			},
			CorrectAlternative: "A",
		}
	}
	return questions
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "simulado", "POSTGRES_PASSWORD": "simuladopass", "POSTGRES_DB": "simuladodb"},
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
	dsn := fmt.Sprintf("postgres://simulado:simuladopass@%s:%s/simuladodb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
