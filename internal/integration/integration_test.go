package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
	pgloader "quiz-room-service/internal/infra/postgres"
	pgmigrations "quiz-room-service/internal/infra/postgres/migrations"
	infraredis "quiz-room-service/internal/infra/redis"
)

func TestQuestionBankRoomEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateQuestionBank(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)
	require.NoError(t, loader.SaveQuiz(ctx, sampleQuiz()))

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	quiz, err := quizRepo.GetQuiz(ctx, "capitals")
	require.NoError(t, err)
	assert.Equal(t, "Capitals", quiz.Title)
	require.Len(t, quiz.Questions, 2)
	assert.JSONEq(t, `{"question":"Capital of France?","options":["Paris","Rome"],"correct":0}`, string(quiz.Questions[0]))

	_, err = quizRepo.GetQuiz(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	mirror := infraredis.NewRoomMirror(redisClient, time.Hour)
	writer := app.NewMirrorWriter(mirror, 16, zerolog.Nop())
	writerCtx, stopWriter := context.WithCancel(ctx)
	defer stopWriter()
	go writer.Run(writerCtx)

	coord := app.NewCoordinator(memory.NewRoomRegistry(), zerolog.Nop(),
		app.WithMirror(writer),
		app.WithPinSource(func() string { return "482913" }),
	)
	_, err = coord.CreateRoom("h", quiz.Questions, quiz.TimeLimit)
	require.NoError(t, err)
	_, err = coord.JoinRoom("a", "482913", "Alice")
	require.NoError(t, err)
	_, err = coord.StartQuiz("h", "482913")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, ok, err := mirror.LoadRoom(ctx, "482913")
		return err == nil && ok && snap.IsStarted && len(snap.Players) == 2
	}, 5*time.Second, 50*time.Millisecond)

	coord.Disconnect("h")
	require.Eventually(t, func() bool {
		_, ok, err := mirror.LoadRoom(ctx, "482913")
		return err == nil && !ok
	}, 5*time.Second, 50*time.Millisecond)
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

func migrateQuestionBank(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "capitals",
		Title: "Capitals",
		Questions: domain.QuestionList{
			json.RawMessage(`{"question":"Capital of France?","options":["Paris","Rome"],"correct":0}`),
			json.RawMessage(`{"question":"Capital of Japan?","options":["Tokyo","Seoul"],"correct":0}`),
		},
		TimeLimit: 30,
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
