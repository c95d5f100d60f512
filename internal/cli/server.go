package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
	pgloader "quiz-room-service/internal/infra/postgres"
	infraredis "quiz-room-service/internal/infra/redis"
	transport "quiz-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	// Rooms live in this process only; the engine outlives the HTTP server
	// so in-flight disconnects still land during shutdown.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	maxAge := config.TTLDuration(cfg.Rooms.MaxAge, app.DefaultMaxRoomAge)
	opts := []app.Option{app.WithMaxRoomAge(maxAge)}
	if redisClient != nil {
		mirrorTTL := config.TTLDuration(cfg.Redis.TTL, maxAge)
		writer := app.NewMirrorWriter(infraredis.NewRoomMirror(redisClient, mirrorTTL), 1024, log)
		go writer.Run(engineCtx)
		opts = append(opts, app.WithMirror(writer))
	}

	hub := transport.NewHub(log)
	coord := app.NewCoordinator(memory.NewRoomRegistry(), log, opts...)
	engine := app.NewEngine(coord, hub,
		config.TTLDuration(cfg.Rooms.SweepInterval, app.DefaultSweepInterval), log)
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(engineCtx)
	}()

	gateway := transport.NewGateway(engine, hub, quizRepo, transport.GatewayConfig{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		MessagesPerSecond: cfg.Gateway.MessagesPerSecond,
		Burst:             cfg.Gateway.Burst,
		SendBuffer:        cfg.Gateway.SendBuffer,
	}, log)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(gateway),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting quiz room service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	case err := <-serveErr:
		log.Error().Err(err).Msg("server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)

	stopEngine()
	<-engineDone
	return err
}

// sampleQuizzes is served when no question bank database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"sample": {
			ID:    "sample",
			Title: "Warm-up",
			Questions: domain.QuestionList{
				json.RawMessage(`{"question":"What is 2 + 2?","options":["3","4","5","22"],"correct":1}`),
				json.RawMessage(`{"question":"Which planet is known as the Red Planet?","options":["Venus","Mars","Jupiter","Mercury"],"correct":1}`),
				json.RawMessage(`{"question":"What is the capital of Japan?","options":["Seoul","Beijing","Tokyo","Bangkok"],"correct":2}`),
			},
			TimeLimit: 20,
		},
	}
}
