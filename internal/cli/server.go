package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizquest-service/internal/app"
	"quizquest-service/internal/config"
	"quizquest-service/internal/domain"
	"quizquest-service/internal/importer"
	"quizquest-service/internal/infra/memory"
	"quizquest-service/internal/infra/postgres"
	redisstore "quizquest-service/internal/infra/redis"
	"quizquest-service/internal/logging"
	"quizquest-service/internal/metrics"
	transport "quizquest-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends are the storage implementations selected from config.
type backends struct {
	challenges app.ChallengeRepository
	catalog    app.ChallengeCatalog
	attempts   app.AttemptRepository
	profiles   app.ProfileRepository
	matches    app.MatchRepository
	closers    []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends picks Postgres for durable state when configured, Redis for
// shared state and challenge caching when configured, and memory otherwise.
func openBackends(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*backends, error) {
	b := &backends{}
	cacheTTL := config.TTLDuration(cfg.Challenge.CacheTTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var loader memory.ChallengeLoader
	switch {
	case cfg.Postgres.URL != "":
		db := openBunDB(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := migrateDB(ctx, db, log); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		store := postgres.NewStore(db)
		loader = postgres.NewChallengeLoader(pool)
		b.catalog, b.attempts, b.profiles, b.matches = store, store, store, store
		log.Info("using postgres storage")
	default:
		seed, err := seedChallenges(cfg.Challenge.SeedFile)
		if err != nil {
			b.Close()
			return nil, err
		}
		catalog := memory.NewChallengeStore(seed...)
		loader = catalog
		b.catalog = catalog
		if redisClient != nil {
			b.attempts = redisstore.NewAttemptStore(redisClient)
			b.profiles = redisstore.NewProfileStore(redisClient)
			b.matches = redisstore.NewMatchStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
			log.Info("using redis storage")
		} else {
			b.attempts = memory.NewAttemptStore()
			b.profiles = memory.NewProfileStore()
			b.matches = memory.NewMatchStore()
			log.Info("using in-memory storage")
		}
	}

	if redisClient != nil {
		b.challenges = redisstore.NewChallengeRepository(redisClient, loader, cacheTTL)
	} else {
		b.challenges = memory.NewChallengeRepository(loader, cacheTTL)
	}
	return b, nil
}

func seedChallenges(path string) ([]domain.Challenge, error) {
	if path == "" {
		return sampleChallenges(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	challenges, err := domain.DecodeChallenges(data)
	if err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range challenges {
		if challenges[i].ID == "" {
			challenges[i].ID = fmt.Sprintf("seed-%d", i+1)
		}
	}
	return challenges, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	feed := app.NewLeaderboardFeed()
	opts := []app.Option{app.WithLogger(log), app.WithMetrics(m), app.WithLeaderboardFeed(feed)}
	submissions := app.NewSubmissionService(b.challenges, b.catalog, b.attempts, b.profiles, opts...)
	matches := app.NewMatchService(b.challenges, b.attempts, b.matches, b.profiles, opts...)

	fetcher := importer.NewOpenTDB(cfg.Import.OpenTDBURL, nil)
	if cfg.Import.Token == "" {
		log.Warn("import token not configured; import endpoints are disabled")
	}
	api := transport.NewHandler(submissions, matches, fetcher, cfg.Import.Token, log)
	ws := transport.NewWSHandler(submissions, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, ws, m, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quizquest service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleChallenges seeds the in-memory catalog when no seed file is configured.
func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{
			ID:          "capitals-1",
			Title:       "European Capitals",
			Description: "Name the capital city.",
			Theme:       "geography",
			Difficulty:  domain.DifficultyEasy,
			CreatorUID:  "system",
			IsPublished: true,
			CreatedAt:   time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC),
			Questions: []domain.Question{
				{
					ID:     "q1",
					Text:   "What is the capital of France?",
					Points: 10,
					Body:   domain.MultipleChoice{Options: []string{"Lyon", "Paris", "Nice", "Lille"}, CorrectAnswer: 1},
				},
				{
					ID:     "q2",
					Text:   "What is the capital of Germany?",
					Points: 10,
					Body:   domain.ShortAnswer{AcceptableAnswers: []string{"Berlin"}},
				},
				{
					ID:     "q3",
					Text:   "Name the Nordic capitals.",
					Points: 20,
					Body: domain.ForcedRecall{Entries: []domain.TableEntry{
						{EntryID: "e1", Label: "Sweden", AcceptableAnswers: []string{"Stockholm"}, Points: 5, Order: 1},
						{EntryID: "e2", Label: "Norway", AcceptableAnswers: []string{"Oslo"}, Points: 5, Order: 2},
						{EntryID: "e3", Label: "Finland", AcceptableAnswers: []string{"Helsinki"}, Points: 5, Order: 3},
						{EntryID: "e4", Label: "Denmark", AcceptableAnswers: []string{"Copenhagen"}, Points: 5, Order: 4},
					}},
				},
			},
		},
	}
}
