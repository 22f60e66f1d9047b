package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/file"
	"trivia-quiz-service/internal/infra/memory"
	pginfra "trivia-quiz-service/internal/infra/postgres"
	redisinfra "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/logging"
	"trivia-quiz-service/internal/match"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(zerolog.InfoLevel)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader catalogue.Loader = memory.NewStaticCatalogueLoader(sampleRecords())
	if pool != nil {
		loader = pginfra.NewCatalogueLoader(pool)
	}
	if redisClient != nil {
		catalogueTTL := config.Duration(cfg.Catalogue.TTL, 10*time.Minute)
		loader = redisinfra.NewCatalogueLoader(redisClient, loader, catalogueTTL)
	}

	// The engine is useless without questions; refuse to start instead.
	cat, err := catalogue.Load(ctx, loader)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}
	log.Info().Int("questions", cat.Len()).Msg("catalogue loaded")

	var ratings app.RatingStore = memory.NewRatingStore()
	switch {
	case redisClient != nil:
		ratings = redisinfra.NewRatingStore(redisClient)
	case cfg.Ratings.Path != "":
		ratings, err = file.NewRatingStore(cfg.Ratings.Path)
		if err != nil {
			return fmt.Errorf("open rating store: %w", err)
		}
	}

	opts, err := buildOptions(cfg.Quiz)
	if err != nil {
		return err
	}

	hub := transport.NewHub(log)
	service := app.NewQuizService(app.NewRegistry(), cat, ratings, hub, hub, opts, log)
	hub.SetService(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", hub.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting trivia quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildOptions resolves config presets into engine options, rejecting any
// preset with an unknown matching mode.
func buildOptions(quiz config.Quiz) (app.Options, error) {
	difficulties := make(map[string]app.DifficultySpec)
	for name, preset := range quiz.DifficultiesOrDefault() {
		mode, ok := match.ParseMode(preset.Mode)
		if !ok {
			return app.Options{}, fmt.Errorf("difficulty %q: unknown matching mode %q", name, preset.Mode)
		}
		difficulties[name] = app.DifficultySpec{
			Mode:             mode,
			TimeBetweenHints: config.Duration(preset.TimeBetweenHints, 20*time.Second),
			MaxHints:         preset.MaxHints,
			Description:      preset.Description,
		}
	}

	return app.Options{
		Difficulties: difficulties,
		DefaultLangs: quiz.DefaultLangsOrFallback(),
		LangsByGuild: quiz.LangsByGuild,
		Tunables: app.Tunables{
			PollPeriod:           config.Duration(quiz.PollPeriod, time.Second),
			TimeBetweenQuestions: config.Duration(quiz.TimeBetweenQuestions, 10*time.Second),
			RegistrationWindow:   config.Duration(quiz.RegistrationWindow, 30*time.Second),
			CloseAnswerWindow:    config.Duration(quiz.CloseAnswerWindow, time.Second),
		},
	}, nil
}

// sampleRecords is a minimal built-in catalogue; configure postgres to serve
// the real game tables in production.
func sampleRecords() []catalogue.Record {
	return []catalogue.Record{
		{
			Vnum:       289,
			ImageName1: "sword_plus_9.png",
			Year:       2004,
			Names:      map[string]string{"fr": "Épée+0", "en": "Sword+0"},
		},
		{
			Vnum:       1101,
			IsMonster:  true,
			ImageName1: "wild_dog.png",
			ImageName2: "wild_dog_alt.png",
			Year:       2004,
			Names:      map[string]string{"fr": "Chien sauvage", "en": "Wild Dog"},
		},
		{
			Vnum:       11209,
			ImageName1: "monk_armor.png",
			Year:       2006,
			Names:      map[string]string{"fr": "Armure de moine", "en": "Monk Armor"},
		},
	}
}
