package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"oshiquiz/internal/app"
	"oshiquiz/internal/config"
	rediscache "oshiquiz/internal/infra/redis"
	transport "oshiquiz/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

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

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := newCatalogCache(redisClient, store, cfg)

	hub := app.NewLeaderboardHub()
	rankings := app.NewRankingService(cache, store, store, store, app.Limits{
		Rankings: cfg.Quiz.RankingsLimit,
		Popular:  cfg.Quiz.PopularLimit,
		Max:      cfg.Quiz.MaxLimit,
	})
	stats := app.NewStatsAggregator(store, config.TTLDuration(cfg.Stats.RetryMaxElapsed, 2*time.Second))
	quizzes := app.NewQuizService(cache, app.NewAttemptRecorder(store), stats, rankings, hub)
	catalog := app.NewCatalogService(store, cache, store)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(
			transport.NewAPI(quizzes, catalog, cfg.Quiz.DefaultUserID),
			transport.NewWSHandler(quizzes),
		),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if redisClient != nil {
		relay := rediscache.NewLeaderboardRelay(redisClient, hub)
		quizzes.WithRelay(relay)
		g.Go(func() error { return relay.Run(gctx) })
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
