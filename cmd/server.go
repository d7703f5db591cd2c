package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book-review/config"
	"book-review/database"
	"book-review/handlers"
	"book-review/logging"
	"book-review/metrics"
	"book-review/middleware"
	"book-review/services"
	"book-review/utils"

	"github.com/spf13/cobra"
)

const (
	limiterCleanupInterval = time.Minute
	storeCloseTimeout      = 10 * time.Second
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Migrate the store and run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log, err := newLogger(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServer(ctx, cfg, log)
		},
	}
}

// runServer opens the configured store and serves until ctx is done.
func runServer(ctx context.Context, cfg *config.AppConfig, log logging.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(store, storeCloseTimeout); err != nil {
			log.Error(context.Background(), "close store", "error", err)
		}
	}()

	return serve(ctx, cfg, store, log)
}

// serve applies the store migrations, which create the username and
// (book, user) unique constraints, then wires the services around store and
// serves until ctx is done.
func serve(ctx context.Context, cfg *config.AppConfig, store database.DatabaseDriver, log logging.Logger) error {
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info(ctx, "store migrated", "driver", cfg.StoreDriver)

	m := metrics.New()
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	h := handlers.NewHandler(handlers.Dependencies{
		Auth:    services.NewAuthService(store, tokens, log),
		Books:   services.NewBookService(store, store, log),
		Reviews: services.NewReviewService(store, store, log),
		Store:   store,
		Logger:  log,
		Metrics: m,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log, m)
		limiter.StartCleanup(ctx, limiterCleanupInterval)
	}

	router := handlers.NewRouter(h, handlers.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateLimiter: limiter,
	})

	log.Info(ctx, "starting book review api",
		"version", Version,
		"store", cfg.StoreDriver,
		"rate_limit_rps", cfg.RateLimitRPS,
	)
	return handlers.Serve(ctx, cfg.Addr(), router, log)
}
