package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hitokoto/internal/config"
	"hitokoto/internal/corpus"
	"hitokoto/internal/db"
	"hitokoto/internal/jobs"
	"hitokoto/internal/metrics"
	"hitokoto/internal/mirror"
	"hitokoto/internal/server"
	"hitokoto/internal/stats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hitokoto",
		Short:        "hitokoto serves random quotes over HTTP.",
		SilenceUsage: true,
	}
	cmd.AddCommand(serveCmd(), migrateCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr      string
		database  string
		useMirror bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ServerAddr = addr
			}
			if cmd.Flags().Changed("database") {
				cfg.DatabaseURL = database
			}
			if cmd.Flags().Changed("mirror") {
				cfg.EnableMemoryMirror = useMirror
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides SERVER_ADDR")
	cmd.Flags().StringVar(&database, "database", "", "database URL, overrides DATABASE_URL")
	cmd.Flags().BoolVar(&useMirror, "mirror", false, "serve from an in-memory SQLite copy of the database")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			database, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.RunMigrations(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			slog.Info("migrations completed successfully")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return cfg, nil
}

// setupLogger installs the default logger: text in development, JSON otherwise.
func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.New(ctx, cfg.DatabaseURL, db.Options{
		MaxConnections: cfg.DBMaxConnections,
		ConnectTimeout: cfg.DBConnectTimeout,
		IdleTimeout:    cfg.DBIdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	store := database
	defer func() { store.Close() }()

	if cfg.RunMigrations {
		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("migrations completed successfully")
	}

	var cacheOpts []corpus.CacheOption
	if !cfg.CacheIdentifiers {
		cacheOpts = append(cacheOpts, corpus.WithoutIdentifiers())
	}

	cache := corpus.NewCache(database, cacheOpts...)
	if cfg.EnableMemoryMirror {
		mirrorDB, mirrorCache, err := mirror.NewLoader(mirror.WithCacheOptions(cacheOpts...)).Load(ctx, database)
		if err != nil {
			slog.Warn("memory mirror unavailable, serving from the database", "error", err)
		} else {
			store, cache = mirrorDB, mirrorCache
			slog.Info("serving from memory mirror", "count", cache.Count())
		}
	}
	if store == database {
		if err := cache.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to load corpus: %w", err)
		}
	}
	minLen, maxLen := cache.LengthBounds()
	slog.Info("corpus loaded", "count", cache.Count(), "min_length", minLen, "max_length", maxLen)

	counter, closeCounter, err := newCounter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCounter()

	recorder := metrics.Init(cache, counter)
	sampler := corpus.NewSampler(store, cache, corpus.WithObserver(recorder))

	var limiterStorage fiber.Storage
	if cfg.RateLimitMax > 0 && cfg.RateLimitRedisURL != "" {
		limiterStorage = server.NewLimiterStorage(cfg.RateLimitRedisURL)
	}
	srv := server.New(cfg, limiterStorage)
	srv.RegisterRoutes(server.Deps{
		Sampler:   sampler,
		Store:     store,
		Cache:     cache,
		Counter:   counter,
		Refreshes: recorder,
		Metrics:   promhttp.Handler(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		return srv.Shutdown(shutdownTimeout)
	})
	if cfg.CacheRefreshInterval > 0 {
		refresher := jobs.NewCacheRefresher(cache, cfg.CacheRefreshInterval, recorder)
		g.Go(func() error {
			refresher.Start(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("server exited")
	return nil
}

// newCounter builds the request counter: shared through Redis when
// STATS_REDIS_URL is set, in process memory otherwise.
func newCounter(ctx context.Context, cfg *config.Config) (stats.Counter, func(), error) {
	var opts []stats.Option
	if cfg.StatsMaxEvents > 0 {
		opts = append(opts, stats.WithMaxEvents(cfg.StatsMaxEvents))
	}

	if cfg.StatsRedisURL == "" {
		return stats.NewMemoryCounter(cfg.StatsWindows, opts...), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.StatsRedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid STATS_REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to stats redis: %w", err)
	}

	slog.Info("request statistics shared through redis", "addr", redisOpts.Addr)
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close stats redis client", "error", err)
		}
	}
	return stats.NewRedisCounter(client, cfg.StatsWindows, "", opts...), closeFn, nil
}
