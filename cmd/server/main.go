package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/jobfeed/internal/api"
	"github.com/baxromumarov/jobfeed/internal/config"
	"github.com/baxromumarov/jobfeed/internal/core"
	"github.com/baxromumarov/jobfeed/internal/discovery"
	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/lock"
	"github.com/baxromumarov/jobfeed/internal/scraper"
	"github.com/baxromumarov/jobfeed/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobStore, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.RunMigrations)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer jobStore.Close()

	runLock, closeLock, err := newLock(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to set up run lock", "error", err)
		os.Exit(1)
	}
	defer closeLock()

	profile := scraper.DefaultProfile(cfg.Source.Name)
	profile.DetailPathPrefix = cfg.Source.DetailPathPrefix
	extractors, err := profile.Compile()
	if err != nil {
		slog.Error("invalid extraction profile", "source", cfg.Source.Name, "error", err)
		os.Exit(1)
	}

	fetcher := httpx.NewCollyFetcher(httpx.Options{
		UserAgent:     cfg.Scrape.UserAgent,
		Timeout:       cfg.Scrape.FetchTimeout,
		RatePerSecond: cfg.Scrape.RatePerSecond,
		RespectRobots: cfg.Scrape.RespectRobots,
	})

	pipeline := core.NewPipeline(
		core.PipelineConfig{
			Source:            cfg.Source.Name,
			SitemapURL:        cfg.Source.SitemapURL,
			ListingURL:        cfg.Source.ListingURL,
			DesiredCount:      cfg.Scrape.DesiredCount,
			SitemapMaxAgeDays: cfg.Scrape.SitemapMaxAgeDays,
			SitemapMaxCount:   cfg.Scrape.SitemapMaxCount,
		},
		fetcher,
		discovery.NewSitemapDiscoverer(fetcher, profile.DetailPathPrefix),
		discovery.NewListingWalker(fetcher, extractors.Cards, cfg.Scrape.PageDelay),
		extractors.Detail,
		core.NewRefresher(jobStore, core.RefreshMode(cfg.Scrape.RefreshMode)),
	)

	scheduler := core.NewScheduler(pipeline, runLock, core.SchedulerConfig{
		Interval:     cfg.Scrape.Interval,
		StartupDelay: cfg.Scrape.StartupDelay,
		Limits:       core.RunLimits{Pages: cfg.Scrape.PageLimit},
	})
	listings := core.NewListingService(jobStore, cfg.Source.Name, scheduler, core.RunLimits{
		Pages:        cfg.Scrape.BootstrapPageLimit,
		SitemapCount: cfg.Scrape.BootstrapSitemapMaxCount,
	}, 0)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(listings).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		slog.Info("starting server", "port", cfg.Port, "source", cfg.Source.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// newLock returns a Redis lease lock when REDIS_URL is set and an in-process
// lock otherwise.
func newLock(ctx context.Context, cfg config.RedisConfig) (lock.Lock, func(), error) {
	if cfg.URL == "" {
		return lock.NewLocal(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.Info("using redis run lock", "key", cfg.LockKey, "ttl", cfg.LockTTL)
	return lock.NewRedisLock(client, cfg.LockKey, cfg.LockTTL), func() { client.Close() }, nil
}
