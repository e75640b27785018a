package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbitshield/cachesync/internal/api"
	"github.com/orbitshield/cachesync/internal/config"
	"github.com/orbitshield/cachesync/internal/metadata"
	"github.com/orbitshield/cachesync/internal/remote"
	"github.com/orbitshield/cachesync/internal/store"
	"github.com/orbitshield/cachesync/internal/syncer"
)

// Version is set at build time via -ldflags
var Version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("cachesyncd %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = config.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting cachesyncd", "version", Version, "cache_dir", cfg.Cache.Dir)

	if !cfg.IsConfigured() {
		return fmt.Errorf("supabase url and key must be set (CACHESYNC_SUPABASE_URL, CACHESYNC_SUPABASE_KEY)")
	}

	snapshots := store.NewFileStore(cfg.Cache.Dir, logger)
	meta, err := metadata.NewBoltStore(cfg.MetadataPath(), cfg.Cache.Dir, snapshots, logger)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer meta.Close()

	fetcher := remote.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.PageSize, logger)
	orch := syncer.NewOrchestrator(fetcher, snapshots, meta, cfg.Supabase.FetchTimeout, logger)
	resolver := syncer.NewResolver(orch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the cache before serving. Per-table failures are tolerated:
	// with the remote down we still serve whatever was cached before.
	logger.Info("running startup sync")
	summary := orch.SyncAll(ctx)
	logger.Info("startup sync finished", "total_records", summary.Total)

	svc := api.NewService(orch, resolver, snapshots, meta, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, svc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("admin api listening", "addr", cfg.Server.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin api: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	logger.Info("stopped")
	return nil
}
