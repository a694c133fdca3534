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

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cooprules/internal/config"
	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/credit"
	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/finance"
	"github.com/alfredjeanlab/cooprules/internal/rules"
	"github.com/alfredjeanlab/cooprules/internal/server"
	"github.com/alfredjeanlab/cooprules/internal/store/postgres"
	coopsync "github.com/alfredjeanlab/cooprules/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the rules engine HTTP server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		schema, err := postgres.SchemaByName(cfg.Schema)
		if err != nil {
			return err
		}
		db, err := postgres.New(cfg.DatabaseURL, postgres.WithSchema(schema))
		if err != nil {
			return err
		}

		publisher, err := newPublisher(cfg, logger)
		if err != nil {
			db.Close()
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		configs := configstore.New(db,
			configstore.WithTTL(cfg.CacheTTL),
			configstore.WithLogger(logger),
			configstore.WithPublisher(publisher),
		)
		if inserted, err := seedDefaults(ctx, configs); err != nil {
			logger.Error("seeding default config failed", "err", err)
		} else if len(inserted) > 0 {
			logger.Info("seeded default config", "count", len(inserted))
		}

		// Create engine components.
		srv := server.New(
			configs,
			rules.New(configs, db, rules.WithLogger(logger)),
			finance.New(configs, db, finance.WithLogger(logger)),
			credit.New(configs, db, credit.WithLogger(logger)),
			server.WithLogger(logger),
		)

		limiter := server.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)
		if limiter != nil {
			go limiter.RunCleanup(ctx, time.Minute)
			logger.Info("rate limiting enabled", "rps", cfg.RateLimit, "burst", cfg.RateBurst)
		}
		if cfg.AuthToken == "" {
			logger.Warn("authentication disabled (COOP_AUTH_TOKEN not set)")
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken, limiter),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
				stop()
			}
		}()

		// Drop the config cache when another instance writes.
		watchDone := make(chan struct{})
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create config subscriber", "err", err)
				close(watchDone)
			} else {
				go func() {
					defer close(watchDone)
					defer sub.Close()
					if err := configs.WatchInvalidations(ctx, sub); err != nil {
						logger.Error("config subscriber error", "err", err)
					}
				}()
				logger.Info("config subscriber started")
			}
		} else {
			close(watchDone)
		}

		// Start snapshot sync if a destination is configured.
		var scheduler *coopsync.Scheduler
		if cfg.SyncInterval > 0 && cfg.SyncS3Bucket != "" {
			dest, err := coopsync.NewS3Destination(ctx, coopsync.S3Options{
				Bucket:   cfg.SyncS3Bucket,
				Key:      cfg.SyncS3Key,
				Region:   cfg.SyncS3Region,
				Endpoint: cfg.SyncS3Endpoint,
			})
			if err != nil {
				logger.Error("failed to create S3 sync destination", "err", err)
			} else {
				scheduler = coopsync.NewScheduler(configs, []coopsync.Destination{dest}, cfg.SyncInterval, logger)
				scheduler.Start(ctx)
				logger.Info("sync scheduler started", "destination", dest.Name(), "interval", cfg.SyncInterval)
			}
		}

		logger.Info("rules engine started", "http_addr", cfg.HTTPAddr, "schema", cfg.Schema)

		<-ctx.Done()
		logger.Info("shutting down")

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		<-watchDone
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := db.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func seedDefaults(ctx context.Context, configs *configstore.Store) ([]string, error) {
	entries, err := configstore.Defaults()
	if err != nil {
		return nil, err
	}
	return configs.Seed(ctx, entries, "system")
}
