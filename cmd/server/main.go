package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"docvault/internal/platform/config"
	"docvault/internal/platform/httpserver"
	"docvault/internal/platform/logger"
)

// main loads configuration, wires the services and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docvault: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := httpserver.New(cfg.Addr, app.router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting docvault",
			"addr", cfg.Addr,
			"storage", app.storage,
			"notify_mode", cfg.Notify.Mode,
			"audit_failure_mode", cfg.Audit.FailureMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if app.sweeper != nil {
		g.Go(func() error {
			log.Info("grant expiry sweep enabled", "interval", cfg.Grant.SweepInterval.String())
			if err := app.sweeper.Start(gctx, cfg.Grant.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("docvault stopped", "error", err)
		return err
	}
	return nil
}

// applyFlags lets the most common settings be overridden on the command line.
// Flags win over DOCVAULT_* variables.
func applyFlags(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("docvault", pflag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Database.URL, "db-url", cfg.Database.URL, "Postgres URL; empty keeps every store in memory")
	fs.StringVar(&cfg.Database.Driver, "db-driver", cfg.Database.Driver, "pgx or postgres")
	fs.BoolVar(&cfg.Database.Migrate, "migrate", cfg.Database.Migrate, "apply the schema on start")
	fs.StringVar(&cfg.Redis.URL, "redis-url", cfg.Redis.URL, "Redis URL for the revocation cache")
	fs.StringVar(&cfg.Notify.Mode, "notify-mode", cfg.Notify.Mode, "kafka, log or none")
	fs.StringSliceVar(&cfg.Notify.Brokers, "kafka-brokers", cfg.Notify.Brokers, "Kafka seed brokers")
	fs.StringVar(&cfg.Audit.FailureMode, "audit-failure-mode", cfg.Audit.FailureMode, "best_effort or fail_closed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return cfg.Validate()
}
