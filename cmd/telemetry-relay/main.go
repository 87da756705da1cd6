// Package main implements the entry point for the surveillance robot
// telemetry relay. The relay subscribes to the robot's telemetry topics,
// keeps a recent-history cache in Redis, persists sensor rows to PostgreSQL
// in batches, and republishes operator commands back to the robot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abbas701/Surveillance-robot/config"
	"github.com/abbas701/Surveillance-robot/history"
	"github.com/abbas701/Surveillance-robot/metric"
	"github.com/abbas701/Surveillance-robot/natsclient"
	"github.com/abbas701/Surveillance-robot/service"
	"github.com/abbas701/Surveillance-robot/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "telemetry-relay"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting telemetry relay",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return runWithSignalHandling(ctx, svc, cliCfg.ShutdownTimeout)
}

// buildService connects the backends and assembles the relay
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreConnectTimeout())
	defer cancel()

	slog.Info("Connecting to durable store",
		"host", cfg.Store.Host, "database", cfg.Store.Database)
	st, err := store.Connect(connectCtx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	metrics := metric.New(prometheus.NewRegistry())

	cache := history.New(cfg.Cache.Addr, cfg.Cache.MaxEntries, cfg.CacheTTL(),
		history.WithLogger(logger),
		history.WithErrorHook(metrics.CacheErrors.Inc))

	client, err := natsclient.NewClient(cfg.Broker.URL,
		natsclient.WithClientName(appName),
		natsclient.WithMaxReconnects(cfg.Broker.MaxReconnects),
		natsclient.WithReconnectWait(time.Duration(cfg.Broker.ReconnectWait)*time.Millisecond),
		natsclient.WithConnectTimeout(time.Duration(cfg.Broker.ConnectWait)*time.Millisecond),
		natsclient.WithMessageTimeout(time.Duration(cfg.Broker.MessageTimeout)*time.Millisecond),
		natsclient.WithLogger(natsclient.SlogAdapter{L: logger}),
		natsclient.WithReconnectCallback(metrics.BrokerReconnects.Inc),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create broker client: %w", err)
	}

	svc, err := service.New(cfg, client, st, cache,
		service.WithLogger(logger),
		service.WithMetrics(metrics),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("assemble relay: %w", err)
	}

	return svc, nil
}

// runWithSignalHandling starts the relay and blocks until shutdown
func runWithSignalHandling(ctx context.Context, svc *service.Service, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := svc.Start(signalCtx); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}
	slog.Info("Telemetry relay started")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := svc.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("Telemetry relay shutdown complete")
	return nil
}
