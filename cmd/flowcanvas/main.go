// Package main implements the entry point for the flowcanvas backend: the
// editor service, flow persistence on NATS JetStream KV, metrics, and
// graceful shutdown plumbing.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/flowcanvas/catalog"
	"github.com/c360/flowcanvas/config"
	"github.com/c360/flowcanvas/flowstore"
	"github.com/c360/flowcanvas/metric"
	"github.com/c360/flowcanvas/natsclient"
	"github.com/c360/flowcanvas/service"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "flowcanvas"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over file and environment
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting flowcanvas",
		"version", Version,
		"addr", cfg.Server.Addr,
		"nats_url", cfg.NATS.URL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithClientName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(metricsRegistry.CoreMetrics()),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer natsClient.Close(context.Background())

	store, err := flowstore.NewStore(natsClient)
	if err != nil {
		return fmt.Errorf("create flow store: %w", err)
	}

	editorService, err := service.NewEditorService(store, catalog.NewRegistry(), cfg.Editor,
		service.WithLogger(logger),
		service.WithMetrics(metricsRegistry),
		service.WithNATS(natsClient),
	)
	if err != nil {
		return fmt.Errorf("create editor service: %w", err)
	}

	mux := http.NewServeMux()
	editorService.RegisterHTTPHandlers("/api/v1/", mux)
	mux.Handle("GET /metrics", metricsRegistry.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := editorService.Health()
		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, `{"component":%q,"status":%q}`+"\n", status.Component, status.Status)
	})

	if err := editorService.Start(ctx); err != nil {
		return fmt.Errorf("start editor service: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cliCfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown failed", "error", err)
		}
		return editorService.Stop(cliCfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
