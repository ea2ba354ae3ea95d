// The bot binary runs the attendance Telegram bot: long-polling front-end,
// browser-backed fetch workers, and the operational HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
	"github.com/vijay-2155/VignanEcap/internal/browser"
	"github.com/vijay-2155/VignanEcap/internal/config"
	"github.com/vijay-2155/VignanEcap/internal/infrastructure"
	"github.com/vijay-2155/VignanEcap/internal/pipeline"
	"github.com/vijay-2155/VignanEcap/internal/portal"
	"github.com/vijay-2155/VignanEcap/internal/store"
	"github.com/vijay-2155/VignanEcap/internal/telegram"
	transporthttp "github.com/vijay-2155/VignanEcap/internal/transport/http"
)

const rendererCacheSize = 32

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to ECAP_CONFIG_FILE, then ./config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	credStore, err := store.Open(cfg.Store.Path, cfg.Store.SealSecret)
	if err != nil {
		return err
	}
	defer credStore.Close()

	sessions := browser.NewManager(browser.Config{
		Headless:        cfg.Portal.Headless,
		DownloadDir:     cfg.Portal.DownloadDir,
		AcquireAttempts: cfg.Pipeline.RetryAttempts,
		AcquireBackoff:  cfg.Pipeline.RetryBackoff,
	}, logger)

	client := portal.NewClient(cfg.Portal, cfg.Pipeline.RetryAttempts, cfg.Pipeline.RetryBackoff, logger)
	orchestrator := pipeline.NewOrchestrator(sessions, client, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(registry)
	pool := pipeline.NewPool(orchestrator, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, metrics, logger)

	renderer, err := attendance.NewRenderer(rendererCacheSize)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	tgClient := telegram.NewClient(cfg.Telegram.Token)
	bot := telegram.NewBot(tgClient, credStore, pool, renderer, cfg.Telegram.PollingTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := tgClient.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram token check: %w", err)
	}
	logger.Info("bot starting",
		slog.String("bot_username", me.Username),
		slog.Int("workers", cfg.Pipeline.Workers),
		slog.Int("port", cfg.Server.Port),
	)

	server := transporthttp.NewServer(cfg.Server, me.Username, credStore, pool, registry, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe()
	})
	g.Go(func() error {
		err := bot.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", slog.String("error", err.Error()))
		}
		pool.Stop(cfg.Server.ShutdownTimeout)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("bot stopped")
	return nil
}
