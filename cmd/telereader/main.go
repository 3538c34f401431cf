package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telereader/internal/config"
	"telereader/internal/constants"
	"telereader/internal/models"
	"telereader/internal/retry"
	"telereader/internal/service"
	"telereader/internal/storage"
	"telereader/internal/timeutil"
	"telereader/internal/tracing"
	"telereader/pkg/telegram"
	"telereader/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	mode        = flag.String("mode", "realtime", "Ingestion mode: realtime, backfill or interval")
	fromFlag    = flag.String("from", "", "Interval start (partial dates allowed, e.g. 2024-03 or 2024-03-01T15)")
	toFlag      = flag.String("to", "", "Interval end (partial dates allowed)")
	channels    = flag.String("channels", "", "Comma-separated channel list overriding the config file")
	catchUp     = flag.Bool("catch-up", false, "Before realtime ingestion, fetch messages missed while down")
	configPath  = flag.String("config", "config.json", "Path to configuration file")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("telereader %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
		"mode":    *mode,
	}).Info("Starting telereader")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *channels != "" {
		override := config.ParseChannelList(*channels)
		if len(override) == 0 {
			return fmt.Errorf("-channels produced an empty channel list")
		}
		cfg.Channels = override
	}

	configureLogLevel(logger, cfg.LogLevel)

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize storage with exponential backoff: the backend may still
	// be coming up when we are.
	var store storage.Store
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultBackoffInitialMs * time.Millisecond,
		MaxDelay:     constants.DefaultBackoffMaxMs * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultStorageRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		store, initErr = storage.New(ctx, cfg.Storage)
		if initErr != nil {
			logger.Warnf("Failed to initialize storage: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage after retries: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warnf("Failed to close storage: %v", err)
		}
	}()

	client := telegram.NewClientWithLogger(types.ClientConfig{
		BaseURL:      cfg.Source.APIBaseURL,
		WebsocketURL: cfg.Source.WebsocketURL,
		APIToken:     cfg.Source.APIToken,
		Timeout:      time.Duration(cfg.Source.HTTPTimeoutSec) * time.Second,
	}, logger)
	defer client.Close()

	ingester, err := service.NewIngester(cfg, client, store, logger)
	if err != nil {
		return err
	}

	switch *mode {
	case "realtime":
		return runRealtime(ctx, cfg, ingester, logger)

	case "backfill":
		return ingester.RunBackfill(ctx)

	case "interval":
		from, to, err := timeutil.ResolveWindow(*fromFlag, *toFlag, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("invalid interval window: %w", err)
		}
		return ingester.RunInterval(ctx, from, to)

	default:
		return fmt.Errorf("unknown mode: %q", *mode)
	}
}

// runRealtime runs the event-stream ingest alongside the health server.
func runRealtime(ctx context.Context, cfg *models.Config, ingester *service.Ingester, logger *logrus.Logger) error {
	server := NewServer(cfg.Server, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	ingestErr := make(chan error, 1)
	go func() {
		ingestErr <- ingester.RunRealtime(ctx, *catchUp)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("health server failed: %w", err)
	case err := <-ingestErr:
		runErr = err
	case <-ctx.Done():
		// Graceful shutdown: the ingester drains its queues on
		// cancellation; wait for it before stopping the server.
		runErr = <-ingestErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.GracefulShutdownSec)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Failed to shut down health server: %v", err)
	}

	return runErr
}

func configureLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled")
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}
