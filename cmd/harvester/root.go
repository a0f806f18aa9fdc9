package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askthws/harvester/internal/blob"
	"github.com/askthws/harvester/internal/clock/system"
	"github.com/askthws/harvester/internal/config"
	"github.com/askthws/harvester/internal/crawl"
	"github.com/askthws/harvester/internal/logging"
	"github.com/askthws/harvester/internal/stats"
	"github.com/askthws/harvester/internal/store"
)

const version = "0.4.0"

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Crawls institutional web domains into a searchable document store",
		Long: `harvester walks the configured domains, extracts the main content of
HTML pages, and archives PDF and iCal documents. Results land in Postgres,
with oversized payloads diverted to a blob store. A small HTTP server
exposes live statistics while the crawl runs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cfgFile)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (defaults plus HARVESTER_* env vars when omitted)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints the harvester version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "askthws-harvester %s\n", version)
		},
	})
	return cmd
}

func runHarvest(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		FileEnabled: cfg.Logging.FileEnabled,
		FilePath:    cfg.Logging.FilePath,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := blob.Open(ctx, cfg.Storage.BlobConfig())
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	pipeline, err := store.New(ctx, store.Config{
		DSN:           cfg.DB.DSN(),
		PagesTable:    cfg.DB.PagesTable,
		FilesTable:    cfg.DB.FilesTable,
		MaxConns:      cfg.DB.MaxConns,
		BlobThreshold: cfg.Storage.ThresholdBytes,
	}, blobs, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	clk := system.New()
	reporter := stats.NewReporter(runID, clk)

	statsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           stats.NewServer(reporter, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("stats server listening", zap.String("addr", statsSrv.Addr))
		if err := statsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stats server failed", zap.Error(err))
		}
	}()

	ctrl, err := crawl.New(crawl.Config{
		Seeds:              cfg.Crawler.Seeds,
		AllowedDomains:     cfg.Crawler.AllowedDomains,
		UserAgent:          cfg.Crawler.UserAgent,
		Concurrency:        cfg.Crawler.Concurrency,
		Timeout:            cfg.Crawler.Timeout(),
		Retries:            cfg.Crawler.Retries,
		RedirectLimit:      cfg.Crawler.RedirectLimit,
		Delay:              cfg.Crawler.Delay(),
		MaxBodySize:        cfg.Crawler.MaxBodySizeMB << 20,
		IgnoredURLPatterns: cfg.Crawler.IgnoredURLPatterns,
		SoftErrorStrings:   cfg.Crawler.SoftErrorStrings,
		RespectRobots:      cfg.Crawler.RespectRobots,
		RobotsBypassPrefix: cfg.Crawler.RobotsBypassPrefix,
		ParseWorkers:       cfg.Crawler.ParseWorkers,
		ParseQueueDepth:    cfg.Crawler.ParseQueueDepth,
	}, pipeline, reporter, clk, logger)
	if err != nil {
		return fmt.Errorf("build crawler: %w", err)
	}

	logger.Info("crawl starting",
		zap.Strings("seeds", cfg.Crawler.Seeds),
		zap.Strings("allowed_domains", cfg.Crawler.AllowedDomains))

	runErr := ctrl.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawler: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := statsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("stats server shutdown failed", zap.Error(err))
	}

	snap := reporter.Snapshot()
	logger.Info("crawl finished",
		zap.Int64("html", snap.Totals[stats.CounterHTML]),
		zap.Int64("pdf", snap.Totals[stats.CounterPDF]),
		zap.Int64("ical", snap.Totals[stats.CounterICal]),
		zap.Int64("errors", snap.Totals[stats.CounterErrors]),
		zap.Int64("empty", snap.Totals[stats.CounterEmpty]),
		zap.Int64("ignored", snap.Totals[stats.CounterIgnored]),
		zap.String("bytes", stats.FormatBytes(snap.Totals[stats.CounterBytes])))

	if cfg.Stats.CSVEnabled {
		path, err := stats.ExportCSV(cfg.Stats.CSVDir, snap)
		if err != nil {
			logger.Warn("stats export failed", zap.Error(err))
		} else {
			logger.Info("stats exported", zap.String("path", path))
		}
	}

	return nil
}
