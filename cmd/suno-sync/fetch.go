package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/domain"
	"github.com/yourusername/suno-sync-go/internal/infrastructure"
	"github.com/yourusername/suno-sync-go/pkg/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the remote feed into the page cache and write reports",
	Run: func(cmd *cobra.Command, args []string) {
		refresh, _ := cmd.Flags().GetBool("refresh")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		headSyncPages, _ := cmd.Flags().GetInt("head-sync-pages")
		failOnPartial, _ := cmd.Flags().GetBool("fail-on-partial")

		config, err := loadConfig()
		if err != nil {
			fatal("Failed to load config: %v", err)
		}
		if cmd.Flags().Changed("max-pages") {
			config.Fetch.MaxPages = maxPages
		}
		if cmd.Flags().Changed("head-sync-pages") {
			config.Fetch.HeadSyncPages = headSyncPages
		}
		if cmd.Flags().Changed("max-retries") {
			config.Fetch.MaxRetries, _ = cmd.Flags().GetInt("max-retries")
		}
		if cmd.Flags().Changed("sleep") {
			config.Fetch.Sleep, _ = cmd.Flags().GetDuration("sleep")
		}
		if cmd.Flags().Changed("max-backoff") {
			config.Fetch.MaxBackoff, _ = cmd.Flags().GetDuration("max-backoff")
		}
		if cmd.Flags().Changed("timeout") {
			config.Feed.Timeout, _ = cmd.Flags().GetDuration("timeout")
		}

		token, err := resolveToken(config)
		if err != nil {
			fatal("%v", err)
		}

		log := newCategoryLogger(config, logger.CategoryFetch)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		code, err := runFetch(ctx, config, token, refresh, failOnPartial, log)
		if err != nil {
			log.Error("Fetch failed", zap.Error(err))
		}
		os.Exit(code)
	},
}

func init() {
	fetchCmd.Flags().Bool("refresh", false, "Discard the page cache and fetch everything live")
	fetchCmd.Flags().Int("max-pages", 0, "Stop after this many pages (0 = no cap)")
	fetchCmd.Flags().Int("head-sync-pages", 5, "Live pages to probe for new clips at the feed head (0 = disable)")
	fetchCmd.Flags().Int("max-retries", 12, "Retry attempts per page (0 = unbounded)")
	fetchCmd.Flags().Duration("sleep", time.Second, "Base backoff and inter-request throttle")
	fetchCmd.Flags().Duration("max-backoff", 2*time.Minute, "Backoff ceiling")
	fetchCmd.Flags().Duration("timeout", 20*time.Second, "Per-request timeout")
	fetchCmd.Flags().Bool("fail-on-partial", false, "Exit non-zero when the fetch did not reach the end of the feed")
}

// runFetch performs one fetch pass plus reconciliation and report writing,
// returning the process exit code.
func runFetch(ctx context.Context, config *domain.Config, token string, refresh, failOnPartial bool, log *zap.Logger) (int, error) {
	outDir := config.Fetch.OutDir
	cacheDir := config.Fetch.ResolvedCacheDir()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 1, fmt.Errorf("failed to create output directory: %w", err)
	}

	store, err := infrastructure.NewFilePageStore(cacheDir)
	if err != nil {
		return 1, err
	}

	client := infrastructure.NewHTTPFeedClient(config.Feed.BaseURL, token, config.Feed.Timeout)
	fetcher := app.NewFetcher(store, client, config.Fetch, config.FetchRetryPolicy(), log)
	reconciler := app.NewReconciler(store, outDir)
	runID := newRunID()

	log.Info("Starting fetch",
		zap.String("run_id", runID),
		zap.String("out_dir", outDir),
		zap.String("cache_dir", cacheDir),
		zap.Bool("refresh", refresh))

	res, ferr := fetcher.Run(ctx, refresh)

	// Reconcile and persist reports even after a failed fetch: a partial
	// cache is still a valid basis for downloading what it covers.
	rec, err := reconciler.Reconcile()
	if err != nil {
		return 1, err
	}

	sum := app.BuildSummary(runID, res, rec, outDir, cacheDir)
	if err := app.NewReportWriter(outDir).Write(sum, rec); err != nil {
		return 1, err
	}

	log.Info("Fetch finished",
		zap.Bool("complete", res.Complete),
		zap.String("stop_reason", res.StopReason),
		zap.Int("last_page", res.LastPage),
		zap.String("head_sync", res.HeadSync),
		zap.Int("clips_unique", len(rec.Clips)),
		zap.Int("missing", len(rec.Missing)),
		zap.Int("extra", len(rec.Extra)))

	if ferr != nil {
		if domain.IsAuthError(ferr) {
			return exitAuthFailure, ferr
		}
		return 1, ferr
	}
	if failOnPartial && !res.Complete {
		return exitPartialFetch, nil
	}
	return exitOK, nil
}
