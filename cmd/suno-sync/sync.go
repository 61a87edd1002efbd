package main

import (
	"context"
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

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download missing tracks until the local directory matches the cache",
	Long: `Reconciles the page cache against the output directory and downloads
whatever is missing. By default it drains: cycles run back to back until
nothing is missing or a cycle makes no progress. With --poll it keeps
watching, sleeping between cycles, so it can run alongside a fetch process.`,
	Run: func(cmd *cobra.Command, args []string) {
		poll, _ := cmd.Flags().GetBool("poll")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		stopWhenClean, _ := cmd.Flags().GetBool("stop-when-clean")
		maxPerCycle, _ := cmd.Flags().GetInt("max-per-cycle")
		maxIdleCycles, _ := cmd.Flags().GetInt("max-idle-cycles")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		progress, _ := cmd.Flags().GetBool("progress")
		fetchFirst, _ := cmd.Flags().GetBool("fetch-first")
		failOnErrors, _ := cmd.Flags().GetBool("fail-on-download-errors")

		config, err := loadConfig()
		if err != nil {
			fatal("Failed to load config: %v", err)
		}
		if cmd.Flags().Changed("max-per-cycle") {
			config.Sync.MaxPerCycle = maxPerCycle
		}
		if cmd.Flags().Changed("max-idle-cycles") {
			config.Sync.MaxIdleCycles = maxIdleCycles
		}
		if cmd.Flags().Changed("poll-interval") {
			config.Sync.PollInterval = pollInterval
		}
		if progress {
			config.Sync.ShowProgress = true
		}

		token, err := resolveToken(config)
		if err != nil {
			fatal("%v", err)
		}

		log := newCategoryLogger(config, logger.CategorySync)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := app.SyncOptions{
			Once:          !poll,
			DryRun:        dryRun,
			StopWhenClean: stopWhenClean,
			MaxPerCycle:   config.Sync.MaxPerCycle,
			MaxIdleCycles: config.Sync.MaxIdleCycles,
			PollInterval:  config.Sync.PollInterval,
		}

		code, err := runSync(ctx, config, token, opts, fetchFirst, failOnErrors, log)
		if err != nil {
			log.Error("Sync failed", zap.Error(err))
		}
		os.Exit(code)
	},
}

func init() {
	syncCmd.Flags().Bool("poll", false, "Keep polling for new missing tracks instead of draining once")
	syncCmd.Flags().Bool("dry-run", false, "Report what would be downloaded without writing anything")
	syncCmd.Flags().Bool("stop-when-clean", false, "In poll mode, exit once nothing is missing and the last fetch was complete")
	syncCmd.Flags().Int("max-per-cycle", 0, "Cap downloads per cycle (0 = all missing)")
	syncCmd.Flags().Int("max-idle-cycles", 0, "In poll mode, exit after this many cycles without progress (0 = never)")
	syncCmd.Flags().Duration("poll-interval", 5*time.Second, "Sleep between poll cycles")
	syncCmd.Flags().Bool("progress", false, "Show a per-file progress bar")
	syncCmd.Flags().Bool("fetch-first", false, "Run a fetch pass before downloading")
	syncCmd.Flags().Bool("fail-on-download-errors", false, "Exit non-zero when any download failed")
}

// runSync wires the drain/poll loop and returns the process exit code.
func runSync(ctx context.Context, config *domain.Config, token string, opts app.SyncOptions, fetchFirst, failOnErrors bool, log *zap.Logger) (int, error) {
	outDir := config.Fetch.OutDir
	cacheDir := config.Fetch.ResolvedCacheDir()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 1, err
	}

	store, err := infrastructure.NewFilePageStore(cacheDir)
	if err != nil {
		return 1, err
	}

	attempts, err := infrastructure.NewSQLiteAttemptRepository(config.Sync.ResolvedDatabasePath(outDir))
	if err != nil {
		return 1, err
	}
	defer attempts.Close()

	client := infrastructure.NewHTTPFeedClient(config.Feed.BaseURL, token, config.Feed.Timeout)
	downloader := infrastructure.NewHTTPClipDownloader(client, outDir, config.SyncRetryPolicy(), log, config.Sync.ShowProgress)
	reconciler := app.NewReconciler(store, outDir)
	runID := newRunID()

	if fetchFirst {
		fetcher := app.NewFetcher(store, client, config.Fetch, config.FetchRetryPolicy(), log)
		res, ferr := fetcher.Run(ctx, false)
		if rec, rerr := reconciler.Reconcile(); rerr == nil {
			sum := app.BuildSummary(runID, res, rec, outDir, cacheDir)
			if werr := app.NewReportWriter(outDir).Write(sum, rec); werr != nil {
				log.Warn("Failed to write reports", zap.Error(werr))
			}
		}
		if ferr != nil {
			if domain.IsAuthError(ferr) {
				return exitAuthFailure, ferr
			}
			return 1, ferr
		}
	}

	syncer := app.NewSyncer(reconciler, downloader, attempts, log, outDir, runID, config.Sync.MaxRetries)

	log.Info("Starting sync",
		zap.String("run_id", runID),
		zap.String("out_dir", outDir),
		zap.Bool("poll", !opts.Once),
		zap.Bool("dry_run", opts.DryRun))

	res, serr := syncer.Run(ctx, opts)

	log.Info("Sync finished",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("cycles", res.Cycles),
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))

	// Refresh the listing reports so operators see the post-sync state
	// without rerunning a fetch. Fetch-owned summary fields carry over.
	if !opts.DryRun {
		if err := refreshReports(runID, reconciler, outDir, cacheDir); err != nil {
			log.Warn("Failed to refresh reports", zap.Error(err))
		}
	}

	if serr != nil {
		if domain.IsAuthError(serr) {
			return exitAuthFailure, serr
		}
		return 1, serr
	}
	if failOnErrors && res.Failed > 0 {
		return exitDownloadErrors, nil
	}
	return exitOK, nil
}

func refreshReports(runID string, reconciler *app.Reconciler, outDir, cacheDir string) error {
	rec, err := reconciler.Reconcile()
	if err != nil {
		return err
	}

	sum := app.BuildSummary(runID, nil, rec, outDir, cacheDir)
	if prev, err := app.LoadSummary(outDir); err == nil && prev != nil {
		sum.CompleteAPIFetch = prev.CompleteAPIFetch
		sum.StopReason = prev.StopReason
		sum.LastPageReached = prev.LastPageReached
		sum.HeadSync = prev.HeadSync
		sum.HeadShiftedClips = prev.HeadShiftedClips
	}
	return app.NewReportWriter(outDir).Write(sum, rec)
}
