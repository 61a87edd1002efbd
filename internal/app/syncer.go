package app

import (
	"context"
	"time"

	"github.com/yourusername/suno-sync-go/internal/domain"
	"go.uber.org/zap"
)

// SyncOutcome says how a sync run terminated.
type SyncOutcome string

const (
	// SyncClean - nothing missing (and, in poll mode, the last fetch was
	// known complete).
	SyncClean SyncOutcome = "clean"
	// SyncStalled - cycles stopped making progress before the missing set
	// was cleared.
	SyncStalled SyncOutcome = "stalled"
	// SyncCancelled - cooperative stop honored between items/cycles.
	SyncCancelled SyncOutcome = "cancelled"
)

// SyncOptions are the per-run knobs of the drain/poll loop.
type SyncOptions struct {
	Once          bool
	DryRun        bool
	StopWhenClean bool
	MaxPerCycle   int // 0 = all currently-missing clips
	MaxIdleCycles int // 0 = never stall out in poll mode
	PollInterval  time.Duration
}

// SyncResult carries per-run counters. They live only for the run; nothing
// here is authoritative for the next one.
type SyncResult struct {
	Cycles    int
	Attempted int
	Succeeded int
	Failed    int
	Outcome   SyncOutcome
}

// Syncer is the drain/poll download loop. Every cycle re-derives the missing
// set from a fresh cache and directory snapshot - no prior "downloaded"
// ledger suppresses an item, so manually deleted files are retried. The
// ledger only filters out clips that kept failing this session.
type Syncer struct {
	reconciler *Reconciler
	downloader domain.ClipDownloader
	attempts   domain.AttemptRepository
	logger     *zap.Logger
	outDir     string
	runID      string
	perClipCap int
}

// NewSyncer creates a drain/poll loop. maxRetries bounds how many failed
// cycles a single clip may accumulate before it stops being planned
// (0 = unbounded).
func NewSyncer(reconciler *Reconciler, downloader domain.ClipDownloader, attempts domain.AttemptRepository, logger *zap.Logger, outDir, runID string, maxRetries int) *Syncer {
	perClipCap := maxRetries
	if perClipCap <= 0 {
		perClipCap = int(^uint(0) >> 1)
	}
	return &Syncer{
		reconciler: reconciler,
		downloader: downloader,
		attempts:   attempts,
		logger:     logger,
		outDir:     outDir,
		runID:      runID,
		perClipCap: perClipCap,
	}
}

// Run executes drain or poll cycles until a termination condition is met.
// Credential failures abort immediately with an error; every other outcome
// is reported in the result.
func (s *Syncer) Run(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	res := &SyncResult{}
	idle := 0

	for {
		select {
		case <-ctx.Done():
			res.Outcome = SyncCancelled
			return res, ctx.Err()
		default:
		}

		res.Cycles++
		rec, err := s.reconciler.Reconcile()
		if err != nil {
			return res, err
		}

		plan, err := s.plan(rec, opts.MaxPerCycle)
		if err != nil {
			return res, err
		}

		s.logger.Info("Sync cycle",
			zap.Int("cycle", res.Cycles),
			zap.Int("missing", len(rec.Missing)),
			zap.Int("planned", len(plan)),
			zap.Int("local_files", rec.LocalFiles))

		succeeded, err := s.runPlan(ctx, plan, opts.DryRun, res)
		if err != nil {
			return res, err
		}

		if succeeded == 0 {
			idle++
		} else {
			idle = 0
		}

		// Termination checks run against a fresh snapshot: a concurrent
		// fetch process may have grown the cache while we downloaded.
		after, err := s.reconciler.Reconcile()
		if err != nil {
			return res, err
		}
		remaining := len(after.Missing)

		if opts.Once {
			if remaining == 0 {
				res.Outcome = SyncClean
				return res, nil
			}
			if len(plan) == 0 || succeeded == 0 {
				s.logger.Warn("Drain made no progress, stopping",
					zap.Int("remaining_missing", remaining))
				res.Outcome = SyncStalled
				return res, nil
			}
			continue
		}

		if opts.StopWhenClean && remaining == 0 && s.lastFetchComplete() {
			s.logger.Info("No missing files and fetch reported complete, stopping")
			res.Outcome = SyncClean
			return res, nil
		}

		if opts.MaxIdleCycles > 0 && idle >= opts.MaxIdleCycles {
			s.logger.Warn("Reached max idle cycles, stopping",
				zap.Int("max_idle_cycles", opts.MaxIdleCycles))
			res.Outcome = SyncStalled
			return res, nil
		}

		select {
		case <-time.After(opts.PollInterval):
		case <-ctx.Done():
			res.Outcome = SyncCancelled
			return res, ctx.Err()
		}
	}
}

// plan takes up to limit missing clips, skipping those whose failure count
// already reached the per-clip cap.
func (s *Syncer) plan(rec *domain.Reconciliation, limit int) ([]domain.MissingClip, error) {
	if limit <= 0 {
		limit = len(rec.Missing)
	}

	var plan []domain.MissingClip
	for _, m := range rec.Missing {
		if len(plan) >= limit {
			break
		}
		count, err := s.attempts.FailureCount(m.ID)
		if err != nil {
			return nil, err
		}
		if count >= s.perClipCap {
			continue
		}
		plan = append(plan, m)
	}
	return plan, nil
}

// runPlan attempts each planned clip, updating the ledger as it goes, and
// returns how many succeeded. In-flight downloads finish before a stop is
// honored; the atomic-rename contract cleans up anything interrupted harder
// than that.
func (s *Syncer) runPlan(ctx context.Context, plan []domain.MissingClip, dryRun bool, res *SyncResult) (int, error) {
	succeeded := 0
	for _, m := range plan {
		select {
		case <-ctx.Done():
			return succeeded, nil
		default:
		}

		if dryRun {
			s.logger.Info("Dry run: would download",
				zap.String("clip_id", m.ID),
				zap.String("filename", m.Filename))
			continue
		}

		res.Attempted++
		err := s.downloader.Download(ctx, m.Clip, m.Filename)
		if err != nil {
			if domain.IsAuthError(err) {
				return succeeded, err
			}
			res.Failed++
			s.logger.Warn("Clip download failed",
				zap.String("clip_id", m.ID),
				zap.String("filename", m.Filename),
				zap.Error(err))
			if lerr := s.attempts.RecordFailure(m.ID, err.Error()); lerr != nil {
				s.logger.Error("Failed to record failure", zap.Error(lerr))
			}
			if lerr := s.attempts.RecordDownload(domain.NewDownloadRecord(m.Clip, m.Filename, s.runID, domain.OutcomeFailed, err)); lerr != nil {
				s.logger.Error("Failed to record download", zap.Error(lerr))
			}
			continue
		}

		succeeded++
		res.Succeeded++
		s.logger.Info("Downloaded clip",
			zap.String("clip_id", m.ID),
			zap.String("filename", m.Filename))
		if lerr := s.attempts.ClearFailures(m.ID); lerr != nil {
			s.logger.Error("Failed to clear failures", zap.Error(lerr))
		}
		if lerr := s.attempts.RecordDownload(domain.NewDownloadRecord(m.Clip, m.Filename, s.runID, domain.OutcomeCompleted, nil)); lerr != nil {
			s.logger.Error("Failed to record download", zap.Error(lerr))
		}
	}
	return succeeded, nil
}

// lastFetchComplete reads the persisted summary: in two-process operation the
// fetcher may be a different process, so its view of feed completeness is
// shared through the report file.
func (s *Syncer) lastFetchComplete() bool {
	sum, err := LoadSummary(s.outDir)
	return err == nil && sum != nil && sum.CompleteAPIFetch
}
