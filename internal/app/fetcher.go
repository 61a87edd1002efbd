package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/suno-sync-go/internal/domain"
	"go.uber.org/zap"
)

// Head-sync outcomes recorded in the fetch result and summary report.
const (
	HeadSyncDisabled    = "disabled_by_flag"
	HeadSyncSkipped     = "skipped"
	HeadSyncRefreshMode = "skipped_refresh_mode"
	HeadSyncEmptyCache  = "empty_cache"
	HeadSyncFeedEmpty   = "feed_empty"
	HeadSyncNoOverlap   = "no_overlap_refresh"
	HeadSyncShifted     = "shifted"
	HeadSyncUpToDate    = "up_to_date"
)

// FetchResult describes how a fetch run ended.
type FetchResult struct {
	Complete    bool
	StopReason  string
	LastPage    int
	HeadSync    string
	HeadShifted int
}

// Fetcher walks the remote feed page by page, populating the page store.
// Cached complete pages are reused; gaps and the head of the feed are fetched
// live with retry/backoff. Partial failures leave the cache intact and the
// result marked incomplete; only credential errors abort.
type Fetcher struct {
	store  domain.PageStore
	client domain.FeedClient
	cfg    domain.FetchConfig
	policy domain.RetryPolicy
	logger *zap.Logger
}

// NewFetcher creates a feed fetcher.
func NewFetcher(store domain.PageStore, client domain.FeedClient, cfg domain.FetchConfig, policy domain.RetryPolicy, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		store:  store,
		client: client,
		cfg:    cfg,
		policy: policy,
		logger: logger,
	}
}

// Run performs one fetch pass: an optional head-sync against the newest live
// pages, then a full scan from page zero. With refresh set the cache is
// cleared first and everything is fetched live.
func (f *Fetcher) Run(ctx context.Context, refresh bool) (*FetchResult, error) {
	res := &FetchResult{HeadSync: HeadSyncSkipped}

	switch {
	case refresh:
		if err := f.store.Clear(); err != nil {
			return res, fmt.Errorf("failed to clear cache: %w", err)
		}
		res.HeadSync = HeadSyncRefreshMode
	case f.cfg.HeadSyncPages <= 0:
		res.HeadSync = HeadSyncDisabled
	default:
		status, shifted, err := f.headSync(ctx)
		if err != nil {
			res.StopReason = stopReasonFor(err, 0)
			return res, err
		}
		res.HeadSync = status
		res.HeadShifted = shifted
		if status == HeadSyncNoOverlap {
			f.logger.Warn("No cache overlap in live head pages, falling back to full refresh",
				zap.Int("head_sync_pages", f.cfg.HeadSyncPages))
			if err := f.store.Clear(); err != nil {
				return res, fmt.Errorf("failed to clear cache: %w", err)
			}
		}
	}

	return f.fullScan(ctx, res)
}

// fullScan walks pages from zero until the terminal page, a cap, or a
// failure. Cached complete pages short-circuit the network.
func (f *Fetcher) fullScan(ctx context.Context, res *FetchResult) (*FetchResult, error) {
	page := 0
	for {
		res.LastPage = page

		if f.cfg.MaxPages > 0 && page >= f.cfg.MaxPages {
			res.StopReason = fmt.Sprintf("max_pages_reached:%d", f.cfg.MaxPages)
			return res, nil
		}

		cached, err := f.store.Get(page)
		if err != nil {
			return res, err
		}
		if cached != nil && cached.Complete {
			if cached.IsTerminal() {
				res.Complete = true
				res.StopReason = fmt.Sprintf("end_of_feed_page:%d", page)
				return res, nil
			}
			f.logger.Debug("Loaded page from cache",
				zap.Int("page", page),
				zap.Int("clips", len(cached.Clips)))
			page++
			continue
		}

		clips, err := f.fetchLive(ctx, page)
		if err != nil {
			res.StopReason = stopReasonFor(err, page)
			if domain.IsAuthError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			// Retry exhaustion or a permanent HTTP error on one page leaves
			// a partial cache; the run itself carries on to reporting.
			f.logger.Error("Giving up on page", zap.Int("page", page), zap.Error(err))
			return res, nil
		}

		if err := f.store.Put(domain.NewPage(page, clips)); err != nil {
			return res, err
		}

		if len(clips) == 0 {
			f.logger.Info("Reached end of feed", zap.Int("page", page))
			res.Complete = true
			res.StopReason = fmt.Sprintf("end_of_feed_page:%d", page)
			return res, nil
		}

		f.logger.Info("Fetched page", zap.Int("page", page), zap.Int("clips", len(clips)))
		page++
	}
}

// headSync probes the newest live pages and pushes the cache forward when the
// feed has grown. It collects the live prefix until it meets a clip id the
// cache already knows (the anchor), then prepends that prefix. Cached ids are
// never dropped here, so the known set only grows.
func (f *Fetcher) headSync(ctx context.Context) (string, int, error) {
	cached, _, err := loadClips(f.store)
	if err != nil {
		return "", 0, err
	}
	if len(cached) == 0 {
		return HeadSyncEmptyCache, 0, nil
	}

	cachedIDs := make(map[string]bool, len(cached))
	for _, c := range cached {
		cachedIDs[c.ID] = true
	}

	var prefix []domain.Clip
	anchored := false
	for page := 0; page < f.cfg.HeadSyncPages && !anchored; page++ {
		batch, err := f.fetchLive(ctx, page)
		if err != nil {
			return "", 0, err
		}
		if len(batch) == 0 {
			// The live feed is empty: everything cached is gone remotely.
			if err := f.rewriteCache(nil); err != nil {
				return "", 0, err
			}
			return HeadSyncFeedEmpty, len(cached), nil
		}
		for _, c := range batch {
			if c.ID != "" && cachedIDs[c.ID] {
				anchored = true
				break
			}
			prefix = append(prefix, c)
		}
	}

	if !anchored {
		return HeadSyncNoOverlap, 0, nil
	}

	merged := domain.DedupeClips(append(prefix, cached...))
	shifted := len(merged) - len(cached)
	if shifted > 0 {
		if err := f.rewriteCache(merged); err != nil {
			return "", 0, err
		}
		f.logger.Info("Head sync inserted new clips at the front", zap.Int("shifted", shifted))
		return HeadSyncShifted, shifted, nil
	}
	return HeadSyncUpToDate, 0, nil
}

// rewriteCache replaces the whole cache with the given clip list, chunked
// into fixed-size pages and closed with a terminal marker.
func (f *Fetcher) rewriteCache(clips []domain.Clip) error {
	if err := f.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache for rewrite: %w", err)
	}

	pageSize := f.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	index := 0
	for start := 0; start < len(clips); start += pageSize {
		end := start + pageSize
		if end > len(clips) {
			end = len(clips)
		}
		if err := f.store.Put(domain.NewPage(index, clips[start:end])); err != nil {
			return err
		}
		index++
	}
	return f.store.Put(domain.TerminalPage(index))
}

// fetchLive retrieves one page with the retry policy, then self-throttles so
// back-to-back page requests do not trip rate limiting.
func (f *Fetcher) fetchLive(ctx context.Context, page int) ([]domain.Clip, error) {
	var clips []domain.Clip
	err := domain.Retry(ctx, f.policy, func() error {
		batch, ferr := f.client.FetchPage(ctx, page)
		if ferr != nil {
			f.logger.Warn("Page fetch attempt failed", zap.Int("page", page), zap.Error(ferr))
			return ferr
		}
		clips = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.throttle(ctx)
	return clips, nil
}

func (f *Fetcher) throttle(ctx context.Context) {
	if f.cfg.Sleep <= 0 {
		return
	}
	select {
	case <-time.After(f.cfg.Sleep):
	case <-ctx.Done():
	}
}

// stopReasonFor renders the summary stop_reason string for a fetch error.
func stopReasonFor(err error, page int) string {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return fmt.Sprintf("auth_failed:%d", ae.StatusCode)
	}
	var re *domain.RetryExceededError
	if errors.As(err, &re) {
		return fmt.Sprintf("max_retries_exceeded_page:%d", page)
	}
	var se *domain.HTTPStatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("http_%d_page:%d", se.StatusCode, page)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return fmt.Sprintf("fetch_failed_page:%d", page)
}
