package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/suno-sync-go/internal/domain"
	"go.uber.org/zap"
)

// memPageStore implements domain.PageStore in memory for testing
type memPageStore struct {
	pages map[int]*domain.Page
}

func newMemPageStore() *memPageStore {
	return &memPageStore{pages: make(map[int]*domain.Page)}
}

func (s *memPageStore) Get(index int) (*domain.Page, error) {
	page, ok := s.pages[index]
	if !ok {
		return nil, nil
	}
	return page, nil
}

func (s *memPageStore) Put(page *domain.Page) error {
	s.pages[page.Index] = page
	return nil
}

func (s *memPageStore) Indices() ([]int, error) {
	indices := make([]int, 0, len(s.pages))
	for idx := range s.pages {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

func (s *memPageStore) IsFullyFetched() (bool, error) {
	terminal := -1
	for idx, page := range s.pages {
		if page.IsTerminal() && (terminal == -1 || idx < terminal) {
			terminal = idx
		}
	}
	if terminal == -1 {
		return false, nil
	}
	for i := 0; i < terminal; i++ {
		if _, ok := s.pages[i]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *memPageStore) Clear() error {
	s.pages = make(map[int]*domain.Page)
	return nil
}

// stubFeedClient implements domain.FeedClient against fixed in-memory pages.
// Pages beyond the configured ones come back empty.
type stubFeedClient struct {
	pages map[int][]domain.Clip
	errs  map[int]error
	calls map[int]int
}

func newStubFeedClient() *stubFeedClient {
	return &stubFeedClient{
		pages: make(map[int][]domain.Clip),
		errs:  make(map[int]error),
		calls: make(map[int]int),
	}
}

func (c *stubFeedClient) FetchPage(ctx context.Context, index int) ([]domain.Clip, error) {
	c.calls[index]++
	if err, ok := c.errs[index]; ok {
		return nil, err
	}
	return c.pages[index], nil
}

func (c *stubFeedClient) Stream(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return nil, -1, fmt.Errorf("stream not supported in stub")
}

func clip(id, title string) domain.Clip {
	return domain.Clip{
		ID:        id,
		Title:     title,
		CreatedAt: "2026-02-07T10:00:00.000Z",
		AudioURL:  "https://cdn.example.com/" + id + ".mp3",
	}
}

func fastPolicy(maxRetries int) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	}
}

func newTestFetcher(store domain.PageStore, client domain.FeedClient, cfg domain.FetchConfig) *Fetcher {
	return NewFetcher(store, client, cfg, fastPolicy(2), zap.NewNop())
}

func cachedIDs(t *testing.T, store domain.PageStore) []string {
	t.Helper()
	clips, _, err := loadClips(store)
	require.NoError(t, err)
	ids := make([]string, 0, len(clips))
	for _, c := range clips {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestFetcherRun_FullScanToTerminal(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A"), clip("b", "B")}
	client.pages[1] = []domain.Clip{clip("c", "C")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 3})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, "end_of_feed_page:2", res.StopReason)
	assert.Equal(t, HeadSyncEmptyCache, res.HeadSync)

	complete, err := store.IsFullyFetched()
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []string{"a", "b", "c"}, cachedIDs(t, store))
}

func TestFetcherRun_CachedPagesShortCircuit(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "A")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	// Any live call would fail; a fully cached feed must not need one
	// beyond the head-sync probe.
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 1})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, HeadSyncUpToDate, res.HeadSync)
	assert.Equal(t, 1, client.calls[0], "only the head-sync probe should hit the network")
}

func TestFetcherRun_RetryExhaustionLeavesPartialCache(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A")}
	client.errs[1] = &domain.HTTPStatusError{StatusCode: 503}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err, "a partial fetch is not a run error")
	assert.False(t, res.Complete)
	assert.Equal(t, "max_retries_exceeded_page:1", res.StopReason)
	assert.Equal(t, 2, client.calls[1])
	assert.Equal(t, []string{"a"}, cachedIDs(t, store), "page 0 stays cached")
}

func TestFetcherRun_PermanentHTTPErrorStopsWithoutRetry(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A")}
	client.errs[1] = &domain.HTTPStatusError{StatusCode: 404}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, "http_404_page:1", res.StopReason)
	assert.Equal(t, 1, client.calls[1], "permanent statuses are not retried")
}

func TestFetcherRun_AuthFailureAborts(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.errs[0] = &domain.AuthError{StatusCode: 401}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2})

	res, err := fetcher.Run(context.Background(), false)
	require.Error(t, err)
	assert.True(t, domain.IsAuthError(err))
	assert.False(t, res.Complete)
	assert.Equal(t, "auth_failed:401", res.StopReason)
	assert.Equal(t, 1, client.calls[0], "credential failures are never retried")
}

func TestFetcherRun_MaxPagesCap(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A")}
	client.pages[1] = []domain.Clip{clip("b", "B")}
	client.pages[2] = []domain.Clip{clip("c", "C")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, MaxPages: 2})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, "max_pages_reached:2", res.StopReason)
	assert.Equal(t, []string{"a", "b"}, cachedIDs(t, store))
}

func TestFetcherRun_RefreshDiscardsCache(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("stale", "Gone")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 3})

	res, err := fetcher.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, HeadSyncRefreshMode, res.HeadSync)
	assert.Equal(t, []string{"a"}, cachedIDs(t, store))
}

func TestFetcherHeadSync_ShiftedPrependsWithoutDroppingIDs(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("b", "B"), clip("c", "C")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A"), clip("b", "B")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 3})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, HeadSyncShifted, res.HeadSync)
	assert.Equal(t, 1, res.HeadShifted)
	assert.True(t, res.Complete)

	// New clip in front, every previously known id still present.
	assert.Equal(t, []string{"a", "b", "c"}, cachedIDs(t, store))

	complete, err := store.IsFullyFetched()
	require.NoError(t, err)
	assert.True(t, complete, "rewritten cache carries a terminal marker")
}

func TestFetcherHeadSync_FeedEmptyRewritesToEmptyCache(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("b", "B")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	client := newStubFeedClient()

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 3})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, HeadSyncFeedEmpty, res.HeadSync)
	assert.Equal(t, 1, res.HeadShifted)
	assert.True(t, res.Complete)
	assert.Empty(t, cachedIDs(t, store))
}

func TestFetcherHeadSync_NoOverlapFallsBackToRefresh(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("old", "Old")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	// One probe page, all unknown ids: the anchor is never found.
	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A"), clip("b", "B")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 1})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, HeadSyncNoOverlap, res.HeadSync)
	assert.True(t, res.Complete)
	assert.Equal(t, []string{"a", "b"}, cachedIDs(t, store), "stale cache is discarded and refetched")
}

func TestFetcherHeadSync_DisabledByZeroPages(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("b", "B")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	client := newStubFeedClient()
	client.pages[0] = []domain.Clip{clip("a", "A"), clip("b", "B")}

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2, HeadSyncPages: 0})

	res, err := fetcher.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, HeadSyncDisabled, res.HeadSync)
	assert.Equal(t, []string{"b"}, cachedIDs(t, store), "cache untouched without head sync")
}

func TestFetcherRun_ContextCancelled(t *testing.T) {
	store := newMemPageStore()
	client := newStubFeedClient()
	client.errs[0] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newTestFetcher(store, client, domain.FetchConfig{PageSize: 2})

	res, err := fetcher.Run(ctx, false)
	require.Error(t, err)
	assert.Equal(t, "cancelled", res.StopReason)
}
