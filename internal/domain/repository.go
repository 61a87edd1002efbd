package domain

import (
	"context"
	"io"
)

// PageStore is the durable, resumable record of fetched feed pages, keyed by
// page index. One record per page; records fail independently. Writers must
// publish each record atomically so a concurrent reader in another process
// never observes a half-written page.
type PageStore interface {
	// Get returns the page at index, or nil when absent or unreadable.
	Get(index int) (*Page, error)

	// Put durably stores a page, overwriting any existing record at its index.
	Put(page *Page) error

	// Indices returns the indices of all stored pages in ascending order.
	Indices() ([]int, error)

	// IsFullyFetched reports whether a terminal page marker exists with no
	// gaps below it.
	IsFullyFetched() (bool, error)

	// Clear removes every stored page.
	Clear() error
}

// FeedClient retrieves feed pages and streams clip audio from the remote API.
type FeedClient interface {
	// FetchPage retrieves one page of the feed. It returns an *AuthError on
	// 401/403 and an *HTTPStatusError on other non-2xx statuses.
	FetchPage(ctx context.Context, index int) ([]Clip, error)

	// Stream opens the audio resource at url for reading. The returned size
	// is -1 when unknown. Status mapping matches FetchPage.
	Stream(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// ClipDownloader transfers a single clip to its canonical local filename.
// On success exactly one file exists at the target name; on failure nothing
// is left behind, temp artifacts included.
type ClipDownloader interface {
	Download(ctx context.Context, clip Clip, filename string) error
}

// AttemptRepository is the download ledger: per-clip failure counts used for
// per-cycle eligibility, plus a download history for reporting. It is never
// consulted when computing missing/extra - the filesystem is the only
// authority there, so deleted files are always re-detected.
type AttemptRepository interface {
	FailureCount(clipID string) (int, error)
	RecordFailure(clipID, reason string) error
	ClearFailures(clipID string) error

	RecordDownload(rec *DownloadRecord) error
	History(limit int) ([]*DownloadRecord, error)
	Stats() (*AttemptStats, error)

	Close() error
}
