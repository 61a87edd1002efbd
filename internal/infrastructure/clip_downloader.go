package infrastructure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/yourusername/suno-sync-go/internal/domain"
	"go.uber.org/zap"
)

// ClipStreamer is the part of the feed client the downloader needs.
type ClipStreamer interface {
	Stream(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// HTTPClipDownloader implements domain.ClipDownloader: it streams a clip to a
// temp path in the output directory and atomically renames it into place, so
// a concurrent reader never observes a partially-written file at the final
// name and a crash mid-transfer leaves nothing at the canonical name.
type HTTPClipDownloader struct {
	streamer     ClipStreamer
	outDir       string
	policy       domain.RetryPolicy
	logger       *zap.Logger
	showProgress bool
}

// NewHTTPClipDownloader creates a downloader writing into outDir.
func NewHTTPClipDownloader(streamer ClipStreamer, outDir string, policy domain.RetryPolicy, logger *zap.Logger, showProgress bool) *HTTPClipDownloader {
	return &HTTPClipDownloader{
		streamer:     streamer,
		outDir:       outDir,
		policy:       policy,
		logger:       logger,
		showProgress: showProgress,
	}
}

// Download transfers one clip to its canonical filename with per-item retry.
// Credential failures and non-retryable HTTP statuses surface immediately;
// transient failures back off per the policy.
func (d *HTTPClipDownloader) Download(ctx context.Context, clip domain.Clip, filename string) error {
	attempt := 0
	return domain.Retry(ctx, d.policy, func() error {
		attempt++
		if attempt > 1 {
			d.logger.Info("Retrying clip download",
				zap.String("clip_id", clip.ID),
				zap.Int("attempt", attempt))
		}
		return d.transfer(ctx, clip, filename)
	})
}

// transfer performs a single attempt: stream to temp, rename on success,
// remove the temp file on any failure.
func (d *HTTPClipDownloader) transfer(ctx context.Context, clip domain.Clip, filename string) (err error) {
	body, size, err := d.streamer.Stream(ctx, clip.AudioURL)
	if err != nil {
		return err
	}
	defer body.Close()

	target := filepath.Join(d.outDir, filename)
	tmp := target + "." + uuid.New().String()[:8] + ".part"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	if d.showProgress {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription(filename),
		)
		w = io.MultiWriter(f, bar)
	}

	if _, err = io.Copy(w, body); err != nil {
		f.Close()
		return fmt.Errorf("failed to stream clip %s: %w", clip.ID, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to publish %s: %w", filename, err)
	}
	return nil
}
