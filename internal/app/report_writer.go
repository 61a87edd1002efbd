package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/suno-sync-go/internal/domain"
)

const (
	summaryFile = "progress_summary.json"
	missingFile = "progress_missing.txt"
	extraFile   = "progress_extra.txt"
)

// ReportWriter persists the operator-facing report files into the output
// directory. Reports are a snapshot for inspection; the reconciliation they
// describe is always recomputable from the cache and directory listing.
type ReportWriter struct {
	outDir string
}

// NewReportWriter creates a report writer for the given output directory.
func NewReportWriter(outDir string) *ReportWriter {
	return &ReportWriter{outDir: outDir}
}

// Write persists the summary JSON plus the plain missing/extra listings.
// Each file is published atomically so a concurrent drain process never
// reads a half-written report.
func (w *ReportWriter) Write(sum *domain.Summary, rec *domain.Reconciliation) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := w.publish(summaryFile, data); err != nil {
		return err
	}

	var missing []byte
	for _, m := range rec.Missing {
		missing = append(missing, []byte(m.Filename+"\n")...)
	}
	if err := w.publish(missingFile, missing); err != nil {
		return err
	}

	var extra []byte
	for _, name := range rec.Extra {
		extra = append(extra, []byte(name+"\n")...)
	}
	return w.publish(extraFile, extra)
}

func (w *ReportWriter) publish(name string, data []byte) error {
	target := filepath.Join(w.outDir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

// BuildSummary assembles the operator-facing summary from a fetch result and
// a reconciliation snapshot.
func BuildSummary(runID string, res *FetchResult, rec *domain.Reconciliation, outDir, cacheDir string) *domain.Summary {
	sum := &domain.Summary{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		APIClipsRaw:    rec.RawClips,
		APIClipsUnique: len(rec.Clips),
		LocalFiles:     rec.LocalFiles,
		MissingTitles:  len(rec.Missing),
		ExtraTitles:    len(rec.Extra),
		OutputDir:      outDir,
		CacheDir:       cacheDir,
	}
	if res != nil {
		sum.CompleteAPIFetch = res.Complete
		sum.StopReason = res.StopReason
		sum.LastPageReached = res.LastPage
		sum.HeadSync = res.HeadSync
		sum.HeadShiftedClips = res.HeadShifted
	}
	return sum
}

// LoadSummary reads the last persisted summary from the output directory.
// Absent or unreadable summaries return nil: the drain loop then treats the
// fetch as not known to be complete.
func LoadSummary(outDir string) (*domain.Summary, error) {
	data, err := os.ReadFile(filepath.Join(outDir, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sum domain.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, nil
	}
	return &sum, nil
}
