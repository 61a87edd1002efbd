package app

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yourusername/suno-sync-go/internal/domain"
)

// Reconciler computes the delta between the cached feed and the local
// directory. It is read-only and safe to run repeatedly, including while a
// separate fetch process is rewriting the cache: it reads a snapshot and the
// next cycle simply re-reads.
type Reconciler struct {
	store  domain.PageStore
	outDir string
}

// NewReconciler creates a reconciler over the given page store and output
// directory.
func NewReconciler(store domain.PageStore, outDir string) *Reconciler {
	return &Reconciler{store: store, outDir: outDir}
}

// loadClips builds the full ordered clip set from every cached page: page
// index order, then in-page order, deduped by id. This ordering is what
// duplicate-name ranking is defined over. The second return is the raw count
// before dedupe.
func loadClips(store domain.PageStore) ([]domain.Clip, int, error) {
	indices, err := store.Indices()
	if err != nil {
		return nil, 0, err
	}

	var clips []domain.Clip
	for _, idx := range indices {
		page, err := store.Get(idx)
		if err != nil {
			return nil, 0, err
		}
		if page == nil {
			continue
		}
		clips = append(clips, page.Clips...)
	}
	return domain.DedupeClips(clips), len(clips), nil
}

// Reconcile recomputes the missing/extra report from the current cache and
// directory listing. The filesystem is the only authority on what has been
// downloaded: a deleted file immediately shows up as missing again.
func (r *Reconciler) Reconcile() (*domain.Reconciliation, error) {
	clips, raw, err := loadClips(r.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached pages: %w", err)
	}

	names := domain.AssignNames(clips)

	local, err := listLocalFiles(r.outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list output directory: %w", err)
	}

	rec := &domain.Reconciliation{
		Clips:      clips,
		RawClips:   raw,
		Names:      names,
		LocalFiles: len(local),
	}

	expected := make(map[string]bool, len(names))
	for _, c := range clips {
		name, ok := names[c.ID]
		if !ok {
			continue
		}
		expected[name] = true
		if !local[name] {
			rec.Missing = append(rec.Missing, domain.MissingClip{
				ID:       c.ID,
				Title:    c.Title,
				Filename: name,
				AudioURL: c.AudioURL,
				Clip:     c,
			})
		}
	}

	for name := range local {
		if !expected[name] {
			rec.Extra = append(rec.Extra, name)
		}
	}
	sort.Strings(rec.Extra)

	return rec, nil
}

// listLocalFiles returns the set of .mp3 filenames in dir. A missing
// directory is an empty listing, not an error: nothing has been synced yet.
func listLocalFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".mp3") {
			files[e.Name()] = true
		}
	}
	return files, nil
}
