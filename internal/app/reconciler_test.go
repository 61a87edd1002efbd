package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/suno-sync-go/internal/domain"
)

func writeLocalFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0644))
}

func missingNames(rec *domain.Reconciliation) []string {
	names := make([]string, 0, len(rec.Missing))
	for _, m := range rec.Missing {
		names = append(names, m.Filename)
	}
	return names
}

func TestReconcile_MissingAndExtra(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Alpha"), clip("b", "Beta")})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))

	outDir := t.TempDir()
	writeLocalFile(t, outDir, "Beta.mp3")
	writeLocalFile(t, outDir, "Stray.mp3")

	rec, err := NewReconciler(store, outDir).Reconcile()
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha.mp3"}, missingNames(rec))
	assert.Equal(t, []string{"Stray.mp3"}, rec.Extra)
	assert.Equal(t, 2, rec.LocalFiles)
	assert.Equal(t, 2, rec.RawClips)
}

func TestReconcile_DeletedFileIsMissingAgain(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Alpha")})))

	outDir := t.TempDir()
	reconciler := NewReconciler(store, outDir)

	writeLocalFile(t, outDir, "Alpha.mp3")
	rec, err := reconciler.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, rec.Missing)

	// No ledger remembers the download: removing the file brings it back.
	require.NoError(t, os.Remove(filepath.Join(outDir, "Alpha.mp3")))
	rec, err = reconciler.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.mp3"}, missingNames(rec))
}

func TestReconcile_DuplicateTitlesAcrossPages(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Song")})))
	require.NoError(t, store.Put(domain.NewPage(1, []domain.Clip{clip("b", "Song")})))

	rec, err := NewReconciler(store, t.TempDir()).Reconcile()
	require.NoError(t, err)

	assert.Equal(t, []string{"Song.mp3", "Song v2.mp3"}, missingNames(rec))
}

func TestReconcile_DuplicateIDsAcrossPagesCountOnce(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Song")})))
	require.NoError(t, store.Put(domain.NewPage(1, []domain.Clip{clip("a", "Song"), clip("b", "Other")})))

	rec, err := NewReconciler(store, t.TempDir()).Reconcile()
	require.NoError(t, err)

	assert.Equal(t, 3, rec.RawClips)
	assert.Len(t, rec.Clips, 2)
	assert.Equal(t, []string{"Song.mp3", "Other.mp3"}, missingNames(rec))
}

func TestReconcile_MissingOutputDirIsEmptyListing(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Alpha")})))

	rec, err := NewReconciler(store, filepath.Join(t.TempDir(), "never-created")).Reconcile()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.mp3"}, missingNames(rec))
	assert.Zero(t, rec.LocalFiles)
}

func TestReconcile_IgnoresNonAudioFiles(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Alpha")})))

	outDir := t.TempDir()
	writeLocalFile(t, outDir, "Alpha.mp3")
	writeLocalFile(t, outDir, "progress_summary.json")
	writeLocalFile(t, outDir, "Alpha.mp3.ab12cd34.part")
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "api_cache"), 0755))

	rec, err := NewReconciler(store, outDir).Reconcile()
	require.NoError(t, err)
	assert.Empty(t, rec.Missing)
	assert.Empty(t, rec.Extra)
	assert.Equal(t, 1, rec.LocalFiles)
}

func TestReconcile_Deterministic(t *testing.T) {
	store := newMemPageStore()
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{clip("a", "Song"), clip("b", "Song")})))

	outDir := t.TempDir()
	reconciler := NewReconciler(store, outDir)

	first, err := reconciler.Reconcile()
	require.NoError(t, err)
	second, err := reconciler.Reconcile()
	require.NoError(t, err)

	assert.Equal(t, missingNames(first), missingNames(second))
	assert.Equal(t, first.Names, second.Names)
}
