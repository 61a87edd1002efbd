package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/suno-sync-go/internal/domain"
)

func newTestStore(t *testing.T) *FilePageStore {
	t.Helper()
	store, err := NewFilePageStore(filepath.Join(t.TempDir(), "api_cache"))
	require.NoError(t, err)
	return store
}

func TestFilePageStore_PutGet(t *testing.T) {
	store := newTestStore(t)

	page := domain.NewPage(0, []domain.Clip{
		{ID: "a", Title: "First", AudioURL: "http://x/a.mp3"},
		{ID: "b", Title: "Second", AudioURL: "http://x/b.mp3"},
	})
	require.NoError(t, store.Put(page))

	got, err := store.Get(0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Index)
	assert.True(t, got.Complete)
	require.Len(t, got.Clips, 2)
	assert.Equal(t, "a", got.Clips[0].ID)
}

func TestFilePageStore_GetAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFilePageStore_CorruptRecordTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "page_0003.json"), []byte("{not json"), 0644))

	got, err := store.Get(3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFilePageStore_PutLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{{ID: "a"}})))
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{{ID: "b"}})))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "page_0000.json", entries[0].Name())
}

func TestFilePageStore_Indices(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put(domain.NewPage(2, nil)))
	require.NoError(t, store.Put(domain.NewPage(0, nil)))
	require.NoError(t, store.Put(domain.NewPage(10, nil)))
	// Unrelated files in the cache directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0644))

	indices, err := store.Indices()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 10}, indices)
}

func TestFilePageStore_IsFullyFetched(t *testing.T) {
	store := newTestStore(t)

	// No terminal marker yet.
	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{{ID: "a"}})))
	complete, err := store.IsFullyFetched()
	require.NoError(t, err)
	assert.False(t, complete)

	// Terminal marker with a gap below it.
	require.NoError(t, store.Put(domain.TerminalPage(2)))
	complete, err = store.IsFullyFetched()
	require.NoError(t, err)
	assert.False(t, complete)

	// Gap filled.
	require.NoError(t, store.Put(domain.NewPage(1, []domain.Clip{{ID: "b"}})))
	complete, err = store.IsFullyFetched()
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestFilePageStore_Clear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put(domain.NewPage(0, []domain.Clip{{ID: "a"}})))
	require.NoError(t, store.Put(domain.TerminalPage(1)))
	require.NoError(t, store.Clear())

	indices, err := store.Indices()
	require.NoError(t, err)
	assert.Empty(t, indices)
}
