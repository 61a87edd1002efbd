package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/yourusername/suno-sync-go/internal/domain"
)

const pageFilePattern = "page_%04d.json"

// FilePageStore implements domain.PageStore with one JSON record per page
// under a dedicated cache directory. Records are published with a
// write-temp-then-rename so a concurrent reader never sees a partial page,
// and each record is an independent failure domain.
type FilePageStore struct {
	dir string
}

// NewFilePageStore creates a page store rooted at dir, creating it if needed.
func NewFilePageStore(dir string) (*FilePageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FilePageStore{dir: dir}, nil
}

// Dir returns the cache directory path.
func (s *FilePageStore) Dir() string {
	return s.dir
}

func (s *FilePageStore) pagePath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(pageFilePattern, index))
}

// Get returns the page at index. Absent or unreadable records both come back
// as nil: a corrupt record is treated as a gap to refetch, never deleted here.
func (s *FilePageStore) Get(index int) (*domain.Page, error) {
	data, err := os.ReadFile(s.pagePath(index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read page %d: %w", index, err)
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, nil
	}
	page.Index = index
	return &page, nil
}

// Put durably stores a page record, replacing any existing record at the
// same index.
func (s *FilePageStore) Put(page *domain.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page %d: %w", page.Index, err)
	}

	tmp := s.pagePath(page.Index) + "." + uuid.New().String()[:8] + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write page %d: %w", page.Index, err)
	}
	if err := os.Rename(tmp, s.pagePath(page.Index)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish page %d: %w", page.Index, err)
	}
	return nil
}

// Indices returns the indices of all stored pages in ascending order.
func (s *FilePageStore) Indices() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var indices []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var idx int
		if n, err := fmt.Sscanf(e.Name(), pageFilePattern, &idx); err != nil || n != 1 {
			continue
		}
		if e.Name() != fmt.Sprintf(pageFilePattern, idx) {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

// IsFullyFetched reports whether a terminal marker page exists and every
// index below it is present and complete.
func (s *FilePageStore) IsFullyFetched() (bool, error) {
	indices, err := s.Indices()
	if err != nil {
		return false, err
	}

	present := make(map[int]bool, len(indices))
	terminal := -1
	for _, idx := range indices {
		page, err := s.Get(idx)
		if err != nil {
			return false, err
		}
		if page == nil {
			continue
		}
		present[idx] = page.Complete
		if page.IsTerminal() && (terminal == -1 || idx < terminal) {
			terminal = idx
		}
	}

	if terminal == -1 {
		return false, nil
	}
	for i := 0; i < terminal; i++ {
		if !present[i] {
			return false, nil
		}
	}
	return true, nil
}

// Clear removes every stored page record.
func (s *FilePageStore) Clear() error {
	indices, err := s.Indices()
	if err != nil {
		return err
	}
	for _, idx := range indices {
		if err := os.Remove(s.pagePath(idx)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove page %d: %w", idx, err)
		}
	}
	return nil
}
