package domain

import "time"

// MissingClip is a remote clip with no matching local file.
type MissingClip struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	AudioURL string `json:"-"`
	Clip     Clip   `json:"-"`
}

// Reconciliation is the recomputed delta between the cached feed and the
// local directory. It is derived state: always recomputable from the page
// store plus a directory listing, never trusted beyond the snapshot it was
// computed from.
type Reconciliation struct {
	Clips      []Clip            // full ordered, deduped clip set
	RawClips   int               // clip count before dedupe
	Names      map[string]string // clip id -> canonical filename
	Missing    []MissingClip     // feed order
	Extra      []string          // local filenames with no matching clip, sorted
	LocalFiles int
}

// Summary is the persisted, operator-facing report written after each
// fetch/reconcile pass.
type Summary struct {
	RunID            string    `json:"run_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	APIClipsRaw      int       `json:"api_clips_raw"`
	APIClipsUnique   int       `json:"api_clips_unique"`
	LocalFiles       int       `json:"local_files"`
	MissingTitles    int       `json:"missing_titles"`
	ExtraTitles      int       `json:"extra_titles"`
	CompleteAPIFetch bool      `json:"complete_api_fetch"`
	StopReason       string    `json:"stop_reason"`
	LastPageReached  int       `json:"last_page_reached"`
	HeadSync         string    `json:"cache_head_sync,omitempty"`
	HeadShiftedClips int       `json:"cache_head_shifted_clips,omitempty"`
	OutputDir        string    `json:"output_dir"`
	CacheDir         string    `json:"cache_dir"`
}
