package domain

// Clip represents one remote media entry from the feed.
// Identity is ID; a clip is immutable once fetched.
type Clip struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAt   string `json:"created_at"`
	IsLiked     bool   `json:"is_liked"`
	AudioURL    string `json:"audio_url"`
	ImageURL    string `json:"image_url,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Downloadable reports whether the clip carries enough data to be synced.
// Clips without a stable id or a resolved audio URL are ignored everywhere:
// they can neither be named deterministically nor fetched.
func (c Clip) Downloadable() bool {
	return c.ID != "" && c.AudioURL != ""
}

// CreatedDate returns the YYYY-MM-DD portion of the creation timestamp,
// or "unknown-date" when the timestamp is absent or malformed.
func (c Clip) CreatedDate() string {
	if len(c.CreatedAt) >= 10 {
		return c.CreatedAt[:10]
	}
	return "unknown-date"
}

// ShortID returns the first 8 characters of the clip id, used in
// untitled filenames.
func (c Clip) ShortID() string {
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	return c.ID
}

// DedupeClips removes repeated ids, keeping the first occurrence in feed
// order. The feed can repeat clips across page boundaries, especially after
// a head-sync shifts the index space.
func DedupeClips(clips []Clip) []Clip {
	seen := make(map[string]struct{}, len(clips))
	out := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if c.ID == "" {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
