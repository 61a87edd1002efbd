package domain

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	untitledPrefix = "Untitled"
	likedPrefix    = "(Liked) "
	fileExt        = ".mp3"
	maxNameLen     = 200
)

var badFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Sanitize strips characters that are illegal in filesystem names, collapses
// runs of whitespace, trims leading/trailing spaces and dots, and caps the
// length.
func Sanitize(name string) string {
	safe := badFilenameChars.ReplaceAllString(name, "_")
	safe = strings.Join(strings.Fields(safe), " ")
	safe = strings.Trim(safe, " .")
	if runes := []rune(safe); len(runes) > maxNameLen {
		safe = string(runes[:maxNameLen])
	}
	return safe
}

// baseName returns the duplicate-grouping base for a clip: the sanitized
// title, or the untitled form for blank titles. The liked prefix is not part
// of the base; it is applied after duplicate suffixing.
func baseName(c Clip) string {
	title := strings.TrimSpace(c.Title)
	if title != "" {
		return Sanitize(title)
	}
	return Sanitize(untitledPrefix + " " + c.CreatedDate() + " " + c.ShortID())
}

// AssignNames computes the authoritative id-to-filename mapping for the full
// ordered clip set. Duplicate bases are ranked by feed order: the first
// occurrence keeps the bare name, later ones get " v2", " v3", and so on.
// Rank is a pure function of the full set, never of per-page views, so the
// mapping is stable as the cache grows.
func AssignNames(clips []Clip) map[string]string {
	names := make(map[string]string, len(clips))
	rank := make(map[string]int, len(clips))

	for _, c := range DedupeClips(clips) {
		if !c.Downloadable() {
			continue
		}
		base := baseName(c)
		rank[base]++

		name := base
		if n := rank[base]; n > 1 {
			name = base + " v" + strconv.Itoa(n)
		}
		if c.IsLiked {
			name = likedPrefix + name
		}
		names[c.ID] = name + fileExt
	}

	return names
}
