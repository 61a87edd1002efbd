package domain

// Page is an ordered batch of clips as returned by one paginated feed call.
type Page struct {
	Index    int    `json:"-"`
	Clips    []Clip `json:"clips"`
	Complete bool   `json:"complete"`
}

// IsTerminal reports whether this page marks the end of the feed.
// The feed signals its end with an empty batch.
func (p *Page) IsTerminal() bool {
	return p.Complete && len(p.Clips) == 0
}

// NewPage creates a fully-fetched page at the given index.
func NewPage(index int, clips []Clip) *Page {
	return &Page{Index: index, Clips: clips, Complete: true}
}

// TerminalPage creates the end-of-feed marker page at the given index.
func TerminalPage(index int) *Page {
	return &Page{Index: index, Clips: []Clip{}, Complete: true}
}
