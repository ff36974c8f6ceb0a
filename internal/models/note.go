// Package models defines the domain types for Daybook.
package models

// DefaultOwner is the owner assigned to every note created locally.
const DefaultOwner = "DEFAULT"

// UnassignedDate marks a note whose calendar date has not been chosen yet.
const UnassignedDate = "new"

// Note is one calendar day worth of content items. Date is unique within a
// Collection.
type Note struct {
	Owner string        `json:"user"`
	Date  string        `json:"date"`
	Items []ContentItem `json:"contents"`
}

// ContentItem is a single headed entry inside a note.
type ContentItem struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Body   string `json:"content"`
}

// Collection is the full set of notes, persisted wholesale.
type Collection []Note

// Clone returns a deep copy so callers cannot alias session state.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	for i, n := range c {
		out[i] = n.Clone()
	}
	return out
}

// Find returns the index of the note with the given date, or -1.
func (c Collection) Find(date string) int {
	for i, n := range c {
		if n.Date == date {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	items := make([]ContentItem, len(n.Items))
	copy(items, n.Items)
	n.Items = items
	return n
}

// ReadState is the session view exposed to the display layer.
type ReadState struct {
	Notes        Collection `json:"notes"`
	IsAutoSaving bool       `json:"is_auto_saving"`
	DisplayName  string     `json:"display_name"`
	IsDirty      bool       `json:"is_dirty"`
	IsHandleLost bool       `json:"is_handle_lost"`
	IsEncrypted  bool       `json:"is_encrypted"`
	FileCapable  bool       `json:"file_capable"`
	// WarnOnExit is set when leaving now would lose edits: the collection is
	// dirty and there is no reachable file to hold it.
	WarnOnExit bool `json:"warn_on_exit"`
}
