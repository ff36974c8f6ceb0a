// Package notes implements the pure collection transforms behind every note
// mutation. Functions never modify their inputs.
package notes

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/models"
)

// NewNote returns an empty note for the default owner with no date assigned.
func NewNote() models.Note {
	return models.Note{
		Owner: models.DefaultOwner,
		Date:  models.UnassignedDate,
		Items: []models.ContentItem{},
	}
}

// NewContent returns an empty content item with a fresh id.
func NewContent() models.ContentItem {
	return models.ContentItem{ID: uuid.NewString()}
}

// Upsert stores note in c. originalDate names the note being edited; when it
// differs from note.Date the note is renamed. Renaming onto, or creating at,
// a date that another note already holds fails with ErrDateConflict.
func Upsert(c models.Collection, originalDate string, note models.Note) (models.Collection, error) {
	if err := note.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidNote, err)
	}
	if originalDate == "" {
		originalDate = note.Date
	}
	if note.Owner == "" {
		note.Owner = models.DefaultOwner
	}
	if note.Items == nil {
		note.Items = []models.ContentItem{}
	}

	src := c.Find(originalDate)
	if dst := c.Find(note.Date); dst >= 0 && dst != src {
		return nil, fmt.Errorf("%w: %s", apperr.ErrDateConflict, note.Date)
	}

	out := c.Clone()
	if src < 0 {
		return append(out, note.Clone()), nil
	}
	out[src] = note.Clone()
	return out, nil
}

// Delete removes the note with the given date.
func Delete(c models.Collection, date string) (models.Collection, error) {
	idx := c.Find(date)
	if idx < 0 {
		return nil, fmt.Errorf("note %s: %w", date, apperr.ErrNotFound)
	}
	out := make(models.Collection, 0, len(c)-1)
	for i, n := range c {
		if i != idx {
			out = append(out, n.Clone())
		}
	}
	return out, nil
}

// AddContent prepends item so the newest entry comes first.
func AddContent(n models.Note, item models.ContentItem) models.Note {
	out := n.Clone()
	out.Items = append([]models.ContentItem{item}, out.Items...)
	return out
}

// UpdateContent replaces the item with the given id.
func UpdateContent(n models.Note, id string, item models.ContentItem) (models.Note, error) {
	out := n.Clone()
	for i, c := range out.Items {
		if c.ID == id {
			out.Items[i] = item
			return out, nil
		}
	}
	return models.Note{}, fmt.Errorf("content %s: %w", id, apperr.ErrNotFound)
}

// RemoveContent drops the item with the given id.
func RemoveContent(n models.Note, id string) (models.Note, error) {
	out := n.Clone()
	for i, c := range out.Items {
		if c.ID == id {
			out.Items = append(out.Items[:i], out.Items[i+1:]...)
			return out, nil
		}
	}
	return models.Note{}, fmt.Errorf("content %s: %w", id, apperr.ErrNotFound)
}

// SortByDateDesc returns a copy ordered newest date first.
func SortByDateDesc(c models.Collection) models.Collection {
	out := c.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// CheckUnique returns ErrDateConflict when two notes share a date.
func CheckUnique(c models.Collection) error {
	seen := make(map[string]struct{}, len(c))
	for _, n := range c {
		if _, ok := seen[n.Date]; ok {
			return fmt.Errorf("%w: %s", apperr.ErrDateConflict, n.Date)
		}
		seen[n.Date] = struct{}{}
	}
	return nil
}
