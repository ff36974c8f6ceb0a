package api

import (
	"context"

	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/prompt"
)

// Session is the orchestrator surface the API drives.
type Session interface {
	State() models.ReadState
	MutateNote(ctx context.Context, originalDate string, note models.Note) error
	DeleteNote(ctx context.Context, date string) error
	EditNote(ctx context.Context, date string, fn func(models.Note) (models.Note, error)) error
	LoadFile(ctx context.Context) (bool, error)
	SaveAs(ctx context.Context, password string) (bool, error)
	SaveAsProtected(ctx context.Context) (bool, error)
	SaveCurrent(ctx context.Context) (bool, error)
	CloseAssociation(ctx context.Context) error
	WarnIfUnsavedBeforeDestructiveAction(confirm func(msg string) bool) bool
}

// Prompt is the password negotiator surface the API drives.
type Prompt interface {
	State() prompt.State
	Submit(password string) error
	Cancel() error
}

// NoteListResponse wraps a note listing, newest first.
type NoteListResponse struct {
	Notes models.Collection `json:"notes"`
	Total int               `json:"total"`
}

// ContentRequest is the body for adding or replacing a content item.
type ContentRequest struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

// OpenFileRequest selects the file to load. DiscardUnsaved confirms the
// unsaved-changes warning up front.
type OpenFileRequest struct {
	Name           string `json:"name"`
	DiscardUnsaved bool   `json:"discard_unsaved"`
}

// SaveFileRequest is used by save and save-as. Name is the destination when
// a new file has to be picked. Protect without Password asks for one through
// the prompt.
type SaveFileRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Protect  bool   `json:"protect"`
}

// FileResponse reports the outcome of a file action. Done is false when the
// user cancelled.
type FileResponse struct {
	Done  bool             `json:"done"`
	State models.ReadState `json:"state"`
}

// SubmitRequest answers the open password prompt.
type SubmitRequest struct {
	Password string `json:"password"`
}
