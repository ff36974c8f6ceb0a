package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/notes"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	sess   Session
	prompt Prompt
}

// NewHandler creates a new Handler.
func NewHandler(sess Session, pr Prompt) *Handler {
	return &Handler{sess: sess, prompt: pr}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GetState handles GET /api/state.
//
//	@Summary		Session state including the note collection
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	models.ReadState
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.State())
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, newest date first
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	c := notes.SortByDateDesc(h.sess.State().Notes)
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: c, Total: len(c)})
}

// GetNote handles GET /api/notes/{date}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	c := h.sess.State().Notes
	i := c.Find(date)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, c[i])
}

// PutNote handles PUT /api/notes/{date}. The path names the note being edited;
// a different date in the body renames it.
//
//	@Summary		Create or update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string		true	"Date key (YYYYMMDD)"
//	@Param			body	body		models.Note	true	"Note"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{date} [put]
func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	var n models.Note
	if !decode(w, r, &n) {
		return
	}
	if n.Date == "" {
		n.Date = date
	}
	if err := h.sess.MutateNote(r.Context(), date, n); err != nil {
		writeError(w, "put note", err)
		return
	}
	c := h.sess.State().Notes
	if i := c.Find(n.Date); i >= 0 {
		n = c[i]
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{date}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.DeleteNote(r.Context(), chi.URLParam(r, "date")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddContent handles POST /api/notes/{date}/contents. The item is prepended;
// a missing note is created.
func (h *Handler) AddContent(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	var req ContentRequest
	if !decode(w, r, &req) {
		return
	}
	item := notes.NewContent()
	item.Header = req.Header
	item.Body = req.Content

	err := h.sess.EditNote(r.Context(), date, func(n models.Note) (models.Note, error) {
		return notes.AddContent(n, item), nil
	})
	if errors.Is(err, apperr.ErrNotFound) {
		n := notes.NewNote()
		n.Date = date
		n.Items = []models.ContentItem{item}
		err = h.sess.MutateNote(r.Context(), "", n)
	}
	if err != nil {
		writeError(w, "add content", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateContent handles PUT /api/notes/{date}/contents/{id}.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	date, id := chi.URLParam(r, "date"), chi.URLParam(r, "id")
	var req ContentRequest
	if !decode(w, r, &req) {
		return
	}
	item := models.ContentItem{ID: id, Header: req.Header, Body: req.Content}
	err := h.sess.EditNote(r.Context(), date, func(n models.Note) (models.Note, error) {
		return notes.UpdateContent(n, id, item)
	})
	if err != nil {
		writeError(w, "update content", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveContent handles DELETE /api/notes/{date}/contents/{id}.
func (h *Handler) RemoveContent(w http.ResponseWriter, r *http.Request) {
	date, id := chi.URLParam(r, "date"), chi.URLParam(r, "id")
	err := h.sess.EditNote(r.Context(), date, func(n models.Note) (models.Note, error) {
		return notes.RemoveContent(n, id)
	})
	if err != nil {
		writeError(w, "remove content", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
