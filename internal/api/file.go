package api

import (
	"net/http"

	"github.com/starford/daybook/internal/storage"
)

// OpenFile handles POST /api/file/open. Unsaved edits block the load with 428
// until the request sets discard_unsaved. For an encrypted file the request
// waits until the password prompt is answered.
func (h *Handler) OpenFile(w http.ResponseWriter, r *http.Request) {
	var req OpenFileRequest
	if !decode(w, r, &req) {
		return
	}
	proceed := h.sess.WarnIfUnsavedBeforeDestructiveAction(func(string) bool {
		return req.DiscardUnsaved
	})
	if !proceed {
		writeJSON(w, http.StatusPreconditionRequired, errorBody(unsavedMessage))
		return
	}

	ctx := storage.WithChoice(r.Context(), req.Name)
	done, err := h.sess.LoadFile(ctx)
	if err != nil {
		writeError(w, "open file", err)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Done: done, State: h.sess.State()})
}

// SaveFile handles POST /api/file/save. Name is only used when the session
// has no reachable file and falls back to save-as.
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	var req SaveFileRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := storage.WithChoice(r.Context(), req.Name)
	done, err := h.sess.SaveCurrent(ctx)
	if err != nil {
		writeError(w, "save file", err)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Done: done, State: h.sess.State()})
}

// SaveFileAs handles POST /api/file/save-as.
func (h *Handler) SaveFileAs(w http.ResponseWriter, r *http.Request) {
	var req SaveFileRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := storage.WithChoice(r.Context(), req.Name)

	var (
		done bool
		err  error
	)
	if req.Protect && req.Password == "" {
		done, err = h.sess.SaveAsProtected(ctx)
	} else {
		done, err = h.sess.SaveAs(ctx, req.Password)
	}
	if err != nil {
		writeError(w, "save file as", err)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Done: done, State: h.sess.State()})
}

// CloseFile handles POST /api/file/close. It forgets the bound file and wipes
// local content, so unsaved edits need the same confirmation as open.
func (h *Handler) CloseFile(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("discard_unsaved") == "true"
	if !h.sess.WarnIfUnsavedBeforeDestructiveAction(func(string) bool { return confirmed }) {
		writeJSON(w, http.StatusPreconditionRequired, errorBody(unsavedMessage))
		return
	}
	if err := h.sess.CloseAssociation(r.Context()); err != nil {
		writeError(w, "close file", err)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Done: true, State: h.sess.State()})
}

const unsavedMessage = "unsaved changes would be lost; retry with discard_unsaved"
