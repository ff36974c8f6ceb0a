package api

import "net/http"

// GetPrompt handles GET /api/prompt.
func (h *Handler) GetPrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.prompt.State())
}

// SubmitPrompt handles POST /api/prompt/submit. An empty password keeps the
// prompt open and answers 400.
func (h *Handler) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.prompt.Submit(req.Password); err != nil {
		writeError(w, "submit password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelPrompt handles POST /api/prompt/cancel.
func (h *Handler) CancelPrompt(w http.ResponseWriter, _ *http.Request) {
	if err := h.prompt.Cancel(); err != nil {
		writeError(w, "cancel prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
