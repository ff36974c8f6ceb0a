package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// SubmitLimiter throttles password submissions.
	SubmitLimiter *rate.Limiter
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(sess Session, pr Prompt, cfg RouterConfig) chi.Router {
	h := NewHandler(sess, pr)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/state", h.GetState)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{date}", h.GetNote)
	r.Put("/notes/{date}", h.PutNote)
	r.Delete("/notes/{date}", h.DeleteNote)
	r.Post("/notes/{date}/contents", h.AddContent)
	r.Put("/notes/{date}/contents/{id}", h.UpdateContent)
	r.Delete("/notes/{date}/contents/{id}", h.RemoveContent)

	// File association.
	r.Post("/file/open", h.OpenFile)
	r.Post("/file/save", h.SaveFile)
	r.Post("/file/save-as", h.SaveFileAs)
	r.Post("/file/close", h.CloseFile)

	// Password prompt.
	r.Get("/prompt", h.GetPrompt)
	r.With(RateLimit(cfg.SubmitLimiter)).Post("/prompt/submit", h.SubmitPrompt)
	r.Post("/prompt/cancel", h.CancelPrompt)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
