package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/report"
	"github.com/medigen/catalyst/internal/session"
	"github.com/medigen/catalyst/internal/storage"
)

const sessionCookie = "medigen_session"

type Handler struct {
	sessionStore *storage.SessionStore
	machine      *session.Machine
	exporter     *report.Exporter
	fetcher      *images.Fetcher
	views        *views
	assetsDir    string
	modelTimeout time.Duration
}

// Options wires a Handler. Fetcher may be nil to disable URL uploads.
type Options struct {
	Store        *storage.SessionStore
	Machine      *session.Machine
	Exporter     *report.Exporter
	Fetcher      *images.Fetcher
	AssetsDir    string
	ModelTimeout time.Duration
}

func New(opts Options) *Handler {
	return &Handler{
		sessionStore: opts.Store,
		machine:      opts.Machine,
		exporter:     opts.Exporter,
		fetcher:      opts.Fetcher,
		views:        loadViews(),
		assetsDir:    opts.AssetsDir,
		modelTimeout: opts.ModelTimeout,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers

// currentSession returns the caller's session for an action, starting a new
// one and setting the cookie when the request carries no live session id.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) *storage.Entry {
	var requested string
	if c, err := r.Cookie(sessionCookie); err == nil {
		requested = c.Value
	}

	id, entry := h.sessionStore.GetOrCreate(requested)
	if id != requested {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return entry
}

// sessionState returns the caller's state without starting a session, so
// read-only requests never take a slot in the store. Callers without a live
// session see an empty state.
func (h *Handler) sessionState(r *http.Request) session.State {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if entry, ok := h.sessionStore.Get(c.Value); ok {
			return entry.Snapshot()
		}
	}
	return session.New("", time.Now())
}

// dispatch runs one action while holding the session lock
func (h *Handler) dispatch(r *http.Request, entry *storage.Entry, action session.Action) session.State {
	ctx := r.Context()
	if h.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.modelTimeout)
		defer cancel()
	}

	return entry.Update(func(s session.State) session.State {
		next, err := h.machine.Dispatch(ctx, s, action)
		if err != nil {
			slog.Warn("Action did not complete", "session_id", s.ID, "action", fmt.Sprintf("%T", action), "err", err)
		}
		return next
	})
}
