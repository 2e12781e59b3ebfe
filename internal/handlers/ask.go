package handlers

import (
	"net/http"

	"github.com/medigen/catalyst/internal/session"
)

func (h *Handler) HandleAskPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "ask", "Ask AI About Your Analysis", "/ask", h.sessionState(r), nil)
}

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)
	state := h.dispatch(r, entry, session.Ask{Question: r.FormValue("question")})
	h.render(w, "ask", "Ask AI About Your Analysis", "/ask", state, state.Notices)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	h.render(w, "history", "Previous AI Interactions", "/history", h.sessionState(r), nil)
}

func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)
	state := h.dispatch(r, entry, session.ClearChat{})
	h.render(w, "history", "Previous AI Interactions", "/history", state, state.Notices)
}
