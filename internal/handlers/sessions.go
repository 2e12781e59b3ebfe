package handlers

import (
	"net/http"
)

// HandleSession returns the caller's session state as JSON
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionState(r))
}
