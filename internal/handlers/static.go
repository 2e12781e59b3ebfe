package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", "Welcome to MediGen Catalyst", "/", h.sessionState(r), nil)
}

func (h *Handler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.render(w, "about", "How MediGen Catalyst Works", "/about", h.sessionState(r), nil)
}

func (h *Handler) HandleAsset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]

	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") || name != filepath.Base(name) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.assetsDir, name))
}

// HandleReport downloads the latest report of one of the caller's analyses
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	state := h.sessionState(r)
	name := mux.Vars(r)["name"]

	path, ok := state.Reports[name]
	if !ok || h.exporter == nil || !h.exporter.Owns(state.ID, path) {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("Unable to open report", "session_id", state.ID, "image", name, "err", err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.writeError(w, "Unable to read report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reportFilename(name)+`"`)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func reportFilename(image string) string {
	base := strings.TrimSuffix(image, filepath.Ext(image))
	base = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	return base + "_analysis_report.pdf"
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
