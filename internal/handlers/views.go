package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/medigen/catalyst/internal/models"
	"github.com/medigen/catalyst/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	logoAsset    = "medigencat.png"
	diagramAsset = "workflow_diagram.png"
)

// Navigation entries in sidebar order
var navigation = []navItem{
	{Path: "/", Label: "Home"},
	{Path: "/upload", Label: "Upload & Analyze"},
	{Path: "/ask", Label: "Ask AI"},
	{Path: "/history", Label: "Previous Interactions"},
	{Path: "/about", Label: "How It Works"},
}

type navItem struct {
	Path  string
	Label string
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() *views {
	funcs := template.FuncMap{
		"markdown":   renderMarkdown,
		"preview":    pngDataURI,
		"pathEscape": url.PathEscape,
	}

	v := &views{pages: map[string]*template.Template{}}
	for _, name := range []string{"home", "upload", "ask", "history", "about"} {
		v.pages[name] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return v
}

// page is the data every view template receives
type page struct {
	Title          string
	Active         string
	Nav            []navItem
	Notices        []session.Notice
	ModelAvailable bool
	State          session.State
	Selected       *models.Image
	SelectedRecord *models.AnalysisRecord
	Analyses       []models.AnalysisRecord
	LogoURL        string
	DiagramURL     string
}

// render writes a full view. notices are the outcome of the action that
// produced state, if any.
func (h *Handler) render(w http.ResponseWriter, name, title, active string, state session.State, notices []session.Notice) {
	p := page{
		Title:          title,
		Active:         active,
		Nav:            navigation,
		Notices:        notices,
		ModelAvailable: h.machine.ModelAvailable(),
		State:          state,
		Selected:       state.Selected,
		Analyses:       state.AnalysisList(),
	}
	if record, ok := state.SelectedRecord(); ok {
		p.SelectedRecord = &record
	}

	switch name {
	case "home":
		p.LogoURL, p.Notices = h.asset(logoAsset, "Logo image not found. Please add 'medigencat.png' to the assets directory.", p.Notices)
	case "about":
		p.DiagramURL, p.Notices = h.asset(diagramAsset, "Workflow diagram not found. Please add 'workflow_diagram.png' to the assets directory.", p.Notices)
	}

	tmpl, ok := h.views.pages[name]
	if !ok {
		h.writeError(w, "Unknown view "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		slog.Error("Unable to render view", "view", name, "session_id", state.ID, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Unable to write view", "view", name, "err", err)
	}
}

// asset returns the URL of a static asset, or a warning when it is missing
func (h *Handler) asset(name, missing string, notices []session.Notice) (string, []session.Notice) {
	if _, err := os.Stat(filepath.Join(h.assetsDir, name)); err != nil {
		slog.Warn("Static asset missing", "asset", name, "dir", h.assetsDir)
		return "", append(slices.Clone(notices), session.Notice{Level: session.LevelWarning, Message: missing})
	}
	return "/assets/" + name, notices
}
