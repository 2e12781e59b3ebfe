package session

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/medigen/catalyst/internal/models"
)

// Level classifies a notice shown to the user
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message produced by the last action
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// State is everything one session knows. Values are treated as immutable:
// Apply returns a new State and never modifies its input.
type State struct {
	ID        string                           `json:"id"`
	CreatedAt time.Time                        `json:"created_at"`
	Uploads   []models.Image                   `json:"uploads"`
	Analyses  map[string]models.AnalysisRecord `json:"analyses"`
	Reports   map[string]string                `json:"-"`
	Chat      []models.ChatTurn                `json:"chat"`
	Selected  *models.Image                    `json:"selected,omitempty"`
	Notices   []Notice                         `json:"notices,omitempty"`
}

// New returns the empty state of a fresh session
func New(id string, now time.Time) State {
	return State{
		ID:        id,
		CreatedAt: now,
		Analyses:  map[string]models.AnalysisRecord{},
		Reports:   map[string]string{},
	}
}

func (s State) clone() State {
	out := s
	out.Uploads = slices.Clone(s.Uploads)
	out.Analyses = maps.Clone(s.Analyses)
	if out.Analyses == nil {
		out.Analyses = map[string]models.AnalysisRecord{}
	}
	out.Reports = maps.Clone(s.Reports)
	if out.Reports == nil {
		out.Reports = map[string]string{}
	}
	out.Chat = slices.Clone(s.Chat)
	out.Notices = slices.Clone(s.Notices)
	if s.Selected != nil {
		selected := *s.Selected
		out.Selected = &selected
	}
	return out
}

// Upload returns the image of the current batch named filename
func (s State) Upload(filename string) (models.Image, bool) {
	for _, img := range s.Uploads {
		if img.Filename == filename {
			return img, true
		}
	}
	return models.Image{}, false
}

// SelectedRecord returns the analysis of the selected image, if both exist
func (s State) SelectedRecord() (models.AnalysisRecord, bool) {
	if s.Selected == nil {
		return models.AnalysisRecord{}, false
	}
	record, ok := s.Analyses[s.Selected.Filename]
	return record, ok
}

// AnalysisList returns the records oldest first
func (s State) AnalysisList() []models.AnalysisRecord {
	list := slices.Collect(maps.Values(s.Analyses))
	slices.SortFunc(list, func(a, b models.AnalysisRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.Filename < b.Filename {
			return -1
		}
		if a.Filename > b.Filename {
			return 1
		}
		return 0
	})
	return list
}

// Event is the outcome of an action, fed to Apply
type Event interface {
	isEvent()
}

type (
	// NoticesReset starts a new action with an empty notice list
	NoticesReset struct{}
	// BatchUploaded replaces the current batch with its unique images
	BatchUploaded struct {
		Unique []models.Image
		Errors []models.ItemError
	}
	// ImageSelected marks the image an analysis is being run for
	ImageSelected struct{ Image models.Image }
	// AnalysisCompleted stores a record. ReportPath is empty when export failed.
	AnalysisCompleted struct {
		Record     models.AnalysisRecord
		ReportPath string
		ReportErr  error
	}
	// ReportExported stores a freshly exported report for an existing record
	ReportExported struct {
		Filename string
		Path     string
		Err      error
	}
	// TurnAppended adds a follow-up exchange to the transcript
	TurnAppended struct{ Turn models.ChatTurn }
	// AnalysesCleared empties the analysis mapping
	AnalysesCleared struct{}
	// ChatCleared empties the transcript
	ChatCleared struct{}
	// Noticed only reports something to the user
	Noticed struct{ Notice Notice }
)

func (NoticesReset) isEvent()      {}
func (BatchUploaded) isEvent()     {}
func (ImageSelected) isEvent()     {}
func (AnalysisCompleted) isEvent() {}
func (ReportExported) isEvent()    {}
func (TurnAppended) isEvent()      {}
func (AnalysesCleared) isEvent()   {}
func (ChatCleared) isEvent()       {}
func (Noticed) isEvent()           {}

// Apply is the state transition function
func Apply(s State, ev Event) State {
	next := s.clone()

	switch e := ev.(type) {
	case NoticesReset:
		next.Notices = nil

	case BatchUploaded:
		var renamed []Notice
		next.Uploads, renamed = uniqueFilenames(e.Unique)
		next.Notices = append(next.Notices, renamed...)
		for _, ie := range e.Errors {
			next.Notices = append(next.Notices, Notice{
				Level:   LevelError,
				Message: fmt.Sprintf("Error processing image %s: %s", ie.Filename, ie.Err),
			})
		}
		if len(e.Unique) == 0 && len(e.Errors) == 0 {
			next.Notices = append(next.Notices, Notice{Level: LevelWarning, Message: "No images were uploaded."})
		}

	case ImageSelected:
		img := e.Image
		next.Selected = &img

	case AnalysisCompleted:
		if prev, ok := next.Analyses[e.Record.Filename]; ok && prev.Fingerprint != "" && e.Record.Fingerprint != "" && prev.Fingerprint != e.Record.Fingerprint {
			next.Notices = append(next.Notices, Notice{
				Level:   LevelWarning,
				Message: fmt.Sprintf("The earlier analysis of a different image named %s was replaced.", e.Record.Filename),
			})
		}
		next.Analyses[e.Record.Filename] = e.Record
		next.Notices = append(next.Notices, Notice{
			Level:   LevelSuccess,
			Message: fmt.Sprintf("Analysis for %s is ready.", e.Record.Filename),
		})
		next = applyReport(next, e.Record.Filename, e.ReportPath, e.ReportErr)

	case ReportExported:
		if _, ok := next.Analyses[e.Filename]; ok {
			next = applyReport(next, e.Filename, e.Path, e.Err)
		}

	case TurnAppended:
		next.Chat = append(next.Chat, e.Turn)

	case AnalysesCleared:
		next.Analyses = map[string]models.AnalysisRecord{}
		next.Reports = map[string]string{}

	case ChatCleared:
		next.Chat = nil

	case Noticed:
		next.Notices = append(next.Notices, e.Notice)
	}

	return next
}

// uniqueFilenames suffixes repeated names ("scan (2).png") so every image of
// a batch can be addressed by its filename.
func uniqueFilenames(batch []models.Image) ([]models.Image, []Notice) {
	out := slices.Clone(batch)
	taken := make(map[string]bool, len(out))
	for _, img := range out {
		taken[img.Filename] = true
	}

	seen := make(map[string]bool, len(out))
	var notices []Notice
	for i, img := range out {
		if !seen[img.Filename] {
			seen[img.Filename] = true
			continue
		}
		ext := filepath.Ext(img.Filename)
		base := strings.TrimSuffix(img.Filename, ext)
		name := img.Filename
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		taken[name] = true
		seen[name] = true
		out[i].Filename = name
		notices = append(notices, Notice{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Another image is already named %s; this one was renamed to %s.", img.Filename, name),
		})
	}
	return out, notices
}

func applyReport(s State, filename, path string, err error) State {
	if err != nil || path == "" {
		delete(s.Reports, filename)
		msg := "Report could not be generated."
		if err != nil {
			msg = fmt.Sprintf("Error generating PDF: %s", err)
		}
		s.Notices = append(s.Notices, Notice{Level: LevelError, Message: msg})
		return s
	}
	s.Reports[filename] = path
	return s
}
