package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/medigen/catalyst/internal/analysis"
	"github.com/medigen/catalyst/internal/followup"
	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/models"
)

var (
	ErrModelUnavailable = errors.New("no model credential configured")
	ErrUnknownImage     = errors.New("image is not part of the current upload")
	ErrNoSelection      = errors.New("no image selected")
	ErrNotAnalyzed      = errors.New("selected image has not been analyzed")
	ErrEmptyQuestion    = errors.New("question is empty")
)

// Messages shown when an action is refused
const (
	MsgAnalyzeFirst   = "Please analyze an image first in 'Upload & Analyze' before asking AI."
	MsgNotYetAnalyzed = "The selected image has not been analyzed yet. Run the analysis in 'Upload & Analyze' first."
	MsgNoCredential   = "No API key configured. Set GOOGLE_API_KEY and restart to enable analysis."
	MsgEmptyQuestion  = "Please type a question first."
)

// Action is one user interaction
type Action interface {
	isAction()
}

type (
	// Upload replaces the current batch. Rejected lists files that never
	// reached decoding, such as oversized uploads or failed downloads.
	Upload struct {
		Images   []models.Image
		Rejected []models.ItemError
	}
	Analyze       struct{ Filename string }
	Export        struct{ Filename string }
	Ask           struct{ Question string }
	ClearAnalyses struct{}
	ClearChat     struct{}
)

func (Upload) isAction()        {}
func (Analyze) isAction()       {}
func (Export) isAction()        {}
func (Ask) isAction()           {}
func (ClearAnalyses) isAction() {}
func (ClearChat) isAction()     {}

// Analyzer turns one image into an analysis record
type Analyzer interface {
	Analyze(ctx context.Context, img models.Image) (models.AnalysisRecord, error)
}

// Responder answers a follow-up question about a record
type Responder interface {
	Ask(ctx context.Context, record models.AnalysisRecord, question string) (models.ChatTurn, error)
}

// Exporter renders a record to a downloadable file
type Exporter interface {
	Export(sessionID string, record models.AnalysisRecord) (string, error)
}

// Machine runs actions against a session state. Each action performs at
// most one model call and reports every failure as a notice.
type Machine struct {
	analyzer  Analyzer
	responder Responder
	exporter  Exporter
	dedupe    func([]models.Image) ([]models.Image, []models.ItemError)
}

// NewMachine wires the collaborators. A nil analyzer or responder means no
// credential is configured and model-backed actions are refused.
func NewMachine(analyzer Analyzer, responder Responder, exporter Exporter) *Machine {
	return &Machine{
		analyzer:  analyzer,
		responder: responder,
		exporter:  exporter,
		dedupe:    images.Deduplicate,
	}
}

// ModelAvailable reports whether model-backed views can be used
func (m *Machine) ModelAvailable() bool {
	return m.analyzer != nil && m.responder != nil
}

// Dispatch performs a, then folds its outcome into s. The returned error is
// informational: the new state always carries a notice describing it.
func (m *Machine) Dispatch(ctx context.Context, s State, a Action) (State, error) {
	s = Apply(s, NoticesReset{})

	switch act := a.(type) {
	case Upload:
		unique, itemErrors := m.dedupe(act.Images)
		itemErrors = append(slices.Clone(act.Rejected), itemErrors...)
		slog.Info("Batch uploaded", "session_id", s.ID, "received", len(act.Images), "unique", len(unique), "failed", len(itemErrors))
		return Apply(s, BatchUploaded{Unique: unique, Errors: itemErrors}), nil

	case Analyze:
		return m.analyze(ctx, s, act.Filename)

	case Export:
		return m.export(s, act.Filename)

	case Ask:
		return m.ask(ctx, s, act.Question)

	case ClearAnalyses:
		return Apply(s, AnalysesCleared{}), nil

	case ClearChat:
		return Apply(s, ChatCleared{}), nil

	default:
		return s, fmt.Errorf("unknown action %T", a)
	}
}

func (m *Machine) analyze(ctx context.Context, s State, filename string) (State, error) {
	if m.analyzer == nil {
		return notice(s, LevelError, MsgNoCredential), ErrModelUnavailable
	}

	img, ok := s.Upload(filename)
	if !ok {
		return notice(s, LevelError, fmt.Sprintf("Image %s is not in the current upload.", filename)), ErrUnknownImage
	}

	s = Apply(s, ImageSelected{Image: img})

	record, err := m.analyzer.Analyze(ctx, img)
	if err != nil {
		return notice(s, LevelError, fmt.Sprintf("Failed to generate analysis for %s. Please try again. (%s)", filename, err)), err
	}

	if prev, ok := s.Analyses[filename]; ok && prev.Fingerprint != record.Fingerprint {
		slog.Warn("Replacing analysis of a different image with the same name", "session_id", s.ID, "image", filename)
	}

	var path string
	var exportErr error
	if m.exporter != nil {
		path, exportErr = m.exporter.Export(s.ID, record)
		if exportErr != nil {
			slog.Error("Report export failed", "session_id", s.ID, "image", filename, "err", exportErr)
		}
	}

	return Apply(s, AnalysisCompleted{Record: record, ReportPath: path, ReportErr: exportErr}), nil
}

func (m *Machine) export(s State, filename string) (State, error) {
	record, ok := s.Analyses[filename]
	if !ok {
		return notice(s, LevelError, fmt.Sprintf("There is no analysis for %s.", filename)), ErrUnknownImage
	}
	if m.exporter == nil {
		return notice(s, LevelError, "Report export is not available."), errors.New("no exporter configured")
	}

	path, err := m.exporter.Export(s.ID, record)
	if err != nil {
		slog.Error("Report export failed", "session_id", s.ID, "image", filename, "err", err)
	}
	return Apply(s, ReportExported{Filename: filename, Path: path, Err: err}), err
}

func (m *Machine) ask(ctx context.Context, s State, question string) (State, error) {
	if m.responder == nil {
		return notice(s, LevelError, MsgNoCredential), ErrModelUnavailable
	}
	if s.Selected == nil {
		return notice(s, LevelWarning, MsgAnalyzeFirst), ErrNoSelection
	}
	record, ok := s.SelectedRecord()
	if !ok {
		return notice(s, LevelWarning, MsgNotYetAnalyzed), ErrNotAnalyzed
	}

	turn, err := m.responder.Ask(ctx, record, question)
	if err != nil {
		if errors.Is(err, followup.ErrEmptyQuestion) {
			return notice(s, LevelWarning, MsgEmptyQuestion), ErrEmptyQuestion
		}
		return notice(s, LevelError, fmt.Sprintf("Failed to get a response from AI. Please try again. (%s)", err)), err
	}

	return Apply(s, TurnAppended{Turn: turn}), nil
}

func notice(s State, level Level, msg string) State {
	return Apply(s, Noticed{Notice: Notice{Level: level, Message: msg}})
}

// Services bundles the concrete collaborators used in production
type Services struct {
	Analysis *analysis.Service
	Followup *followup.Engine
}

// NewMachineFromServices builds a machine from concrete services, keeping
// nil services as nil interfaces.
func NewMachineFromServices(svc Services, exporter Exporter) *Machine {
	var a Analyzer
	var r Responder
	if svc.Analysis != nil {
		a = svc.Analysis
	}
	if svc.Followup != nil {
		r = svc.Followup
	}
	return NewMachine(a, r, exporter)
}
