package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/medigen/catalyst/internal/models"
)

// Exporter writes analysis reports below a base directory, one
// subdirectory per session and one file per export request.
type Exporter struct {
	dir    string
	newID  func() string
	render func(w io.Writer, record models.AnalysisRecord) error
}

// NewExporter creates an exporter rooted at dir
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir:    dir,
		newID:  func() string { return uuid.NewString() },
		render: renderPDF,
	}
}

// Dir returns the base directory
func (e *Exporter) Dir() string {
	return e.dir
}

// Export renders record to a new PDF and returns its path. The file only
// appears under its final name once rendering has fully succeeded.
func (e *Exporter) Export(sessionID string, record models.AnalysisRecord) (string, error) {
	if strings.TrimSpace(record.Text) == "" {
		return "", errors.New("analysis record is empty")
	}

	sessionDir, err := e.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(sessionDir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Unable to remove partial report", "path", tmpPath, "err", err)
		}
	}

	if err := e.render(tmp, record); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		cleanup()
		return "", errors.New("failed to render report: empty output")
	}

	finalPath := filepath.Join(sessionDir, e.newID()+".pdf")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to finalize report: %w", err)
	}

	slog.Info("Report exported", "session_id", sessionID, "image", record.Filename, "path", finalPath, "bytes", info.Size())
	return finalPath, nil
}

// RemoveSession deletes every report exported for sessionID
func (e *Exporter) RemoveSession(sessionID string) error {
	sessionDir, err := e.sessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(sessionDir)
}

// Owns reports whether path is a report of sessionID
func (e *Exporter) Owns(sessionID, path string) bool {
	sessionDir, err := e.sessionDir(sessionID)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(sessionDir, path)
	return err == nil && rel == filepath.Base(path) && strings.HasSuffix(rel, ".pdf")
}

func (e *Exporter) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.HasPrefix(sessionID, ".") {
		return "", fmt.Errorf("invalid session id: %q", sessionID)
	}
	return filepath.Join(e.dir, sessionID), nil
}
