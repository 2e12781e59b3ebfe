package session

import (
	"testing"
	"time"

	"github.com/medigen/catalyst/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated() State {
	s := New("s1", time.Unix(0, 0))
	s = Apply(s, BatchUploaded{Unique: []models.Image{{Filename: "a.png", Fingerprint: "fa"}}})
	s = Apply(s, ImageSelected{Image: models.Image{Filename: "a.png", Fingerprint: "fa"}})
	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "a.png", Fingerprint: "fa", Text: "first"}, ReportPath: "/tmp/a.pdf"})
	s = Apply(s, TurnAppended{Turn: models.ChatTurn{Question: "q", Answer: "a"}})
	return s
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	before := populated()
	snapshot := before.clone()

	_ = Apply(before, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "b.png", Text: "second"}})
	_ = Apply(before, TurnAppended{Turn: models.ChatTurn{Question: "q2"}})
	_ = Apply(before, AnalysesCleared{})
	_ = Apply(before, ChatCleared{})

	assert.Equal(t, snapshot, before)
}

func TestReanalyzeOverwrites(t *testing.T) {
	s := populated()
	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "a.png", Fingerprint: "fa", Text: "second"}, ReportPath: "/tmp/a2.pdf"})

	require.Len(t, s.Analyses, 1)
	assert.Equal(t, "second", s.Analyses["a.png"].Text)
	assert.Equal(t, "/tmp/a2.pdf", s.Reports["a.png"])
}

func TestReanalyzeDifferentImageSameNameWarns(t *testing.T) {
	s := populated()
	s = Apply(s, NoticesReset{})
	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "a.png", Fingerprint: "other", Text: "second"}})

	require.Len(t, s.Analyses, 1)
	require.NotEmpty(t, s.Notices)
	assert.Equal(t, LevelWarning, s.Notices[0].Level)
}

func TestClearAnalysesOnlyTouchesAnalyses(t *testing.T) {
	s := populated()
	cleared := Apply(s, AnalysesCleared{})

	assert.Empty(t, cleared.Analyses)
	assert.Empty(t, cleared.Reports)
	assert.Equal(t, s.Chat, cleared.Chat)
	assert.Equal(t, s.Selected, cleared.Selected)
	assert.Equal(t, s.Uploads, cleared.Uploads)
}

func TestClearChatOnlyTouchesTranscript(t *testing.T) {
	s := populated()
	cleared := Apply(s, ChatCleared{})

	assert.Empty(t, cleared.Chat)
	assert.Equal(t, s.Analyses, cleared.Analyses)
	assert.Equal(t, s.Selected, cleared.Selected)
}

func TestFailedExportDropsReport(t *testing.T) {
	s := populated()
	s = Apply(s, ReportExported{Filename: "a.png", Err: assert.AnError})

	_, ok := s.Reports["a.png"]
	assert.False(t, ok)
	require.NotEmpty(t, s.Notices)
	assert.Equal(t, LevelError, s.Notices[len(s.Notices)-1].Level)
}

func TestSelectedRecord(t *testing.T) {
	s := New("s", time.Now())
	_, ok := s.SelectedRecord()
	assert.False(t, ok)

	s = Apply(s, ImageSelected{Image: models.Image{Filename: "b.png"}})
	_, ok = s.SelectedRecord()
	assert.False(t, ok, "selected but not yet analyzed")

	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "b.png", Text: "x"}})
	record, ok := s.SelectedRecord()
	assert.True(t, ok)
	assert.Equal(t, "x", record.Text)
}

func TestAnalysisListOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New("s", base)
	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "late.png", Text: "x", CreatedAt: base.Add(time.Minute)}})
	s = Apply(s, AnalysisCompleted{Record: models.AnalysisRecord{Filename: "early.png", Text: "x", CreatedAt: base}})

	list := s.AnalysisList()
	require.Len(t, list, 2)
	assert.Equal(t, "early.png", list[0].Filename)
	assert.Equal(t, "late.png", list[1].Filename)
}

func TestBatchUploadedRenamesRepeatedFilenames(t *testing.T) {
	s := Apply(New("s1", time.Unix(0, 0)), BatchUploaded{Unique: []models.Image{
		{Filename: "scan.png", Fingerprint: "f1"},
		{Filename: "scan (2).png", Fingerprint: "f2"},
		{Filename: "scan.png", Fingerprint: "f3"},
		{Filename: "notes", Fingerprint: "f4"},
		{Filename: "notes", Fingerprint: "f5"},
	}})

	var names []string
	for _, img := range s.Uploads {
		names = append(names, img.Filename)
	}
	assert.Equal(t, []string{"scan.png", "scan (2).png", "scan (3).png", "notes", "notes (2)"}, names)

	img, ok := s.Upload("scan (3).png")
	require.True(t, ok)
	assert.Equal(t, "f3", img.Fingerprint)

	require.Len(t, s.Notices, 2)
	assert.Equal(t, LevelInfo, s.Notices[0].Level)
	assert.Contains(t, s.Notices[0].Message, "scan (3).png")
}
