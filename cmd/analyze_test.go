package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/medigen/catalyst/internal/analysis"
	"github.com/medigen/catalyst/internal/config"
	"github.com/medigen/catalyst/internal/followup"
	"github.com/medigen/catalyst/internal/providers/providerstest"
	"github.com/medigen/catalyst/internal/report"
	"github.com/medigen/catalyst/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func testMachine(fake *providerstest.Fake, exporter session.Exporter) *session.Machine {
	return session.NewMachineFromServices(session.Services{
		Analysis: analysis.NewService(fake, "test-model", analysis.VariantStandard),
		Followup: followup.NewEngine(fake, "test-model"),
	}, exporter)
}

func TestRunAnalyze(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", color.White)
	b := writePNG(t, dir, "b.png", color.White)
	c := writePNG(t, dir, "c.png", color.Black)

	fake := providerstest.New(
		providerstest.Reply{Text: "Analysis of a"},
		providerstest.Reply{Text: "Analysis of c"},
		providerstest.Reply{Text: "Probably benign."},
	)
	exportDir := t.TempDir()

	var out, errOut bytes.Buffer
	err := runAnalyze(context.Background(), &out, &errOut, testMachine(fake, report.NewExporter(exportDir)),
		[]string{a, b, c, filepath.Join(dir, "missing.png")},
		analyzeOptions{questions: []string{"Is it serious?"}})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "# Analysis for a.png")
	assert.Contains(t, out.String(), "# Analysis for c.png")
	assert.NotContains(t, out.String(), "b.png")
	assert.Contains(t, out.String(), "Report: "+exportDir)
	assert.Contains(t, out.String(), "Q: Is it serious?\nA: Probably benign.")
	assert.Contains(t, errOut.String(), "missing.png")

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2].Prompt, "Analysis of c")
}

func TestRunAnalyzeAllFailed(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", color.White)

	fake := providerstest.New(providerstest.Reply{Err: errors.New("service unavailable")})

	var out, errOut bytes.Buffer
	err := runAnalyze(context.Background(), &out, &errOut, testMachine(fake, nil), []string{a}, analyzeOptions{})
	assert.Error(t, err)
	assert.Contains(t, errOut.String(), "Failed to generate analysis for a.png")
	assert.Empty(t, out.String())
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: config.ProviderGemini, want: "gemini"},
		{provider: config.ProviderGenAI, want: "genai"},
		{provider: config.ProviderOpenAI, want: "openai"},
		{provider: config.ProviderOllama, want: "ollama"},
		{provider: "watson", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := newProvider(&config.Config{Provider: tt.provider, APIKey: "key"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}
