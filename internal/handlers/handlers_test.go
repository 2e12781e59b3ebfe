package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medigen/catalyst/internal/analysis"
	"github.com/medigen/catalyst/internal/followup"
	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/providers/providerstest"
	"github.com/medigen/catalyst/internal/report"
	"github.com/medigen/catalyst/internal/session"
	"github.com/medigen/catalyst/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	server    *httptest.Server
	client    *http.Client
	provider  *providerstest.Fake
	store     *storage.SessionStore
	assetsDir string
}

func newTestApp(t *testing.T, replies ...providerstest.Reply) *testApp {
	t.Helper()

	provider := providerstest.New(replies...)
	exporter := report.NewExporter(t.TempDir())
	machine := session.NewMachineFromServices(session.Services{
		Analysis: analysis.NewService(provider, "test-model", analysis.VariantEnhanced),
		Followup: followup.NewEngine(provider, "test-model"),
	}, exporter)

	assetsDir := t.TempDir()
	store := storage.New(16, time.Hour, nil)
	h := New(Options{
		Store:     store,
		Machine:   machine,
		Exporter:  exporter,
		Fetcher:   images.NewFetcher(),
		AssetsDir: assetsDir,
	})
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		server:    server,
		client:    &http.Client{Jar: jar},
		provider:  provider,
		store:     store,
		assetsDir: assetsDir,
	}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body
}

func (a *testApp) upload(t *testing.T, files map[string][]byte, order ...string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := a.client.Post(a.server.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body
}

func (a *testApp) state(t *testing.T) session.State {
	t.Helper()
	_, body := a.get(t, "/api/session")
	var s session.State
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return s
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthcheck(t *testing.T) {
	app := newTestApp(t)
	resp, body := app.get(t, "/healthcheck")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestAnalyzeAndAskFlow(t *testing.T) {
	app := newTestApp(t,
		providerstest.Reply{Text: "## Detailed Analysis\nA small skin lesion."},
		providerstest.Reply{Text: "Stage one."},
	)

	red := pngBytes(t, color.RGBA{R: 255, A: 255})
	blue := pngBytes(t, color.RGBA{B: 255, A: 255})

	body := app.upload(t, map[string][]byte{"a.png": red, "b.png": red, "c.png": blue}, "a.png", "b.png", "c.png")
	assert.Contains(t, body, "Uploaded: a.png")
	assert.Contains(t, body, "Uploaded: c.png")
	assert.NotContains(t, body, "Uploaded: b.png")

	body = app.post(t, "/analyze", url.Values{"image": {"a.png"}})
	assert.Contains(t, body, "Analysis for a.png")
	assert.Contains(t, body, "<h2>Detailed Analysis</h2>")
	assert.Contains(t, body, `href="/reports/a.png"`)

	resp, pdf := app.get(t, "/reports/a.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "a_analysis_report.pdf")
	assert.True(t, strings.HasPrefix(pdf, "%PDF-"))

	body = app.post(t, "/ask", url.Values{"question": {"What stage is this?"}})
	assert.Contains(t, body, "What stage is this?")
	assert.Contains(t, body, "Stage one.")

	s := app.state(t)
	require.Len(t, s.Chat, 1)
	assert.Equal(t, "What stage is this?", s.Chat[0].Question)
	assert.Equal(t, "a.png", s.Chat[0].Image)
	assert.Contains(t, s.Analyses, "a.png")
	assert.Len(t, app.provider.Calls(), 2)

	_, body = app.get(t, "/history")
	assert.Contains(t, body, "What stage is this?")

	app.post(t, "/history/clear", nil)
	s = app.state(t)
	assert.Empty(t, s.Chat)
	assert.Contains(t, s.Analyses, "a.png")

	app.post(t, "/analyses/clear", nil)
	s = app.state(t)
	assert.Empty(t, s.Analyses)
	require.NotNil(t, s.Selected)
	assert.Equal(t, "a.png", s.Selected.Filename)

	resp, _ = app.get(t, "/reports/a.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAskWithoutAnalysis(t *testing.T) {
	app := newTestApp(t, providerstest.Reply{Text: "should not be used"})

	_, body := app.get(t, "/ask")
	assert.Contains(t, body, "Please analyze an image first")

	body = app.post(t, "/ask", url.Values{"question": {"Is this serious?"}})
	assert.Contains(t, body, "Please analyze an image first")
	assert.Empty(t, app.provider.Calls())
	assert.Empty(t, app.state(t).Chat)
}

func TestAnalyzeFailureKeepsState(t *testing.T) {
	app := newTestApp(t, providerstest.Reply{Err: errors.New("quota exceeded")})

	app.upload(t, map[string][]byte{"a.png": pngBytes(t, color.White)}, "a.png")
	body := app.post(t, "/analyze", url.Values{"image": {"a.png"}})
	assert.Contains(t, body, "Failed to generate analysis for a.png")

	s := app.state(t)
	assert.Empty(t, s.Analyses)
	assert.Empty(t, s.Chat)
}

func TestUploadReportsBadFiles(t *testing.T) {
	app := newTestApp(t)

	body := app.upload(t, map[string][]byte{
		"notes.txt": []byte("not an image"),
		"ok.png":    pngBytes(t, color.Black),
	}, "notes.txt", "ok.png")

	assert.Contains(t, body, "Error processing image notes.txt")
	assert.Contains(t, body, "Uploaded: ok.png")
	assert.Len(t, app.state(t).Uploads, 1)
}

func TestUploadFromURL(t *testing.T) {
	img := pngBytes(t, color.RGBA{G: 255, A: 255})
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer remote.Close()

	app := newTestApp(t)
	body := app.post(t, "/upload", url.Values{"image_url": {remote.URL + "/scan.png"}})
	assert.Contains(t, body, "Uploaded: scan.png")
}

func TestAssets(t *testing.T) {
	app := newTestApp(t)

	_, body := app.get(t, "/")
	assert.Contains(t, body, "Logo image not found")

	_, body = app.get(t, "/about")
	assert.Contains(t, body, "Workflow diagram not found")

	require.NoError(t, os.WriteFile(filepath.Join(app.assetsDir, "medigencat.png"), pngBytes(t, color.White), 0644))

	_, body = app.get(t, "/")
	assert.NotContains(t, body, "Logo image not found")
	assert.Contains(t, body, `src="/assets/medigencat.png"`)

	resp, _ := app.get(t, "/assets/medigencat.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.get(t, "/assets/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t, providerstest.Reply{Text: "Analysis text."})
	app.upload(t, map[string][]byte{"a.png": pngBytes(t, color.White)}, "a.png")
	app.post(t, "/analyze", url.Values{"image": {"a.png"}})

	other := &http.Client{}
	resp, err := other.Get(app.server.URL + "/reports/a.png")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = other.Get(app.server.URL + "/api/session")
	require.NoError(t, err)
	var s session.State
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &s))
	assert.Empty(t, s.Analyses)
}

func TestOnlyAnalyzeFormShowsBusyState(t *testing.T) {
	app := newTestApp(t)
	body := app.upload(t, map[string][]byte{
		"a.png": pngBytes(t, color.White),
		"b.png": pngBytes(t, color.Black),
	}, "a.png", "b.png")

	forms := strings.Split(body, "<form ")[1:]
	require.NotEmpty(t, forms)

	analyzeForms := 0
	for _, form := range forms {
		form = form[:strings.Index(form, "</form>")]
		if strings.Contains(form, `action="/analyze"`) {
			analyzeForms++
			assert.Contains(t, form, "aria-busy")
			assert.Contains(t, form, "Analyzing...")
			continue
		}
		assert.NotContains(t, form, "aria-busy")
		assert.NotContains(t, form, "Analyzing...")
	}
	assert.Equal(t, 2, analyzeForms)
}

func TestReadOnlyRequestsDoNotStartSessions(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/upload", "/ask", "/history", "/about", "/api/session", "/reports/a.png", "/healthcheck"} {
		resp, _ := app.get(t, path)
		assert.Empty(t, resp.Header.Values("Set-Cookie"), path)
	}
	assert.Equal(t, 0, app.store.Len())

	app.post(t, "/history/clear", nil)
	assert.Equal(t, 1, app.store.Len())

	app.get(t, "/api/session")
	assert.Equal(t, 1, app.store.Len())
}
