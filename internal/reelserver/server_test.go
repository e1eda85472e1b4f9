package reelserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/engine/reels"
	"github.com/anatolykoptev/go_reels/internal/engine/runlog"
	"github.com/anatolykoptev/go_reels/internal/engine/sheets"
)

// --- fakes ---

type stubLLM struct {
	mu    sync.Mutex
	calls int
}

func (l *stubLLM) Complete(_ context.Context, prompt string, _ engine.CompletionOptions) (string, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	switch {
	case strings.Contains(prompt, "VIDEO ID:"):
		return "[1] Mumbai local mein der - trains 20 minute late rahi", nil
	case strings.Contains(prompt, "fact-checker"):
		return "📊 CREDIBILITY SCORE: 65%", nil
	}
	return "SCRIPT 1\nTITLE: Mumbai Local Update\nTHEME: Transport\nWORD COUNT: 6\n\nMumbai local aaj phir late chali!", nil
}

type stubAcquirer struct{ calls int }

func (a *stubAcquirer) Name() string { return "stub" }

func (a *stubAcquirer) Acquire(_ context.Context, id string) (engine.Transcript, error) {
	a.calls++
	if id == "zzzzzzzzzzz" {
		return engine.Transcript{}, errors.New("no captions")
	}
	return engine.Transcript{VideoID: id, Text: "transcript", Language: "hi"}, nil
}

type stubHeadlines struct{ calls int }

func (h *stubHeadlines) Headlines(context.Context) []string {
	h.calls++
	return []string{"Mumbai local trains delayed again this morning"}
}

type stubUploader struct {
	calls int
	err   error
}

func (u *stubUploader) Upload(context.Context, sheets.Batch) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://docs.google.com/spreadsheets/d/sheet-1", nil
}

type stubRuns struct{ runs []runlog.Run }

func (r *stubRuns) Recent(_ context.Context, limit int) ([]runlog.Run, error) {
	if limit > 0 && limit < len(r.runs) {
		return r.runs[:limit], nil
	}
	return r.runs, nil
}

type harness struct {
	srv      *httptest.Server
	cfg      *engine.Config
	llm      *stubLLM
	acq      *stubAcquirer
	heads    *stubHeadlines
	uploader *stubUploader
}

func newHarness(t *testing.T, runs RunLister) *harness {
	t.Helper()
	h := &harness{
		cfg: &engine.Config{
			Version:            "test",
			LLMProvider:        "groq",
			LLMAPIKey:          "key",
			GoogleCredsJSON:    "{}",
			SheetName:          "Instagram Scripts",
			TranscriptStrategy: engine.StrategyCaptions,
			MaxVideos:          5,
		},
		llm:      &stubLLM{},
		acq:      &stubAcquirer{},
		heads:    &stubHeadlines{},
		uploader: &stubUploader{},
	}
	p := reels.New(h.cfg, reels.Deps{
		LLM: h.llm, Model: "llama-test", Acquirer: h.acq, Headlines: h.heads, Uploader: h.uploader,
	})
	s := New(h.cfg, p, runs, "llama-test")
	s.newID = func() string { return "run-fixed" }
	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) externalCalls() int {
	return h.llm.calls + h.acq.calls + h.heads.calls + h.uploader.calls
}

func post(t *testing.T, h *harness, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(h.srv.URL+"/generate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// --- tests ---

func TestGenerateEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": 1}`)

	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["videos_processed"])
	assert.EqualValues(t, 1, data["scripts_generated"])
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-1", data["sheet_url"])
	assert.Equal(t, "65%", data["credibility"])
	assert.Equal(t, "run-fixed", data["run_id"])
	assert.Equal(t, "llama-test", data["model_used"])

	scripts := data["scripts"].([]any)
	require.Len(t, scripts, 1)
	s := scripts[0].(map[string]any)
	assert.Equal(t, "Mumbai Local Update", s["title"])
	assert.Equal(t, "Transport", s["theme"])
	assert.EqualValues(t, 6, s["word_count"])
	assert.Equal(t, "Mumbai local aaj phir late chali!", s["content_preview"])
}

func TestGenerateNumScriptsOutOfRange(t *testing.T) {
	for _, n := range []string{"0", "6", "-1"} {
		t.Run(n, func(t *testing.T) {
			h := newHarness(t, nil)
			code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": `+n+`}`)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["message"], "num_scripts")
			assert.Zero(t, h.externalCalls())
		})
	}
}

func TestGenerateBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"not json", "hello", "No JSON data provided"},
		{"empty list", `{"video_urls": []}`, "video_urls"},
		{"empty body", "", "No JSON data provided"},
		{"urls not a list", `{"video_urls": "https://youtube.com/watch?v=abcdefghijk"}`, "video_urls must be a list"},
		{"fractional num_scripts", `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": 2.5}`, "num_scripts must be an integer"},
		{"num_scripts as string", `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": "3"}`, "num_scripts must be an integer"},
		{"videos not a list", `{"videos": {"title": "x"}}`, "videos must be a list"},
		{"empty transcript", `{"videos": [{"title": "x", "transcript": " "}]}`, "transcript is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			code, body := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body["message"], tt.msg)
			assert.Zero(t, h.externalCalls())
		})
	}
}

func TestGenerateNoVideosProcessed(t *testing.T) {
	h := newHarness(t, nil)
	code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=zzzzzzzzzzz", "garbage"], "num_scripts": 2}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, reels.ErrNoVideosProcessed.Error(), body["message"])
	assert.Zero(t, h.llm.calls)
	assert.Zero(t, h.heads.calls)
	assert.Zero(t, h.uploader.calls)
}

func TestGenerateMissingCredentials(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.LLMAPIKey = ""
	h.cfg.GoogleCredsJSON = ""

	code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"]}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["message"], "GOOGLE_CREDS_JSON")
	assert.Zero(t, h.externalCalls())
}

func TestGenerateUploadFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.uploader.err = fmt.Errorf("%w: quota", sheets.ErrUpload)

	code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": 1}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "sheet upload error: quota", body["message"])
}

func TestGeneratePartial(t *testing.T) {
	h := newHarness(t, nil)
	code, body := post(t, h, `{"video_urls": ["https://youtube.com/watch?v=abcdefghijk"], "num_scripts": 3}`)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "partial", body["status"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["scripts_generated"])
	assert.NotEmpty(t, data["warnings"])
}

func TestIndexAndHealth(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := http.Get(h.srv.URL + "/")
	require.NoError(t, err)
	var index map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&index))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", index["status"])
	assert.Equal(t, "captions", index["strategy"])

	resp, err = http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health["status"])
	cfg := health["config"].(map[string]any)
	assert.Equal(t, true, cfg["llm_api_configured"])
	assert.Equal(t, true, cfg["google_sheets_configured"])
	assert.Equal(t, "Instagram Scripts", cfg["sheet_name"])

	resp, err = http.Get(h.srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	h := newHarness(t, nil)
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestRunsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := http.Get(h.srv.URL + "/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	h = newHarness(t, &stubRuns{runs: []runlog.Run{{RunID: "b"}, {RunID: "a"}}})
	resp, err = http.Get(h.srv.URL + "/runs?limit=1")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.EqualValues(t, 1, body["total"])

	resp, err = http.Get(h.srv.URL + "/runs?limit=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&engine.ConfigError{Missing: []string{"x"}}, http.StatusInternalServerError},
		{&engine.ValidationError{Field: "num_scripts", Message: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("run: %w", reels.ErrNoVideosProcessed), http.StatusBadRequest},
		{fmt.Errorf("%w: boom", sheets.ErrUpload), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := errorStatus(tt.err)
		assert.Equal(t, tt.want, got, "%v", tt.err)
	}
}
