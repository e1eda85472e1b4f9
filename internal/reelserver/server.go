// Package reelserver exposes the reels pipeline over HTTP and MCP.
package reelserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/engine/reels"
	"github.com/anatolykoptev/go_reels/internal/engine/runlog"
	"github.com/anatolykoptev/go_reels/internal/engine/sheets"
	"github.com/anatolykoptev/go_reels/internal/toolutil"
)

const maxBodyBytes = 4 << 20

// Runner executes one generate request.
type Runner interface {
	Run(ctx context.Context, runID string, in engine.GenerateInput) (*reels.Result, error)
}

// RunLister lists recent runs.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]runlog.Run, error)
}

// Server holds the HTTP handlers. Runs may be nil when the run log is disabled.
type Server struct {
	cfg    *engine.Config
	runner Runner
	runs   RunLister
	model  string
	newID  func() string
}

func New(cfg *engine.Config, runner Runner, runs RunLister, model string) *Server {
	return &Server{cfg: cfg, runner: runner, runs: runs, model: model, newID: uuid.NewString}
}

// Handler returns the routed, CORS-enabled handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /runs", s.handleRuns)
	return cors.AllowAll().Handler(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	toolutil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "running",
		"service":  "Instagram Reels Script Generator",
		"version":  s.cfg.Version,
		"model":    s.model,
		"provider": s.cfg.LLMProvider,
		"strategy": s.cfg.TranscriptStrategy,
		"endpoints": map[string]string{
			"/":         "GET - service info",
			"/health":   "GET - health check",
			"/generate": "POST - generate scripts from YouTube videos",
			"/metrics":  "GET - operational counters",
			"/runs":     "GET - recent runs",
		},
		"features": []string{
			"transcript strategy: " + s.cfg.TranscriptStrategy,
			"LLM summaries with keyword fallback",
			"headline cross-check with credibility score",
			"Hinglish reels scripts",
			"Google Sheets export",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	toolutil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"config": map[string]any{
			"llm_api_configured":       s.cfg.LLMAPIKey != "",
			"google_sheets_configured": s.cfg.GoogleCredsJSON != "",
			"sheet_name":               s.cfg.SheetName,
			"model":                    s.model,
			"provider":                 s.cfg.LLMProvider,
			"strategy":                 s.cfg.TranscriptStrategy,
			"run_log_enabled":          s.runs != nil,
		},
	})
}

type generateResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Data    engine.GenerateOutput `json:"data"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.CheckCredentials(); err != nil {
		slog.Error("generate: server misconfigured", slog.Any("error", err))
		toolutil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var in engine.GenerateInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		toolutil.WriteError(w, http.StatusBadRequest, decodeMessage(err))
		return
	}

	runID := s.newID()
	res, err := s.runner.Run(r.Context(), runID, in)
	if err != nil {
		status, msg := errorStatus(err)
		toolutil.WriteError(w, status, msg)
		return
	}
	toolutil.WriteJSON(w, http.StatusOK, generateResponse{
		Status:  res.Status,
		Message: resultMessage(res),
		Data:    res.Output,
	})
}

// errorStatus maps pipeline errors onto HTTP status codes.
func errorStatus(err error) (int, string) {
	var cfgErr *engine.ConfigError
	var valErr *engine.ValidationError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, err.Error()
	case errors.As(err, &valErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, reels.ErrNoVideosProcessed):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sheets.ErrUpload):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Internal server error: %v", err)
	}
}

// decodeMessage names the offending field when the body is valid JSON of
// the wrong shape.
func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be %s", typeErr.Field, kindName(typeErr.Type))
	}
	return "No JSON data provided"
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "a different type"
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	}
	return "a " + t.Kind().String()
}

func resultMessage(res *reels.Result) string {
	out := res.Output
	if res.Status == runlog.StatusPartial {
		return fmt.Sprintf("Generated %d scripts from %d videos with warnings", out.ScriptsGenerated, out.VideosProcessed)
	}
	return fmt.Sprintf("Successfully generated %d scripts from %d videos", out.ScriptsGenerated, out.VideosProcessed)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, engine.FormatMetrics())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		toolutil.WriteError(w, http.StatusNotFound, "run log is disabled; set RUNLOG_PATH")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			toolutil.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("runs: query failed", slog.Any("error", err))
		toolutil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	toolutil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "runs": runs, "total": len(runs)})
}
