package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Runs               atomic.Int64
	RunErrors          atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	SummaryFallbacks   atomic.Int64
	HeadlineFetches    atomic.Int64
	HeadlineErrors     atomic.Int64
	SheetUploads       atomic.Int64
	SheetErrors        atomic.Int64
}

var metricKeys = []string{
	"runs", "run_errors",
	"llm_calls", "llm_errors",
	"transcript_requests", "transcript_errors", "summary_fallbacks",
	"headline_fetches", "headline_errors",
	"sheet_uploads", "sheet_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"runs":                metrics.Runs.Load(),
		"run_errors":          metrics.RunErrors.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"summary_fallbacks":   metrics.SummaryFallbacks.Load(),
		"headline_fetches":    metrics.HeadlineFetches.Load(),
		"headline_errors":     metrics.HeadlineErrors.Load(),
		"sheet_uploads":       metrics.SheetUploads.Load(),
		"sheet_errors":        metrics.SheetErrors.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrRuns()               { metrics.Runs.Add(1) }
func IncrRunErrors()          { metrics.RunErrors.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptErrors()   { metrics.TranscriptErrors.Add(1) }
func IncrSummaryFallbacks()   { metrics.SummaryFallbacks.Add(1) }
func IncrHeadlineFetches()    { metrics.HeadlineFetches.Add(1) }
func IncrHeadlineErrors()     { metrics.HeadlineErrors.Add(1) }
func IncrSheetUploads()       { metrics.SheetUploads.Add(1) }
func IncrSheetErrors()        { metrics.SheetErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
