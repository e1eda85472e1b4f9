// Package reels turns news videos into Instagram Reels scripts.
package reels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/engine/runlog"
	"github.com/anatolykoptev/go_reels/internal/engine/sheets"
	"github.com/anatolykoptev/go_reels/internal/engine/sources"
)

// ErrNoVideosProcessed is returned when every video failed acquisition or summarization.
var ErrNoVideosProcessed = errors.New("No videos could be processed. Check if videos have captions/are accessible.")

const slowGeneration = 90 * time.Second

// HeadlineSource supplies current headlines for verification. It never fails.
type HeadlineSource interface {
	Headlines(ctx context.Context) []string
}

// Uploader stores a batch of scripts and returns where they landed.
type Uploader interface {
	Upload(ctx context.Context, b sheets.Batch) (string, error)
}

// RunRecorder persists a run summary.
type RunRecorder interface {
	Record(ctx context.Context, r runlog.Run) error
}

// Deps are the collaborators of a Pipeline. Runs may be nil.
type Deps struct {
	LLM       engine.Completer
	Model     string
	Acquirer  sources.Acquirer
	Headlines HeadlineSource
	Uploader  Uploader
	Runs      RunRecorder
}

// Pipeline runs one generate request end to end, strictly sequentially.
type Pipeline struct {
	cfg        *engine.Config
	deps       Deps
	summarizer *Summarizer
	verifier   *Verifier
	generator  *Generator

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(cfg *engine.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		summarizer: NewSummarizer(deps.LLM),
		verifier:   NewVerifier(deps.LLM),
		generator:  NewGenerator(deps.LLM),
		sleep:      engine.Sleep,
		now:        time.Now,
	}
}

// Result is a finished run. Status is "success", or "partial" when fewer
// scripts than requested came back.
type Result struct {
	Status string
	Output engine.GenerateOutput
}

// Run validates in and executes the pipeline. Validation errors are
// returned before any external call is made.
func (p *Pipeline) Run(ctx context.Context, runID string, in engine.GenerateInput) (*Result, error) {
	n, err := in.Validate(p.cfg.MaxVideos)
	if err != nil {
		return nil, err
	}

	engine.IncrRuns()
	log := slog.With(slog.String("run_id", runID))
	requested := max(len(in.Videos), len(in.VideoURLs))
	log.Info("run started", slog.Int("videos", requested), slog.Int("num_scripts", n))

	run := runlog.Run{RunID: runID, VideosRequested: requested}
	fail := func(err error) (*Result, error) {
		engine.IncrRunErrors()
		run.Status = runlog.StatusFailed
		run.Error = err.Error()
		p.record(ctx, log, run)
		log.Error("run failed", slog.Any("error", err))
		return nil, err
	}

	summaries, warnings, err := p.summarize(ctx, log, in)
	if err != nil {
		return fail(err)
	}
	run.VideosProcessed = len(summaries)
	if len(summaries) == 0 {
		run.Warnings = warnings
		return fail(ErrNoVideosProcessed)
	}

	if err := p.pause(ctx); err != nil {
		return fail(err)
	}
	headlines := p.deps.Headlines.Headlines(ctx)
	log.Info("headlines fetched", slog.Int("count", len(headlines)))
	if len(headlines) == 0 {
		warnings = append(warnings, "no headlines could be fetched; verification used summaries only")
	}
	verification := p.verifier.Verify(ctx, summaries, headlines)
	if verification.Text == VerificationUnavailable {
		warnings = append(warnings, VerificationUnavailable)
	}

	if err := p.pause(ctx); err != nil {
		return fail(err)
	}
	var raw string
	err = engine.TrackOperation(ctx, "generate_scripts", slowGeneration, func(ctx context.Context) error {
		var gerr error
		raw, gerr = p.generator.Generate(ctx, summaries, verification.Text, n)
		return gerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		log.Warn("script generation failed", slog.Any("error", err))
		warnings = append(warnings, fmt.Sprintf("script generation failed: %v", err))
	}

	parsed := ParseScripts(raw, n)
	warnings = append(warnings, parsed.Warnings...)
	timestamp := p.now().Format(sheets.TimeLayout)

	var sheetURL string
	if len(parsed.Scripts) > 0 {
		sheetURL, err = p.deps.Uploader.Upload(ctx, sheets.Batch{
			Scripts:         parsed.Scripts,
			Timestamp:       timestamp,
			VideosProcessed: len(summaries),
			Credibility:     verification.Score,
		})
		if err != nil {
			run.Warnings = warnings
			return fail(err)
		}
	} else {
		warnings = append(warnings, "no scripts to upload; spreadsheet left unchanged")
	}

	status := runlog.StatusSuccess
	if len(parsed.Scripts) < n {
		status = runlog.StatusPartial
	}

	out := engine.GenerateOutput{
		RunID:            runID,
		VideosProcessed:  len(summaries),
		ScriptsGenerated: len(parsed.Scripts),
		SheetURL:         sheetURL,
		Credibility:      verification.Score,
		Timestamp:        timestamp,
		ModelUsed:        p.deps.Model,
		Scripts:          make([]engine.ScriptPreview, 0, len(parsed.Scripts)),
		Warnings:         warnings,
	}
	for _, s := range parsed.Scripts {
		out.Scripts = append(out.Scripts, s.Preview())
	}

	run.ScriptsGenerated = out.ScriptsGenerated
	run.Credibility = out.Credibility
	run.SheetURL = sheetURL
	run.Status = status
	run.Warnings = warnings
	p.record(ctx, log, run)

	log.Info("run finished", slog.String("status", status),
		slog.Int("videos_processed", out.VideosProcessed), slog.Int("scripts", out.ScriptsGenerated))
	return &Result{Status: status, Output: out}, nil
}

// summarize produces one summary per usable video. Per-video failures become
// warnings; only context cancellation aborts.
func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, in engine.GenerateInput) ([]string, []string, error) {
	var summaries, warnings []string

	if len(in.Videos) > 0 {
		for i, v := range in.Videos {
			if i > 0 {
				if err := p.pause(ctx); err != nil {
					return nil, nil, err
				}
			}
			tr := engine.Transcript{
				VideoID:  fmt.Sprintf("input-%d", i+1),
				Title:    v.Title,
				Text:     v.Transcript,
				Language: engine.DetectLanguage(v.Transcript),
				Source:   "input",
			}
			if s := p.summarizer.Summarize(ctx, tr); s != "" {
				summaries = append(summaries, s)
			} else {
				warnings = append(warnings, fmt.Sprintf("video %d (%s): transcript is empty", i+1, v.Title))
			}
		}
		return summaries, warnings, nil
	}

	for i, u := range in.VideoURLs {
		id := sources.ExtractVideoID(u)
		if id == "" {
			log.Warn("invalid video url", slog.String("url", u))
			warnings = append(warnings, fmt.Sprintf("invalid video URL skipped: %s", u))
			continue
		}
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, nil, err
			}
		}

		tr, err := p.deps.Acquirer.Acquire(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Warn("transcript failed", slog.String("video_id", id), slog.Any("error", err))
			warnings = append(warnings, fmt.Sprintf("video %s skipped: %v", id, err))
			continue
		}
		log.Info("transcript acquired", slog.String("video_id", id),
			slog.String("language", tr.Language), slog.String("source", tr.Source))

		s := p.summarizer.Summarize(ctx, tr)
		if s == "" {
			warnings = append(warnings, fmt.Sprintf("video %s skipped: transcript is empty", id))
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, warnings, nil
}

func (p *Pipeline) pause(ctx context.Context) error {
	return p.sleep(ctx, p.cfg.LLMPause)
}

// record is best-effort and outlives request cancellation.
func (p *Pipeline) record(ctx context.Context, log *slog.Logger, r runlog.Run) {
	if p.deps.Runs == nil {
		return
	}
	if err := p.deps.Runs.Record(context.WithoutCancel(ctx), r); err != nil {
		log.Warn("run log write failed", slog.Any("error", err))
	}
}
