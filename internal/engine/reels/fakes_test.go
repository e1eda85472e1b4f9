package reels

import (
	"context"
	"sync"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/engine/runlog"
	"github.com/anatolykoptev/go_reels/internal/engine/sheets"
)

type llmCall struct {
	prompt string
	opts   engine.CompletionOptions
}

type fakeLLM struct {
	mu    sync.Mutex
	calls []llmCall
	reply func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, opts engine.CompletionOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, llmCall{prompt: prompt, opts: opts})
	f.mu.Unlock()
	return f.reply(prompt)
}

type fakeAcquirer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeAcquirer) Name() string { return "fake" }

func (f *fakeAcquirer) Acquire(_ context.Context, videoID string) (engine.Transcript, error) {
	f.mu.Lock()
	f.calls = append(f.calls, videoID)
	f.mu.Unlock()
	if err := f.fail[videoID]; err != nil {
		return engine.Transcript{}, err
	}
	return engine.Transcript{VideoID: videoID, Text: "transcript of " + videoID, Language: "hi", Source: "fake"}, nil
}

type fakeHeadlines struct {
	calls int
	list  []string
}

func (f *fakeHeadlines) Headlines(context.Context) []string {
	f.calls++
	return f.list
}

type fakeUploader struct {
	batches []sheets.Batch
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, b sheets.Batch) (string, error) {
	f.batches = append(f.batches, b)
	if f.err != nil {
		return "", f.err
	}
	return "https://docs.google.com/spreadsheets/d/test", nil
}

type fakeRuns struct {
	runs []runlog.Run
}

func (f *fakeRuns) Record(_ context.Context, r runlog.Run) error {
	f.runs = append(f.runs, r)
	return nil
}
