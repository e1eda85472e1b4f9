package reels

import (
	"context"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Generation limits.
const (
	generateSummaryRunes      = 1000
	generateSummariesRunes    = 6000
	generateVerificationRunes = 800
)

var generateOpts = engine.CompletionOptions{Temperature: 0.95, MaxTokens: 8000}

// ErrEmptyGeneration is returned when the model answers with nothing.
var ErrEmptyGeneration = errors.New("script generation returned empty text")

// Generator writes raw reels scripts from summaries and a verification.
type Generator struct {
	llm engine.Completer
}

func NewGenerator(llm engine.Completer) *Generator {
	return &Generator{llm: llm}
}

// Generate returns the model's raw text. Unlike the summary and
// verification stages there is no fallback: callers get the error.
func (g *Generator) Generate(ctx context.Context, summaries []string, verification string, n int) (string, error) {
	block := videoBlock(summaries, generateSummaryRunes, generateSummariesRunes)
	verif := engine.TruncateRunes(verification, generateVerificationRunes, "")
	prompt := fmt.Sprintf(engine.PromptScripts, n, block, verif, n)

	text, err := g.llm.Complete(ctx, prompt, generateOpts)
	if err != nil {
		return "", fmt.Errorf("generate scripts: %w", err)
	}
	text = engine.StripFences(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}
