package reels

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Verification limits.
const (
	verifySummaryRunes   = 1000
	verifySummariesRunes = 5000
	verifyHeadlines      = 30
	verifyHeadlinesRunes = 2500
)

// VerificationUnavailable replaces the verification text when the LLM call fails.
const VerificationUnavailable = "Verification unavailable due to API limits"

// ScoreNotAvailable is reported when no percentage can be extracted.
const ScoreNotAvailable = "N/A"

var verifyOpts = engine.CompletionOptions{Temperature: 0.2, MaxTokens: 1500}

// scoreRE matches the first percentage after a CREDIBILITY or RELEVANCE
// marker on the same or the next line, e.g. "📊 CREDIBILITY SCORE: 75%"
// or "**CREDIBILITY SCORE:**\n**75%**".
var scoreRE = regexp.MustCompile(`(?i)(?:CREDIBILITY|RELEVANCE)[^%\d\n]*(?:\n[^%\d\n]*)?(\d{1,3})[ \t]*%`)

// Verification is the verifier's reply and the score extracted from it.
type Verification struct {
	Text  string
	Score string
}

// Verifier cross-checks summaries against scraped headlines.
type Verifier struct {
	llm engine.Completer
}

func NewVerifier(llm engine.Completer) *Verifier {
	return &Verifier{llm: llm}
}

// Verify never fails: an LLM error yields the unavailable placeholder.
func (v *Verifier) Verify(ctx context.Context, summaries, headlines []string) Verification {
	prompt := fmt.Sprintf(engine.PromptVerify, videoBlock(summaries, verifySummaryRunes, verifySummariesRunes), headlineBlock(headlines))

	text, err := v.llm.Complete(ctx, prompt, verifyOpts)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("verification: llm failed", slog.Any("error", err))
		return Verification{Text: VerificationUnavailable, Score: ScoreNotAvailable}
	}
	text = strings.TrimSpace(text)
	return Verification{Text: text, Score: ExtractScore(text)}
}

// ExtractScore returns "NN%" from a verification reply, or "N/A".
func ExtractScore(text string) string {
	m := scoreRE.FindStringSubmatch(text)
	if len(m) < 2 {
		return ScoreNotAvailable
	}
	return m[1] + "%"
}

// videoBlock renders summaries as "VIDEO i:" sections, each capped at
// perRunes, the whole block capped at totalRunes.
func videoBlock(summaries []string, perRunes, totalRunes int) string {
	parts := make([]string, 0, len(summaries))
	for i, s := range summaries {
		parts = append(parts, fmt.Sprintf("VIDEO %d:\n%s", i+1, engine.TruncateRunes(s, perRunes, "")))
	}
	return engine.TruncateRunes(strings.Join(parts, "\n\n"), totalRunes, "")
}

func headlineBlock(headlines []string) string {
	if len(headlines) > verifyHeadlines {
		headlines = headlines[:verifyHeadlines]
	}
	if len(headlines) == 0 {
		return "(no headlines could be fetched)"
	}
	return engine.TruncateRunes(strings.Join(headlines, "\n"), verifyHeadlinesRunes, "")
}
