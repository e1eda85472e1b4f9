package reels

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Summary limits.
const (
	summaryTranscriptRunes = 15000
	fallbackSentences      = 15
	fallbackRawRunes       = 1500
	minSentenceRunes       = 30 // exclusive
)

var summaryOpts = engine.CompletionOptions{Temperature: 0.3, MaxTokens: 2500}

// newsKeywords score sentences in the extractive fallback.
var newsKeywords = []string{
	// Hindi
	"सरकार", "मुख्यमंत्री", "मंत्री", "पुलिस", "कोर्ट", "अदालत", "चुनाव", "हादसा", "दुर्घटना",
	"योजना", "किसान", "विरोध", "प्रदर्शन", "करोड़", "लाख", "मौत", "गिरफ्तार", "बजट",
	// Marathi
	"शासन", "पोलीस", "न्यायालय", "निवडणूक", "अपघात", "शेतकरी", "आंदोलन", "कोटी",
	// English / Hinglish
	"government", "minister", "police", "court", "election", "accident", "scheme",
	"protest", "crore", "lakh", "arrest", "budget", "farmer", "announced",
}

// Summarizer condenses one transcript into news stories.
type Summarizer struct {
	llm engine.Completer
}

func NewSummarizer(llm engine.Completer) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize asks the LLM for a story list and falls back to keyword
// extraction on any failure. The result is empty only when the transcript
// is blank.
func (s *Summarizer) Summarize(ctx context.Context, tr engine.Transcript) string {
	text := engine.TruncateRunes(tr.Text, summaryTranscriptRunes, "")
	prompt := fmt.Sprintf(engine.PromptSummary, tr.VideoID, tr.Language, text)

	summary, err := s.llm.Complete(ctx, prompt, summaryOpts)
	if err == nil && strings.TrimSpace(summary) != "" {
		return strings.TrimSpace(summary)
	}
	if err == nil {
		err = fmt.Errorf("empty completion")
	}

	engine.IncrSummaryFallbacks()
	slog.Warn("summary: llm failed, using keyword extraction",
		slog.String("video_id", tr.VideoID), slog.Any("error", err))
	if sents := ExtractiveSummary(tr.Text, fallbackSentences); len(sents) > 0 {
		return strings.Join(sents, "\n")
	}
	// No sentence long enough to rank: pass the transcript head through.
	return engine.TruncateRunes(engine.CollapseSpace(tr.Text), fallbackRawRunes, "")
}

// sentenceSplitter breaks text on sentence terminators including the Devanagari danda.
var sentenceSplitter = strings.NewReplacer("!", ".", "?", ".", "।", ".", "\n", ".")

type scoredSentence struct {
	text  string
	score int
	runes int
}

// ExtractiveSummary returns up to k distinct sentences longer than 30 runes,
// ranked by keyword score then length, both descending. Equal pairs keep
// transcript order.
func ExtractiveSummary(text string, k int) []string {
	if k <= 0 {
		return nil
	}
	seen := make(map[string]bool)
	var cands []scoredSentence
	for _, raw := range strings.Split(sentenceSplitter.Replace(text), ".") {
		sent := engine.CollapseSpace(raw)
		n := utf8.RuneCountInString(sent)
		if n <= minSentenceRunes || seen[sent] {
			continue
		}
		seen[sent] = true
		cands = append(cands, scoredSentence{text: sent, score: keywordScore(sent), runes: n})
	}

	slices.SortStableFunc(cands, func(a, b scoredSentence) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.runes, a.runes)
	})

	out := make([]string, 0, min(k, len(cands)))
	for _, c := range cands[:min(k, len(cands))] {
		out = append(out, c.text)
	}
	return out
}

func keywordScore(sentence string) int {
	lower := strings.ToLower(sentence)
	score := 0
	for _, kw := range newsKeywords {
		score += strings.Count(lower, strings.ToLower(kw))
	}
	return score
}
