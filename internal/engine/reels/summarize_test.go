package reels

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

const (
	sWeather    = "The weather in the city stayed pleasant through the whole afternoon"
	sPolice     = "The police registered a case against the driver"
	sCafe       = "A new cafe opened near the railway station last Tuesday morning"
	sGovernment = "The state government launched a scheme for farmers in rural areas today"
	sCourt      = "The court heard the petition filed by local residents"
	sBeach      = "Many people went to the beach to enjoy the long weekend holiday"
)

var fallbackTranscript = strings.Join([]string{
	sWeather, sPolice, sCafe, sGovernment, sCourt, sBeach, sPolice, "Too short sentence",
}, ". ") + "."

func TestExtractiveSummaryRanking(t *testing.T) {
	got := ExtractiveSummary(fallbackTranscript, 15)
	assert.Equal(t, []string{sGovernment, sCourt, sPolice, sWeather, sCafe, sBeach}, got)
}

func TestExtractiveSummaryKeywordSentencesFirst(t *testing.T) {
	got := ExtractiveSummary(fallbackTranscript, 3)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Positive(t, keywordScore(s), "non-keyword sentence ranked in top 3: %q", s)
	}
}

func TestExtractiveSummaryEdgeCases(t *testing.T) {
	assert.Empty(t, ExtractiveSummary("", 5))
	assert.Empty(t, ExtractiveSummary(fallbackTranscript, 0))
	assert.Empty(t, ExtractiveSummary("short. tiny! small?", 5))
}

func TestExtractiveSummaryDanda(t *testing.T) {
	text := "मुंबई में पुलिस ने आज तीन लोगों को गिरफ्तार किया है। शहर में मौसम आज काफी सुहावना रहा और लोग घूमने निकले।"
	got := ExtractiveSummary(text, 5)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "पुलिस")
}

func TestSummarizeUsesLLM(t *testing.T) {
	llm := &fakeLLM{reply: func(prompt string) (string, error) {
		return "  [1] Story one - details  ", nil
	}}
	s := NewSummarizer(llm)
	got := s.Summarize(context.Background(), engine.Transcript{VideoID: "abcdefghijk", Text: "x", Language: "hi"})
	assert.Equal(t, "[1] Story one - details", got)
	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].prompt, "VIDEO ID: abcdefghijk")
	assert.Equal(t, 0.3, llm.calls[0].opts.Temperature)
	assert.Equal(t, 2500, llm.calls[0].opts.MaxTokens)
}

func TestSummarizeTruncatesTranscript(t *testing.T) {
	llm := &fakeLLM{reply: func(string) (string, error) { return "ok", nil }}
	long := strings.Repeat("क", 20000)
	NewSummarizer(llm).Summarize(context.Background(), engine.Transcript{Text: long})
	require.Len(t, llm.calls, 1)
	assert.Equal(t, 15000, strings.Count(llm.calls[0].prompt, "क"))
}

func TestSummarizeFallsBack(t *testing.T) {
	llm := &fakeLLM{reply: func(string) (string, error) { return "", errors.New("429 quota") }}
	got := NewSummarizer(llm).Summarize(context.Background(), engine.Transcript{Text: fallbackTranscript})
	lines := strings.Split(got, "\n")
	assert.Equal(t, sGovernment, lines[0])
	assert.Len(t, lines, 6)
}

func TestSummarizeFallbackKeepsShortTranscript(t *testing.T) {
	llm := &fakeLLM{reply: func(string) (string, error) { return "", errors.New("429 quota") }}
	s := NewSummarizer(llm)

	got := s.Summarize(context.Background(), engine.Transcript{Text: "Pune mein baarish.  Sab band!"})
	assert.Equal(t, "Pune mein baarish. Sab band!", got)

	long := strings.Repeat("Sab band. ", 300)
	got = s.Summarize(context.Background(), engine.Transcript{Text: long})
	assert.Equal(t, 1500, len([]rune(got)))

	assert.Empty(t, s.Summarize(context.Background(), engine.Transcript{Text: " \n "}))
}
