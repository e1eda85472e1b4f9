package reels

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrompt(t *testing.T) {
	llm := &fakeLLM{reply: func(string) (string, error) { return "SCRIPT 1\nTITLE: x", nil }}

	summaries := []string{strings.Repeat("अ", 2000), strings.Repeat("ब", 2000)}
	verification := strings.Repeat("व", 1200)

	got, err := NewGenerator(llm).Generate(context.Background(), summaries, verification, 3)
	require.NoError(t, err)
	assert.Equal(t, "SCRIPT 1\nTITLE: x", got)

	require.Len(t, llm.calls, 1)
	p := llm.calls[0].prompt
	assert.Contains(t, p, "Write 3 long")
	assert.Contains(t, p, "Write all 3 scripts")
	assert.Equal(t, 1000, strings.Count(p, "अ"))
	assert.Equal(t, 1000, strings.Count(p, "ब"))
	assert.Equal(t, 800, strings.Count(p, "व"))
	assert.Equal(t, 0.95, llm.calls[0].opts.Temperature)
	assert.Equal(t, 8000, llm.calls[0].opts.MaxTokens)
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	llm := &fakeLLM{reply: func(string) (string, error) { return "", boom }}
	_, err := NewGenerator(llm).Generate(context.Background(), []string{"s"}, "v", 1)
	require.ErrorIs(t, err, boom)

	empty := &fakeLLM{reply: func(string) (string, error) { return "  \n", nil }}
	_, err = NewGenerator(empty).Generate(context.Background(), []string{"s"}, "v", 1)
	require.ErrorIs(t, err, ErrEmptyGeneration)
}

func TestGenerateStripsFences(t *testing.T) {
	llm := &fakeLLM{reply: func(string) (string, error) { return "```text\nSCRIPT 1\nTITLE: x\n```", nil }}
	got, err := NewGenerator(llm).Generate(context.Background(), []string{"s"}, "v", 1)
	require.NoError(t, err)
	assert.Equal(t, "SCRIPT 1\nTITLE: x", got)
}
