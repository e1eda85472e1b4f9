package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// minTranscriptRunes is the shortest reply accepted as a real transcript.
const minTranscriptRunes = 100

// VideoModel generates text from a prompt and a video URI.
type VideoModel interface {
	Transcribe(ctx context.Context, videoURL, prompt string) (string, error)
}

// GeminiVideo is a VideoModel backed by the Gemini API.
type GeminiVideo struct {
	client *genai.Client
	model  string
}

// NewGeminiVideo creates a Gemini client for model.
func NewGeminiVideo(ctx context.Context, apiKey, model string) (*GeminiVideo, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiVideo{client: client, model: model}, nil
}

func (g *GeminiVideo) Transcribe(ctx context.Context, videoURL, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromURI(videoURL, "video/*"),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 8000,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// VideoTranscriber asks a multimodal model to transcribe the video directly.
type VideoTranscriber struct {
	model   VideoModel
	limiter *rate.Limiter
	retry   engine.RetryPolicy
}

// NewVideoTranscriber wraps model. limiter may be nil.
func NewVideoTranscriber(model VideoModel, limiter *rate.Limiter) *VideoTranscriber {
	return &VideoTranscriber{model: model, limiter: limiter, retry: engine.TranscriptRetryPolicy}
}

func (v *VideoTranscriber) Name() string { return engine.StrategyLLM }

func (v *VideoTranscriber) Acquire(ctx context.Context, videoID string) (engine.Transcript, error) {
	engine.IncrTranscriptRequests()
	tr := engine.Transcript{VideoID: videoID, Source: v.Name()}

	text, err := engine.RetryDo(ctx, v.retry, func() (string, error) {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		text, err := v.model.Transcribe(ctx, WatchURL(videoID), engine.PromptTranscript)
		if err != nil {
			slog.Warn("video transcript attempt failed", slog.String("id", videoID), slog.Any("error", err))
			return "", err
		}
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) <= minTranscriptRunes {
			return "", fmt.Errorf("%w: transcript too short (%d runes)", ErrNoTranscript, utf8.RuneCountInString(text))
		}
		return text, nil
	})
	if err != nil {
		engine.IncrTranscriptErrors()
		return tr, fmt.Errorf("video transcript %s: %w", videoID, err)
	}

	tr.Text = text
	tr.Language = engine.DetectLanguage(text)
	return tr, nil
}
