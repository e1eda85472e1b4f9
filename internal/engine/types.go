package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Script count bounds and default.
const (
	MinScripts     = 1
	MaxScripts     = 5
	DefaultScripts = 2
)

// Transcript is the text content of one video.
type Transcript struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Source   string `json:"source"` // strategy that produced it
}

// Script is one parsed reels script.
type Script struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Theme     string `json:"theme"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// VideoInput is a caller-supplied transcript used instead of fetching one.
type VideoInput struct {
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
}

// GenerateInput is the body of a generate request.
type GenerateInput struct {
	VideoURLs  []string     `json:"video_urls,omitempty" jsonschema:"YouTube video URLs (up to 5 are processed)"`
	Videos     []VideoInput `json:"videos,omitempty" jsonschema:"Pre-extracted transcripts, used instead of video_urls"`
	NumScripts *int         `json:"num_scripts,omitempty" jsonschema:"Number of scripts to generate (1-5, default 2)"`
}

// ValidationError reports a bad request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the request and returns the normalised script count.
// Video lists longer than maxVideos are truncated in place.
func (in *GenerateInput) Validate(maxVideos int) (int, error) {
	if len(in.Videos) == 0 && len(in.VideoURLs) == 0 {
		return 0, &ValidationError{Field: "video_urls", Message: "Please provide video_urls or videos as a non-empty list"}
	}
	if len(in.Videos) > 0 {
		for i, v := range in.Videos {
			if strings.TrimSpace(v.Transcript) == "" {
				return 0, &ValidationError{Field: "videos", Message: fmt.Sprintf("videos[%d].transcript is empty", i)}
			}
		}
		if maxVideos > 0 && len(in.Videos) > maxVideos {
			in.Videos = in.Videos[:maxVideos]
		}
		in.VideoURLs = nil
	} else if maxVideos > 0 && len(in.VideoURLs) > maxVideos {
		in.VideoURLs = in.VideoURLs[:maxVideos]
	}

	n := DefaultScripts
	if in.NumScripts != nil {
		n = *in.NumScripts
	}
	if n < MinScripts || n > MaxScripts {
		return 0, &ValidationError{Field: "num_scripts", Message: fmt.Sprintf("num_scripts must be between %d and %d", MinScripts, MaxScripts)}
	}
	return n, nil
}

// ScriptPreview is the per-script summary returned to callers.
type ScriptPreview struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Theme          string `json:"theme"`
	WordCount      int    `json:"word_count"`
	ContentPreview string `json:"content_preview"`
}

// Preview builds a ScriptPreview with the first 200 runes of content,
// marked with "..." only when something was cut.
func (s Script) Preview() ScriptPreview {
	preview := s.Content
	if utf8.RuneCountInString(preview) > previewRunes {
		preview = TruncateRunes(preview, previewRunes, "") + "..."
	}
	return ScriptPreview{
		Number:         s.Number,
		Title:          s.Title,
		Theme:          s.Theme,
		WordCount:      s.WordCount,
		ContentPreview: preview,
	}
}

const previewRunes = 200

// GenerateOutput is the data section of a generate response.
type GenerateOutput struct {
	RunID            string          `json:"run_id"`
	VideosProcessed  int             `json:"videos_processed"`
	ScriptsGenerated int             `json:"scripts_generated"`
	SheetURL         string          `json:"sheet_url"`
	Credibility      string          `json:"credibility"`
	Timestamp        string          `json:"timestamp"`
	ModelUsed        string          `json:"model_used"`
	Scripts          []ScriptPreview `json:"scripts"`
	Warnings         []string        `json:"warnings,omitempty"`
}
