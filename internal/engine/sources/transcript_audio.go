package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// AudioDownloader writes the best audio track of a video to w.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoID string, w io.Writer) (ext string, err error)
}

// SpeechToText transcribes an audio file.
type SpeechToText interface {
	Transcribe(ctx context.Context, path string) (text, lang string, err error)
}

// YouTubeAudio downloads audio streams with kkdai/youtube.
type YouTubeAudio struct {
	client youtube.Client
}

// NewYouTubeAudio uses httpClient for all stream requests.
func NewYouTubeAudio(httpClient *http.Client) *YouTubeAudio {
	return &YouTubeAudio{client: youtube.Client{HTTPClient: httpClient}}
}

func (y *YouTubeAudio) DownloadAudio(ctx context.Context, videoID string, w io.Writer) (string, error) {
	video, err := y.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("video metadata: %w", err)
	}

	format, ok := bestAudio(video.Formats)
	if !ok {
		return "", errors.New("no audio-only format")
	}

	stream, _, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(w, stream); err != nil {
		return "", fmt.Errorf("copy stream: %w", err)
	}
	return audioExt(format.MimeType), nil
}

// bestAudio picks the audio-only format with the highest bitrate.
func bestAudio(formats youtube.FormatList) (*youtube.Format, bool) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best, best != nil
}

func audioExt(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mime, "audio/mp4"):
		return ".m4a"
	default:
		return ".audio"
	}
}

// Whisper is a SpeechToText backed by an OpenAI-compatible transcription endpoint.
// A single instance is shared by all requests.
type Whisper struct {
	client *openai.Client
	model  string
}

// NewWhisper points the OpenAI client at baseURL (e.g. Groq) when non-empty.
func NewWhisper(apiKey, baseURL, model string) *Whisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Whisper{client: openai.NewClientWithConfig(cfg), model: model}
}

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Text, languageCode(resp.Language), nil
}

// languageCode maps whisper's language names to the short codes used elsewhere.
func languageCode(name string) string {
	switch strings.ToLower(name) {
	case "hindi", "hi":
		return "hi"
	case "marathi", "mr":
		return "mr"
	case "english", "en":
		return "en"
	}
	return ""
}

// AudioTranscriber downloads audio to a temp file and runs speech-to-text on it.
type AudioTranscriber struct {
	downloader AudioDownloader
	stt        SpeechToText
	tempDir    string
}

// NewAudioTranscriber builds the download+transcribe strategy.
// tempDir "" uses os.TempDir.
func NewAudioTranscriber(d AudioDownloader, stt SpeechToText, tempDir string) *AudioTranscriber {
	return &AudioTranscriber{downloader: d, stt: stt, tempDir: tempDir}
}

func (a *AudioTranscriber) Name() string { return engine.StrategyAudio }

func (a *AudioTranscriber) Acquire(ctx context.Context, videoID string) (engine.Transcript, error) {
	engine.IncrTranscriptRequests()
	tr := engine.Transcript{VideoID: videoID, Source: a.Name()}

	text, lang, err := a.downloadAndTranscribe(ctx, videoID)
	if err != nil {
		engine.IncrTranscriptErrors()
		return tr, fmt.Errorf("audio transcript %s: %w", videoID, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		engine.IncrTranscriptErrors()
		return tr, fmt.Errorf("audio transcript %s: %w", videoID, ErrNoTranscript)
	}

	tr.Text = text
	tr.Language = lang
	if tr.Language == "" {
		tr.Language = engine.DetectLanguage(text)
	}
	return tr, nil
}

func (a *AudioTranscriber) downloadAndTranscribe(ctx context.Context, videoID string) (string, string, error) {
	f, err := os.CreateTemp(a.tempDir, "reels-"+videoID+"-*")
	if err != nil {
		return "", "", fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("audio: temp file not removed", slog.String("path", path), slog.Any("error", err))
		}
	}()

	ext, err := a.downloader.DownloadAudio(ctx, videoID, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", "", fmt.Errorf("download: %w", err)
	}

	// Transcription endpoints sniff the format from the file extension.
	named := path + ext
	if err := os.Rename(path, named); err != nil {
		return "", "", fmt.Errorf("rename temp file: %w", err)
	}
	path = named

	return a.stt.Transcribe(ctx, path)
}
