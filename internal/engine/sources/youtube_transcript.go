package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// CaptionScraper fetches YouTube caption tracks without an API key.
// Primary:  watch page ytInitialPlayerResponse → timedtext XML
// Fallback: engagement panel /next → /get_transcript
// Fallback: ANDROID Innertube /player → captionTracks
type CaptionScraper struct {
	name   string
	client *http.Client
	langs  []string
	retry  engine.RetryPolicy
}

// NewCaptionScraper builds a scraper that requests langs in order.
// client carries any proxy settings; it is owned by this scraper.
func NewCaptionScraper(name string, client *http.Client, langs []string) *CaptionScraper {
	if client == nil {
		client = http.DefaultClient
	}
	if len(langs) == 0 {
		langs = []string{"hi", "mr", "en"}
	}
	return &CaptionScraper{name: name, client: client, langs: langs, retry: engine.DefaultRetryPolicy}
}

func (s *CaptionScraper) Name() string { return s.name }

// Acquire returns the first caption track found in the preferred languages.
func (s *CaptionScraper) Acquire(ctx context.Context, videoID string) (engine.Transcript, error) {
	engine.IncrTranscriptRequests()
	tr := engine.Transcript{VideoID: videoID, Source: s.name}

	text, lang, err := s.viaWatchPage(ctx, videoID)
	if err != nil {
		slog.Warn("youtube: page scrape failed, trying engagement panel",
			slog.String("id", videoID), slog.Any("error", err))
		text, err = s.viaEngagementPanel(ctx, videoID)
		lang = ""
	}
	if err != nil {
		slog.Warn("youtube: engagement panel failed, trying player",
			slog.String("id", videoID), slog.Any("error", err))
		text, lang, err = s.viaPlayer(ctx, videoID)
	}
	if err != nil {
		engine.IncrTranscriptErrors()
		return tr, fmt.Errorf("captions %s: %w", videoID, err)
	}
	if strings.TrimSpace(text) == "" {
		engine.IncrTranscriptErrors()
		return tr, fmt.Errorf("captions %s: %w", videoID, ErrNoTranscript)
	}

	tr.Text = text
	tr.Language = lang
	if tr.Language == "" {
		tr.Language = engine.DetectLanguage(text)
	}
	return tr, nil
}

// pickTrack selects a usable track in the first preferred language that has one.
// Manual tracks win over auto-generated ones in the same language.
// Tracks that need a PoToken (browser-only) are skipped.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !strings.Contains(t.BaseURL, "&exp=xpe") {
			usable = append(usable, t)
		}
	}
	for _, lang := range langs {
		var asr *captionTrack
		for i, t := range usable {
			if t.LanguageCode != lang && !strings.HasPrefix(t.LanguageCode, lang+"-") {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if asr == nil {
				asr = &usable[i]
			}
		}
		if asr != nil {
			return *asr, true
		}
	}
	return captionTrack{}, false
}

func (s *CaptionScraper) trackText(ctx context.Context, tracks []captionTrack) (string, string, error) {
	if len(tracks) == 0 {
		return "", "", errors.New("no caption tracks")
	}
	track, ok := pickTrack(tracks, s.langs)
	if !ok {
		return "", "", fmt.Errorf("no usable track in %v", s.langs)
	}
	text, err := s.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return "", "", err
	}
	return text, track.LanguageCode, nil
}

// fetchTimedText fetches and flattens a timedtext XML caption URL.
func (s *CaptionScraper) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	resp, err := engine.RetryHTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentDesktop)
		return s.client.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", err
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	parts := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		if text := engine.CleanHTML(line.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

const playerResponseMarker = "ytInitialPlayerResponse = "

func (s *CaptionScraper) viaWatchPage(ctx context.Context, videoID string) (string, string, error) {
	resp, err := engine.RetryHTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, WatchURL(videoID), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9,en;q=0.8")
		return s.client.Do(req)
	})
	if err != nil {
		return "", "", fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return "", "", fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return "", "", errors.New("ytInitialPlayerResponse not found")
	}
	raw := balancedJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return "", "", errors.New("unterminated ytInitialPlayerResponse")
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return "", "", fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return s.trackText(ctx, pr.tracks())
}

var transcriptParamsRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func (s *CaptionScraper) viaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitor := visitorID()

	next, err := s.postWEB(ctx, ytNextURL, map[string]any{
		"videoId": videoID,
		"context": map[string]any{"client": webClient(visitor)},
	}, visitor)
	if err != nil {
		return "", err
	}

	m := transcriptParamsRE.FindSubmatch(next)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found")
	}
	params := string(m[1])
	if decoded, err := url.QueryUnescape(params); err == nil {
		params = decoded
	}

	data, err := s.postWEB(ctx, ytGetTranscriptURL, map[string]any{
		"params":  params,
		"context": map[string]any{"client": webClient(visitor)},
	}, visitor)
	if err != nil {
		return "", err
	}

	var gt getTranscriptResponse
	if err := json.Unmarshal(data, &gt); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	var parts []string
	for _, a := range gt.Actions {
		if a.Panel == nil {
			continue
		}
		for _, seg := range a.Panel.Content.Renderer.Content.SearchPanel.Body.SegmentList.Segments {
			if seg.Segment == nil {
				continue
			}
			for _, run := range seg.Segment.Snippet.Runs {
				if run.Text != "" {
					parts = append(parts, run.Text)
				}
			}
		}
	}
	if len(parts) == 0 {
		return "", errors.New("empty transcript segments")
	}
	return strings.Join(parts, " "), nil
}

func (s *CaptionScraper) viaPlayer(ctx context.Context, videoID string) (string, string, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{Client: clientInfo{
			ClientName:        "ANDROID",
			ClientVersion:     ytAndroidVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "IN",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return "", "", err
	}

	resp, err := engine.RetryHTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ytPlayerURL+"?prettyPrint=false", strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return s.client.Do(req)
	})
	if err != nil {
		return "", "", fmt.Errorf("android player: %w", err)
	}
	defer resp.Body.Close()

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", "", fmt.Errorf("decode player: %w", err)
	}
	if pr.Captions == nil && pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
		return "", "", fmt.Errorf("captions unavailable: %s", pr.PlayabilityStatus.Reason)
	}
	return s.trackText(ctx, pr.tracks())
}

// balancedJSON returns the leading {...} object of b, honouring strings.
func balancedJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
