package sources

import "regexp"

// YouTube implementation is split across files by responsibility:
//   youtube.go           : video id extraction
//   youtube_innertube.go : Innertube API types, constants, and low-level HTTP primitives
//   youtube_transcript.go: caption scraping (watch page, engagement panel, ANDROID player)
//   transcript_video.go  : multimodal LLM transcription
//   transcript_audio.go  : audio download + speech-to-text

var videoIDRE = regexp.MustCompile(`(?:v=|/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID returns the 11-char video ID that follows "v=" or "/" in
// rawURL, or "" when there is none.
func ExtractVideoID(rawURL string) string {
	m := videoIDRE.FindStringSubmatch(rawURL)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}

// WatchURL returns the canonical watch page URL for videoID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
