package engine

import (
	"html"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	UserAgentChrome  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips HTML tags, unescapes entities and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(s, "")))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// CollapseSpace replaces runs of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Language detection window and threshold for Devanagari text.
const (
	langSampleRunes     = 500
	devanagariThreshold = 20
)

// DetectLanguage classifies text as "hi" when the first 500 runes contain
// more than 20 Devanagari code points, "en" otherwise.
func DetectLanguage(text string) string {
	count, seen := 0, 0
	for _, r := range text {
		if seen == langSampleRunes {
			break
		}
		seen++
		if r >= 0x0900 && r <= 0x097F {
			count++
		}
	}
	if count > devanagariThreshold {
		return "hi"
	}
	return "en"
}
