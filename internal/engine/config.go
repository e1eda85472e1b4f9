package engine

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds all engine configuration, built once in main and passed by
// pointer to every component.
type Config struct {
	Version string

	LLMProvider        string // gemini, groq, perplexity
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMRequestsPerMin  int
	LLMPause           time.Duration // fixed pause between rate-limited LLM stages

	TranscriptStrategy string // llm, captions, captions-proxy, audio
	TranscriptLangs    []string
	VideoModel         string // multimodal model for the llm strategy
	GeminiAPIKey       string
	STTAPIBase         string
	STTAPIKey          string
	STTModel           string
	ProxyURL           string // resolved from PROXY_URL or PROXY_USERNAME/PROXY_PASSWORD/PROXY_HOST

	NewsSources     []NewsSource
	HeadlineTimeout time.Duration
	HeadlineStealth bool

	GoogleCredsJSON string
	SheetName       string

	MaxVideos     int
	FetchTimeout  time.Duration
	CacheTTL      time.Duration
	CacheEntries  int
	RedisURL      string
	RunLogPath    string
	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = stealth fetching disabled
}

// NewsSource is a page or feed scraped for current headlines.
type NewsSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DefaultNewsSources are the Marathi news front pages used for verification.
var DefaultNewsSources = []NewsSource{
	{Name: "Lokmat Maharashtra", URL: "https://www.lokmat.com/maharashtra/"},
	{Name: "TV9 Marathi", URL: "https://www.tv9marathi.com/"},
	{Name: "ABP Majha", URL: "https://marathi.abplive.com/"},
}

// ParseNewsSources parses "name|url" entries. Entries without a name use the URL.
func ParseNewsSources(entries []string) []NewsSource {
	var out []NewsSource
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		name, u, ok := strings.Cut(e, "|")
		if !ok {
			u = name
		}
		out = append(out, NewsSource{Name: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	return out
}

// Provider defaults: OpenAI-compatible base URL and model per LLM provider.
var providerDefaults = map[string]struct{ base, model string }{
	"gemini":     {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.5-flash"},
	"groq":       {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
	"perplexity": {"https://api.perplexity.ai", "sonar"},
}

// ProviderDefaults returns the default API base and model for provider.
// Unknown providers fall back to gemini.
func ProviderDefaults(provider string) (base, model string) {
	d, ok := providerDefaults[strings.ToLower(provider)]
	if !ok {
		d = providerDefaults["gemini"]
	}
	return d.base, d.model
}

// ConfigError reports missing or invalid server configuration.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// CheckCredentials verifies that the provider credentials required to serve
// a generate request are present.
func (c *Config) CheckCredentials() error {
	var missing []string
	if c.LLMAPIKey == "" {
		missing = append(missing, "LLM API key")
	}
	if c.TranscriptStrategy == StrategyLLM && c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.GoogleCredsJSON == "" {
		missing = append(missing, "GOOGLE_CREDS_JSON")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Transcript acquisition strategies.
const (
	StrategyLLM           = "llm"
	StrategyCaptions      = "captions"
	StrategyCaptionsProxy = "captions-proxy"
	StrategyAudio         = "audio"
)

// ValidStrategy reports whether s names a known transcript strategy.
func ValidStrategy(s string) bool {
	switch s {
	case StrategyLLM, StrategyCaptions, StrategyCaptionsProxy, StrategyAudio:
		return true
	}
	return false
}

// BuildProxyURL assembles an http proxy URL from credential parts.
// Returns "" when host is empty.
func BuildProxyURL(user, pass, host string) string {
	if host == "" {
		return ""
	}
	u := &url.URL{Scheme: "http", Host: host}
	if user != "" {
		u.User = url.UserPassword(user, pass)
	}
	return u.String()
}
