// go_reels: Instagram Reels script generator for Hindi/Marathi news videos.
//
// POST /generate takes YouTube URLs (or ready transcripts), summarizes each
// video, cross-checks the stories against current headlines, writes Hinglish
// reels scripts with an LLM and appends them to a Google Sheet. The same
// pipeline is exposed as an MCP tool when MCP_PORT is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/engine/reels"
	"github.com/anatolykoptev/go_reels/internal/engine/runlog"
	"github.com/anatolykoptev/go_reels/internal/engine/sheets"
	"github.com/anatolykoptev/go_reels/internal/engine/sources"
	"github.com/anatolykoptev/go_reels/internal/reelserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	closeLog := setupLogging(env.Str("LOG_LEVEL", "info"), env.Str("LOG_FILE", ""))
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	if err := cfg.CheckCredentials(); err != nil {
		slog.Warn("credentials incomplete, /generate will fail until configured", slog.Any("error", err))
	}

	cache := engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheEntries, 5*time.Minute)
	defer cache.Close()

	limiter := engine.NewRateLimiter(cfg.LLMRequestsPerMin)
	client := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(8000),
		llm.WithTemperature(0.3),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	model := engine.NewLLM(client, cfg.LLMModel, limiter, engine.LLMRetryPolicy)

	acquirer, err := buildAcquirer(ctx, cfg, limiter)
	if err != nil {
		slog.Error("transcript strategy init failed", slog.String("strategy", cfg.TranscriptStrategy), slog.Any("error", err))
		os.Exit(1)
	}
	acquirer = sources.WithCache(acquirer, cache)

	var browser *engine.BrowserClient
	if cfg.HeadlineStealth {
		browser = cfg.BrowserClient
	}
	headlines := sources.NewHeadlineScraper(cfg.NewsSources, cfg.HTTPClient, browser, cfg.HeadlineTimeout)

	deps := reels.Deps{
		LLM:       model,
		Model:     model.Model(),
		Acquirer:  acquirer,
		Headlines: headlines,
		Uploader:  &lazyUploader{cfg: cfg},
	}
	var runs reelserver.RunLister
	if cfg.RunLogPath != "" {
		rl, err := runlog.Open(cfg.RunLogPath)
		if err != nil {
			slog.Warn("run log disabled", slog.Any("error", err))
		} else {
			defer rl.Close()
			deps.Runs = rl
			runs = rl
			slog.Info("run log enabled", slog.String("path", cfg.RunLogPath))
		}
	}

	srv := reelserver.New(cfg, reels.New(cfg, deps), runs, model.Model())

	if mcpPort := env.Str("MCP_PORT", ""); mcpPort != "" {
		go serveMCP(srv, mcpPort)
	}

	port := env.Str("PORT", "7860")
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Minute, // one run makes several slow LLM calls
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("starting go_reels",
		slog.String("port", port),
		slog.String("provider", cfg.LLMProvider),
		slog.String("model", cfg.LLMModel),
		slog.String("strategy", cfg.TranscriptStrategy),
		slog.String("sheet", cfg.SheetName),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func serveMCP(srv *reelserver.Server, port string) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_reels",
		Version: version,
	}, nil)
	srv.RegisterTools(server)
	slog.Info("mcp tools registered", slog.String("port", port))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_reels",
		Version:      version,
		Port:         port,
		WriteTimeout: 900 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
	}
}

func loadConfig() *engine.Config {
	provider := strings.ToLower(env.Str("LLM_PROVIDER", "gemini"))
	defBase, defModel := engine.ProviderDefaults(provider)

	c := &engine.Config{
		Version:            version,
		LLMProvider:        provider,
		LLMAPIKey:          providerKey(provider),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", defBase),
		LLMModel:           env.Str("LLM_MODEL", defModel),
		LLMRequestsPerMin:  env.Int("LLM_RPM", 15),
		LLMPause:           env.Duration("LLM_PAUSE", 5*time.Second),

		TranscriptStrategy: strings.ToLower(env.Str("TRANSCRIPT_STRATEGY", engine.StrategyLLM)),
		TranscriptLangs:    env.List("TRANSCRIPT_LANGS", "hi,mr,en"),
		VideoModel:         env.Str("VIDEO_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:       env.Str("GEMINI_API_KEY", ""),
		STTAPIBase:         env.Str("STT_API_BASE", "https://api.groq.com/openai/v1"),
		STTAPIKey:          env.Str("STT_API_KEY", env.Str("GROQ_API_KEY", "")),
		STTModel:           env.Str("STT_MODEL", "whisper-large-v3"),

		HeadlineTimeout: env.Duration("HEADLINE_TIMEOUT", 10*time.Second),
		HeadlineStealth: env.Str("HEADLINE_STEALTH", "") == "true",

		GoogleCredsJSON: env.Str("GOOGLE_CREDS_JSON", ""),
		SheetName:       env.Str("GOOGLE_SHEET_NAME", "Instagram Scripts"),

		MaxVideos:    env.Int("MAX_VIDEOS", 5),
		FetchTimeout: env.Duration("FETCH_TIMEOUT", 20*time.Second),
		CacheTTL:     env.Duration("CACHE_TTL", 6*time.Hour),
		CacheEntries: env.Int("CACHE_MAX_ENTRIES", 500),
		RedisURL:     env.Str("REDIS_URL", ""),
		RunLogPath:   env.Str("RUNLOG_PATH", ""),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	c.ProxyURL = env.Str("PROXY_URL", "")
	if c.ProxyURL == "" {
		c.ProxyURL = engine.BuildProxyURL(env.Str("PROXY_USERNAME", ""), env.Str("PROXY_PASSWORD", ""), env.Str("PROXY_HOST", ""))
	}

	c.NewsSources = engine.ParseNewsSources(env.List("NEWS_SOURCES", ""))
	if len(c.NewsSources) == 0 {
		c.NewsSources = engine.DefaultNewsSources
	}

	opts := []stealth.ClientOption{stealth.WithTimeout(15)}
	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Warn("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
	}
	return c
}

// providerKey resolves LLM_API_KEY, falling back to the provider's own variable.
func providerKey(provider string) string {
	if k := env.Str("LLM_API_KEY", ""); k != "" {
		return k
	}
	switch provider {
	case "groq":
		return env.Str("GROQ_API_KEY", "")
	case "perplexity":
		return env.Str("PERPLEXITY_API_KEY", "")
	default:
		return env.Str("GEMINI_API_KEY", "")
	}
}

func buildAcquirer(ctx context.Context, cfg *engine.Config, limiter *rate.Limiter) (sources.Acquirer, error) {
	switch cfg.TranscriptStrategy {
	case engine.StrategyLLM:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the llm strategy")
		}
		vm, err := sources.NewGeminiVideo(ctx, cfg.GeminiAPIKey, cfg.VideoModel)
		if err != nil {
			return nil, err
		}
		return sources.NewVideoTranscriber(vm, limiter), nil
	case engine.StrategyCaptions:
		return sources.NewCaptionScraper(engine.StrategyCaptions, cfg.HTTPClient, cfg.TranscriptLangs), nil
	case engine.StrategyCaptionsProxy:
		return sources.NewProxiedCaptions(cfg.ProxyURL, cfg.TranscriptLangs, cfg.FetchTimeout)
	case engine.StrategyAudio:
		return sources.NewAudioTranscriber(
			sources.NewYouTubeAudio(&http.Client{Timeout: 5 * time.Minute}),
			sources.NewWhisper(cfg.STTAPIKey, cfg.STTAPIBase, cfg.STTModel),
			os.TempDir(),
		), nil
	}
	return nil, fmt.Errorf("unknown TRANSCRIPT_STRATEGY %q", cfg.TranscriptStrategy)
}

// lazyUploader authenticates with Google on first use so the service starts
// without credentials and reports them as a configuration error per request.
type lazyUploader struct {
	cfg *engine.Config
	mu  sync.Mutex
	gs  *sheets.GoogleSheets
}

func (u *lazyUploader) Upload(ctx context.Context, b sheets.Batch) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.gs == nil {
		gs, err := sheets.NewGoogleSheets(ctx, u.cfg.GoogleCredsJSON, u.cfg.SheetName)
		if err != nil {
			return "", err
		}
		u.gs = gs
	}
	return u.gs.Upload(ctx, b)
}
