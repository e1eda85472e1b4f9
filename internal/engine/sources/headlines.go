package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Headline extraction limits.
const (
	headlineMinRunes    = 20  // exclusive
	headlineMaxRunes    = 200 // exclusive
	perSelectorLimit    = 50
	headlinesPerSource  = 30
	maxHeadlinePageSize = 4 * 1024 * 1024
)

// headlineSelectors are tried in priority order.
var headlineSelectors = []string{"h1", "h2", "h3", ".title", ".headline", "a"}

// HeadlineScraper collects current headlines from news front pages and feeds.
// Every failure degrades to an empty list.
type HeadlineScraper struct {
	sources []engine.NewsSource
	client  *http.Client
	browser *engine.BrowserClient // optional Chrome-fingerprint fetcher
	timeout time.Duration
	retry   engine.RetryPolicy
}

// NewHeadlineScraper builds a scraper. browser may be nil.
func NewHeadlineScraper(sources []engine.NewsSource, client *http.Client, browser *engine.BrowserClient, timeout time.Duration) *HeadlineScraper {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HeadlineScraper{
		sources: sources,
		client:  client,
		browser: browser,
		timeout: timeout,
		retry: engine.RetryPolicy{
			MaxAttempts: 2,
			Backoff:     engine.Exponential(time.Second, 2*time.Second, 2),
			Retryable:   engine.IsRetryable,
		},
	}
}

// Headlines returns the deduplicated headlines of all sources, in source order.
func (h *HeadlineScraper) Headlines(ctx context.Context) []string {
	seen := make(map[string]bool)
	var all []string
	for _, src := range h.sources {
		got := h.Scrape(ctx, src)
		slog.Info("headlines: scraped", slog.String("source", src.Name), slog.Int("count", len(got)))
		for _, s := range got {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	return all
}

// Scrape fetches one source. It never returns an error.
func (h *HeadlineScraper) Scrape(ctx context.Context, src engine.NewsSource) []string {
	engine.IncrHeadlineFetches()
	body, err := h.fetch(ctx, src.URL)
	if err != nil {
		engine.IncrHeadlineErrors()
		slog.Warn("headlines: fetch failed", slog.String("source", src.Name), slog.Any("error", err))
		return nil
	}

	if looksLikeFeed(body) {
		if items, err := parseFeedHeadlines(body); err == nil {
			return items
		}
	}

	items, err := parseHTMLHeadlines(body)
	if err != nil {
		engine.IncrHeadlineErrors()
		slog.Warn("headlines: parse failed", slog.String("source", src.Name), slog.Any("error", err))
		return nil
	}
	return items
}

func (h *HeadlineScraper) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if h.browser != nil {
		return engine.RetryDo(ctx, h.retry, func() ([]byte, error) {
			return engine.BrowserGet(h.browser, url, engine.UserAgentDesktop)
		})
	}

	resp, err := engine.RetryHTTP(ctx, h.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentDesktop)
		return h.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxHeadlinePageSize))
}

func looksLikeFeed(body []byte) bool {
	head := bytes.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<rss")) || bytes.Contains(head, []byte("<feed")) || bytes.Contains(head, []byte("<rdf:RDF"))
}

// collector applies the length filter, dedup and cap.
type collector struct {
	seen  map[string]bool
	items []string
}

func (c *collector) add(text string) bool {
	text = engine.CollapseSpace(text)
	n := utf8.RuneCountInString(text)
	if n <= headlineMinRunes || n >= headlineMaxRunes || c.seen[text] {
		return len(c.items) < headlinesPerSource
	}
	c.seen[text] = true
	c.items = append(c.items, text)
	return len(c.items) < headlinesPerSource
}

func parseHTMLHeadlines(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	c := &collector{seen: make(map[string]bool)}
	for _, sel := range headlineSelectors {
		more := true
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= perSelectorLimit {
				return false
			}
			more = c.add(s.Text())
			return more
		})
		if !more {
			break
		}
	}
	return c.items, nil
}

func parseFeedHeadlines(body []byte) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed parse: %w", err)
	}
	c := &collector{seen: make(map[string]bool)}
	for _, item := range feed.Items {
		if !c.add(item.Title) {
			break
		}
	}
	return c.items, nil
}
