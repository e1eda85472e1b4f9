package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// NewProxyClient returns a client whose transport routes every request
// through proxy. The client shares nothing with http.DefaultTransport.
func NewProxyClient(proxy *url.URL, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyURL(proxy),
			MaxIdleConns:        4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// ProxiedCaptions scrapes captions through an HTTP proxy, building a fresh
// proxied client for every video and tearing it down afterwards.
type ProxiedCaptions struct {
	proxy   *url.URL
	langs   []string
	timeout time.Duration
}

// NewProxiedCaptions parses rawProxy and returns the acquirer.
func NewProxiedCaptions(rawProxy string, langs []string, timeout time.Duration) (*ProxiedCaptions, error) {
	if rawProxy == "" {
		return nil, errors.New("proxy URL is empty")
	}
	u, err := url.Parse(rawProxy)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy URL %q has no host", u.Redacted())
	}
	return &ProxiedCaptions{proxy: u, langs: langs, timeout: timeout}, nil
}

func (p *ProxiedCaptions) Name() string { return engine.StrategyCaptionsProxy }

func (p *ProxiedCaptions) Acquire(ctx context.Context, videoID string) (engine.Transcript, error) {
	client := NewProxyClient(p.proxy, p.timeout)
	defer client.CloseIdleConnections()
	return NewCaptionScraper(p.Name(), client, p.langs).Acquire(ctx, videoID)
}
