package engine

import (
	"fmt"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// BrowserClient fetches with a Chrome TLS fingerprint.
type BrowserClient = stealth.BrowserClient

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }

// BrowserGet fetches url through bc with Chrome headers and the given
// user agent. Non-2xx responses are returned as *HTTPStatusError.
func BrowserGet(bc *BrowserClient, url, userAgent string) ([]byte, error) {
	headers := ChromeHeaders()
	if userAgent != "" {
		headers["user-agent"] = userAgent
	}
	data, _, status, err := bc.Do(http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, fmt.Errorf("stealth get: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPStatusError{StatusCode: status}
	}
	return data, nil
}
