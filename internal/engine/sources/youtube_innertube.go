package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Innertube endpoints, client versions and wire types used by the caption scraper.

const (
	ytPlayerURL        = "https://www.youtube.com/youtubei/v1/player"
	ytNextURL          = "https://www.youtube.com/youtubei/v1/next"
	ytGetTranscriptURL = "https://www.youtube.com/youtubei/v1/get_transcript"
	ytWebVersion       = "2.20250222.10.00"
	ytAndroidVersion   = "20.10.38"
	ytAndroidUA        = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client clientInfo `json:"client"`
}

type clientInfo struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	Captions *struct {
		Tracklist struct {
			Tracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (p playerResponse) tracks() []captionTrack {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.Tracklist.Tracks
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// timedText is the timedtext XML caption format.
type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

type transcriptRun struct {
	Text string `json:"text"`
}

// getTranscriptResponse mirrors the nested /get_transcript payload down to the text runs.
type getTranscriptResponse struct {
	Actions []struct {
		Panel *struct {
			Content struct {
				Renderer struct {
					Content struct {
						SearchPanel struct {
							Body struct {
								SegmentList struct {
									Segments []struct {
										Segment *struct {
											Snippet struct {
												Runs []transcriptRun `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

// visitorID creates a random 11-char visitor ID for Innertube requests.
func visitorID() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

func webClient(visitor string) clientInfo {
	return clientInfo{ClientName: "WEB", ClientVersion: ytWebVersion, VisitorData: visitor, Hl: "en", Gl: "US"}
}

// postWEB POSTs payload to an Innertube endpoint with WEB client headers.
func (s *CaptionScraper) postWEB(ctx context.Context, endpoint string, payload any, visitor string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?prettyPrint=false", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("X-Youtube-Client-Name", "1")
		req.Header.Set("X-Youtube-Client-Version", ytWebVersion)
		req.Header.Set("X-Goog-Visitor-Id", visitor)
		req.Header.Set("Origin", "https://www.youtube.com")
		return s.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("innertube %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("innertube %s: HTTP %d: %s", endpoint, resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 3*1024*1024))
}
