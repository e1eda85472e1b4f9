package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPickTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u-en", LanguageCode: "en"},
		{BaseURL: "u-hi-asr", LanguageCode: "hi", Kind: "asr"},
		{BaseURL: "u-hi", LanguageCode: "hi"},
		{BaseURL: "u-mr&exp=xpe", LanguageCode: "mr"},
	}
	tests := []struct {
		name  string
		langs []string
		want  string
		ok    bool
	}{
		{"manual preferred over asr", []string{"hi", "en"}, "u-hi", true},
		{"first language wins", []string{"en", "hi"}, "u-en", true},
		{"potoken track skipped", []string{"mr", "en"}, "u-en", true},
		{"no match", []string{"ta"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickTrack(tracks, tt.langs)
			if ok != tt.ok || got.BaseURL != tt.want {
				t.Errorf("pickTrack() = %q, %v; want %q, %v", got.BaseURL, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPickTrackRegionalCode(t *testing.T) {
	got, ok := pickTrack([]captionTrack{{BaseURL: "u", LanguageCode: "en-IN", Kind: "asr"}}, []string{"en"})
	if !ok || got.BaseURL != "u" {
		t.Errorf("expected en-IN to match en, got %q %v", got.BaseURL, ok)
	}
}

func TestBalancedJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1};var x`, `{"a":1}`},
		{`{"a":"}"} trailing`, `{"a":"}"}`},
		{`{"a":"say \"}\""}x`, `{"a":"say \"}\""}`},
		{`{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{`{"a":1`, ``},
		{`x{}`, ``},
	}
	for _, tt := range tests {
		if got := string(balancedJSON([]byte(tt.in))); got != tt.want {
			t.Errorf("balancedJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchTimedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?><transcript>` +
			`<text start="0" dur="2">नमस्ते &amp; स्वागत</text>` +
			`<text start="2" dur="2">  </text>` +
			`<text start="4" dur="2">आज की खबरें</text></transcript>`))
	}))
	defer srv.Close()

	s := NewCaptionScraper("captions", srv.Client(), nil)
	got, err := s.fetchTimedText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetchTimedText: %v", err)
	}
	if want := "नमस्ते & स्वागत आज की खबरें"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
