// Package toolutil provides shared helpers for the HTTP and MCP surfaces and
// the typed cache wrappers used by engine sub-packages.
package toolutil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// CacheLoadJSON tries to load a cached value of type T.
// Returns the decoded value and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, c *engine.Cache, key string) (T, bool) {
	var zero T
	data, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it in c.
func CacheStoreJSON[T any](ctx context.Context, c *engine.Cache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Debug("write json failed", slog.Any("error", err))
	}
}

// WriteError writes the standard {"status":"error","message":...} body.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"status": "error", "message": msg})
}
