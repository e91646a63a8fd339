// Package api exposes the feedback service over HTTP: ingestion, ask,
// digest, the chat interactions webhook, and the MCP tool surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/pulse/internal/feedback"
	"github.com/kalambet/pulse/internal/insights"
	"github.com/kalambet/pulse/internal/interactions"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Normalizer canonicalizes one raw feedback payload.
type Normalizer interface {
	Normalize(ctx context.Context, raw map[string]any) (feedback.Feedback, error)
}

// Persister writes a canonical record to the object store and the
// relational copy, returning the object key.
type Persister interface {
	Persist(ctx context.Context, f feedback.Feedback) (string, error)
}

// Insights answers questions and composes digests.
type Insights interface {
	Ask(ctx context.Context, query string) insights.Answer
	Digest(ctx context.Context, day time.Time) (insights.Report, error)
}

// Deps holds the wired dependencies for the HTTP surface.
type Deps struct {
	Normalizer   Normalizer
	Gateway      Persister
	Insights     Insights
	Interactions *interactions.Handler

	// DiscordPublicKey enables webhook signature verification when set.
	DiscordPublicKey string
}

// NewHandler builds the service router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleHealth)
	r.Post("/ingest", handleIngest(deps))
	r.Post("/ask", handleAsk(deps))
	r.Post("/digest", handleDigest(deps))
	r.Post("/interactions", handleInteractions(deps))
	r.Handle("/mcp", server.NewStreamableHTTPServer(NewMCPServer(deps)))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"service": "pulse",
		"endpoints": []string{
			"POST /ingest",
			"POST /ask",
			"POST /digest",
			"POST /interactions",
			"POST /mcp",
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
