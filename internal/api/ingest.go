package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kalambet/pulse/internal/normalize"
)

const maxIngestBodySize = 10 << 20 // 10MB

type ingestResponse struct {
	Success    bool             `json:"success"`
	ID         string           `json:"id"`
	CreatedAt  string           `json:"created_at"`
	R2Key      string           `json:"r2_key"`
	Normalized normalizedRecord `json:"normalized"`
}

type normalizedRecord struct {
	Source      string   `json:"source"`
	ProductArea string   `json:"product_area"`
	Sentiment   string   `json:"sentiment"`
	Urgency     string   `json:"urgency"`
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags"`
}

// handleIngest accepts one raw feedback payload of any shape,
// canonicalizes it through the model and persists it.
func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)
		defer r.Body.Close()

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		fb, err := deps.Normalizer.Normalize(r.Context(), raw)
		if err != nil {
			if errors.Is(err, normalize.ErrUnparseable) {
				httpError(w, http.StatusBadGateway, "upstream_parse_error", "normalizing feedback: %v", err)
				return
			}
			httpError(w, http.StatusBadGateway, "upstream_error", "normalizing feedback: %v", err)
			return
		}

		key, err := deps.Gateway.Persist(r.Context(), fb)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "persisting feedback: %v", err)
			return
		}

		writeJSON(w, ingestResponse{
			Success:   true,
			ID:        fb.ID,
			CreatedAt: fb.CreatedAt.UTC().Format(time.RFC3339),
			R2Key:     key,
			Normalized: normalizedRecord{
				Source:      fb.Source,
				ProductArea: fb.ProductArea,
				Sentiment:   fb.Sentiment,
				Urgency:     fb.Urgency,
				Title:       fb.Title,
				Tags:        fb.Tags,
			},
		})
	}
}
