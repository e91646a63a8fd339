package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/pulse/internal/insights"
	"github.com/kalambet/pulse/internal/search"
	"github.com/kalambet/pulse/internal/storage"
)

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Query     string     `json:"query"`
	Answer    string     `json:"answer"`
	Citations []citation `json:"citations"`
	Debug     askDebug   `json:"debug"`
}

type citation struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url,omitempty"`
}

type askDebug struct {
	LatencyMS int64 `json:"latency_ms"`
	Fallback  bool  `json:"fallback"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		a := deps.Insights.Ask(r.Context(), req.Query)

		writeJSON(w, askResponse{
			Query:     a.Query,
			Answer:    a.Answer,
			Citations: toCitations(a.Citations),
			Debug: askDebug{
				LatencyMS: a.Latency.Milliseconds(),
				Fallback:  a.Fallback,
			},
		})
	}
}

type digestRequest struct {
	Date string `json:"date"`
}

type digestResponse struct {
	Date               string                    `json:"date"`
	TotalFeedback      int                       `json:"total_feedback"`
	StatsBySource      map[string]sentimentSplit `json:"stats_by_source_sentiment"`
	UrgencyCounts      map[string]int            `json:"urgency_counts"`
	HighUrgencySamples []storage.UrgencySample   `json:"high_urgency_samples"`
	AISummary          string                    `json:"ai_summary"`
	Citations          []citation                `json:"citations"`
}

type sentimentSplit struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// handleDigest composes the daily report. An empty body or missing date
// means today.
func handleDigest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req digestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		day := time.Now().UTC()
		if req.Date != "" {
			parsed, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid date %q, expected YYYY-MM-DD", req.Date)
				return
			}
			day = parsed
		}

		report, err := deps.Insights.Digest(r.Context(), day)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "building digest: %v", err)
			return
		}

		writeJSON(w, toDigestResponse(report))
	}
}

func toDigestResponse(r insights.Report) digestResponse {
	resp := digestResponse{
		Date:               r.Date,
		TotalFeedback:      r.Total,
		StatsBySource:      map[string]sentimentSplit{},
		UrgencyCounts:      map[string]int{},
		HighUrgencySamples: []storage.UrgencySample{},
		AISummary:          r.AISummary,
		Citations:          toCitations(r.Citations),
	}
	for source, counts := range r.SourceSentiment {
		resp.StatsBySource[source] = sentimentSplit{
			Positive: counts.Positive,
			Neutral:  counts.Neutral,
			Negative: counts.Negative,
		}
	}
	for urgency, n := range r.UrgencyCounts {
		resp.UrgencyCounts[urgency] = n
	}
	if r.Samples != nil {
		resp.HighUrgencySamples = r.Samples
	}
	return resp
}

func toCitations(cs []search.Citation) []citation {
	out := make([]citation, 0, len(cs))
	for _, c := range cs {
		out = append(out, citation{Text: c.Text, SourceURL: c.SourceURL})
	}
	return out
}
