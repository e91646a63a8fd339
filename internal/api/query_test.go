package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/pulse/internal/insights"
	"github.com/kalambet/pulse/internal/search"
	"github.com/kalambet/pulse/internal/storage"
)

func TestAsk(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	ins.answer = insights.Answer{
		Query:  "what do users say about rate limits?",
		Answer: "Users report frequent 429s on the batch endpoint.",
		Citations: []search.Citation{
			{Text: "Hitting 429s constantly", SourceURL: "https://discord.com/channels/1/2"},
		},
		Latency: 120 * time.Millisecond,
	}
	h := NewHandler(deps)

	rr := postJSON(h, "/ask", `{"query":"what do users say about rate limits?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ins.gotQuery != "what do users say about rate limits?" {
		t.Errorf("insights query = %q", ins.gotQuery)
	}

	var resp askResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Users report frequent 429s on the batch endpoint." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].SourceURL != "https://discord.com/channels/1/2" {
		t.Errorf("citations = %+v", resp.Citations)
	}
	if resp.Debug.LatencyMS != 120 {
		t.Errorf("latency_ms = %d, want 120", resp.Debug.LatencyMS)
	}
	if resp.Debug.Fallback {
		t.Error("fallback = true, want false")
	}
}

func TestAsk_MissingQuery(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	h := NewHandler(deps)

	rr := postJSON(h, "/ask", `{}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "query") {
		t.Errorf("error body %q should mention the query field", rr.Body.String())
	}
	if ins.gotQuery != "" {
		t.Errorf("insights called with %q, want no call", ins.gotQuery)
	}
}

func TestAsk_BlankQuery(t *testing.T) {
	_, _, _, deps := newTestDeps()
	h := NewHandler(deps)

	rr := postJSON(h, "/ask", `{"query":"   "}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "query") {
		t.Errorf("error body %q should mention the query field", rr.Body.String())
	}
}

func TestAsk_EmptyBody(t *testing.T) {
	_, _, _, deps := newTestDeps()
	h := NewHandler(deps)

	rr := postJSON(h, "/ask", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "query") {
		t.Errorf("error body %q should mention the query field", rr.Body.String())
	}
}

func TestAsk_Fallback(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	ins.answer = insights.Answer{
		Query:    "anything",
		Answer:   "Sorry, I couldn't search the feedback just now. Please try again in a moment.",
		Fallback: true,
	}
	h := NewHandler(deps)

	rr := postJSON(h, "/ask", `{"query":"anything"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp askResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Debug.Fallback {
		t.Error("fallback = false, want true")
	}
	if len(resp.Citations) != 0 {
		t.Errorf("citations = %+v, want none", resp.Citations)
	}
}

func TestDigest(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	ins.report = insights.Report{
		Date:  "2026-03-01",
		Total: 12,
		SourceSentiment: map[string]insights.SentimentCounts{
			"discord": {Positive: 2, Neutral: 5, Negative: 5},
		},
		UrgencyCounts: map[string]int{"high": 3, "low": 9},
		Samples: []storage.UrgencySample{
			{BodyText: "Everything is on fire", SourceURL: "https://example.com/1"},
		},
		AISummary: "Mostly rate limit complaints.",
	}
	h := NewHandler(deps)

	rr := postJSON(h, "/digest", `{"date":"2026-03-01"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := ins.gotDay.Format("2006-01-02"); got != "2026-03-01" {
		t.Errorf("digest day = %s, want 2026-03-01", got)
	}

	var resp digestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Date != "2026-03-01" {
		t.Errorf("date = %q", resp.Date)
	}
	if resp.TotalFeedback != 12 {
		t.Errorf("total_feedback = %d, want 12", resp.TotalFeedback)
	}
	if resp.StatsBySource["discord"].Negative != 5 {
		t.Errorf("discord negative = %d, want 5", resp.StatsBySource["discord"].Negative)
	}
	if resp.UrgencyCounts["high"] != 3 {
		t.Errorf("urgency high = %d, want 3", resp.UrgencyCounts["high"])
	}
	if len(resp.HighUrgencySamples) != 1 {
		t.Errorf("samples = %+v, want 1", resp.HighUrgencySamples)
	}
	if resp.AISummary != "Mostly rate limit complaints." {
		t.Errorf("ai_summary = %q", resp.AISummary)
	}
}

func TestDigest_EmptyBodyDefaultsToToday(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	h := NewHandler(deps)

	rr := postJSON(h, "/digest", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	want := time.Now().UTC().Format("2006-01-02")
	if got := ins.gotDay.Format("2006-01-02"); got != want {
		t.Errorf("digest day = %s, want %s", got, want)
	}
}

func TestDigest_MalformedDate(t *testing.T) {
	_, _, _, deps := newTestDeps()
	h := NewHandler(deps)

	rr := postJSON(h, "/digest", `{"date":"March 1st"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if got := errorType(t, rr); got != "invalid_request_error" {
		t.Errorf("error type = %q, want %q", got, "invalid_request_error")
	}
}

func TestDigest_StorageFailure(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	ins.digestErr = errors.New("database is locked")
	h := NewHandler(deps)

	rr := postJSON(h, "/digest", `{"date":"2026-03-01"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if got := errorType(t, rr); got != "api_error" {
		t.Errorf("error type = %q, want %q", got, "api_error")
	}
}

func TestDigest_EmptyCollectionsNeverNull(t *testing.T) {
	_, _, ins, deps := newTestDeps()
	ins.report = insights.Report{Date: "2026-03-01"}
	h := NewHandler(deps)

	rr := postJSON(h, "/digest", `{"date":"2026-03-01"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`"stats_by_source_sentiment":{}`,
		`"urgency_counts":{}`,
		`"high_urgency_samples":[]`,
		`"citations":[]`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}
