package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuery(t *testing.T) {
	var gotBody searchRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("got %s %s, want POST /search", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}

		json.NewEncoder(w).Encode(searchResponse{
			Answer: "Users keep hitting webhook rate limits.",
			Citations: []Citation{
				{Text: "webhook retries fail after 3 attempts", SourceURL: "https://example.com/1", Score: 0.91},
				{Text: "429s on bulk export", Score: 0.74},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret-key", "feedback-rag")
	result, err := c.Query(context.Background(), "what are users saying about webhooks?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want Bearer secret-key", gotAuth)
	}
	if gotBody.Index != "feedback-rag" {
		t.Errorf("request index = %q, want feedback-rag", gotBody.Index)
	}
	if gotBody.Query != "what are users saying about webhooks?" {
		t.Errorf("request query = %q", gotBody.Query)
	}
	if gotBody.MaxResults != maxResults {
		t.Errorf("request max_results = %d, want %d", gotBody.MaxResults, maxResults)
	}

	if result.Answer != "Users keep hitting webhook rate limits." {
		t.Errorf("Answer = %q", result.Answer)
	}
	if len(result.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(result.Citations))
	}
	if result.Citations[0].SourceURL != "https://example.com/1" {
		t.Errorf("citation source_url = %q", result.Citations[0].SourceURL)
	}
}

func TestQuery_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization = %q, want empty", auth)
		}
		json.NewEncoder(w).Encode(searchResponse{Answer: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "feedback-rag")
	if _, err := c.Query(context.Background(), "q"); err != nil {
		t.Fatalf("Query: %v", err)
	}
}

func TestQuery_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "feedback-rag")
	if _, err := c.Query(context.Background(), "q"); err == nil {
		t.Error("expected error on 503")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "feedback-rag")
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPing_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "feedback-rag")
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}
