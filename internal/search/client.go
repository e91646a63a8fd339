// Package search talks to the external retrieval service that indexes
// stored feedback objects. The service owns embedding, retrieval, and answer
// composition; this client sends one query and reports what came back.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	queryTimeout = 15 * time.Second

	// maxResults caps how many citations the service is asked for.
	maxResults = 5
)

// Citation is one retrieved passage backing an answer.
type Citation struct {
	Text      string  `json:"text"`
	SourceURL string  `json:"source_url,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// Result is a composed answer with its supporting citations.
type Result struct {
	Answer    string
	Citations []Citation
}

// Client communicates with the retrieval service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	index      string
	httpClient *http.Client
}

// New creates a Client for the given base URL and index.
func New(baseURL, apiKey, index string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		index:      index,
		httpClient: &http.Client{},
	}
}

// searchRequest is the JSON body for POST /search.
type searchRequest struct {
	Index      string `json:"index"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// searchResponse is the JSON returned by POST /search.
type searchResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Query runs one retrieval-augmented search over the feedback index.
func (c *Client) Query(ctx context.Context, query string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{
		Index:      c.index,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Result{}, fmt.Errorf("decoding search response: %w", err)
	}

	return Result{Answer: sr.Answer, Citations: sr.Citations}, nil
}

// Ping reports whether the retrieval service responds to GET /health with 200.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: unexpected status %d", resp.StatusCode)
	}
	return nil
}
