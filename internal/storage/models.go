package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/pulse/internal/feedback"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Row is the flattened persistence form of a canonical feedback record.
// Optional fields are empty strings in Go and NULL in the database; tags
// and confidence are JSON stored as text. R2Key points at the object-store
// copy of the record.
type Row struct {
	ID             string
	CreatedAt      time.Time
	Source         string
	SourceURL      string
	ProductArea    string
	Title          string
	Author         string
	ThreadID       string
	BodyText       string
	Sentiment      string
	Urgency        string
	TagsJSON       string // JSON array stored as text
	ConfidenceJSON string // JSON object stored as text, empty when absent
	R2Key          string
}

// SourceAreaSentimentCount is one bucket of the per-day grouped aggregate.
type SourceAreaSentimentCount struct {
	Source      string `json:"source"`
	ProductArea string `json:"product_area"`
	Sentiment   string `json:"sentiment"`
	Count       int    `json:"count"`
}

// UrgencySample is one uniformly sampled high-urgency record.
type UrgencySample struct {
	BodyText  string `json:"body_text"`
	SourceURL string `json:"source_url,omitempty"`
}

// FromFeedback flattens a canonical record into its row form, carrying the
// object-store key as a back-pointer.
func FromFeedback(f feedback.Feedback, r2Key string) Row {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	// []string and map[string]float64 always marshal.
	tagsJSON, _ := json.Marshal(tags)

	confidenceJSON := ""
	if len(f.Confidence) > 0 {
		b, _ := json.Marshal(f.Confidence)
		confidenceJSON = string(b)
	}

	return Row{
		ID:             f.ID,
		CreatedAt:      f.CreatedAt.UTC(),
		Source:         f.Source,
		SourceURL:      f.SourceURL,
		ProductArea:    f.ProductArea,
		Title:          f.Title,
		Author:         f.Author,
		ThreadID:       f.ThreadID,
		BodyText:       f.BodyText,
		Sentiment:      f.Sentiment,
		Urgency:        f.Urgency,
		TagsJSON:       string(tagsJSON),
		ConfidenceJSON: confidenceJSON,
		R2Key:          r2Key,
	}
}

// Feedback reconstructs the canonical record from a row.
func (r Row) Feedback() (feedback.Feedback, error) {
	f := feedback.Feedback{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Source:      r.Source,
		SourceURL:   r.SourceURL,
		ProductArea: r.ProductArea,
		Title:       r.Title,
		Author:      r.Author,
		ThreadID:    r.ThreadID,
		BodyText:    r.BodyText,
		Sentiment:   r.Sentiment,
		Urgency:     r.Urgency,
		Tags:        []string{},
	}

	if r.TagsJSON != "" {
		if err := json.Unmarshal([]byte(r.TagsJSON), &f.Tags); err != nil {
			return feedback.Feedback{}, fmt.Errorf("parsing tags for %s: %w", r.ID, err)
		}
	}
	if r.ConfidenceJSON != "" {
		if err := json.Unmarshal([]byte(r.ConfidenceJSON), &f.Confidence); err != nil {
			return feedback.Feedback{}, fmt.Errorf("parsing confidence for %s: %w", r.ID, err)
		}
	}

	return f, nil
}
