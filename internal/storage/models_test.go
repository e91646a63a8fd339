package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/kalambet/pulse/internal/feedback"
)

func TestRowRoundTrip(t *testing.T) {
	f := feedback.Feedback{
		ID:          "fb-42",
		CreatedAt:   time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		Source:      "github",
		SourceURL:   "https://github.com/acme/widgets/issues/17",
		ProductArea: "billing",
		Title:       "Invoices double-charged",
		Author:      "octocat",
		ThreadID:    "issue-17",
		BodyText:    "We were charged twice for the March invoice.",
		Sentiment:   "negative",
		Urgency:     "p1",
		Tags:        []string{"billing", "invoices"},
		Confidence:  map[string]float64{"sentiment": 0.95, "urgency": 0.8},
	}

	key := "feedback/dt=2026-03-01/source=github/fb-42.json"
	row := FromFeedback(f, key)
	if row.R2Key != key {
		t.Errorf("R2Key = %q, want %q", row.R2Key, key)
	}

	got, err := row.Feedback()
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !reflect.DeepEqual(got, f) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, f)
	}
}

func TestFromFeedback_NilTags(t *testing.T) {
	f := feedback.Feedback{
		ID:          "fb-1",
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Source:      "web",
		ProductArea: "other",
		BodyText:    "hi",
		Sentiment:   "neutral",
		Urgency:     "low",
	}

	row := FromFeedback(f, "k")
	if row.TagsJSON != "[]" {
		t.Errorf("TagsJSON = %q, want []", row.TagsJSON)
	}
	if row.ConfidenceJSON != "" {
		t.Errorf("ConfidenceJSON = %q, want empty", row.ConfidenceJSON)
	}

	got, err := row.Feedback()
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", got.Tags)
	}
	if got.Confidence != nil {
		t.Errorf("Confidence = %#v, want nil", got.Confidence)
	}
}

func TestRowFeedback_BadJSON(t *testing.T) {
	row := Row{ID: "fb-bad", TagsJSON: "{not json"}
	if _, err := row.Feedback(); err == nil {
		t.Error("expected error for malformed tags JSON")
	}
}
