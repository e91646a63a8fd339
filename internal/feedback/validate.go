package feedback

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// confidenceKeys are the only sub-scores carried on a canonical record.
var confidenceKeys = []string{"product_area", "sentiment", "urgency"}

// Validate coerces an arbitrary structured value into a canonical Feedback.
// It is total: every field ends up with a legal value no matter how
// malformed the candidate is. Out-of-set enum values fall back to defaults
// rather than failing, so a sloppy model response can degrade precision but
// never block ingestion.
func Validate(candidate map[string]any) Feedback {
	f := Feedback{
		ID:          stringField(candidate, "id"),
		CreatedAt:   timeField(candidate, "created_at"),
		Source:      member(stringField(candidate, "source"), sources, DefaultSource),
		SourceURL:   stringField(candidate, "source_url"),
		ProductArea: member(stringField(candidate, "product_area"), productAreas, DefaultProductArea),
		Title:       truncateRunes(stringField(candidate, "title"), MaxTitleLen),
		Author:      stringField(candidate, "author"),
		ThreadID:    stringField(candidate, "thread_id"),
		BodyText:    firstNonEmpty(candidate, "body_text", "content", "body", "text"),
		Sentiment:   member(stringField(candidate, "sentiment"), sentiments, DefaultSentiment),
		Urgency:     member(stringField(candidate, "urgency"), urgencies, DefaultUrgency),
		Tags:        stringSlice(candidate["tags"]),
		Confidence:  confidenceMap(candidate["confidence"]),
	}

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	return f
}

// member matches v against a closed set, case-insensitively and ignoring
// surrounding space, and returns the canonical member or fallback.
func member(v string, set []string, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, m := range set {
		if v == m {
			return m
		}
	}
	return fallback
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// timeField accepts RFC3339 strings and numeric epochs (seconds or millis).
// Anything else yields the zero time, which Validate replaces with now.
func timeField(m map[string]any, key string) time.Time {
	switch v := m[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
			return t.UTC()
		}
	case float64:
		return epochTime(int64(v))
	case int64:
		return epochTime(v)
	case int:
		return epochTime(int64(v))
	}
	return time.Time{}
}

func epochTime(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	// Epochs past ~2286 in seconds are treated as milliseconds.
	if n > 1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// firstNonEmpty returns the first non-empty string among the named fields.
func firstNonEmpty(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// stringSlice coerces a candidate tags value to a string set. Non-sequence
// values become an empty set; non-string elements are dropped silently.
func stringSlice(v any) []string {
	var out []string
	switch items := v.(type) {
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range items {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// confidenceMap copies numeric sub-scores for the known keys, clamped to
// [0,1]. Non-numeric entries are omitted rather than zeroed.
func confidenceMap(v any) map[string]float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var out map[string]float64
	for _, key := range confidenceKeys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var score float64
		switch n := raw.(type) {
		case float64:
			score = n
		case int:
			score = float64(n)
		default:
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if out == nil {
			out = make(map[string]float64, len(confidenceKeys))
		}
		out[key] = score
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
