package feedback

import "time"

// MaxTitleLen is the hard cap on canonical titles, in runes.
const MaxTitleLen = 100

// Defaults substituted by Validate when a field is missing or out of set.
const (
	DefaultSource      = "web"
	DefaultProductArea = "other"
	DefaultSentiment   = "neutral"
	DefaultUrgency     = "medium"
)

var (
	sources      = []string{"discord", "github", "email", "twitter", "web"}
	productAreas = []string{"api", "dashboard", "billing", "performance", "docs", "integrations", "mobile", "other"}
	sentiments   = []string{"positive", "neutral", "negative"}

	// Ordered low < medium < high < p1.
	urgencies = []string{"low", "medium", "high", "p1"}
)

// Feedback is the canonical record every component downstream of the
// canonicalization engine operates on. Enum-typed fields always hold a
// member of their closed set once the record has passed Validate.
type Feedback struct {
	ID          string             `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	Source      string             `json:"source"`
	SourceURL   string             `json:"source_url,omitempty"`
	ProductArea string             `json:"product_area"`
	Title       string             `json:"title,omitempty"`
	Author      string             `json:"author,omitempty"`
	ThreadID    string             `json:"thread_id,omitempty"`
	BodyText    string             `json:"body_text"`
	Sentiment   string             `json:"sentiment"`
	Urgency     string             `json:"urgency"`
	Tags        []string           `json:"tags"`
	Confidence  map[string]float64 `json:"confidence,omitempty"`
}

// Sources returns the closed set of feedback sources.
func Sources() []string { return copySet(sources) }

// ProductAreas returns the closed set of product areas. "other" is the
// escape value for records the model could not place.
func ProductAreas() []string { return copySet(productAreas) }

// Sentiments returns the closed set of sentiment values.
func Sentiments() []string { return copySet(sentiments) }

// Urgencies returns the closed set of urgency values in ascending order.
func Urgencies() []string { return copySet(urgencies) }

func copySet(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
