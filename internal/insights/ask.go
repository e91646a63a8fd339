package insights

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/pulse/internal/search"
)

const (
	// maxCitations caps how many sources an answer carries.
	maxCitations = 3

	// citationExcerptLen is the rune budget for one citation excerpt.
	citationExcerptLen = 200

	// apologyAnswer is returned verbatim whenever search fails. Users see
	// this instead of an error; the failure is logged server-side.
	apologyAnswer = "Sorry, I couldn't search the feedback just now. Please try again in a moment."
)

// Answer is the outcome of one ask. Fallback marks the apology path.
type Answer struct {
	Query     string
	Answer    string
	Citations []search.Citation
	Fallback  bool
	Latency   time.Duration
}

// Ask runs one search over the feedback index. It never fails: a search
// error degrades to the fixed apology with no citations.
func (s *Service) Ask(ctx context.Context, query string) Answer {
	start := time.Now()

	res, err := s.searcher.Query(ctx, query)
	if err != nil {
		slog.Warn("feedback search failed", "error", err)
		return Answer{
			Query:    query,
			Answer:   apologyAnswer,
			Fallback: true,
			Latency:  time.Since(start),
		}
	}

	return Answer{
		Query:     query,
		Answer:    res.Answer,
		Citations: trimCitations(res.Citations),
		Latency:   time.Since(start),
	}
}

// trimCitations keeps the top citations and excerpts their text.
func trimCitations(cs []search.Citation) []search.Citation {
	if len(cs) > maxCitations {
		cs = cs[:maxCitations]
	}
	out := make([]search.Citation, len(cs))
	for i, c := range cs {
		c.Text = Truncate(c.Text, citationExcerptLen)
		out[i] = c
	}
	return out
}
