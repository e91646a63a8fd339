package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/pulse/internal/search"
	"github.com/kalambet/pulse/internal/storage"
)

const (
	// highUrgencySampleLimit caps the sampled bullets in a digest.
	highUrgencySampleLimit = 5

	// urgencyWindow is the trailing window for the urgency trend line.
	urgencyWindow = 7 * 24 * time.Hour

	// summaryUnavailable replaces the AI summary when search fails. The
	// rest of the digest still renders from relational data.
	summaryUnavailable = "AI summary unavailable right now."

	digestQueryTemplate = "Summarize the key themes in user feedback from %s. " +
		"Emphasize high-urgency and urgent items and group related complaints by product area."
)

// SentimentCounts is the per-source sentiment breakdown for one day.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Report is a composed daily digest. A Total of zero means nothing was
// recorded that day and the other fields are empty.
type Report struct {
	Date            string
	Total           int
	SourceSentiment map[string]SentimentCounts
	UrgencyCounts   map[string]int
	Samples         []storage.UrgencySample
	AISummary       string
	Citations       []search.Citation
}

// Digest composes the report for the UTC calendar day containing day. The
// semantic search and the four relational reads run concurrently; a search
// failure degrades the summary while a relational failure fails the digest.
func (s *Service) Digest(ctx context.Context, day time.Time) (Report, error) {
	d := day.UTC()
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	date := dayStart.Format("2006-01-02")

	var (
		total     int
		stats     []storage.SourceAreaSentimentCount
		urgency   map[string]int
		samples   []storage.UrgencySample
		searchRes search.Result
		searchErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.store.CountSince(gctx, dayStart)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.store.StatsForDay(gctx, dayStart)
		return err
	})
	g.Go(func() error {
		var err error
		urgency, err = s.store.UrgencyCounts(gctx, dayEnd.Add(-urgencyWindow), dayEnd)
		return err
	})
	g.Go(func() error {
		var err error
		samples, err = s.store.SampleHighUrgency(gctx, dayStart, highUrgencySampleLimit)
		return err
	})
	g.Go(func() error {
		// Search failure degrades the summary, never the digest.
		searchRes, searchErr = s.searcher.Query(gctx, fmt.Sprintf(digestQueryTemplate, date))
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("reading feedback stats: %w", err)
	}

	if total == 0 {
		return Report{Date: date}, nil
	}

	report := Report{
		Date:            date,
		Total:           total,
		SourceSentiment: groupBySource(stats),
		UrgencyCounts:   urgency,
		Samples:         samples,
	}

	if searchErr != nil {
		slog.Warn("digest search failed", "date", date, "error", searchErr)
		report.AISummary = summaryUnavailable
	} else {
		report.AISummary = searchRes.Answer
		report.Citations = trimCitations(searchRes.Citations)
	}

	return report, nil
}

// groupBySource folds (source, product_area, sentiment) buckets into
// per-source sentiment counts, summing across product areas.
func groupBySource(stats []storage.SourceAreaSentimentCount) map[string]SentimentCounts {
	out := make(map[string]SentimentCounts)
	for _, b := range stats {
		c := out[b.Source]
		switch b.Sentiment {
		case "positive":
			c.Positive += b.Count
		case "neutral":
			c.Neutral += b.Count
		case "negative":
			c.Negative += b.Count
		}
		out[b.Source] = c
	}
	return out
}
