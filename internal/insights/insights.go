// Package insights answers questions about stored feedback and composes the
// daily digest. It consumes the retrieval service for semantic search and
// the relational store for counts; it owns none of the data itself.
package insights

import (
	"context"
	"time"

	"github.com/kalambet/pulse/internal/search"
	"github.com/kalambet/pulse/internal/storage"
)

// Searcher runs one retrieval-augmented query over the feedback index.
type Searcher interface {
	Query(ctx context.Context, query string) (search.Result, error)
}

// StatsReader is the relational read side used for digest composition.
type StatsReader interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
	StatsForDay(ctx context.Context, day time.Time) ([]storage.SourceAreaSentimentCount, error)
	UrgencyCounts(ctx context.Context, from, to time.Time) (map[string]int, error)
	SampleHighUrgency(ctx context.Context, since time.Time, limit int) ([]storage.UrgencySample, error)
}

// Service orchestrates ask and digest flows.
type Service struct {
	searcher Searcher
	store    StatsReader
}

func New(searcher Searcher, store StatsReader) *Service {
	return &Service{searcher: searcher, store: store}
}
