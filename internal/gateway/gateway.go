// Package gateway owns the dual write of canonical feedback: object store
// first, then the relational row. There is no cross-store transaction; an
// object without a row is a known partial state that backfill repairs.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/pulse/internal/feedback"
	"github.com/kalambet/pulse/internal/storage"
)

// ObjectWriter stores a JSON body under a key with side metadata.
type ObjectWriter interface {
	Put(ctx context.Context, key string, body []byte, meta map[string]string) error
}

// RowUpserter persists the relational copy of a record.
type RowUpserter interface {
	UpsertFeedback(ctx context.Context, row storage.Row) error
}

// Gateway coordinates both stores for a single Persist call.
type Gateway struct {
	objects ObjectWriter
	rows    RowUpserter
}

func New(objects ObjectWriter, rows RowUpserter) *Gateway {
	return &Gateway{objects: objects, rows: rows}
}

// ObjectKey returns the partitioned object key for a record:
// feedback/dt=<YYYY-MM-DD>/source=<source>/<id>.json. Both dt and source
// come from the record itself so the same record always maps to the same key.
func ObjectKey(f feedback.Feedback) string {
	return fmt.Sprintf("feedback/dt=%s/source=%s/%s.json",
		f.CreatedAt.UTC().Format("2006-01-02"), f.Source, f.ID)
}

// Persist writes the record to the object store, then upserts the relational
// row. An object write failure fails the whole call. A row failure after a
// committed object write is logged and swallowed: the object is durable and
// the row can be rebuilt from it.
func (g *Gateway) Persist(ctx context.Context, f feedback.Feedback) (string, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encoding feedback %s: %w", f.ID, err)
	}

	key := ObjectKey(f)
	if err := g.objects.Put(ctx, key, body, objectMeta(f)); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}

	if err := g.rows.UpsertFeedback(ctx, storage.FromFeedback(f, key)); err != nil {
		slog.Error("row upsert failed after object write", "id", f.ID, "key", key, "error", err)
	}

	return key, nil
}

// Reindex rebuilds the relational row for an already-stored object body.
// Used by backfill; the object is not rewritten.
func (g *Gateway) Reindex(ctx context.Context, key string, body []byte) (feedback.Feedback, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return feedback.Feedback{}, fmt.Errorf("parsing object %s: %w", key, err)
	}

	f := feedback.Validate(raw)
	if err := g.rows.UpsertFeedback(ctx, storage.FromFeedback(f, key)); err != nil {
		return feedback.Feedback{}, fmt.Errorf("upserting row for %s: %w", key, err)
	}
	return f, nil
}

// objectMeta is the queryable side metadata attached to every object.
// Keys are hyphenated for the x-amz-meta- header form.
func objectMeta(f feedback.Feedback) map[string]string {
	return map[string]string{
		"source":       f.Source,
		"product-area": f.ProductArea,
		"sentiment":    f.Sentiment,
		"urgency":      f.Urgency,
		"created-at":   f.CreatedAt.UTC().Format(time.RFC3339),
	}
}
