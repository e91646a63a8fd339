package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kalambet/pulse/internal/feedback"
	"github.com/kalambet/pulse/internal/storage"
)

type fakeObjects struct {
	err    error
	keys   []string
	bodies map[string][]byte
	metas  map[string]map[string]string
}

func (f *fakeObjects) Put(_ context.Context, key string, body []byte, meta map[string]string) error {
	if f.err != nil {
		return f.err
	}
	if f.bodies == nil {
		f.bodies = make(map[string][]byte)
		f.metas = make(map[string]map[string]string)
	}
	f.keys = append(f.keys, key)
	f.bodies[key] = body
	f.metas[key] = meta
	return nil
}

type fakeRows struct {
	err  error
	rows []storage.Row
}

func (f *fakeRows) UpsertFeedback(_ context.Context, row storage.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func sampleFeedback() feedback.Feedback {
	return feedback.Feedback{
		ID:          "fb-7",
		CreatedAt:   time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		Source:      "discord",
		ProductArea: "api",
		BodyText:    "webhooks fire twice sometimes",
		Sentiment:   "negative",
		Urgency:     "high",
		Tags:        []string{"webhooks"},
	}
}

func TestObjectKey(t *testing.T) {
	f := sampleFeedback()
	got := ObjectKey(f)
	want := "feedback/dt=2026-03-01/source=discord/fb-7.json"
	if got != want {
		t.Errorf("ObjectKey = %q, want %q", got, want)
	}
}

func TestObjectKey_NormalizesToUTC(t *testing.T) {
	f := sampleFeedback()
	// 23:30 on Feb 28 at UTC-5 is already March 1 in UTC.
	f.CreatedAt = time.Date(2026, 2, 28, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	got := ObjectKey(f)
	want := "feedback/dt=2026-03-01/source=discord/fb-7.json"
	if got != want {
		t.Errorf("ObjectKey = %q, want %q", got, want)
	}
}

func TestPersist_WritesObjectThenRow(t *testing.T) {
	objects := &fakeObjects{}
	rows := &fakeRows{}
	g := New(objects, rows)

	f := sampleFeedback()
	key, err := g.Persist(context.Background(), f)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if key != ObjectKey(f) {
		t.Errorf("key = %q, want %q", key, ObjectKey(f))
	}

	if len(objects.keys) != 1 {
		t.Fatalf("object writes = %d, want 1", len(objects.keys))
	}
	var stored feedback.Feedback
	if err := json.Unmarshal(objects.bodies[key], &stored); err != nil {
		t.Fatalf("stored body is not valid JSON: %v", err)
	}
	if stored.ID != f.ID || stored.BodyText != f.BodyText {
		t.Errorf("stored body = %+v, want %+v", stored, f)
	}

	meta := objects.metas[key]
	wantMeta := map[string]string{
		"source":       "discord",
		"product-area": "api",
		"sentiment":    "negative",
		"urgency":      "high",
		"created-at":   "2026-03-01T14:00:00Z",
	}
	for k, v := range wantMeta {
		if meta[k] != v {
			t.Errorf("meta[%q] = %q, want %q", k, meta[k], v)
		}
	}

	if len(rows.rows) != 1 {
		t.Fatalf("row upserts = %d, want 1", len(rows.rows))
	}
	if rows.rows[0].R2Key != key {
		t.Errorf("row R2Key = %q, want %q", rows.rows[0].R2Key, key)
	}
}

func TestPersist_ObjectFailureFailsTheCall(t *testing.T) {
	objects := &fakeObjects{err: errors.New("bucket unreachable")}
	rows := &fakeRows{}
	g := New(objects, rows)

	_, err := g.Persist(context.Background(), sampleFeedback())
	if err == nil {
		t.Fatal("expected error when object write fails")
	}
	if len(rows.rows) != 0 {
		t.Errorf("row upserts = %d, want 0 when object write fails", len(rows.rows))
	}
}

func TestPersist_RowFailureIsPartialSuccess(t *testing.T) {
	objects := &fakeObjects{}
	rows := &fakeRows{err: errors.New("db locked")}
	g := New(objects, rows)

	f := sampleFeedback()
	key, err := g.Persist(context.Background(), f)
	if err != nil {
		t.Fatalf("Persist returned error on row failure: %v", err)
	}
	if key != ObjectKey(f) {
		t.Errorf("key = %q, want %q", key, ObjectKey(f))
	}
	if len(objects.keys) != 1 {
		t.Errorf("object writes = %d, want 1", len(objects.keys))
	}
}

func TestReindex(t *testing.T) {
	rows := &fakeRows{}
	g := New(&fakeObjects{}, rows)

	body := []byte(`{"id":"fb-9","created_at":"2026-03-02T08:00:00Z","source":"github","product_area":"billing","body_text":"charged twice","sentiment":"negative","urgency":"p1","tags":[]}`)
	key := "feedback/dt=2026-03-02/source=github/fb-9.json"

	f, err := g.Reindex(context.Background(), key, body)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if f.ID != "fb-9" || f.Urgency != "p1" {
		t.Errorf("reindexed feedback = %+v", f)
	}
	if len(rows.rows) != 1 {
		t.Fatalf("row upserts = %d, want 1", len(rows.rows))
	}
	if rows.rows[0].R2Key != key {
		t.Errorf("row R2Key = %q, want %q", rows.rows[0].R2Key, key)
	}
}

func TestReindex_BadJSON(t *testing.T) {
	g := New(&fakeObjects{}, &fakeRows{})

	if _, err := g.Reindex(context.Background(), "k", []byte("{nope")); err == nil {
		t.Error("expected error for malformed object body")
	}
}
