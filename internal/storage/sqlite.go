package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the relational copy of ingested
// feedback. The object store remains the source of truth; this copy serves
// the digest aggregates and point lookups.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "pulse.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Feedback ---

// UpsertFeedback inserts a feedback row, replacing any existing row with the
// same id. Last write wins; re-ingesting a record is always safe.
func (s *Store) UpsertFeedback(ctx context.Context, r Row) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, created_at, source, source_url, product_area, title, author, thread_id, body_text, sentiment, urgency, tags, confidence, r2_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			source = excluded.source,
			source_url = excluded.source_url,
			product_area = excluded.product_area,
			title = excluded.title,
			author = excluded.author,
			thread_id = excluded.thread_id,
			body_text = excluded.body_text,
			sentiment = excluded.sentiment,
			urgency = excluded.urgency,
			tags = excluded.tags,
			confidence = excluded.confidence,
			r2_key = excluded.r2_key`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Source, nullable(r.SourceURL),
		r.ProductArea, nullable(r.Title), nullable(r.Author), nullable(r.ThreadID),
		r.BodyText, r.Sentiment, r.Urgency, r.TagsJSON, nullable(r.ConfidenceJSON), r.R2Key,
	)
	return err
}

// GetFeedback returns the row with the given id, or ErrNotFound.
func (s *Store) GetFeedback(ctx context.Context, id string) (Row, error) {
	var r Row
	var createdAt string
	var sourceURL, title, author, threadID, confidence sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, source_url, product_area, title, author, thread_id, body_text, sentiment, urgency, tags, confidence, r2_key
		FROM feedback WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.Source, &sourceURL, &r.ProductArea, &title, &author,
		&threadID, &r.BodyText, &r.Sentiment, &r.Urgency, &r.TagsJSON, &confidence, &r.R2Key)
	if err == sql.ErrNoRows {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Row{}, fmt.Errorf("parsing created_at for %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	r.SourceURL = sourceURL.String
	r.Title = title.String
	r.Author = author.String
	r.ThreadID = threadID.String
	r.ConfidenceJSON = confidence.String
	return r, nil
}

// CountSince returns the number of feedback rows created at or after since.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM feedback WHERE created_at >= ?",
		since.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

// StatsForDay returns counts grouped by (source, product_area, sentiment)
// for the UTC calendar day containing day. A single grouped query; callers
// regroup the buckets however they need.
func (s *Store) StatsForDay(ctx context.Context, day time.Time) ([]SourceAreaSentimentCount, error) {
	start, end := dayBounds(day)
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, product_area, sentiment, COUNT(*)
		FROM feedback
		WHERE created_at >= ? AND created_at < ?
		GROUP BY source, product_area, sentiment
		ORDER BY source, product_area, sentiment`, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SourceAreaSentimentCount
	for rows.Next() {
		var c SourceAreaSentimentCount
		if err := rows.Scan(&c.Source, &c.ProductArea, &c.Sentiment, &c.Count); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// UrgencyCounts returns counts per urgency level for rows created in
// [from, to). Levels with no rows are absent from the map.
func (s *Store) UrgencyCounts(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT urgency, COUNT(*)
		FROM feedback
		WHERE created_at >= ? AND created_at < ?
		GROUP BY urgency`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var urgency string
		var n int
		if err := rows.Scan(&urgency, &n); err != nil {
			return nil, err
		}
		counts[urgency] = n
	}
	return counts, rows.Err()
}

// SampleHighUrgency returns up to limit uniformly sampled high and p1 rows
// created at or after since.
func (s *Store) SampleHighUrgency(ctx context.Context, since time.Time, limit int) ([]UrgencySample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body_text, source_url
		FROM feedback
		WHERE urgency IN ('high', 'p1') AND created_at >= ?
		ORDER BY RANDOM()
		LIMIT ?`,
		since.UTC().Format(time.RFC3339), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []UrgencySample
	for rows.Next() {
		var s UrgencySample
		var sourceURL sql.NullString
		if err := rows.Scan(&s.BodyText, &sourceURL); err != nil {
			return nil, err
		}
		s.SourceURL = sourceURL.String
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// nullable maps empty strings to NULL so optional columns stay queryable
// with IS NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// dayBounds returns the UTC start and end (exclusive) of the calendar day
// containing t, formatted for comparison against stored timestamps.
func dayBounds(t time.Time) (string, string) {
	d := t.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format(time.RFC3339), start.Add(24 * time.Hour).Format(time.RFC3339)
}
