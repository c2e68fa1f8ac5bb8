// Package storage caches opportunity scores in a local SQLite database so
// repeated runs only re-score posts whose entries have expired.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/wpembed/toolscope/internal/utils"
	_ "modernc.org/sqlite"
)

// DefaultTTL is how long a cached score stays valid.
const DefaultTTL = 7 * 24 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS score_cache (
	post_id   INTEGER PRIMARY KEY,
	score     INTEGER NOT NULL,
	rationale TEXT    NOT NULL,
	scored_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_cache_scored_at ON score_cache (scored_at);
`

// Record is one cached score.
type Record struct {
	PostID    int
	Score     int
	Rationale string
	ScoredAt  time.Time
}

type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open creates or opens the cache database at path, creating parent
// directories as needed. A zero ttl takes DefaultTTL.
func Open(path string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts score records. Records without a post id or timestamp are
// dropped rather than poisoning the cache.
func (s *Store) Put(ctx context.Context, records []Record) error {
	for _, r := range records {
		if r.PostID <= 0 || r.ScoredAt.IsZero() {
			utils.Log.Debugf("storage: dropping incomplete record %+v", r)
			continue
		}
		_, err := sq.Insert("score_cache").
			Columns("post_id", "score", "rationale", "scored_at").
			Values(r.PostID, r.Score, r.Rationale, r.ScoredAt.Unix()).
			Suffix("ON CONFLICT(post_id) DO UPDATE SET score = excluded.score, rationale = excluded.rationale, scored_at = excluded.scored_at").
			RunWith(s.db).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("storage: put %d: %w", r.PostID, err)
		}
	}
	return nil
}

// GetValid returns all unexpired records keyed by post id, deleting expired
// rows on the way.
func (s *Store) GetValid(ctx context.Context) (map[int]Record, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()

	if _, err := sq.Delete("score_cache").
		Where(sq.Lt{"scored_at": cutoff}).
		RunWith(s.db).
		ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("storage: expire: %w", err)
	}

	rows, err := sq.Select("post_id", "score", "rationale", "scored_at").
		From("score_cache").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: select: %w", err)
	}
	defer rows.Close()

	out := map[int]Record{}
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&r.PostID, &r.Score, &r.Rationale, &ts); err != nil {
			return nil, err
		}
		r.ScoredAt = time.Unix(ts, 0).UTC()
		out[r.PostID] = r
	}
	return out, rows.Err()
}

// TopScores returns the n highest-scoring unexpired records, best first.
func (s *Store) TopScores(ctx context.Context, n int) ([]Record, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()
	rows, err := sq.Select("post_id", "score", "rationale", "scored_at").
		From("score_cache").
		Where(sq.GtOrEq{"scored_at": cutoff}).
		OrderBy("score DESC", "post_id ASC").
		Limit(uint64(n)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: top scores: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&r.PostID, &r.Score, &r.Rationale, &ts); err != nil {
			return nil, err
		}
		r.ScoredAt = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats reports the row count and the oldest entry's timestamp. The zero
// time means the cache is empty.
func (s *Store) Stats(ctx context.Context) (int, time.Time, error) {
	var count int
	var oldest sql.NullInt64
	err := sq.Select("COUNT(*)", "MIN(scored_at)").
		From("score_cache").
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("storage: stats: %w", err)
	}
	if !oldest.Valid {
		return count, time.Time{}, nil
	}
	return count, time.Unix(oldest.Int64, 0).UTC(), nil
}

// Clear drops every cached score.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := sq.Delete("score_cache").RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("storage: clear: %w", err)
	}
	return nil
}
