package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/fbsweep/internal/scraper"
	"github.com/ibeckermayer/fbsweep/internal/textnorm"
	"github.com/ibeckermayer/fbsweep/internal/types"
)

var sqb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store keeps run history and every post ever seen
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		strategy TEXT,
		collected_at INTEGER NOT NULL,
		post_count INTEGER NOT NULL,
		new_posts INTEGER NOT NULL,
		stats TEXT
	);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		author TEXT,
		profile_url TEXT,
		permalink TEXT,
		text TEXT NOT NULL,
		timestamp TEXT,
		text_key TEXT NOT NULL UNIQUE,
		first_seen INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_collected_at ON runs(collected_at);
	CREATE INDEX IF NOT EXISTS idx_posts_run_id ON posts(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records a run and its posts. Posts whose normalized text was
// stored by an earlier run are not stored again. It returns the run id
// and the posts that were new.
func (s *Store) SaveRun(ctx context.Context, doc types.Document, stats scraper.Stats) (int64, []types.PostRecord, error) {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	query, args, err := sqb.
		Insert("runs").
		Columns("query", "strategy", "collected_at", "post_count", "new_posts", "stats").
		Values(doc.Query, doc.Strategy, doc.CollectedAt.Unix(), len(doc.Posts), 0, string(statsJSON)).
		ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build run insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	fresh := []types.PostRecord{}
	now := time.Now().Unix()
	for _, p := range doc.Posts {
		key := textnorm.Key(p.Text)
		if key == "" {
			continue
		}

		query, args, err := sqb.
			Insert("posts").
			Columns("run_id", "author", "profile_url", "permalink", "text", "timestamp", "text_key", "first_seen").
			Values(runID, p.Author, p.ProfileURL, p.Permalink, p.Text, p.Timestamp, key, now).
			Suffix("ON CONFLICT(text_key) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to build post insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to insert post: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			fresh = append(fresh, p)
		}
	}

	query, args, err = sqb.
		Update("runs").
		Set("new_posts", len(fresh)).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build run update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, nil, fmt.Errorf("failed to update run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	return runID, fresh, nil
}

// RecentRuns returns the latest runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query, args, err := sqb.
		Select("id", "query", "strategy", "collected_at", "post_count", "new_posts", "stats").
		From("runs").
		OrderBy("collected_at DESC", "id DESC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build runs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var collected int64
		var statsJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Query, &r.Strategy, &collected, &r.Posts, &r.NewPosts, &statsJSON); err != nil {
			return nil, err
		}
		r.CollectedAt = time.Unix(collected, 0).UTC()
		if statsJSON.Valid {
			_ = json.Unmarshal([]byte(statsJSON.String), &r.Stats)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunPosts returns the posts first stored by a run
func (s *Store) RunPosts(ctx context.Context, runID int64) ([]Post, error) {
	query, args, err := sqb.
		Select("id", "run_id", "author", "profile_url", "permalink", "text", "timestamp", "text_key", "first_seen").
		From("posts").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build posts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var firstSeen int64
		err := rows.Scan(&p.ID, &p.RunID, &p.Author, &p.ProfileURL, &p.Permalink,
			&p.Text, &p.Timestamp, &p.TextKey, &firstSeen)
		if err != nil {
			return nil, err
		}
		p.FirstSeen = time.Unix(firstSeen, 0).UTC()
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// PostSeen reports whether a post with the same normalized text is stored
func (s *Store) PostSeen(ctx context.Context, text string) (bool, error) {
	query, args, err := sqb.
		Select("1").
		From("posts").
		Where(sq.Eq{"text_key": textnorm.Key(text)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build lookup: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
