package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"storyshare/internal/domain"
)

// SchemaVersion is the schema this build expects. Opening a database
// written by a newer build fails; older databases are migrated
// additively.
const SchemaVersion = 4

// Each migration step only creates stores and indices. Nothing is
// dropped implicitly, so existing records survive upgrades.
var migrations = [][]string{
	{ // v1: story replica
		`CREATE TABLE IF NOT EXISTS stories (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			photo_url   TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL,
			lat         REAL,
			lon         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS stories_by_date ON stories (created_at)`,
	},
	{ // v2: bookmarks with story snapshot
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id            TEXT PRIMARY KEY,
			story_id      TEXT NOT NULL UNIQUE,
			story_json    TEXT NOT NULL,
			bookmarked_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS bookmarks_by_date ON bookmarks (bookmarked_at)`,
	},
	{ // v3: likes
		`CREATE TABLE IF NOT EXISTS likes (
			id       TEXT PRIMARY KEY,
			story_id TEXT NOT NULL UNIQUE,
			liked_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS likes_by_date ON likes (liked_at)`,
	},
	{ // v4: HTTP response caches
		`CREATE TABLE IF NOT EXISTS cache_entries (
			cache_name   TEXT NOT NULL,
			url          TEXT NOT NULL,
			status       INTEGER NOT NULL,
			headers_json TEXT NOT NULL,
			body         BLOB NOT NULL,
			fetched_at   TIMESTAMP NOT NULL,
			PRIMARY KEY (cache_name, url)
		)`,
		`CREATE INDEX IF NOT EXISTS cache_entries_by_date ON cache_entries (cache_name, fetched_at)`,
	},
}

// Open opens (creating if needed) the local database file.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &domain.StorageError{Op: "open", Err: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	return db, nil
}

// Migrate brings the database up to SchemaVersion. Each step runs in
// its own transaction so a failed upgrade leaves a consistent older
// version behind.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var version int
	if err := db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return &domain.StorageError{Op: "migrate", Err: err}
	}

	if version > SchemaVersion {
		return &domain.StorageError{
			Op:  "migrate",
			Err: fmt.Errorf("database version %d is newer than supported version %d", version, SchemaVersion),
		}
	}

	for v := version; v < SchemaVersion; v++ {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return &domain.StorageError{Op: "migrate", Err: err}
		}

		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return &domain.StorageError{Op: "migrate", Err: fmt.Errorf("apply version %d: %w", v+1, err)}
			}
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return &domain.StorageError{Op: "migrate", Err: err}
		}

		if err := tx.Commit(); err != nil {
			return &domain.StorageError{Op: "migrate", Err: err}
		}
	}

	return nil
}

// Version reports the on-disk schema version.
func Version(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	if err := db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, &domain.StorageError{Op: "version", Err: err}
	}
	return version, nil
}
