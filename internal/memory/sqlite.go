// CLAUDE:SUMMARY SQLite Memory implementation — FTS5 recall with LIKE fallback, last-write-wins learn keyed by problem.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/repeche/idgen"
)

// Schema is the memory store schema. Learn is keyed by problem text:
// re-learning the same problem overwrites the previous solution
// (last-write-wins, matching the capability contract).
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id          TEXT PRIMARY KEY,
    problem     TEXT NOT NULL UNIQUE,
    solution    TEXT NOT NULL,
    tags        TEXT NOT NULL DEFAULT '',
    stored_at   INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
    problem, solution, tags, content='memories', content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
    INSERT INTO memories_fts(rowid, problem, solution, tags) VALUES (new.rowid, new.problem, new.solution, new.tags);
END;
CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, problem, solution, tags) VALUES('delete', old.rowid, old.problem, old.solution, old.tags);
END;
CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, problem, solution, tags) VALUES('delete', old.rowid, old.problem, old.solution, old.tags);
    INSERT INTO memories_fts(rowid, problem, solution, tags) VALUES (new.rowid, new.problem, new.solution, new.tags);
END;

CREATE TABLE IF NOT EXISTS fetch_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    url         TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    status_code INTEGER NOT NULL DEFAULT 0,
    verdict     TEXT NOT NULL DEFAULT '',
    timing_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_url ON fetch_log(url, fetched_at);
`

// SQLiteMemory is a bundled Memory implementation for deployments without a
// sibling memory tool. Recall over-fetches by design: ranking and filtering
// stay with the caller.
type SQLiteMemory struct {
	db     *sql.DB
	logger *slog.Logger
	newID  func() string
	limit  int
}

// OpenSQLite opens (or creates) the memory database at path with WAL and
// busy-timeout pragmas and applies the schema. path ":memory:" is accepted
// for tests.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteMemory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("memory sqlite: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("memory sqlite: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory sqlite: schema: %w", err)
	}
	return &SQLiteMemory{db: db, logger: logger, newID: idgen.New, limit: 50}, nil
}

// Close closes the database.
func (m *SQLiteMemory) Close() error { return m.db.Close() }

// Recall returns items matching query, FTS5 first, LIKE fallback when the
// query cannot be expressed as an FTS expression.
func (m *SQLiteMemory) Recall(ctx context.Context, query string) (*RecallResult, error) {
	items, err := m.recallFTS(ctx, query)
	if err != nil {
		items, err = m.recallLike(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	return &RecallResult{Found: len(items) > 0, Items: items}, nil
}

func (m *SQLiteMemory) recallFTS(ctx context.Context, query string) ([]Item, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT mem.id, mem.problem, mem.solution, mem.tags, mem.stored_at
		 FROM memories_fts f JOIN memories mem ON mem.rowid = f.rowid
		 WHERE memories_fts MATCH ?
		 ORDER BY f.rank LIMIT ?`,
		ftsQuery(query), m.limit)
	if err != nil {
		return nil, fmt.Errorf("memory sqlite: fts recall: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (m *SQLiteMemory) recallLike(ctx context.Context, query string) ([]Item, error) {
	pattern := "%" + query + "%"
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, problem, solution, tags, stored_at FROM memories
		 WHERE problem LIKE ? OR tags LIKE ?
		 ORDER BY stored_at DESC LIMIT ?`,
		pattern, pattern, m.limit)
	if err != nil {
		return nil, fmt.Errorf("memory sqlite: like recall: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Learn files a problem/solution pair. Re-learning the same problem
// overwrites the stored solution and tags.
func (m *SQLiteMemory) Learn(ctx context.Context, problem, solution string, tags []string) error {
	now := time.Now().UnixMilli()
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO memories (id, problem, solution, tags, stored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(problem) DO UPDATE SET
		   solution = excluded.solution,
		   tags = excluded.tags,
		   stored_at = excluded.stored_at`,
		m.newID(), problem, solution, strings.Join(tags, " "), now)
	if err != nil {
		return fmt.Errorf("memory sqlite: learn: %w", err)
	}
	return nil
}

// LogFetch appends one row to the fetch log.
func (m *SQLiteMemory) LogFetch(ctx context.Context, url, strategy string, statusCode int, verdict string, timingMs int64) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO fetch_log (url, strategy, status_code, verdict, timing_ms, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		url, strategy, statusCode, verdict, timingMs, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("memory sqlite: fetch log: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		var tags string
		if err := rows.Scan(&it.ID, &it.Problem, &it.Solution, &tags, &it.StoredAt); err != nil {
			return nil, err
		}
		if tags != "" {
			it.Tags = strings.Fields(tags)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ftsQuery quotes each term so domains with dots survive FTS5 parsing.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, ``) + `"`
	}
	return strings.Join(fields, " OR ")
}
