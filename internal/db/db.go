package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a script is not stored.
var ErrNotFound = errors.New("script not found")

// DB wraps a sql.DB holding an imported doc set.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the database location.
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS scripts (
    name TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK(kind IN ('navtree','navindex','branch','search')),
    body BLOB NOT NULL,
    import_id TEXT NOT NULL DEFAULT '',
    imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scripts_kind ON scripts(kind);

CREATE TABLE IF NOT EXISTS imports (
    id TEXT PRIMARY KEY,
    docs_dir TEXT NOT NULL,
    script_count INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);
`

// Script kinds.
const (
	KindNavTree  = "navtree"
	KindNavIndex = "navindex"
	KindBranch   = "branch"
	KindSearch   = "search"
)

// Script is one stored doc set script, keyed by its path relative to the
// docs directory ("search/all_1.js").
type Script struct {
	Name       string
	Kind       string
	Body       []byte
	ImportID   string
	ImportedAt time.Time
}

// PutScript inserts or replaces a script.
func (d *DB) PutScript(ctx context.Context, s Script) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO scripts (name, kind, body, import_id, imported_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			body = excluded.body,
			import_id = excluded.import_id,
			imported_at = excluded.imported_at`,
		s.Name, s.Kind, s.Body, s.ImportID,
	)
	if err != nil {
		return fmt.Errorf("storing script %s: %w", s.Name, err)
	}
	return nil
}

// GetScript returns the named script or ErrNotFound.
func (d *DB) GetScript(ctx context.Context, name string) (*Script, error) {
	var s Script
	err := d.QueryRowContext(ctx, `
		SELECT name, kind, body, import_id, imported_at
		FROM scripts WHERE name = ?`, name,
	).Scan(&s.Name, &s.Kind, &s.Body, &s.ImportID, &s.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading script %s: %w", name, err)
	}
	return &s, nil
}

// ListScripts returns the names of stored scripts of the given kind, sorted.
// An empty kind lists every script.
func (d *DB) ListScripts(ctx context.Context, kind string) ([]string, error) {
	query := `SELECT name FROM scripts ORDER BY name`
	args := []any{}
	if kind != "" {
		query = `SELECT name FROM scripts WHERE kind = ? ORDER BY name`
		args = append(args, kind)
	}
	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scripts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning script name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Import describes one `docnav import` run.
type Import struct {
	ID          string
	DocsDir     string
	ScriptCount int
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// BeginImport records the start of an import and returns its id.
func (d *DB) BeginImport(ctx context.Context, docsDir string) (string, error) {
	id := uuid.New().String()
	_, err := d.ExecContext(ctx,
		`INSERT INTO imports (id, docs_dir, started_at) VALUES (?, ?, datetime('now'))`,
		id, docsDir,
	)
	if err != nil {
		return "", fmt.Errorf("recording import: %w", err)
	}
	return id, nil
}

// FinishImport stamps an import as complete.
func (d *DB) FinishImport(ctx context.Context, id string, scripts int) error {
	_, err := d.ExecContext(ctx,
		`UPDATE imports SET script_count = ?, finished_at = datetime('now') WHERE id = ?`,
		scripts, id,
	)
	if err != nil {
		return fmt.Errorf("finishing import %s: %w", id, err)
	}
	return nil
}

// LastImport returns the most recent finished import, or nil.
func (d *DB) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	var finished sql.NullTime
	err := d.QueryRowContext(ctx, `
		SELECT id, docs_dir, script_count, started_at, finished_at
		FROM imports WHERE finished_at IS NOT NULL
		ORDER BY finished_at DESC, rowid DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.DocsDir, &imp.ScriptCount, &imp.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last import: %w", err)
	}
	if finished.Valid {
		imp.FinishedAt = &finished.Time
	}
	return &imp, nil
}
