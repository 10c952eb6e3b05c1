// Package annotations persists operator path annotations (whitelist
// entries, critical marks) and scan-run history in SQLite, next to the
// manifest they describe. Keeping annotations out of the manifest lets a
// regenerate supersede the baseline without touching operator state.
package annotations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vigil/internal/pathnorm"
)

// Store manages annotation persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the annotations database.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add upserts an annotation. Re-adding an existing path is idempotent: the
// note is refreshed, the original creation time is kept.
func (s *Store) Add(ctx context.Context, kind Kind, path, note string) (Entry, error) {
	normalized, err := pathnorm.Normalize(path)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO annotations (path, kind, note, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (path, kind) DO UPDATE SET note = excluded.note`,
		normalized,
		string(kind),
		nullableString(note),
		now,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert annotation: %w", err)
	}
	return s.get(ctx, kind, normalized)
}

// Remove deletes an annotation and reports whether it existed.
func (s *Store) Remove(ctx context.Context, kind Kind, path string) (bool, error) {
	normalized, err := pathnorm.Normalize(path)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE path = ? AND kind = ?`, normalized, string(kind))
	if err != nil {
		return false, fmt.Errorf("delete annotation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns all annotations of one kind ordered by path.
func (s *Store) List(ctx context.Context, kind Kind) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT path, kind, note, created_at FROM annotations WHERE kind = ? ORDER BY path`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Paths returns just the normalized paths of one annotation kind.
func (s *Store) Paths(ctx context.Context, kind Kind) ([]string, error) {
	entries, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}

// SeedWhitelist inserts policy-file whitelist paths that are not already
// present, leaving operator-added entries untouched.
func (s *Store) SeedWhitelist(ctx context.Context, paths []string) error {
	for _, p := range paths {
		normalized, err := pathnorm.Normalize(p)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(
			ctx,
			`INSERT INTO annotations (path, kind, note, created_at) VALUES (?, ?, ?, ?)
             ON CONFLICT (path, kind) DO NOTHING`,
			normalized,
			string(KindWhitelist),
			"policy file",
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("seed whitelist entry %q: %w", normalized, err)
		}
	}
	return nil
}

// RecordRun appends a scan-history row.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scan_runs (
            session_id, kind, state, root, visited, included, excluded,
            skipped, deviations, critical, elapsed_ms, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.SessionID,
		string(run.Kind),
		run.State,
		run.Root,
		run.Visited,
		run.Included,
		run.Excluded,
		run.Skipped,
		run.Deviations,
		boolToInt(run.Critical),
		run.Elapsed.Milliseconds(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record scan run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest history rows, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, kind, state, root, visited, included, excluded,
                skipped, deviations, critical, elapsed_ms, started_at
         FROM scan_runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			critical  int64
			elapsedMS int64
			startedAt string
		)
		if err := rows.Scan(
			&run.ID,
			&run.SessionID,
			&run.Kind,
			&run.State,
			&run.Root,
			&run.Visited,
			&run.Included,
			&run.Excluded,
			&run.Skipped,
			&run.Deviations,
			&critical,
			&elapsedMS,
			&startedAt,
		); err != nil {
			return nil, err
		}
		run.Critical = critical != 0
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) get(ctx context.Context, kind Kind, path string) (Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT path, kind, note, created_at FROM annotations WHERE path = ? AND kind = ?`,
		path,
		string(kind),
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("annotation %q not found", path)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get annotation: %w", err)
	}
	return entry, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		kindStr    string
		note       sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&entry.Path, &kindStr, &note, &createdRaw); err != nil {
		return Entry{}, err
	}
	entry.Kind = Kind(kindStr)
	entry.Note = note.String
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
