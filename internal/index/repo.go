package index

import (
	"database/sql"
	"fmt"
	"time"
)

// CategoryRow represents a row in the categories table.
type CategoryRow struct {
	Title    string
	Modified time.Time
}

// NoteRow represents a row in the notes table. Path is relative to the notes
// root and slash-separated.
type NoteRow struct {
	Path        string
	Category    string
	Title       string
	Description string
	Checksum    string
	Modified    time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path        string
	Category    string
	Title       string
	Description string
	Snippet     string
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertCategory(ex execer, c CategoryRow) error {
	_, err := ex.Exec(`
		INSERT INTO categories (title, modified_at) VALUES (?, ?)
		ON CONFLICT(title) DO UPDATE SET modified_at = excluded.modified_at
	`, c.Title, c.Modified)
	if err != nil {
		return fmt.Errorf("index: upsert category: %w", err)
	}
	return nil
}

// UpsertCategory inserts or updates a category.
func (db *DB) UpsertCategory(c CategoryRow) error {
	return upsertCategory(db.conn, c)
}

func deleteCategory(tx *sql.Tx, title string) error {
	ftsDeleteCategory(tx, title)
	if _, err := tx.Exec(`DELETE FROM notes WHERE category = ?`, title); err != nil {
		return fmt.Errorf("index: delete category notes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM categories WHERE title = ?`, title); err != nil {
		return fmt.Errorf("index: delete category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category together with its notes.
func (db *DB) DeleteCategory(title string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteCategory(tx, title); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertNote(tx *sql.Tx, n NoteRow, body string) error {
	_, err := tx.Exec(`
		INSERT INTO notes (path, category, title, description, checksum, body, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			category    = excluded.category,
			title       = excluded.title,
			description = excluded.description,
			checksum    = excluded.checksum,
			body        = excluded.body,
			modified_at = excluded.modified_at
	`, n.Path, n.Category, n.Title, n.Description, n.Checksum, body, n.Modified)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	// FTS upsert (no-op when FTS5 tag is absent).
	return ftsUpsert(tx, n, body)
}

// UpsertNote inserts or replaces a note and its FTS entry. The category row
// must exist.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertNote(tx, n, body); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteNote(tx *sql.Tx, path string) error {
	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteNote(tx, path); err != nil {
		return err
	}
	return tx.Commit()
}

// AllChecksums returns path to checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func allCategories(tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(`SELECT title FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("index: all categories: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out[t] = struct{}{}
	}
	return out, rows.Err()
}

// Counts returns the number of indexed notes per category. Empty categories
// are present with a zero count.
func (db *DB) Counts() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT c.title, count(n.path)
		FROM categories c
		LEFT JOIN notes n ON n.category = c.title
		GROUP BY c.title
	`)
	if err != nil {
		return nil, fmt.Errorf("index: counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Category, &r.Title, &r.Description, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
