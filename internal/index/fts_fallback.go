//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the notes table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ NoteRow, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

func ftsDeleteCategory(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search over title, description and body
// (fallback when FTS5 is not compiled in). Newer notes rank first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, category, title, description, substr(body, 1, 200)
		FROM notes
		WHERE title LIKE ? OR description LIKE ? OR body LIKE ?
		ORDER BY modified_at DESC, path
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
