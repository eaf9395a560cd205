package index

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/parser"
	"github.com/starford/quill/internal/storage"
)

// Sync brings the index in line with a filled snapshot, in one transaction:
//   - categories are upserted; categories gone from the snapshot are deleted
//     with their notes
//   - notes of filled categories are read and upserted when their checksum
//     changed; notes no longer listed are deleted
//
// Notes of categories whose notes were never filled are left untouched.
func Sync(db *DB, snap *catalog.Store, files storage.Provider, logger *slog.Logger) error {
	if !snap.Filled() {
		return fmt.Errorf("index: sync: snapshot not filled")
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	indexed, err := allCategories(tx)
	if err != nil {
		return err
	}

	live := make(map[string]*catalog.Category, len(snap.Categories()))
	seen := make(map[string]struct{})
	for _, c := range snap.Categories() {
		live[c.Title] = c
		if err := upsertCategory(tx, CategoryRow{Title: c.Title, Modified: c.LastModified}); err != nil {
			return err
		}

		for _, n := range c.Notes() {
			rel := relPath(snap.Root(), n.Path)
			seen[rel] = struct{}{}

			info, err := files.Stat(rel)
			if err != nil {
				logger.Warn("sync: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
				continue
			}
			if checksums[rel] == info.Checksum {
				if _, err := tx.Exec(`UPDATE notes SET modified_at = ? WHERE path = ?`, n.LastModified, rel); err != nil {
					return fmt.Errorf("index: touch note: %w", err)
				}
				continue
			}
			data, err := files.Read(rel)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", rel), slog.String("error", err.Error()))
				continue
			}
			cs := checksum.Sum(data)

			row := NoteRow{
				Path:        rel,
				Category:    c.Title,
				Title:       n.Title,
				Description: n.Description,
				Checksum:    cs,
				Modified:    n.LastModified,
			}
			if err := upsertNote(tx, row, string(parser.Body(data))); err != nil {
				return err
			}
			logger.Debug("sync: indexed", slog.String("path", rel))
		}
	}

	for title := range indexed {
		if _, ok := live[title]; ok {
			continue
		}
		if err := deleteCategory(tx, title); err != nil {
			return err
		}
		logger.Debug("sync: removed stale category", slog.String("category", title))
	}

	for p := range checksums {
		if _, ok := seen[p]; ok {
			continue
		}
		cat, _, _ := strings.Cut(p, "/")
		c, ok := live[cat]
		if !ok || !c.Filled() {
			continue
		}
		if err := deleteNote(tx, p); err != nil {
			return err
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return tx.Commit()
}

// relPath maps an absolute note path to the slash-separated key used in the
// notes table.
func relPath(root, path string) string {
	return filepath.ToSlash(strings.TrimPrefix(path, root))
}
