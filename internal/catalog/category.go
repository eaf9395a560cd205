package catalog

import (
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/parser"
)

var parseFile = parser.ParseFile

// Category is a top-level directory of the note tree.
type Category struct {
	Root         string // root of the owning store
	Path         string // ends with a separator
	Title        string
	LastModified time.Time

	notes  []*Note
	filled bool
	opts   *options
}

// Note is a Markdown file whose front matter carries a title.
type Note struct {
	Category       string // title of the owning category
	Path           string
	Title          string
	Description    string
	HasDescription bool
	LastModified   time.Time
}

// Ref returns the store-level identifier of n.
func (n *Note) Ref() NoteRef {
	return NoteRef{Category: n.Category, Title: n.Title}
}

// Filled reports whether notes have been filled at least once.
func (c *Category) Filled() bool { return c != nil && c.filled }

// Notes returns the current snapshot, or nil when it was never filled.
func (c *Category) Notes() []*Note {
	if !c.Filled() {
		return nil
	}
	return c.notes
}

func (c *Category) logger() *slog.Logger {
	if c.opts == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.opts.logger
}

func (c *Category) clock() time.Time {
	if c.opts == nil {
		return time.Now()
	}
	return c.opts.now()
}

// FillNotes replaces the snapshot with the notes of the category accepted by
// filter and returns how many were kept.
//
// Candidates are non-hidden regular files whose name contains ".md" or ".MD",
// visited in byte-wise name order. A candidate without a front-matter title is
// skipped. A read failure while parsing aborts the fill; like a listing or
// stat failure, it keeps the notes collected so far.
func (c *Category) FillNotes(filter Filter) (int, error) {
	const op = "notes fill"

	entries, listErr := readDir(op, c.Path)
	if apperr.KindOf(listErr) == apperr.KindInvalidLocation {
		return -1, listErr
	}

	notes := make([]*Note, 0, len(entries))
	commit := func() {
		c.notes = notes
		c.filled = true
	}
	log := c.logger()

	for _, e := range entries {
		name := e.Name()
		if hidden(name) || e.IsDir() {
			continue
		}
		if !strings.Contains(name, ".md") && !strings.Contains(name, ".MD") {
			continue
		}

		path := c.Path + name
		if !regular(e, path) {
			log.Debug("skipping non-regular file", slog.String("path", path))
			continue
		}

		res, err := parseFile(path)
		if err != nil {
			commit()
			return -1, err
		}
		if !res.HasTitle() {
			log.Debug("skipping file without title", slog.String("path", path))
			continue
		}
		if !filter.accept(res.Title) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			commit()
			return -1, apperr.E(apperr.KindFileStat, op, path, err)
		}
		notes = append(notes, &Note{
			Category:       c.Title,
			Path:           path,
			Title:          res.Title,
			Description:    res.Description,
			HasDescription: res.HasDescription(),
			LastModified:   info.ModTime(),
		})
	}

	commit()
	if listErr != nil {
		return -1, listErr
	}
	log.Debug("notes filled", slog.String("category", c.Title), slog.Int("count", len(notes)))
	return len(notes), nil
}

// regular accepts regular files and symlinks that resolve to one.
func regular(e fs.DirEntry, path string) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SortNotesByModified orders notes newest first. It does nothing on an unset
// snapshot.
func (c *Category) SortNotesByModified() {
	if !c.Filled() {
		return
	}
	slices.SortFunc(c.notes, func(a, b *Note) int {
		return byModified(a.LastModified, b.LastModified, a.Title, b.Title)
	})
}

// SortNotesAlphabetically orders notes by ascending title. It does nothing on
// an unset snapshot.
func (c *Category) SortNotesAlphabetically() {
	if !c.Filled() {
		return
	}
	slices.SortFunc(c.notes, func(a, b *Note) int {
		return byTitle(a.Title, b.Title, a.Path, b.Path)
	})
}

// SearchNote returns the note titled title. When several files share the
// title, the one with the smallest path wins whatever the current order. An
// unfilled snapshot is a KindNotFilled error; no match returns nil, nil.
func (c *Category) SearchNote(title string) (*Note, error) {
	if !c.Filled() {
		path := ""
		if c != nil {
			path = c.Path
		}
		return nil, apperr.E(apperr.KindNotFilled, "notes search", path, nil)
	}
	var found *Note
	for _, n := range c.notes {
		if n.Title == title && (found == nil || n.Path < found.Path) {
			found = n
		}
	}
	return found, nil
}

// AddNote creates an empty file named after the current Unix time and
// returns its path. An existing file of that name is opened, not truncated.
func (c *Category) AddNote() (string, error) {
	const op = "notes add"

	path := c.Path + strconv.FormatInt(c.clock().Unix(), 10) + ".md"
	if len(path) > MaxPathLen {
		return "", apperr.E(apperr.KindTooLong, op, path, nil)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return "", apperr.E(apperr.KindFileCreate, op, path, err)
	}
	if err := f.Close(); err != nil {
		return "", apperr.E(apperr.KindFileCreate, op, path, err)
	}

	c.logger().Info("note added", slog.String("path", path))
	return path, nil
}

// RemoveNote deletes the file behind n.
func (c *Category) RemoveNote(n *Note) error {
	const op = "notes remove"

	if n == nil {
		return apperr.E(apperr.KindNullArgument, op, "", nil)
	}
	if !strings.HasPrefix(n.Path, c.Path) {
		return apperr.E(apperr.KindInvalidLocation, op, n.Path, nil)
	}
	if err := os.Remove(n.Path); err != nil {
		return apperr.E(apperr.KindDelete, op, n.Path, err)
	}

	c.logger().Info("note removed", slog.String("path", n.Path))
	return nil
}

func (c *Category) release() {
	c.notes = nil
	c.filled = false
}
