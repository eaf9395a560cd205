package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/quill/internal/apperr"
)

// Store ties a root directory to its categories.
type Store struct {
	root       string
	categories []*Category
	filled     bool
	opts       *options
}

// New returns a Store rooted at root. The path is made absolute and given a
// single trailing separator; categories start unset.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, apperr.E(apperr.KindNullArgument, "init", "", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.E(apperr.KindInvalidLocation, "init", root, err)
	}
	if !strings.HasSuffix(abs, sep) {
		abs += sep
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Store{root: abs, opts: o}, nil
}

// Root returns the normalised root path.
func (s *Store) Root() string { return s.root }

// Filled reports whether categories have been filled at least once.
func (s *Store) Filled() bool { return s != nil && s.filled }

// Categories returns the current snapshot, or nil when it was never filled.
func (s *Store) Categories() []*Category {
	if !s.Filled() {
		return nil
	}
	return s.categories
}

// FillCategories replaces the snapshot with every non-hidden sub-directory of
// the root accepted by filter, and returns how many were kept. Notes are not
// read. When listing fails part-way, the categories collected so far are kept
// and the error is returned.
func (s *Store) FillCategories(filter Filter) (int, error) {
	const op = "categories fill"

	entries, listErr := readDir(op, s.root)
	if apperr.KindOf(listErr) == apperr.KindInvalidLocation {
		return -1, listErr
	}

	categories := make([]*Category, 0, len(entries))
	commit := func() {
		s.categories = categories
		s.filled = true
	}

	for _, e := range entries {
		name := e.Name()
		if hidden(name) || !e.IsDir() {
			continue
		}
		if !filter.accept(name) {
			continue
		}

		path := s.root + name + sep
		info, err := os.Stat(path)
		if err != nil {
			commit()
			return -1, apperr.E(apperr.KindFileStat, op, path, err)
		}
		categories = append(categories, &Category{
			Root:         s.root,
			Path:         path,
			Title:        name,
			LastModified: info.ModTime(),
			opts:         s.opts,
		})
	}

	commit()
	if listErr != nil {
		return -1, listErr
	}
	s.opts.logger.Debug("categories filled", slog.String("root", s.root), slog.Int("count", len(categories)))
	return len(categories), nil
}

// SortCategoriesByModified orders categories newest first. It does nothing on
// an unset snapshot.
func (s *Store) SortCategoriesByModified() {
	if !s.Filled() {
		return
	}
	slices.SortFunc(s.categories, func(a, b *Category) int {
		return byModified(a.LastModified, b.LastModified, a.Title, b.Title)
	})
}

// SortCategoriesAlphabetically orders categories by ascending title. It does
// nothing on an unset snapshot.
func (s *Store) SortCategoriesAlphabetically() {
	if !s.Filled() {
		return
	}
	slices.SortFunc(s.categories, func(a, b *Category) int {
		return byTitle(a.Title, b.Title, a.Path, b.Path)
	})
}

// SearchCategory returns the category titled title. An unfilled snapshot is a
// KindNotFilled error; a filled snapshot without a match returns nil, nil.
func (s *Store) SearchCategory(title string) (*Category, error) {
	if !s.Filled() {
		return nil, apperr.E(apperr.KindNotFilled, "categories search", title, nil)
	}
	for _, c := range s.categories {
		if c.Title == title {
			return c, nil
		}
	}
	return nil, nil
}

// AddCategory creates the directory for a new category and returns its path.
// The collision check consults the current snapshot only; an unfilled
// snapshot never collides.
func (s *Store) AddCategory(title string) (string, error) {
	const op = "categories add"

	if title == "" {
		return "", apperr.E(apperr.KindNullArgument, op, "", nil)
	}
	if len(title) > MaxNameLen {
		return "", apperr.E(apperr.KindTooLong, op, title, nil)
	}
	if hidden(title) || title == ".." || strings.ContainsAny(title, `/\`) {
		return "", apperr.E(apperr.KindInvalidLocation, op, title, nil)
	}
	if found, _ := s.SearchCategory(title); found != nil {
		return "", apperr.E(apperr.KindAlreadyExists, op, found.Path, nil)
	}

	path := s.root + title
	if len(path)+len(sep) > MaxPathLen {
		return "", apperr.E(apperr.KindTooLong, op, path, nil)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", apperr.E(apperr.KindDirCreate, op, path, err)
	}

	s.opts.logger.Info("category added", slog.String("path", path))
	return path + sep, nil
}

// RemoveCategory deletes the category directory and everything inside it.
// It is irreversible.
func (s *Store) RemoveCategory(c *Category) error {
	const op = "categories remove"

	if c == nil {
		return apperr.E(apperr.KindNullArgument, op, "", nil)
	}
	if !strings.HasPrefix(c.Path, s.root) || c.Path == s.root {
		return apperr.E(apperr.KindInvalidLocation, op, c.Path, nil)
	}
	if _, err := os.Lstat(c.Path); err != nil {
		return apperr.E(apperr.KindDelete, op, c.Path, err)
	}
	if err := os.RemoveAll(c.Path); err != nil {
		return apperr.E(apperr.KindDelete, op, c.Path, err)
	}

	s.opts.logger.Info("category removed", slog.String("path", c.Path))
	return nil
}

// NoteRef identifies a note through its owning store.
type NoteRef struct {
	Category string
	Title    string
}

// Resolve maps ref to the note in the current snapshot.
func (s *Store) Resolve(ref NoteRef) (*Note, error) {
	c, err := s.SearchCategory(ref.Category)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.E(apperr.KindNotFound, "resolve", ref.Category, nil)
	}
	n, err := c.SearchNote(ref.Title)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.E(apperr.KindNotFound, "resolve", ref.Category+sep+ref.Title, nil)
	}
	return n, nil
}

// Close releases every collection. It never touches the filesystem and is
// safe on a nil, unfilled or partially filled Store.
func (s *Store) Close() {
	if s == nil {
		return
	}
	for _, c := range s.categories {
		c.release()
	}
	s.categories = nil
	s.filled = false
}
