// Package noteservice serialises access to a catalog snapshot and keeps the
// search index and change listeners in step with it.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/singleflight"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/filter"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/parser"
	"github.com/starford/quill/internal/storage"
)

// Order selects how listings are sorted.
type Order string

// Listing orders.
const (
	OrderModified Order = "modified"
	OrderAlpha    Order = "alpha"
)

// ParseOrder maps a user-supplied order name. The empty string means
// OrderModified.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderModified:
		return OrderModified, nil
	case OrderAlpha:
		return OrderAlpha, nil
	}
	return "", apperr.E(apperr.KindInvalid, "order", s, nil)
}

// ChangeKind names a mutation reported to listeners.
type ChangeKind string

// Change kinds.
const (
	CategoryCreated ChangeKind = "category.created"
	CategoryDeleted ChangeKind = "category.deleted"
	NoteCreated     ChangeKind = "note.created"
	NoteDeleted     ChangeKind = "note.deleted"
	Refreshed       ChangeKind = "refreshed"
)

// ChangeFunc is called after a successful mutation. note is empty for
// category-level changes; both are empty for Refreshed.
type ChangeFunc func(kind ChangeKind, category, note string)

// Service coordinates the catalog snapshot, file storage and the index.
type Service struct {
	mu    sync.Mutex
	store *catalog.Store
	files storage.Provider
	db    *index.DB // optional

	group    singleflight.Group
	logger   *slog.Logger
	onChange ChangeFunc
}

// NewService creates a new note service. db may be nil, in which case search
// scans the snapshot.
func NewService(store *catalog.Store, files storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, files: files, db: db, logger: logger}
}

// OnChange registers the mutation listener. It must be set before the
// service is shared.
func (s *Service) OnChange(fn ChangeFunc) { s.onChange = fn }

func (s *Service) emit(kind ChangeKind, category, note string) {
	if s.onChange != nil {
		s.onChange(kind, category, note)
	}
}

// Root returns the notes root.
func (s *Service) Root() string { return s.store.Root() }

// Close releases the snapshot.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Close()
}

// Refresh re-reads every category and note from disk and syncs the index.
// Concurrent calls share one scan.
func (s *Service) Refresh(_ context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		s.mu.Lock()
		err := s.refreshLocked()
		s.mu.Unlock()
		if err == nil {
			s.emit(Refreshed, "", "")
		}
		return nil, err
	})
	return err
}

func (s *Service) refreshLocked() error {
	if _, err := s.store.FillCategories(nil); err != nil {
		if !s.store.Filled() {
			return err
		}
		s.logger.Warn("refresh: partial category listing", slog.String("error", err.Error()))
	}
	s.store.SortCategoriesByModified()

	for _, c := range s.store.Categories() {
		if _, err := c.FillNotes(nil); err != nil {
			s.logger.Warn("refresh: partial note listing",
				slog.String("category", c.Title),
				slog.String("error", err.Error()))
		}
		c.SortNotesByModified()
	}

	if s.db != nil {
		if err := index.Sync(s.db, s.store, s.files, s.logger); err != nil {
			s.logger.Warn("refresh: index sync failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// ensureLocked fills the snapshot on first use.
func (s *Service) ensureLocked() error {
	if s.store.Filled() {
		return nil
	}
	return s.refreshLocked()
}

func (s *Service) categoryLocked(title string) (*catalog.Category, error) {
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	c, err := s.store.SearchCategory(title)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.E(apperr.KindNotFound, "category", title, nil)
	}
	if !c.Filled() {
		if _, err := c.FillNotes(nil); err != nil {
			s.logger.Warn("partial note listing", slog.String("category", title), slog.String("error", err.Error()))
		}
	}
	return c, nil
}

func categoryView(c *catalog.Category) models.Category {
	return models.Category{
		Title:        c.Title,
		Path:         c.Path,
		LastModified: c.LastModified,
		NoteCount:    len(c.Notes()),
	}
}

func noteView(n *catalog.Note) models.Note {
	return models.Note{
		Category:     n.Category,
		Title:        n.Title,
		Description:  n.Description,
		Path:         n.Path,
		LastModified: n.LastModified,
	}
}

// Categories lists categories accepted by f in the requested order.
func (s *Service) Categories(_ context.Context, order Order, f catalog.Filter) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	if order == OrderAlpha {
		s.store.SortCategoriesAlphabetically()
	} else {
		s.store.SortCategoriesByModified()
	}

	out := make([]models.Category, 0, len(s.store.Categories()))
	for _, c := range s.store.Categories() {
		if f != nil && !f(c.Title) {
			continue
		}
		out = append(out, categoryView(c))
	}
	return out, nil
}

// Category returns one category.
func (s *Service) Category(_ context.Context, title string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.categoryLocked(title)
	if err != nil {
		return models.Category{}, err
	}
	return categoryView(c), nil
}

// Notes lists the notes of a category accepted by f and modified at or after
// since, in the requested order.
func (s *Service) Notes(_ context.Context, category string, order Order, f catalog.Filter, since time.Time) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.categoryLocked(category)
	if err != nil {
		return nil, err
	}
	if order == OrderAlpha {
		c.SortNotesAlphabetically()
	} else {
		c.SortNotesByModified()
	}

	notes := filter.Since(c.Notes(), since)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if f != nil && !f(n.Title) {
			continue
		}
		out = append(out, noteView(n))
	}
	return out, nil
}

func (s *Service) noteLocked(category, title string) (*catalog.Note, error) {
	if _, err := s.categoryLocked(category); err != nil {
		return nil, err
	}
	return s.store.Resolve(catalog.NoteRef{Category: category, Title: title})
}

// Note returns one note.
func (s *Service) Note(_ context.Context, category, title string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.noteLocked(category, title)
	if err != nil {
		return models.Note{}, err
	}
	return noteView(n), nil
}

// Content returns a note with its raw file content and checksum.
func (s *Service) Content(_ context.Context, category, title string) (models.NoteContent, error) {
	s.mu.Lock()
	n, err := s.noteLocked(category, title)
	s.mu.Unlock()
	if err != nil {
		return models.NoteContent{}, err
	}

	data, err := s.files.Read(s.rel(n.Path))
	if err != nil {
		return models.NoteContent{}, apperr.E(apperr.KindFileRead, "content", n.Path, err)
	}
	return models.NoteContent{
		Note:     noteView(n),
		Content:  string(data),
		Checksum: checksum.Sum(data),
	}, nil
}

func (s *Service) rel(path string) string {
	return filepath.ToSlash(strings.TrimPrefix(path, s.store.Root()))
}

// CreateCategory creates a category directory.
func (s *Service) CreateCategory(_ context.Context, title string) (models.Category, error) {
	s.mu.Lock()
	c, err := func() (models.Category, error) {
		if err := s.ensureLocked(); err != nil {
			return models.Category{}, err
		}
		if _, err := s.store.AddCategory(title); err != nil {
			return models.Category{}, err
		}
		if err := s.refreshLocked(); err != nil {
			return models.Category{}, err
		}
		c, err := s.categoryLocked(title)
		if err != nil {
			return models.Category{}, err
		}
		return categoryView(c), nil
	}()
	s.mu.Unlock()
	if err != nil {
		return models.Category{}, err
	}

	s.logger.Info("category created", slog.String("category", title))
	s.emit(CategoryCreated, title, "")
	return c, nil
}

// DeleteCategory removes a category. A category that still has notes is a
// KindConflict error unless force is set.
func (s *Service) DeleteCategory(_ context.Context, title string, force bool) error {
	s.mu.Lock()
	err := func() error {
		c, err := s.categoryLocked(title)
		if err != nil {
			return err
		}
		if n := len(c.Notes()); n > 0 && !force {
			return apperr.E(apperr.KindConflict, "delete category", c.Path,
				fmt.Errorf("category holds %d notes", n))
		}
		if err := s.store.RemoveCategory(c); err != nil {
			return err
		}
		return s.refreshLocked()
	}()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("category deleted", slog.String("category", title))
	s.emit(CategoryDeleted, title, "")
	return nil
}

func validateNote(title, description string) error {
	noNewline := validation.NewStringRule(func(v string) bool {
		return !strings.ContainsAny(v, "\r\n")
	}, "must be a single line")

	err := validation.Errors{
		"title": validation.Validate(title,
			validation.Required,
			validation.Length(0, catalog.MaxNameLen),
			noNewline),
		"description": validation.Validate(description, noNewline),
	}.Filter()
	if err != nil {
		return apperr.E(apperr.KindInvalid, "create note", title, err)
	}
	return nil
}

// CreateNote adds a note file to category and writes a header carrying
// title and description. A title already present in the category is a
// KindAlreadyExists error.
func (s *Service) CreateNote(_ context.Context, category, title, description string) (models.Note, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if err := validateNote(title, description); err != nil {
		return models.Note{}, err
	}

	s.mu.Lock()
	n, err := func() (models.Note, error) {
		c, err := s.categoryLocked(category)
		if err != nil {
			return models.Note{}, err
		}
		if dup, _ := c.SearchNote(title); dup != nil {
			return models.Note{}, apperr.E(apperr.KindAlreadyExists, "create note", dup.Path, nil)
		}

		path, err := c.AddNote()
		if err != nil {
			return models.Note{}, err
		}
		rel := s.rel(path)
		existing, err := s.files.Read(rel)
		if err != nil {
			return models.Note{}, apperr.E(apperr.KindFileRead, "create note", path, err)
		}
		if len(existing) > 0 {
			return models.Note{}, apperr.E(apperr.KindAlreadyExists, "create note", path, nil)
		}
		if err := s.files.Write(rel, []byte(parser.Template(title, description))); err != nil {
			return models.Note{}, apperr.E(apperr.KindFileCreate, "create note", path, err)
		}

		if err := s.refreshLocked(); err != nil {
			return models.Note{}, err
		}
		nc, err := s.categoryLocked(category)
		if err != nil {
			return models.Note{}, err
		}
		for _, note := range nc.Notes() {
			if note.Path == path {
				return noteView(note), nil
			}
		}
		return models.Note{}, apperr.E(apperr.KindNotFound, "create note", path, nil)
	}()
	s.mu.Unlock()
	if err != nil {
		return models.Note{}, err
	}

	s.logger.Info("note created", slog.String("category", category), slog.String("title", title))
	s.emit(NoteCreated, category, title)
	return n, nil
}

// DeleteNote removes a note file.
func (s *Service) DeleteNote(_ context.Context, category, title string) error {
	s.mu.Lock()
	err := func() error {
		c, err := s.categoryLocked(category)
		if err != nil {
			return err
		}
		n, err := s.store.Resolve(catalog.NoteRef{Category: category, Title: title})
		if err != nil {
			return err
		}
		if err := c.RemoveNote(n); err != nil {
			return err
		}
		return s.refreshLocked()
	}()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("note deleted", slog.String("category", category), slog.String("title", title))
	s.emit(NoteDeleted, category, title)
	return nil
}

// Indexed reports how many notes the index holds per category, or nil when
// no index is configured.
func (s *Service) Indexed() (map[string]int, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.db.Counts()
}

// Search looks query up in the index, or scans titles and descriptions of
// the snapshot when no index is configured.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.E(apperr.KindNullArgument, "search", "", nil)
	}
	if limit <= 0 {
		limit = 20
	}

	if s.db != nil {
		s.mu.Lock()
		err := s.ensureLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		rows, err := s.db.Search(query, limit)
		if err != nil {
			return nil, err
		}
		out := make([]models.SearchHit, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.SearchHit{
				Category:    r.Category,
				Title:       r.Title,
				Description: r.Description,
				Path:        filepath.Join(s.store.Root(), filepath.FromSlash(r.Path)),
				Snippet:     r.Snippet,
			})
		}
		return out, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	match := filter.Contains(query)
	var out []models.SearchHit
	for _, c := range s.store.Categories() {
		for _, n := range c.Notes() {
			if !match(n.Title) && !match(n.Description) {
				continue
			}
			out = append(out, models.SearchHit{
				Category:    n.Category,
				Title:       n.Title,
				Description: n.Description,
				Path:        n.Path,
			})
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
