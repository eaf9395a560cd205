// Package catalog scans a two-level note tree into an in-memory snapshot.
//
// The root directory holds categories (sub-directories); each category holds
// notes (Markdown files with a front-matter title). A snapshot is populated by
// explicit Fill calls and is never refreshed behind the caller's back: Add and
// Remove act on the filesystem only, so callers re-fill to observe them.
//
// A Store and everything it owns must not be used from several goroutines
// without external locking.
package catalog

import (
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/parser"
)

const (
	// MaxNameLen bounds category names and note titles, in bytes.
	MaxNameLen = parser.MaxTitleLen
	// MaxPathLen bounds every path the catalog creates, in bytes.
	MaxPathLen = 4096

	sep = string(os.PathSeparator)
)

// Filter selects entries by title. A nil Filter accepts everything.
type Filter func(title string) bool

func (f Filter) accept(title string) bool {
	return f == nil || f(title)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for skipped entries and mutations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used to name new notes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
}

// hidden reports whether a directory entry must never be surfaced.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// readDir lists dir sorted by name. The entries read before a mid-scan
// failure are returned together with the KindDirRead error.
func readDir(op, dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, apperr.E(apperr.KindInvalidLocation, op, dir, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apperr.E(apperr.KindInvalidLocation, op, dir, err)
	}
	if !info.IsDir() {
		return nil, apperr.E(apperr.KindInvalidLocation, op, dir, nil)
	}

	entries, err := f.ReadDir(-1)
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	if err != nil {
		return entries, apperr.E(apperr.KindDirRead, op, dir, err)
	}
	return entries, nil
}

// byModified orders newest first; equal timestamps fall back to title.
func byModified(at, bt time.Time, a, b string) int {
	if c := bt.Compare(at); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// byTitle orders titles byte-wise; equal titles fall back to path.
func byTitle(a, b, ap, bp string) int {
	if c := strings.Compare(a, b); c != 0 {
		return c
	}
	return strings.Compare(ap, bp)
}
