// Package filter builds title predicates and time bounds for listing notes.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/quill/internal/catalog"
)

// Glob returns a filter matching titles against a doublestar pattern. An
// empty pattern accepts everything.
func Glob(pattern string) (catalog.Filter, error) {
	if pattern == "" {
		return nil, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("filter: invalid pattern %q", pattern)
	}
	return func(title string) bool {
		ok, err := doublestar.Match(pattern, title)
		return err == nil && ok
	}, nil
}

// Contains returns a case-insensitive substring filter.
func Contains(q string) catalog.Filter {
	if q == "" {
		return nil
	}
	q = strings.ToLower(q)
	return func(title string) bool {
		return strings.Contains(strings.ToLower(title), q)
	}
}

// All accepts a title only when every non-nil filter does. It returns nil
// when no filter is left.
func All(filters ...catalog.Filter) catalog.Filter {
	var fs []catalog.Filter
	for _, f := range filters {
		if f != nil {
			fs = append(fs, f)
		}
	}
	switch len(fs) {
	case 0:
		return nil
	case 1:
		return fs[0]
	}
	return func(title string) bool {
		for _, f := range fs {
			if !f(title) {
				return false
			}
		}
		return true
	}
}

// ParseSince turns a lower time bound into an instant. It accepts relative
// spans such as "36h" or "7d", counted back from now, and any absolute date
// dateparse understands. An empty value yields the zero time.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, ok := parseSpan(s); ok {
		return now.Add(-d), nil
	}
	t, err := dateparse.ParseIn(s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("filter: since %q: %w", s, err)
	}
	return t, nil
}

func parseSpan(s string) (time.Duration, bool) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days < 0 {
			return 0, false
		}
		return time.Duration(days) * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// Since keeps the notes modified at or after t. A zero t keeps everything.
func Since(notes []*catalog.Note, t time.Time) []*catalog.Note {
	if t.IsZero() {
		return notes
	}
	out := make([]*catalog.Note, 0, len(notes))
	for _, n := range notes {
		if !n.LastModified.Before(t) {
			out = append(out, n)
		}
	}
	return out
}
