// Package testutil provides shared test helpers for building note trees on disk.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Note returns note file content with the given front matter.
func Note(title, description string) string {
	s := "---\ntitle: " + title + "\n"
	if description != "" {
		s += "description: " + description + "\n"
	}
	return s + "---\n"
}

// NoteTree creates a temporary root and writes files into it. Keys are paths
// relative to the root; a key ending in "/" creates an empty directory.
func NoteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// SetModTime sets both access and modification time of path.
func SetModTime(t *testing.T, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
}
