package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quill/internal/checksum"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "c"), 0o755); err != nil {
		t.Fatal(err)
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("---\ntitle: Hello\n---\n")
	if err := s.Write("c/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("c/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteMissingCategory(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("missing/c.md", []byte("x")); err == nil {
		t.Error("expected error when the category directory is missing")
	}
}

func TestStat(t *testing.T) {
	s := tempRoot(t)
	data := []byte("body")
	_ = s.Write("c/s.md", data)
	info, err := s.Stat("c/s.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", info.Size, len(data))
	}
	if info.Checksum != checksum.Sum(data) {
		t.Errorf("Checksum = %q", info.Checksum)
	}
	if info.Modified.IsZero() {
		t.Error("Modified should be set")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"",
		".",
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("c/atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("c/atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("c/atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}
	assertNoTemp(t, s, "c")
}

func assertNoTemp(t *testing.T, s *FS, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(s.root, dir, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "quill-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
