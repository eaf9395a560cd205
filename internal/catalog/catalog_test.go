package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/testutil"
)

func newStore(t *testing.T, root string, opts ...Option) *Store {
	t.Helper()
	s, err := New(root, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func fillCategories(t *testing.T, s *Store) int {
	t.Helper()
	n, err := s.FillCategories(nil)
	if err != nil {
		t.Fatalf("FillCategories: %v", err)
	}
	return n
}

func titles[T any](items []T, title func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, title(it))
	}
	return out
}

func categoryTitles(s *Store) []string {
	return titles(s.Categories(), func(c *Category) string { return c.Title })
}

func noteTitles(c *Category) []string {
	return titles(c.Notes(), func(n *Note) string { return n.Title })
}

// wantTitles compares in order.
func wantTitles(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("titles = %q, want %q", got, want)
	}
}

// wantTitleSet compares ignoring order.
func wantTitleSet(t *testing.T, got, want []string) {
	t.Helper()
	got, want = slices.Clone(got), slices.Clone(want)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("titles = %q, want %q", got, want)
	}
}

func wantKind(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("err = %v, want %v", err, target)
	}
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New("")
	wantKind(t, err, apperr.ErrNullArgument)
}

func TestNew_NormalisesTrailingSeparator(t *testing.T) {
	root := t.TempDir()
	for _, in := range []string{root, root + string(os.PathSeparator)} {
		s := newStore(t, in)
		if got, want := s.Root(), root+string(os.PathSeparator); got != want {
			t.Errorf("Root(%q) = %q, want %q", in, got, want)
		}
		if s.Filled() || s.Categories() != nil {
			t.Errorf("new store must start unset")
		}
	}
}

func TestFillCategories_SkipsHiddenAndFiles(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{
		"c/":         "",
		"latex/":     "",
		".git/":      "",
		"readme.md":  "not a category",
		".hidden.md": "",
	})
	s := newStore(t, root)

	if n := fillCategories(t, s); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	wantTitleSet(t, categoryTitles(s), []string{"c", "latex"})

	for _, c := range s.Categories() {
		if !strings.HasSuffix(c.Path, string(os.PathSeparator)) {
			t.Errorf("path %q has no trailing separator", c.Path)
		}
		if c.Root != s.Root() {
			t.Errorf("root = %q, want %q", c.Root, s.Root())
		}
		if c.Filled() {
			t.Errorf("notes of %q must stay unset after a category fill", c.Title)
		}
	}
}

func TestFillCategories_EmptyIsFilled(t *testing.T) {
	s := newStore(t, t.TempDir())
	if n := fillCategories(t, s); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	if !s.Filled() || s.Categories() == nil {
		t.Error("empty root must leave a filled, empty snapshot")
	}
}

func TestFillCategories_Filter(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"go/": "", "golang/": "", "c/": ""})
	s := newStore(t, root)

	n, err := s.FillCategories(func(title string) bool { return strings.HasPrefix(title, "go") })
	if err != nil {
		t.Fatalf("FillCategories: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	wantTitleSet(t, categoryTitles(s), []string{"go", "golang"})
}

func TestFillCategories_InvalidLocation(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "missing"))
	_, err := s.FillCategories(nil)
	wantKind(t, err, apperr.ErrInvalidLocation)
	if s.Filled() {
		t.Error("missing root must leave categories unset")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s = newStore(t, file)
	_, err = s.FillCategories(nil)
	wantKind(t, err, apperr.ErrInvalidLocation)
}

func TestFillCategories_ReplacesPreviousSnapshot(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"a/": "", "b/": ""})
	s := newStore(t, root)
	fillCategories(t, s)

	if err := os.Remove(filepath.Join(root, "b")); err != nil {
		t.Fatal(err)
	}
	if n := fillCategories(t, s); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	wantTitles(t, categoryTitles(s), []string{"a"})
}

func TestSortCategoriesByModified(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"c/": "", "latex/": ""})
	t1 := time.Date(2022, 4, 16, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	testutil.SetModTime(t, filepath.Join(root, "c"), t2)
	testutil.SetModTime(t, filepath.Join(root, "latex"), t1)

	s := newStore(t, root)
	fillCategories(t, s)

	s.SortCategoriesByModified()
	wantTitles(t, categoryTitles(s), []string{"c", "latex"})
}

func TestSortCategoriesAlphabetically_Idempotent(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"zeta/": "", "Alpha/": "", "beta/": ""})
	s := newStore(t, root)
	fillCategories(t, s)

	s.SortCategoriesAlphabetically()
	once := categoryTitles(s)
	s.SortCategoriesAlphabetically()
	wantTitles(t, categoryTitles(s), once)
	wantTitles(t, once, []string{"Alpha", "beta", "zeta"})
}

func TestSortOnUnsetIsNoop(t *testing.T) {
	s := newStore(t, t.TempDir())
	s.SortCategoriesByModified()
	s.SortCategoriesAlphabetically()
	if s.Categories() != nil {
		t.Error("sort must not fill categories")
	}

	var nilStore *Store
	nilStore.SortCategoriesByModified()

	c := &Category{Path: t.TempDir()}
	c.SortNotesByModified()
	c.SortNotesAlphabetically()
	if c.Notes() != nil {
		t.Error("sort must not fill notes")
	}
}

func TestSearchCategory_NotFilledVersusNotFound(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"c/": ""})
	s := newStore(t, root)

	_, err := s.SearchCategory("c")
	wantKind(t, err, apperr.ErrNotFilled)

	fillCategories(t, s)

	c, err := s.SearchCategory("c")
	if err != nil {
		t.Fatalf("SearchCategory: %v", err)
	}
	if c == nil || c.Title != "c" {
		t.Fatalf("found = %+v, want c", c)
	}

	c, err = s.SearchCategory("nope")
	if err != nil || c != nil {
		t.Errorf("search nope = %+v, %v; want nil, nil", c, err)
	}
}

func TestAddCategory(t *testing.T) {
	root := t.TempDir()
	s := newStore(t, root)
	fillCategories(t, s)

	path, err := s.AddCategory("rust")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if want := filepath.Join(root, "rust") + string(os.PathSeparator); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("stat %q: %v", path, err)
	}

	// The snapshot is not refreshed by Add.
	if c, err := s.SearchCategory("rust"); err != nil || c != nil {
		t.Errorf("before refill = %+v, %v; want nil, nil", c, err)
	}

	fillCategories(t, s)
	if c, err := s.SearchCategory("rust"); err != nil || c == nil {
		t.Errorf("after refill = %+v, %v", c, err)
	}
}

func TestAddCategory_CollisionLeavesDiskAlone(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"c/": ""})
	s := newStore(t, root)
	fillCategories(t, s)
	before, err := os.Stat(filepath.Join(root, "c"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.AddCategory("c")
	wantKind(t, err, apperr.ErrAlreadyExists)

	after, err := os.Stat(filepath.Join(root, "c"))
	if err != nil {
		t.Fatal(err)
	}
	if !before.ModTime().Equal(after.ModTime()) {
		t.Errorf("mtime changed: %v -> %v", before.ModTime(), after.ModTime())
	}
}

func TestAddCategory_StaleSnapshotFallsThroughToMkdir(t *testing.T) {
	root := t.TempDir()
	s := newStore(t, root)
	fillCategories(t, s)
	if err := os.Mkdir(filepath.Join(root, "late"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := s.AddCategory("late")
	wantKind(t, err, apperr.ErrDirCreate)
	wantKind(t, err, fs.ErrExist)
}

func TestAddCategory_RejectsBadNames(t *testing.T) {
	s := newStore(t, t.TempDir())

	_, err := s.AddCategory("")
	wantKind(t, err, apperr.ErrNullArgument)

	_, err = s.AddCategory(strings.Repeat("x", MaxNameLen+1))
	wantKind(t, err, apperr.ErrTooLong)

	for _, name := range []string{".hidden", "..", "a/b"} {
		if _, err := s.AddCategory(name); !errors.Is(err, apperr.ErrInvalidLocation) {
			t.Errorf("AddCategory(%q) = %v, want invalid location", name, err)
		}
	}
}

func TestRemoveCategory_DeletesNotes(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{
		"c/1.md": testutil.Note("One", ""),
		"c/2.md": testutil.Note("Two", "second"),
		"keep/":  "",
	})
	s := newStore(t, root)
	c := filledCategory(t, s, "c")
	if got := len(c.Notes()); got != 2 {
		t.Fatalf("notes = %d, want 2", got)
	}

	if err := s.RemoveCategory(c); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "c")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("stat removed dir: %v", err)
	}

	fresh := newStore(t, root)
	fillCategories(t, fresh)
	if found, err := fresh.SearchCategory("c"); err != nil || found != nil {
		t.Errorf("after remove = %+v, %v; want nil, nil", found, err)
	}
}

func TestRemoveCategory_Errors(t *testing.T) {
	s := newStore(t, t.TempDir())

	wantKind(t, s.RemoveCategory(nil), apperr.ErrNullArgument)
	wantKind(t, s.RemoveCategory(&Category{Path: "/etc/"}), apperr.ErrInvalidLocation)
	wantKind(t, s.RemoveCategory(&Category{Path: s.Root()}), apperr.ErrInvalidLocation)

	gone := &Category{Path: s.Root() + "gone" + string(os.PathSeparator)}
	err := s.RemoveCategory(gone)
	wantKind(t, err, apperr.ErrDelete)
	wantKind(t, err, fs.ErrNotExist)
}

func TestResolve(t *testing.T) {
	root := testutil.NoteTree(t, map[string]string{"c/1.md": testutil.Note("Pipes", "")})
	s := newStore(t, root)
	ref := NoteRef{Category: "c", Title: "Pipes"}

	_, err := s.Resolve(ref)
	wantKind(t, err, apperr.ErrNotFilled)

	fillCategories(t, s)
	_, err = s.Resolve(ref)
	wantKind(t, err, apperr.ErrNotFilled)

	c, _ := s.SearchCategory("c")
	if _, err := c.FillNotes(nil); err != nil {
		t.Fatalf("FillNotes: %v", err)
	}

	n, err := s.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n.Ref() != ref {
		t.Errorf("ref = %+v, want %+v", n.Ref(), ref)
	}

	_, err = s.Resolve(NoteRef{Category: "x", Title: "Pipes"})
	wantKind(t, err, apperr.ErrNotFound)
	_, err = s.Resolve(NoteRef{Category: "c", Title: "x"})
	wantKind(t, err, apperr.ErrNotFound)
}

func TestClose_SafeOnAnyState(t *testing.T) {
	var nilStore *Store
	nilStore.Close()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()

	root := testutil.NoteTree(t, map[string]string{"a/1.md": testutil.Note("A", "")})
	s, err = New(root)
	if err != nil {
		t.Fatal(err)
	}
	fillCategories(t, s)
	s.Close()
	if s.Filled() {
		t.Error("Close must unset categories")
	}
	if _, err := os.Stat(filepath.Join(root, "a", "1.md")); err != nil {
		t.Errorf("Close must not touch the filesystem: %v", err)
	}
}
