package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/noteservice"
	"github.com/starford/quill/internal/storage"
	"github.com/starford/quill/internal/testutil"
)

// testEnv builds a service over a note tree with an index and returns the
// router. A non-empty token enables auth.
func testEnv(t *testing.T, files map[string]string, token string) (http.Handler, string) {
	t.Helper()
	return testEnvFull(t, files, token != "", token, nil)
}

func testEnvFull(t *testing.T, files map[string]string, authEnabled bool, token string, sse http.Handler) (http.Handler, string) {
	t.Helper()

	root := testutil.NoteTree(t, files)

	// Each created note gets its own second so file names never collide.
	var tick atomic.Int64
	tick.Store(1650000000)
	clock := func() time.Time { return time.Unix(tick.Add(1), 0) }

	store, err := catalog.New(root, catalog.WithClock(clock))
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	fsys, err := storage.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "quill.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := noteservice.NewService(store, fsys, db, nil)
	t.Cleanup(svc.Close)
	return NewRouter(svc, authEnabled, token, sse), root
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

var sampleTree = map[string]string{
	"c/pointers.md": testutil.Note("Pointers", "Memory addresses"),
	"c/macros.md":   testutil.Note("Macros", "") + "Preprocessor expansion.\n",
	"go/chans.md":   testutil.Note("Channels", "CSP style"),
	"empty/":        "",
}

func TestListCategories(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodGet, "/categories/?sort=alpha", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[CategoryListResponse](t, w)
	var titles []string
	for _, c := range resp.Categories {
		titles = append(titles, c.Title)
	}
	if got := strings.Join(titles, ","); got != "c,empty,go" {
		t.Errorf("titles = %s, want c,empty,go", got)
	}
	if resp.Categories[0].NoteCount != 2 {
		t.Errorf("note_count = %d, want 2", resp.Categories[0].NoteCount)
	}
}

func TestListCategories_BadQuery(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	for _, target := range []string{"/categories/?sort=size", "/categories/?match=%5B"} {
		if w := do(t, router, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, w.Code)
		}
	}
}

func TestCategoryLifecycle(t *testing.T) {
	router, root := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodPost, "/categories/", CreateCategoryRequest{Title: "rust"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	if info, err := os.Stat(filepath.Join(root, "rust")); err != nil || !info.IsDir() {
		t.Fatalf("category dir missing: %v", err)
	}

	if w := do(t, router, http.MethodPost, "/categories/", CreateCategoryRequest{Title: "rust"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/categories/", CreateCategoryRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/categories/rust/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if c := decode[Category](t, w); c.Title != "rust" || c.NoteCount != 0 {
		t.Errorf("category = %+v", c)
	}

	if w := do(t, router, http.MethodDelete, "/categories/rust/", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/categories/rust/", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestDeleteCategory_NeedsForce(t *testing.T) {
	router, root := testEnv(t, sampleTree, "")

	if w := do(t, router, http.MethodDelete, "/categories/go/", nil); w.Code != http.StatusConflict {
		t.Fatalf("delete without force = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/categories/go/?force=true", nil); w.Code != http.StatusNoContent {
		t.Fatalf("forced delete = %d, want 204", w.Code)
	}
	if _, err := os.Stat(filepath.Join(root, "go")); !os.IsNotExist(err) {
		t.Errorf("category dir still present: %v", err)
	}
}

func TestListNotes(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodGet, "/categories/c/notes?sort=alpha", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[NoteListResponse](t, w)
	if resp.Category != "c" || len(resp.Notes) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Notes[0].Title != "Macros" || resp.Notes[1].Title != "Pointers" {
		t.Errorf("order = %s, %s", resp.Notes[0].Title, resp.Notes[1].Title)
	}

	w = do(t, router, http.MethodGet, "/categories/c/notes?match=P*", nil)
	if resp := decode[NoteListResponse](t, w); len(resp.Notes) != 1 || resp.Notes[0].Title != "Pointers" {
		t.Errorf("match P* = %+v", resp.Notes)
	}

	w = do(t, router, http.MethodGet, "/categories/c/notes?match=*s&contains=POINT", nil)
	if resp := decode[NoteListResponse](t, w); len(resp.Notes) != 1 || resp.Notes[0].Title != "Pointers" {
		t.Errorf("match *s contains POINT = %+v", resp.Notes)
	}

	if w := do(t, router, http.MethodGet, "/categories/c/notes?since=not-a-date", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad since = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/categories/nope/notes", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing category = %d, want 404", w.Code)
	}
}

func TestListNotes_Since(t *testing.T) {
	router, root := testEnv(t, sampleTree, "")
	testutil.SetModTime(t, filepath.Join(root, "c", "macros.md"), time.Now().Add(-30*24*time.Hour))

	w := do(t, router, http.MethodGet, "/categories/c/notes?since=7d", nil)
	resp := decode[NoteListResponse](t, w)
	if len(resp.Notes) != 1 || resp.Notes[0].Title != "Pointers" {
		t.Errorf("since 7d = %+v", resp.Notes)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodPost, "/categories/go/notes", CreateNoteRequest{Title: "Select", Description: "Waiting on channels"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[Note](t, w)
	if created.Title != "Select" || created.Category != "go" {
		t.Errorf("created = %+v", created)
	}

	w = do(t, router, http.MethodGet, "/categories/go/notes/Select", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	got := decode[NoteContent](t, w)
	if got.Description != "Waiting on channels" {
		t.Errorf("description = %q", got.Description)
	}
	if !strings.Contains(got.Content, "title: Select") {
		t.Errorf("content = %q", got.Content)
	}

	if w := do(t, router, http.MethodPost, "/categories/go/notes", CreateNoteRequest{Title: "Select"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/categories/go/notes", CreateNoteRequest{Title: "two\nlines"}); w.Code != http.StatusBadRequest {
		t.Errorf("multi-line title = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/categories/nope/notes", CreateNoteRequest{Title: "X"}); w.Code != http.StatusNotFound {
		t.Errorf("missing category = %d, want 404", w.Code)
	}
}

func TestGetNote_EscapedTitle(t *testing.T) {
	router, _ := testEnv(t, map[string]string{"c/a.md": testutil.Note("Two words", "")}, "")

	w := do(t, router, http.MethodGet, "/categories/c/notes/"+url.PathEscape("Two words"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestGetNote_TitleWithEscapes(t *testing.T) {
	router, _ := testEnv(t, map[string]string{
		"c/a.md": testutil.Note("50%20off", "literal percent"),
		"c/b.md": testutil.Note("either/or", "slash"),
	}, "")

	tests := []struct {
		target string
		want   string
	}{
		{"/categories/c/notes/" + url.PathEscape("50%20off"), "literal percent"},
		{"/categories/c/notes/" + url.PathEscape("either/or"), "slash"},
	}
	for _, tt := range tests {
		w := do(t, router, http.MethodGet, tt.target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get %s = %d, body = %s", tt.target, w.Code, w.Body.String())
		}
		got := decode[NoteContent](t, w)
		if got.Description != tt.want {
			t.Errorf("get %s description = %q, want %q", tt.target, got.Description, tt.want)
		}
	}

	w := do(t, router, http.MethodGet, "/categories/c/notes/50%20off", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("decoded once = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetNote_Formats(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodGet, "/categories/c/notes/Macros?format=raw", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("raw = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("raw content type = %q", ct)
	}
	if w.Body.String() != sampleTree["c/macros.md"] {
		t.Errorf("raw body = %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/categories/c/notes/Macros?format=html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("html = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<p>Preprocessor expansion.</p>") {
		t.Errorf("html body = %q", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/categories/c/notes/Macros?format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", w.Code)
	}
}

func TestGetNote_ETag(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	w := do(t, router, http.MethodGet, "/categories/c/notes/Pointers", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/categories/c/notes/Pointers", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router, root := testEnv(t, sampleTree, "")

	if w := do(t, router, http.MethodDelete, "/categories/c/notes/Pointers", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", w.Code)
	}
	if _, err := os.Stat(filepath.Join(root, "c", "pointers.md")); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if w := do(t, router, http.MethodGet, "/categories/c/notes/Pointers", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/categories/c/notes/Pointers", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "")

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}

	w := do(t, router, http.MethodGet, "/search?q=Preprocessor", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[SearchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Title != "Macros" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := testEnv(t, sampleTree, "secret")

	if w := do(t, router, http.MethodGet, "/categories/", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/categories/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/categories/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthEnabledWithoutToken(t *testing.T) {
	router, _ := testEnvFull(t, sampleTree, true, "", nil)

	if w := do(t, router, http.MethodGet, "/categories/", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("enabled without token = %d, want 401", w.Code)
	}
}

func TestEventsMounted(t *testing.T) {
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router, _ := testEnvFull(t, sampleTree, false, "", sse)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusTeapot {
		t.Errorf("events = %d, want stub status", w.Code)
	}
}
