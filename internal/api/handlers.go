package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/filter"
	"github.com/starford/quill/internal/noteservice"
	"github.com/starford/quill/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// param returns a decoded path parameter. Titles may carry spaces and other
// escaped characters.
func param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	// chi routes on RawPath when it is set; otherwise the segment is already
	// decoded.
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// listQuery parses the sort, match (glob) and contains (substring) query
// parameters shared by listings.
func listQuery(r *http.Request) (noteservice.Order, catalog.Filter, error) {
	q := r.URL.Query()
	order, err := noteservice.ParseOrder(q.Get("sort"))
	if err != nil {
		return "", nil, err
	}
	match, err := filter.Glob(q.Get("match"))
	if err != nil {
		return "", nil, err
	}
	return order, filter.All(match, filter.Contains(q.Get("contains"))), nil
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List categories
//	@Tags			categories
//	@Produce		json
//	@Param			sort	query		string	false	"Order"	Enums(modified, alpha)
//	@Param			match	query		string	false	"Glob on the title"
//	@Param			contains	query	string	false	"Case-insensitive substring of the title"
//	@Success		200		{object}	CategoryListResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	order, match, err := listQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	cats, err := h.svc.Categories(r.Context(), order, match)
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats})
}

// CreateCategory handles POST /api/categories.
//
//	@Summary		Create a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCategoryRequest	true	"Category to create"
//	@Success		201		{object}	Category
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), req.Title)
	if err != nil {
		writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCategory handles GET /api/categories/{category}.
//
//	@Summary		Get a category
//	@Tags			categories
//	@Produce		json
//	@Param			category	path		string	true	"Category title"
//	@Success		200			{object}	Category
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Category(r.Context(), param(r, "category"))
	if err != nil {
		writeError(w, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{category}.
//
//	@Summary		Delete a category and its notes
//	@Tags			categories
//	@Param			category	path	string	true	"Category title"
//	@Param			force		query	bool	false	"Delete even when the category has notes"
//	@Success		204			"Category deleted"
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category} [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if err := h.svc.DeleteCategory(r.Context(), param(r, "category"), force); err != nil {
		writeError(w, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /api/categories/{category}/notes.
//
//	@Summary		List the notes of a category
//	@Tags			notes
//	@Produce		json
//	@Param			category	path		string	true	"Category title"
//	@Param			sort		query		string	false	"Order"	Enums(modified, alpha)
//	@Param			match		query		string	false	"Glob on the title"
//	@Param			contains	query		string	false	"Case-insensitive substring of the title"
//	@Param			since		query		string	false	"Modified since (date or span like 7d)"
//	@Success		200			{object}	NoteListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category}/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	order, match, err := listQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	since, err := filter.ParseSince(r.URL.Query().Get("since"), h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	category := param(r, "category")
	notes, err := h.svc.Notes(r.Context(), category, order, match, since)
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Category: category, Notes: notes})
}

// CreateNote handles POST /api/categories/{category}/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			category	path		string				true	"Category title"
//	@Param			body		body		CreateNoteRequest	true	"Note to create"
//	@Success		201			{object}	Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category}/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.svc.CreateNote(r.Context(), param(r, "category"), req.Title, req.Description)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// GetNote handles GET /api/categories/{category}/notes/{note}.
//
//	@Summary		Get a note
//	@Tags			notes
//	@Produce		json,text/markdown,text/html
//	@Param			category	path		string	true	"Category title"
//	@Param			note		path		string	true	"Note title"
//	@Param			format		query		string	false	"Representation"	Enums(json, raw, html)
//	@Success		200			{object}	NoteContent
//	@Success		304			"Not modified"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category}/notes/{note} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Content(r.Context(), param(r, "category"), param(r, "note"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}

	data := []byte(note.Content)
	etag := checksum.ETag(data)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, note)
	case "raw":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "html":
		out, err := render.HTML(data)
		if err != nil {
			writeError(w, "render note", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be json, raw or html"))
	}
}

// DeleteNote handles DELETE /api/categories/{category}/notes/{note}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			category	path	string	true	"Category title"
//	@Param			note		path	string	true	"Note title"
//	@Success		204			"Note deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{category}/notes/{note} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), param(r, "category"), param(r, "note")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search note titles, descriptions and bodies
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
