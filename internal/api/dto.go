package api

import "github.com/starford/quill/internal/models"

// CreateCategoryRequest is the request body for creating a category.
type CreateCategoryRequest struct {
	Title string `json:"title" example:"rust" validate:"required"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title       string `json:"title" example:"Pipes" validate:"required"`
	Description string `json:"description,omitempty" example:"Inter-process communication"`
}

// Category is a listed category (aliased from the domain layer).
type Category = models.Category

// Note is a listed note (aliased from the domain layer).
type Note = models.Note

// NoteContent is a note with its raw content (aliased from the domain layer).
type NoteContent = models.NoteContent

// CategoryListResponse wraps category listings.
type CategoryListResponse struct {
	Categories []Category `json:"categories" validate:"required"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Category string `json:"category" example:"c" validate:"required"`
	Notes    []Note `json:"notes" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}
