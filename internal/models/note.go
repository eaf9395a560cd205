// Package models defines the views of categories and notes handed to callers.
package models

import "time"

// Category is a listed category.
type Category struct {
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
	NoteCount    int       `json:"note_count"`
}

// Note is a listed note.
type Note struct {
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
}

// NoteContent is a note together with its raw file content.
type NoteContent struct {
	Note
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// SearchHit is one search result.
type SearchHit struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	Snippet     string `json:"snippet,omitempty"`
}
