package index

// NoteIndex defines the interface for index operations. Consumers depend on
// it rather than on *DB.
type NoteIndex interface {
	UpsertCategory(c CategoryRow) error
	DeleteCategory(title string) error
	UpsertNote(n NoteRow, body string) error
	DeleteNote(path string) error
	AllChecksums() (map[string]string, error)
	Counts() (map[string]int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
