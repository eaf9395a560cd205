// Package storage reads and writes note files under the notes root.
package storage

import "time"

// Provider is the interface for note file access. Paths are relative to the
// notes root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns the size and modification time of the file at path.
	Stat(path string) (FileInfo, error)
	// Write atomically replaces the content of path. The parent directory
	// must exist.
	Write(path string, content []byte) error
}

// FileInfo is the subset of file metadata callers need.
type FileInfo struct {
	Size     int64
	Modified time.Time
	Checksum string
}
