// Package storage defines the read-only source of Markdown files for import.
package storage

import "time"

// File describes one Markdown file under the source root.
type File struct {
	Path    string // relative to the root, slash-separated
	Size    int64
	ModTime time.Time
}

// Provider is the interface for reading a Markdown directory.
type Provider interface {
	// List returns every .md file under dir (relative to root), sorted by path.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}
