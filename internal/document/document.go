package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Document is an immutable line-indexed snapshot of a file on disk.
// Lines are 1-indexed conceptually: Lines()[0] is line 1.
type Document struct {
	path  string
	lines []string
	hash  string
}

// Load reads the file at path and builds a snapshot. The hash is a
// SHA-256 digest of the raw bytes, so clients can detect changes
// without transferring content.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	sum := sha256.Sum256(data)

	return &Document{
		path:  path,
		lines: splitLines(string(data)),
		hash:  hex.EncodeToString(sum[:]),
	}, nil
}

// splitLines splits on "\n". A trailing newline does not produce a
// phantom empty last line; an empty file has zero lines.
func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Path returns the absolute path the document was loaded from.
func (d *Document) Path() string { return d.path }

// Hash returns the content fingerprint of the snapshot.
func (d *Document) Hash() string { return d.hash }

// LineCount returns the number of lines in the snapshot.
func (d *Document) LineCount() int { return len(d.lines) }

// Lines returns a copy of the document's lines. Callers may mutate the
// returned slice freely without affecting the snapshot.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Store holds the last-loaded snapshot for a single document. The file
// is never mutated by the server itself; an agent edits it on disk and
// callers trigger Reload to pick the change up. Change detection is
// pull-based, there is no file watching.
type Store struct {
	mu  sync.RWMutex
	doc *Document
}

// NewStore wraps an already-loaded snapshot.
func NewStore(doc *Document) *Store {
	return &Store{doc: doc}
}

// Get returns the current snapshot.
func (s *Store) Get() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Reload re-reads the underlying file and atomically swaps the
// snapshot. On error the previous snapshot stays in place.
func (s *Store) Reload() (*Document, error) {
	s.mu.RLock()
	path := s.doc.path
	s.mu.RUnlock()

	doc, err := Load(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	return doc, nil
}
