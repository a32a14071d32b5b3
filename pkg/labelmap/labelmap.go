// Package labelmap resolves model class indices to human-readable names.
package labelmap

import (
	"fmt"
	"os"
	"strings"
)

// Lookup maps a class index to its name. The boolean reports whether a
// name exists for the index.
type Lookup func(index int) (string, bool)

// Map is a read-only mapping from class index to class name, owned by the
// classifier for its lifetime. Label files may be sparse: indices with a
// blank line resolve to no name.
type Map struct {
	names []string
}

// FromNames builds a Map from an in-memory label list in index order.
func FromNames(names []string) *Map {
	cp := make([]string, len(names))
	copy(cp, names)
	return &Map{names: cp}
}

// FromBytes parses a newline-separated label file: one name per line, the
// line number is the class index. Blank lines keep their index unnamed.
func FromBytes(data []byte) *Map {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return &Map{names: lines}
}

// FromFile loads a newline-separated label file from disk.
func FromFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return FromBytes(data), nil
}

// Lookup returns the name for a class index and whether one exists. A nil
// Map resolves no names.
func (m *Map) Lookup(index int) (string, bool) {
	if m == nil || index < 0 || index >= len(m.names) || m.names[index] == "" {
		return "", false
	}
	return m.names[index], true
}

// Len returns the number of label slots, including unnamed ones.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// Names returns a copy of the underlying label list.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}
	cp := make([]string, len(m.names))
	copy(cp, m.names)
	return cp
}
