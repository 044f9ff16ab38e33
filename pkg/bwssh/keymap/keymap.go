// Package keymap loads the table that associates Bitwarden item
// identifiers with local SSH private-key files.
package keymap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrMalformedRow is returned for rows that are not an (item id, path) pair.
var ErrMalformedRow = errors.New("malformed mapping row")

// Entry is a single row of the mapping table.
type Entry struct {
	ItemID string
	Path   string
}

// Mapping is an ordered, read-only set of item id to key path entries.
// Duplicate item ids resolve to the last entry.
type Mapping struct {
	entries []Entry
	index   map[string]string
}

// New builds a Mapping from entries in order.
func New(entries ...Entry) *Mapping {
	m := &Mapping{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		m.entries = append(m.entries, e)
		m.index[e.ItemID] = e.Path
	}
	return m
}

// Lookup returns the key path mapped to itemID.
func (m *Mapping) Lookup(itemID string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m.index[itemID]
	return p, ok
}

// Len returns the number of distinct item ids.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.index)
}

// Parse reads a CSV table of item id and key path. Columns after the
// second are ignored, as are blank lines and lines starting with '#'.
// A leading "~" in a path is expanded.
func Parse(r io.Reader) (*Mapping, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mapping: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected at least 2 columns, got %d", ErrMalformedRow, line, len(record))
		}

		id := strings.TrimSpace(record[0])
		path := strings.TrimSpace(record[1])
		if id == "" || path == "" {
			return nil, fmt.Errorf("%w: line %d: empty item id or path", ErrMalformedRow, line)
		}

		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		entries = append(entries, Entry{ItemID: id, Path: expanded})
	}

	return New(entries...), nil
}
