// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input reads bibliographic records from CSV, XLSX and YAML files.
//
// Every adapter implements Parser and expects two named columns, Author
// and Title. Header names are matched case-insensitively after trimming;
// additional columns are ignored. Parsing is all-or-nothing: the first
// malformed row fails the whole file.
package input

import (
	"fmt"
	"strings"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// Column names every adapter looks for.
const (
	AuthorColumn = "Author"
	TitleColumn  = "Title"
)

// Parser produces the ordered records of an already opened source.
// Parse consumes the source; a Parser is good for one call.
type Parser interface {
	Parse() ([]types.Record, error)
}

// IOError reports that an input file could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FormatError reports that an input file does not match the two-column
// (Author, Title) schema. Row is 1-based and zero when the problem is not
// tied to a single row (missing header, unknown worksheet).
type FormatError struct {
	Path string
	Row  int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// columns records where Author and Title sit in a header row.
type columns struct {
	author int
	title  int
}

// locateColumns finds the Author and Title positions in header.
func locateColumns(header []string) (columns, error) {
	c := columns{author: -1, title: -1}
	for i, h := range header {
		switch normalizeHeader(h) {
		case strings.ToLower(AuthorColumn):
			if c.author < 0 {
				c.author = i
			}
		case strings.ToLower(TitleColumn):
			if c.title < 0 {
				c.title = i
			}
		}
	}
	switch {
	case c.author < 0:
		return c, fmt.Errorf("missing %s column", AuthorColumn)
	case c.title < 0:
		return c, fmt.Errorf("missing %s column", TitleColumn)
	}
	return c, nil
}

// record builds a Record from a data row laid out like the header.
func (c columns) record(row []string) (types.Record, error) {
	var author, title string
	if c.author < len(row) {
		author = row[c.author]
	}
	if c.title < len(row) {
		title = row[c.title]
	}
	return newRecord(author, title)
}

// newRecord enforces the non-empty invariant shared by all adapters.
func newRecord(author, title string) (types.Record, error) {
	if strings.TrimSpace(author) == "" {
		return types.Record{}, fmt.Errorf("empty %s", AuthorColumn)
	}
	if strings.TrimSpace(title) == "" {
		return types.Record{}, fmt.Errorf("empty %s", TitleColumn)
	}
	return types.Record{Author: author, Title: title}, nil
}

// normalizeHeader lower-cases a header cell and strips surrounding space
// and the UTF-8 byte order mark spreadsheet exports put on the first cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// isBlank reports whether every cell of row is empty.
func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
