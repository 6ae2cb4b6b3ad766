// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// YAMLParser reads records from a YAML sequence of mappings:
//
//   - author: Richard Feynman
//     title: Room at the bottom
type YAMLParser struct {
	name   string
	r      io.Reader
	closer io.Closer
}

// NewYAMLParser opens path for parsing.
func NewYAMLParser(path string) (*YAMLParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return &YAMLParser{name: path, r: f, closer: f}, nil
}

// NewYAMLReader parses YAML from r. The name is used in error messages.
func NewYAMLReader(name string, r io.Reader) *YAMLParser {
	return &YAMLParser{name: name, r: r}
}

// Parse returns one record per sequence entry. An empty document yields
// no records.
func (p *YAMLParser) Parse() ([]types.Record, error) {
	if p.closer != nil {
		defer p.closer.Close()
	}

	var entries []map[string]any
	if err := yaml.NewDecoder(p.r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &FormatError{Path: p.name, Err: err}
	}

	records := make([]types.Record, 0, len(entries))
	for i, entry := range entries {
		author, err := scalarField(entry, AuthorColumn)
		if err != nil {
			return nil, &FormatError{Path: p.name, Row: i + 1, Err: err}
		}
		title, err := scalarField(entry, TitleColumn)
		if err != nil {
			return nil, &FormatError{Path: p.name, Row: i + 1, Err: err}
		}
		rec, err := newRecord(author, title)
		if err != nil {
			return nil, &FormatError{Path: p.name, Row: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// scalarField looks up name case-insensitively and renders scalar values
// (strings, numbers, booleans, dates) as text.
func scalarField(entry map[string]any, name string) (string, error) {
	for k, v := range entry {
		if normalizeHeader(k) != strings.ToLower(name) {
			continue
		}
		switch v := v.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		case map[string]any, []any:
			return "", fmt.Errorf("%s must be a scalar", name)
		default:
			return fmt.Sprint(v), nil
		}
	}
	return "", nil
}
