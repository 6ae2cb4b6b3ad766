// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// CSVParser reads records from a comma-separated file with a header row.
type CSVParser struct {
	name   string
	r      io.Reader
	closer io.Closer
}

// NewCSVParser opens path for parsing.
func NewCSVParser(path string) (*CSVParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return &CSVParser{name: path, r: f, closer: f}, nil
}

// NewCSVReader parses CSV from r. The name is used in error messages.
func NewCSVReader(name string, r io.Reader) *CSVParser {
	return &CSVParser{name: name, r: r}
}

// Parse returns one record per data row, in file order. Rows whose field
// count differs from the header's fail the parse.
func (p *CSVParser) Parse() ([]types.Record, error) {
	if p.closer != nil {
		defer p.closer.Close()
	}

	reader := csv.NewReader(p.r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &FormatError{Path: p.name, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, p.readError(err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, &FormatError{Path: p.name, Row: 1, Err: err}
	}

	var records []types.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p.readError(err)
		}
		line, _ := reader.FieldPos(0)
		rec, err := cols.record(row)
		if err != nil {
			return nil, &FormatError{Path: p.name, Row: line, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// readError separates malformed CSV from I/O failures of the underlying reader.
func (p *CSVParser) readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FormatError{Path: p.name, Row: pe.Line, Err: pe.Err}
	}
	return &IOError{Path: p.name, Err: fmt.Errorf("reading CSV: %w", err)}
}
