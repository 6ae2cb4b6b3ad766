// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// XLSXParser reads records from one worksheet of an Excel workbook. The
// first non-blank row is the header. Cell values are rendered with the
// cell's own number format, so numbers and dates come out as they display
// in a spreadsheet application.
type XLSXParser struct {
	path  string
	sheet string
	book  *excelize.File
}

// NewXLSXParser opens the workbook at path and checks that worksheet exists.
func NewXLSXParser(path, worksheet string) (*XLSXParser, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	idx, err := book.GetSheetIndex(worksheet)
	if err != nil || idx < 0 {
		book.Close()
		if err == nil {
			err = fmt.Errorf("worksheet %q not found", worksheet)
		}
		return nil, &FormatError{Path: path, Err: err}
	}
	return &XLSXParser{path: path, sheet: worksheet, book: book}, nil
}

// Parse returns one record per non-blank data row, in sheet order.
func (p *XLSXParser) Parse() ([]types.Record, error) {
	defer p.book.Close()

	rows, err := p.book.GetRows(p.sheet)
	if err != nil {
		return nil, &FormatError{Path: p.path, Err: fmt.Errorf("reading worksheet %q: %w", p.sheet, err)}
	}

	var (
		cols      columns
		hasHeader bool
		records   []types.Record
	)
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if !hasHeader {
			if cols, err = locateColumns(row); err != nil {
				return nil, &FormatError{Path: p.path, Row: i + 1, Err: err}
			}
			hasHeader = true
			continue
		}
		rec, err := cols.record(row)
		if err != nil {
			return nil, &FormatError{Path: p.path, Row: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	if !hasHeader {
		return nil, &FormatError{Path: p.path, Err: errors.New("missing header row")}
	}
	return records, nil
}
