// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibfetch/pkg/types"
)

func TestCSVParser_File(t *testing.T) {
	p, err := NewCSVParser(filepath.Join("testdata", "records.csv"))
	require.NoError(t, err)

	records, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, types.Record{Author: "Richard Feynman", Title: "Room at the bottom"}, records[0])
	assert.Equal(t, types.Record{Author: "Richard Feynman", Title: "What is science?"}, records[2])
}

func TestCSVParser_MissingFile(t *testing.T) {
	_, err := NewCSVParser(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCSVParser_Rows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.Record
	}{
		{
			name:  "verbatim values in file order",
			input: "Author,Title\n  Ada Lovelace ,Notes on the Engine\nAlan Turing,\"Computing Machinery, and Intelligence\"\n",
			want: []types.Record{
				{Author: "  Ada Lovelace ", Title: "Notes on the Engine"},
				{Author: "Alan Turing", Title: "Computing Machinery, and Intelligence"},
			},
		},
		{
			name:  "extra columns and reordered header",
			input: "Year,title,AUTHOR\n1959,Room at the bottom,Richard Feynman\n",
			want:  []types.Record{{Author: "Richard Feynman", Title: "Room at the bottom"}},
		},
		{
			name:  "byte order mark on header",
			input: "\ufeffAuthor,Title\nRichard Feynman,Room at the bottom\n",
			want:  []types.Record{{Author: "Richard Feynman", Title: "Room at the bottom"}},
		},
		{
			name:  "header only",
			input: "Author,Title\n",
			want:  nil,
		},
		{
			name:  "duplicates kept",
			input: "Author,Title\nA,B\nA,B\n",
			want:  []types.Record{{Author: "A", Title: "B"}, {Author: "A", Title: "B"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCSVReader("test.csv", strings.NewReader(tt.input)).Parse()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVParser_FormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow int
	}{
		{"empty file", "", 0},
		{"missing title column", "Author,Year\nRichard Feynman,1959\n", 1},
		{"missing author column", "Name,Title\nRichard Feynman,Room\n", 1},
		{"short row", "Author,Title\nRichard Feynman,Room\nAlan Turing\n", 3},
		{"empty title", "Author,Title\nRichard Feynman,\n", 2},
		{"empty author", "Author,Title\nRichard Feynman,Room\n,Cargo cult science\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCSVReader("test.csv", strings.NewReader(tt.input)).Parse()
			require.Error(t, err)
			assert.Nil(t, got, "no partial result on failure")

			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want *FormatError, got %T", err)
			assert.Equal(t, tt.wantRow, fe.Row)
		})
	}
}
