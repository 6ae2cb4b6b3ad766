// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nickng/bibtex"
)

// ErrInvalidCitation marks a citation body that is not usable BibTeX.
var ErrInvalidCitation = errors.New("invalid BibTeX citation")

// ValidateBibTeX checks that body parses as BibTeX and holds at least one
// entry. The registry answers unknown DOIs with a plain-text error page,
// which this rejects.
func ValidateBibTeX(body []byte) error {
	bib, err := bibtex.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCitation, err)
	}
	if len(bib.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidCitation)
	}
	return nil
}
