// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/bibfetch/pkg/types"
)

const maxFilenameBytes = 255

var (
	// Characters invalid in filenames on Windows or Unix, plus control characters.
	illegalFilenameChars = regexp.MustCompile(`[/\\?<>:*|"\x00-\x1f\x80-\x9f]`)
	// Names Windows reserves for devices, with or without an extension.
	reservedFilenames = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`)
	// Windows strips trailing dots and spaces, which would alias two names.
	trailingDotsSpaces = regexp.MustCompile(`[. ]+$`)
)

// OutputName returns the citation file name for rec: the sanitized form
// of "{author}_{title}.{ext}". Long names are shortened before the
// extension. Identical author/title pairs map to the same name, so a
// rerun overwrites its earlier output.
func OutputName(rec types.Record, ext string) string {
	suffix := "." + SanitizeFilename(ext)
	stem := strings.ToValidUTF8(rec.Author+"_"+rec.Title, "")
	stem = illegalFilenameChars.ReplaceAllString(stem, "")
	stem = truncateUTF8(stem, maxFilenameBytes-len(suffix))
	name := SanitizeFilename(stem + suffix)
	if name == "" || name == suffix {
		return "untitled" + suffix
	}
	return name
}

// SanitizeFilename removes characters that are not allowed in a file
// name on common filesystems. It may return the empty string.
// Bytes that are not valid UTF-8 are dropped.
func SanitizeFilename(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = illegalFilenameChars.ReplaceAllString(name, "")
	if name == "." || name == ".." {
		return ""
	}
	if reservedFilenames.MatchString(name) {
		return ""
	}
	name = trailingDotsSpaces.ReplaceAllString(name, "")
	return truncateUTF8(name, maxFilenameBytes)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	// Drop the bytes of a rune cut in half by the slice.
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return strings.TrimRight(s, ". ")
}
