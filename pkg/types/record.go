// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data shared between bibfetch stages: the input
// records, registry results, and configuration.
package types

// Record is one bibliographic query unit read from an input file.
// Both fields are required; adapters reject rows that leave either empty.
type Record struct {
	// Author is the author as written in the source file (free text).
	Author string `json:"author" yaml:"author"`

	// Title is the work title as written in the source file.
	Title string `json:"title" yaml:"title"`
}

// Work is the registry entry a Record resolved to.
type Work struct {
	// DOI identifies the work within the registry (e.g. "10.1201/9780429500459-7").
	DOI string `json:"DOI" yaml:"doi"`
}
