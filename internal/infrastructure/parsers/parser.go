// Package parsers provides parsers for importing family data from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawName is a localized name as it appears in an import file.
type RawName struct {
	Locale    string `json:"locale"`
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
}

// RawPerson is a person parsed from an external source before validation.
// Ref is a file-local handle other records use to point at this person.
type RawPerson struct {
	Ref       string    `json:"ref"`
	GivenName string    `json:"given_name"`
	Surname   string    `json:"surname"`
	Sex       string    `json:"sex,omitempty"`
	Birth     string    `json:"birth,omitempty"`
	Death     string    `json:"death,omitempty"`
	Names     []RawName `json:"names,omitempty"`
	LineNum   int       `json:"-"` // Line number in source file (set by parser)
}

// RawParent is a parent-child link between two refs.
// A ref may also be the ID of a person already in the tree.
type RawParent struct {
	Parent  string `json:"parent"`
	Child   string `json:"child"`
	Kind    string `json:"kind,omitempty"`
	LineNum int    `json:"-"`
}

// RawUnion is a union of members with optional children of the union.
type RawUnion struct {
	Type     string   `json:"type,omitempty"`
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
	Members  []string `json:"members"`
	Children []string `json:"children,omitempty"`
	LineNum  int      `json:"-"`
}

// Dataset is everything parsed from one import file.
type Dataset struct {
	Persons []RawPerson `json:"persons"`
	Parents []RawParent `json:"parents"`
	Unions  []RawUnion  `json:"unions"`
}

// Parser defines the interface for parsing datasets from various formats.
type Parser interface {
	Parse(r io.Reader) (*Dataset, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}
