package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses a dataset from a JSON object with persons, parents and unions arrays.
type JSONParser struct{}

// Parse reads JSON from the reader and returns the parsed dataset.
func (p *JSONParser) Parse(r io.Reader) (*Dataset, error) {
	var ds Dataset

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&ds); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Line numbers are array positions (1-indexed) within each section
	for i := range ds.Persons {
		ds.Persons[i].LineNum = i + 1
	}
	for i := range ds.Parents {
		ds.Parents[i].LineNum = i + 1
	}
	for i := range ds.Unions {
		ds.Unions[i].LineNum = i + 1
	}

	return &ds, nil
}
