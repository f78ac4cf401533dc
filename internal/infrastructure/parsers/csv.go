package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// listSeparator splits multi-valued CSV cells such as union members.
const listSeparator = ";"

// CSVParser parses a dataset from CSV. Every row has a record column naming
// its kind (person, parent or union); the other columns are read per kind:
//
//	person: ref, given_name, surname, sex, birth, death
//	parent: parent, child, kind
//	union:  type, start, end, members, children (members and children are ";"-separated)
type CSVParser struct{}

// Parse reads CSV from the reader and returns the parsed dataset.
func (p *CSVParser) Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	if _, ok := colIndex["record"]; !ok {
		return nil, fmt.Errorf("missing required column: record")
	}

	return colIndex, nil
}

// readRecords reads all data rows and sorts them into the dataset.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) (*Dataset, error) {
	ds := &Dataset{}
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		col := func(name string) string {
			return strings.TrimSpace(getColumn(record, colIndex, name))
		}

		switch strings.ToLower(col("record")) {
		case "person":
			ds.Persons = append(ds.Persons, RawPerson{
				Ref:       col("ref"),
				GivenName: col("given_name"),
				Surname:   col("surname"),
				Sex:       col("sex"),
				Birth:     col("birth"),
				Death:     col("death"),
				LineNum:   lineNum,
			})
		case "parent":
			ds.Parents = append(ds.Parents, RawParent{
				Parent:  col("parent"),
				Child:   col("child"),
				Kind:    col("kind"),
				LineNum: lineNum,
			})
		case "union":
			ds.Unions = append(ds.Unions, RawUnion{
				Type:     col("type"),
				Start:    col("start"),
				End:      col("end"),
				Members:  splitList(col("members")),
				Children: splitList(col("children")),
				LineNum:  lineNum,
			})
		case "":
			// blank separator rows
		default:
			return nil, fmt.Errorf("line %d: unknown record kind %q (valid: person, parent, union)", lineNum, col("record"))
		}
	}

	return ds, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
