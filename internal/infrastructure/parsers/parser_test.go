package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Dataset
	}{
		{
			name:  "single person",
			input: `{"persons": [{"ref": "p1", "given_name": "Anna", "surname": "Berg", "sex": "female"}]}`,
			expected: &Dataset{
				Persons: []RawPerson{{Ref: "p1", GivenName: "Anna", Surname: "Berg", Sex: "female", LineNum: 1}},
			},
		},
		{
			name:     "empty object",
			input:    "{}",
			expected: &Dataset{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestJSONParser_Parse_AllSections(t *testing.T) {
	input := `{
		"persons": [
			{"ref": "a", "given_name": "Arne", "surname": "Berg", "sex": "male", "birth": "1920-03-01",
			 "names": [{"locale": "ru", "given_name": "Арне", "surname": "Берг"}]},
			{"ref": "b", "given_name": "Britt", "surname": "Berg", "sex": "female", "death": "~1990"},
			{"ref": "c", "given_name": "Carl", "surname": "Berg"}
		],
		"parents": [{"parent": "a", "child": "c", "kind": "adoptive"}],
		"unions": [{"type": "marriage", "start": "1945", "members": ["a", "b"], "children": ["c"]}]
	}`

	parser := &JSONParser{}
	ds, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, ds.Persons, 3)
	assert.Equal(t, "1920-03-01", ds.Persons[0].Birth)
	require.Len(t, ds.Persons[0].Names, 1)
	assert.Equal(t, "ru", ds.Persons[0].Names[0].Locale)
	assert.Equal(t, 3, ds.Persons[2].LineNum)

	require.Len(t, ds.Parents, 1)
	assert.Equal(t, RawParent{Parent: "a", Child: "c", Kind: "adoptive", LineNum: 1}, ds.Parents[0])

	require.Len(t, ds.Unions, 1)
	assert.Equal(t, []string{"a", "b"}, ds.Unions[0].Members)
	assert.Equal(t, []string{"c"}, ds.Unions[0].Children)
}

func TestJSONParser_Parse_InvalidJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "malformed", input: `{"persons": [`},
		{name: "array instead of object", input: `[]`},
		{name: "unknown field", input: `{"people": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parsing JSON")
		})
	}
}

func TestCSVParser_Parse_MixedRecords(t *testing.T) {
	input := `record,ref,given_name,surname,sex,birth,death,parent,child,kind,type,start,end,members,children
person,a,Arne,Berg,male,1920-03-01,,,,,,,,,
person,b,Britt,Berg,female,,~1990,,,,,,,,
person,c,Carl,Berg,,,,,,,,,,,
parent,,,,,,,a,c,biological,,,,,
union,,,,,,,,,,marriage,1945,,a;b,c
`

	parser := &CSVParser{}
	ds, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, ds.Persons, 3)
	assert.Equal(t, RawPerson{Ref: "a", GivenName: "Arne", Surname: "Berg", Sex: "male", Birth: "1920-03-01", LineNum: 2}, ds.Persons[0])
	assert.Equal(t, "~1990", ds.Persons[1].Death)

	require.Len(t, ds.Parents, 1)
	assert.Equal(t, RawParent{Parent: "a", Child: "c", Kind: "biological", LineNum: 5}, ds.Parents[0])

	require.Len(t, ds.Unions, 1)
	assert.Equal(t, []string{"a", "b"}, ds.Unions[0].Members)
	assert.Equal(t, []string{"c"}, ds.Unions[0].Children)
	assert.Equal(t, 6, ds.Unions[0].LineNum)
}

func TestCSVParser_Parse_ShortRows(t *testing.T) {
	input := "record,ref,given_name\nperson,x,Xena\n"

	parser := &CSVParser{}
	ds, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ds.Persons, 1)
	assert.Equal(t, "Xena", ds.Persons[0].GivenName)
	assert.Empty(t, ds.Persons[0].Surname)
}

func TestCSVParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty input", input: "", wantErr: "reading CSV header"},
		{name: "missing record column", input: "ref,given_name\na,Anna\n", wantErr: "missing required column: record"},
		{name: "unknown record kind", input: "record,ref\npet,rex\n", wantErr: `line 2: unknown record kind "pet"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ; ;b "))
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format   string
		expected Parser
	}{
		{"json", &JSONParser{}},
		{"JSON", &JSONParser{}},
		{"csv", &CSVParser{}},
		{"gedcom", nil},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForFormat(tt.format))
		})
	}
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFile("family.json"))
	assert.IsType(t, &CSVParser{}, ForFile("/tmp/Family.CSV"))
	assert.Nil(t, ForFile("family.ged"))
	assert.Nil(t, ForFile("noext"))
}
