package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Validate without saving
}

// ImportError represents an error for a specific record during import.
type ImportError struct {
	Section string // persons, parents or unions
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s line %d: %s", e.Section, e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Persons int
	Unions  int
	Edges   int
	Skipped int
	Errors  []ImportError
}

// ImportService imports persons, unions and parent-child links into a tree.
// Every link goes through the edge service and its cycle guard.
type ImportService struct {
	persons *PersonService
	edges   *EdgeService
}

// NewImportService creates a new import service.
func NewImportService(persons *PersonService, edges *EdgeService) *ImportService {
	return &ImportService{
		persons: persons,
		edges:   edges,
	}
}

// Import validates and writes a dataset. Records that fail validation are
// reported in the result and do not stop the rest of the import.
// Storage failures and cancellation abort the import.
func (s *ImportService) Import(ctx context.Context, scope entities.Scope, ds *parsers.Dataset, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	people := s.convertPersons(ds.Persons, result)
	parents := s.validateParents(ds.Parents, result)
	unions := s.validateUnions(ds.Unions, result)

	if opts.DryRun {
		result.Persons = len(people)
		result.Edges = len(parents)
		result.Unions = len(unions)
		return result, nil
	}

	ids := make(map[string]string, len(people))
	for _, p := range people {
		person := p.person
		if err := s.persons.Create(ctx, scope, &person); err != nil {
			if entities.IsCode(err, entities.CodeValidation) {
				result.Errors = append(result.Errors, ImportError{Section: "persons", Line: p.line, Message: err.Error()})
				continue
			}
			return nil, fmt.Errorf("creating person on line %d: %w", p.line, err)
		}
		ids[p.ref] = person.ID
		result.Persons++
	}

	for _, link := range parents {
		if err := s.importParent(ctx, scope, link, ids, result); err != nil {
			return nil, err
		}
	}
	for _, u := range unions {
		if err := s.importUnion(ctx, scope, u, ids, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

type pendingPerson struct {
	ref    string
	line   int
	person entities.Person
}

type pendingParent struct {
	line   int
	parent string
	child  string
	kind   entities.ParentKind
}

type pendingUnion struct {
	line      int
	unionType entities.UnionType
	start     *entities.FuzzyDate
	end       *entities.FuzzyDate
	members   []string
	children  []string
}

// convertPersons validates raw persons. Refs must be unique within the file.
func (s *ImportService) convertPersons(raws []parsers.RawPerson, result *ImportResult) []pendingPerson {
	out := make([]pendingPerson, 0, len(raws))
	refs := make(map[string]bool, len(raws))

	for i := range raws {
		raw := &raws[i]
		fail := func(field, value, msg string) {
			result.Errors = append(result.Errors, ImportError{Section: "persons", Line: raw.LineNum, Field: field, Value: value, Message: msg})
		}

		if raw.Ref == "" {
			fail("ref", "", "missing required field: ref")
			continue
		}
		if refs[raw.Ref] {
			fail("ref", raw.Ref, fmt.Sprintf("duplicate ref %q", raw.Ref))
			continue
		}
		if raw.GivenName == "" && raw.Surname == "" {
			fail("given_name", "", "missing required field: given_name or surname")
			continue
		}
		sex, err := entities.ParseSex(raw.Sex)
		if err != nil {
			fail("sex", raw.Sex, err.Error())
			continue
		}
		birth, err := entities.ParseFuzzyDate(raw.Birth)
		if err != nil {
			fail("birth", raw.Birth, err.Error())
			continue
		}
		death, err := entities.ParseFuzzyDate(raw.Death)
		if err != nil {
			fail("death", raw.Death, err.Error())
			continue
		}

		names := make([]entities.PersonName, 0, len(raw.Names))
		for _, n := range raw.Names {
			names = append(names, entities.PersonName{Locale: n.Locale, GivenName: n.GivenName, Surname: n.Surname})
		}

		refs[raw.Ref] = true
		out = append(out, pendingPerson{
			ref:  raw.Ref,
			line: raw.LineNum,
			person: entities.Person{
				GivenName: raw.GivenName,
				Surname:   raw.Surname,
				Sex:       sex,
				Names:     names,
				Birth:     birth,
				Death:     death,
			},
		})
	}
	return out
}

func (s *ImportService) validateParents(raws []parsers.RawParent, result *ImportResult) []pendingParent {
	out := make([]pendingParent, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		fail := func(field, value, msg string) {
			result.Errors = append(result.Errors, ImportError{Section: "parents", Line: raw.LineNum, Field: field, Value: value, Message: msg})
		}

		if raw.Parent == "" {
			fail("parent", "", "missing required field: parent")
			continue
		}
		if raw.Child == "" {
			fail("child", "", "missing required field: child")
			continue
		}
		if raw.Parent == raw.Child {
			fail("child", raw.Child, "a person cannot be their own parent")
			continue
		}
		kind, err := entities.ParseParentKind(raw.Kind)
		if err != nil {
			fail("kind", raw.Kind, err.Error())
			continue
		}
		out = append(out, pendingParent{line: raw.LineNum, parent: raw.Parent, child: raw.Child, kind: kind})
	}
	return out
}

func (s *ImportService) validateUnions(raws []parsers.RawUnion, result *ImportResult) []pendingUnion {
	out := make([]pendingUnion, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		fail := func(field, value, msg string) {
			result.Errors = append(result.Errors, ImportError{Section: "unions", Line: raw.LineNum, Field: field, Value: value, Message: msg})
		}

		if len(raw.Members) == 0 {
			fail("members", "", "missing required field: members")
			continue
		}
		unionType, err := entities.ParseUnionType(raw.Type)
		if err != nil {
			fail("type", raw.Type, err.Error())
			continue
		}
		start, err := entities.ParseFuzzyDate(raw.Start)
		if err != nil {
			fail("start", raw.Start, err.Error())
			continue
		}
		end, err := entities.ParseFuzzyDate(raw.End)
		if err != nil {
			fail("end", raw.End, err.Error())
			continue
		}
		out = append(out, pendingUnion{
			line:      raw.LineNum,
			unionType: unionType,
			start:     start,
			end:       end,
			members:   raw.Members,
			children:  raw.Children,
		})
	}
	return out
}

// resolveRef maps a file ref to a person ID. Refs not defined in the file are
// looked up as existing persons of the tree.
func (s *ImportService) resolveRef(ctx context.Context, scope entities.Scope, ref string, ids map[string]string) (string, error) {
	if id, ok := ids[ref]; ok {
		return id, nil
	}
	person, err := s.persons.Resolve(ctx, scope, ref)
	if err != nil {
		return "", err
	}
	return person.ID, nil
}

// recordable reports whether err belongs in the per-record error list.
func recordable(err error) bool {
	switch entities.CodeOf(err) {
	case entities.CodeValidation, entities.CodeNotFound, entities.CodeForbidden:
		return true
	default:
		return false
	}
}

func (s *ImportService) importParent(ctx context.Context, scope entities.Scope, link pendingParent, ids map[string]string, result *ImportResult) error {
	fail := func(field, value string, err error) error {
		if !recordable(err) {
			return fmt.Errorf("importing parent on line %d: %w", link.line, err)
		}
		result.Skipped++
		result.Errors = append(result.Errors, ImportError{Section: "parents", Line: link.line, Field: field, Value: value, Message: err.Error()})
		return nil
	}

	parentID, err := s.resolveRef(ctx, scope, link.parent, ids)
	if err != nil {
		return fail("parent", link.parent, err)
	}
	childID, err := s.resolveRef(ctx, scope, link.child, ids)
	if err != nil {
		return fail("child", link.child, err)
	}
	if _, err := s.edges.AddParentChildEdge(ctx, scope, parentID, childID, link.kind); err != nil {
		return fail("", "", err)
	}
	result.Edges++
	return nil
}

func (s *ImportService) importUnion(ctx context.Context, scope entities.Scope, u pendingUnion, ids map[string]string, result *ImportResult) error {
	fail := func(field, value string, err error) error {
		if !recordable(err) {
			return fmt.Errorf("importing union on line %d: %w", u.line, err)
		}
		result.Errors = append(result.Errors, ImportError{Section: "unions", Line: u.line, Field: field, Value: value, Message: err.Error()})
		return nil
	}

	memberIDs := make([]string, 0, len(u.members))
	for _, ref := range u.members {
		id, err := s.resolveRef(ctx, scope, ref, ids)
		if err != nil {
			return fail("members", ref, err)
		}
		memberIDs = append(memberIDs, id)
	}

	union, err := s.edges.CreateUnion(ctx, scope, u.unionType, u.start, u.end, memberIDs...)
	if err != nil {
		return fail("members", "", err)
	}
	result.Unions++

	for _, ref := range u.children {
		childID, err := s.resolveRef(ctx, scope, ref, ids)
		if err != nil {
			if ferr := fail("children", ref, err); ferr != nil {
				return ferr
			}
			continue
		}
		res, err := s.edges.AddUnionChild(ctx, scope, union.ID, childID, entities.ParentBiological)
		if err != nil {
			if ferr := fail("children", ref, err); ferr != nil {
				return ferr
			}
			continue
		}
		result.Edges += len(res.Created)
		result.Skipped += len(res.Skipped)
		for _, sk := range res.Skipped {
			result.Errors = append(result.Errors, ImportError{
				Section: "unions",
				Line:    u.line,
				Field:   "children",
				Value:   ref,
				Message: fmt.Sprintf("%s not linked: %s", sk.Person.DisplayName(), sk.Message),
			})
		}
	}
	return nil
}
