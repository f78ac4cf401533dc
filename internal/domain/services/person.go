package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// PersonService manages person records.
type PersonService struct {
	store ports.GraphStore
}

// NewPersonService creates a new PersonService.
func NewPersonService(store ports.GraphStore) *PersonService {
	return &PersonService{
		store: store,
	}
}

// Create validates and saves a new person in the scope's tree.
// ID and timestamps are assigned here.
func (s *PersonService) Create(ctx context.Context, scope entities.Scope, person *entities.Person) error {
	if scope.TreeID == "" {
		return entities.NewValidationError("tree scope is required")
	}
	if err := validatePerson(person); err != nil {
		return err
	}

	now := time.Now()
	person.ID = uuid.New().String()
	person.TreeID = scope.TreeID
	person.CreatedAt = now
	person.UpdatedAt = now

	if err := s.store.SavePerson(ctx, person); err != nil {
		return entities.Classify("creating person", fmt.Errorf("saving person: %w", err))
	}
	if err := s.store.LogAction(ctx, entities.ActionPersonCreated, person.ID, map[string]any{
		"name": person.DisplayName(),
	}); err != nil {
		return entities.Classify("creating person", fmt.Errorf("logging action: %w", err))
	}
	return nil
}

func validatePerson(p *entities.Person) error {
	p.GivenName = strings.TrimSpace(p.GivenName)
	p.Surname = strings.TrimSpace(p.Surname)
	if p.GivenName == "" && p.Surname == "" {
		return entities.NewValidationError("a person needs a given name or a surname")
	}
	if p.Sex == "" {
		p.Sex = entities.SexUnknown
	}
	if !p.Sex.IsValid() {
		return entities.NewValidationError("invalid sex: %s", p.Sex)
	}
	if p.Birth != nil && p.Death != nil && p.Death.Date.Before(p.Birth.Date) {
		return entities.NewValidationError("death %s is before birth %s", p.Death, p.Birth)
	}
	return nil
}

// FindByID finds a person in the scope's tree.
func (s *PersonService) FindByID(ctx context.Context, scope entities.Scope, personID string) (*entities.Person, error) {
	return personInScope(ctx, s.store, scope, personID)
}

// Resolve finds a person by ID or, failing that, by unique display name
// (case-insensitive) within the scope's tree.
func (s *PersonService) Resolve(ctx context.Context, scope entities.Scope, ref string) (*entities.Person, error) {
	ref = strings.TrimSpace(ref)
	person, err := personInScope(ctx, s.store, scope, ref)
	if err == nil {
		return person, nil
	}
	if !entities.IsCode(err, entities.CodeNotFound) {
		return nil, err
	}

	matches, err := s.store.FindPersonsByName(ctx, scope.TreeID, ref)
	if err != nil {
		return nil, entities.Classify("resolving person", fmt.Errorf("finding persons by name: %w", err))
	}
	switch len(matches) {
	case 0:
		return nil, entities.NewNotFoundError("person not found: %s", ref)
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i := range matches {
			ids[i] = matches[i].ID
		}
		return nil, entities.NewValidationError("%q matches %d persons, use an id: %s",
			ref, len(matches), strings.Join(ids, ", "))
	}
}

// List returns persons of the scope's tree with pagination.
func (s *PersonService) List(ctx context.Context, scope entities.Scope, limit, offset int) ([]entities.Person, error) {
	persons, err := s.store.ListPersons(ctx, scope.TreeID, limit, offset)
	if err != nil {
		return nil, entities.Classify("listing persons", err)
	}
	return persons, nil
}

// Search searches persons by name, including localized names.
func (s *PersonService) Search(ctx context.Context, scope entities.Scope, query string, limit int) ([]entities.Person, error) {
	persons, err := s.store.SearchPersons(ctx, scope.TreeID, query, limit)
	if err != nil {
		return nil, entities.Classify("searching persons", err)
	}
	return persons, nil
}

// Count returns the number of persons in the scope's tree.
func (s *PersonService) Count(ctx context.Context, scope entities.Scope) (int, error) {
	n, err := s.store.CountPersons(ctx, scope.TreeID)
	if err != nil {
		return 0, entities.Classify("counting persons", err)
	}
	return n, nil
}

// History returns the audit entries recorded for a person, union or child.
func (s *PersonService) History(ctx context.Context, subjectID string) ([]entities.AuditEntry, error) {
	entries, err := s.store.FindAuditLog(ctx, subjectID)
	if err != nil {
		return nil, entities.Classify("reading history", err)
	}
	return entries, nil
}
