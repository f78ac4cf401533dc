package handlers

import (
	"context"
	"strings"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/services"
)

// PersonHandler handles person operations at the application layer.
type PersonHandler struct {
	service *services.PersonService
}

// NewPersonHandler creates a new PersonHandler.
func NewPersonHandler(service *services.PersonService) *PersonHandler {
	return &PersonHandler{
		service: service,
	}
}

// NameRequest is a localized name supplied with a new person.
type NameRequest struct {
	Locale    string `json:"locale" validate:"required"`
	GivenName string `json:"given_name" validate:"required_without=Surname"`
	Surname   string `json:"surname"`
}

// AddPersonRequest describes a person to create.
type AddPersonRequest struct {
	GivenName string        `json:"given_name" validate:"required_without=Surname"`
	Surname   string        `json:"surname"`
	Sex       string        `json:"sex" validate:"omitempty,sex"`
	Birth     string        `json:"birth" validate:"omitempty,fuzzydate"`
	Death     string        `json:"death" validate:"omitempty,fuzzydate"`
	Names     []NameRequest `json:"names" validate:"dive"`
}

// PersonListResult contains the result of listing persons.
type PersonListResult struct {
	Persons []entities.Person `json:"persons"`
	Total   int               `json:"total"`
}

// PersonDetails is a person together with their change history.
type PersonDetails struct {
	Person  *entities.Person      `json:"person"`
	History []entities.AuditEntry `json:"history"`
}

// HandleAdd validates and creates a person.
func (h *PersonHandler) HandleAdd(ctx context.Context, scope entities.Scope, req AddPersonRequest) (*entities.Person, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	sex, _ := entities.ParseSex(req.Sex)
	person := &entities.Person{
		Sex:       sex,
		GivenName: strings.TrimSpace(req.GivenName),
		Surname:   strings.TrimSpace(req.Surname),
		Birth:     mustFuzzyDate(req.Birth),
		Death:     mustFuzzyDate(req.Death),
	}
	for _, n := range req.Names {
		person.Names = append(person.Names, entities.PersonName{
			Locale:    n.Locale,
			GivenName: strings.TrimSpace(n.GivenName),
			Surname:   strings.TrimSpace(n.Surname),
		})
	}

	if err := h.service.Create(ctx, scope, person); err != nil {
		return nil, err
	}
	return person, nil
}

// HandleList returns persons of a tree with pagination.
func (h *PersonHandler) HandleList(ctx context.Context, scope entities.Scope, limit, offset int) (*PersonListResult, error) {
	persons, err := h.service.List(ctx, scope, limit, offset)
	if err != nil {
		return nil, err
	}

	count, err := h.service.Count(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &PersonListResult{
		Persons: nonNilPersons(persons),
		Total:   count,
	}, nil
}

// HandleSearch searches persons by name.
func (h *PersonHandler) HandleSearch(ctx context.Context, scope entities.Scope, query string, limit int) (*PersonListResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, entities.NewValidationError("search query is required")
	}

	persons, err := h.service.Search(ctx, scope, query, limit)
	if err != nil {
		return nil, err
	}

	return &PersonListResult{
		Persons: nonNilPersons(persons),
		Total:   len(persons),
	}, nil
}

// HandleShow resolves a person by ID or unique name and loads their history.
func (h *PersonHandler) HandleShow(ctx context.Context, scope entities.Scope, ref string) (*PersonDetails, error) {
	person, err := h.service.Resolve(ctx, scope, ref)
	if err != nil {
		return nil, err
	}

	history, err := h.service.History(ctx, person.ID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []entities.AuditEntry{}
	}

	return &PersonDetails{
		Person:  person,
		History: history,
	}, nil
}

func nonNilPersons(p []entities.Person) []entities.Person {
	if p == nil {
		return []entities.Person{}
	}
	return p
}
