package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

type personFinder interface {
	FindPersonByID(ctx context.Context, personID string) (*entities.Person, error)
}

// personInScope loads a person and checks it belongs to the scope's tree.
func personInScope(ctx context.Context, store personFinder, scope entities.Scope, personID string) (*entities.Person, error) {
	if scope.TreeID == "" {
		return nil, entities.NewValidationError("tree scope is required")
	}
	if personID == "" {
		return nil, entities.NewValidationError("person id is required")
	}

	person, err := store.FindPersonByID(ctx, personID)
	if err != nil {
		return nil, entities.Classify("loading person", fmt.Errorf("finding person %s: %w", personID, err))
	}
	if person == nil {
		return nil, entities.NewNotFoundError("person not found: %s", personID)
	}
	if person.TreeID != scope.TreeID {
		return nil, entities.NewForbiddenError("person %s is outside tree %s", personID, scope.TreeID)
	}
	return person, nil
}
