package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/mocks"
	"github.com/ersonp/lineage-core/internal/domain/services"
)

var testScope = entities.Scope{TreeID: "tree-1"}

// fixture wires every handler over one in-memory store.
type fixture struct {
	store     *mocks.GraphStore
	persons   *PersonHandler
	edges     *EdgeHandler
	genealogy *GenealogyHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mocks.NewGraphStore()
	personService := services.NewPersonService(store)
	edgeService := services.NewEdgeService(store, nil, nil)
	genealogyService := services.NewGenealogyService(store)

	return &fixture{
		store:     store,
		persons:   NewPersonHandler(personService),
		edges:     NewEdgeHandler(edgeService, personService),
		genealogy: NewGenealogyHandler(genealogyService, personService),
	}
}

// add creates a person and returns its ID.
func (f *fixture) add(t *testing.T, given, surname, sex string) string {
	t.Helper()
	p, err := f.persons.HandleAdd(context.Background(), testScope, AddPersonRequest{
		GivenName: given,
		Surname:   surname,
		Sex:       sex,
	})
	require.NoError(t, err)
	return p.ID
}

// smiths builds John and Mary Smith with children Tom and Ann.
func (f *fixture) smiths(t *testing.T) (john, mary, tom, ann string) {
	t.Helper()
	ctx := context.Background()
	john = f.add(t, "John", "Smith", "m")
	mary = f.add(t, "Mary", "Smith", "f")
	tom = f.add(t, "Tom", "Smith", "m")
	ann = f.add(t, "Ann", "Smith", "f")

	union, err := f.edges.HandleCreateUnion(ctx, testScope, CreateUnionRequest{Members: []string{john, mary}})
	require.NoError(t, err)
	for _, child := range []string{tom, ann} {
		result, err := f.edges.HandleAddChild(ctx, testScope, UnionChildRequest{UnionID: union.ID, Child: child})
		require.NoError(t, err)
		require.Len(t, result.Created, 2)
	}
	return john, mary, tom, ann
}
