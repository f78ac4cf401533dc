package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

func TestEdgeHandler_HandleAddParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	john := f.add(t, "John", "Smith", "m")
	tom := f.add(t, "Tom", "Smith", "m")

	edge, err := f.edges.HandleAddParent(ctx, testScope, AddParentRequest{Parent: "john smith", Child: tom})
	require.NoError(t, err)
	assert.Equal(t, john, edge.ParentID)
	assert.Equal(t, tom, edge.ChildID)
	assert.Equal(t, entities.ParentBiological, edge.Kind)

	// The reverse link would close a cycle.
	_, err = f.edges.HandleAddParent(ctx, testScope, AddParentRequest{Parent: tom, Child: john, Kind: "adoptive"})
	require.Error(t, err)
	assert.True(t, entities.IsCode(err, entities.CodeValidation))
	assert.Contains(t, err.Error(), "cycle")

	require.NoError(t, f.edges.HandleRemoveParent(ctx, testScope, edge.ID))
	assert.Empty(t, f.store.ActiveEdges())
}

func TestEdgeHandler_HandleAddParent_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  AddParentRequest
		want string
	}{
		{name: "missing parent", req: AddParentRequest{Child: "x"}, want: "parent is required"},
		{name: "missing both", req: AddParentRequest{}, want: "child is required"},
		{name: "unknown kind", req: AddParentRequest{Parent: "a", Child: "b", Kind: "godparent"}, want: `kind "godparent"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.edges.HandleAddParent(context.Background(), testScope, tt.req)

			require.Error(t, err)
			assert.True(t, entities.IsCode(err, entities.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, f.store.Fetches("FindPersonByID"))
		})
	}
}

func TestEdgeHandler_HandleAddParent_UnknownPerson(t *testing.T) {
	f := newFixture(t)
	tom := f.add(t, "Tom", "Smith", "m")

	_, err := f.edges.HandleAddParent(context.Background(), testScope, AddParentRequest{Parent: "Nobody", Child: tom})
	assert.True(t, entities.IsCode(err, entities.CodeNotFound))
}

func TestEdgeHandler_Unions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	john, mary, tom, ann := f.smiths(t)

	assert.Len(t, f.store.ActiveEdges(), 4)

	unions, err := f.store.FindUnionsByPerson(ctx, john)
	require.NoError(t, err)
	require.Len(t, unions, 1)
	unionID := unions[0].ID
	assert.Equal(t, entities.UnionMarriage, unions[0].Type)

	removed, err := f.edges.HandleRemoveChild(ctx, testScope, unionID, "Ann Smith")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, f.edges.HandleRemoveMember(ctx, testScope, unionID, mary))
	members, err := f.store.FindUnionMembers(ctx, unionID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, john, members[0].ID)

	member, err := f.edges.HandleAddMember(ctx, testScope, unionID, "Mary Smith")
	require.NoError(t, err)
	assert.Equal(t, mary, member.PersonID)

	// Mary and John are already Tom's parents.
	result, err := f.edges.HandleAddChild(ctx, testScope, UnionChildRequest{UnionID: unionID, Child: tom})
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Skipped, 2)

	result, err = f.edges.HandleAddChild(ctx, testScope, UnionChildRequest{UnionID: unionID, Child: ann, Kind: "adoptive"})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, entities.ParentAdoptive, result.Created[0].Kind)
}

func TestEdgeHandler_HandleCreateUnion_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUnionRequest
		want string
	}{
		{name: "no members", req: CreateUnionRequest{}, want: "members needs at least 1 entries"},
		{name: "blank member", req: CreateUnionRequest{Members: []string{""}}, want: "is required"},
		{name: "bad type", req: CreateUnionRequest{Type: "handfasting", Members: []string{"a"}}, want: `type "handfasting"`},
		{name: "bad start", req: CreateUnionRequest{Start: "June", Members: []string{"a"}}, want: `start "June"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.edges.HandleCreateUnion(context.Background(), testScope, tt.req)

			require.Error(t, err)
			assert.True(t, entities.IsCode(err, entities.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEdgeHandler_HandleCreateUnion_Dates(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "A", "", "")
	b := f.add(t, "B", "", "")

	union, err := f.edges.HandleCreateUnion(context.Background(), testScope, CreateUnionRequest{
		Type:    "civil_union",
		Start:   "2001-06-30",
		End:     "~2010",
		Members: []string{a, b},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.UnionCivil, union.Type)
	require.NotNil(t, union.Start)
	assert.Equal(t, "2001-06-30", union.Start.String())
	require.NotNil(t, union.End)
	assert.Equal(t, "~2010", union.End.String())
}
