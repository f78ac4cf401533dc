package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/mocks"
)

const testTree = "tree-1"

var testScope = entities.Scope{TreeID: testTree}

// family builds graphs directly in a mock store, bypassing the services.
// Person IDs are the names passed in.
type family struct {
	t      *testing.T
	store  *mocks.GraphStore
	unions int
}

func newFamily(t *testing.T) *family {
	t.Helper()
	return &family{t: t, store: mocks.NewGraphStore()}
}

func (f *family) person(id string, sex entities.Sex) *entities.Person {
	f.t.Helper()
	p := &entities.Person{ID: id, TreeID: testTree, Sex: sex, GivenName: id, CreatedAt: time.Unix(0, 0)}
	require.NoError(f.t, f.store.SavePerson(context.Background(), p))
	return p
}

func (f *family) male(ids ...string) {
	for _, id := range ids {
		f.person(id, entities.SexMale)
	}
}

func (f *family) female(ids ...string) {
	for _, id := range ids {
		f.person(id, entities.SexFemale)
	}
}

func (f *family) unknown(ids ...string) {
	for _, id := range ids {
		f.person(id, entities.SexUnknown)
	}
}

func (f *family) parent(parentID, childID string) {
	f.t.Helper()
	f.link(parentID, childID, entities.ParentBiological)
}

func (f *family) link(parentID, childID string, kind entities.ParentKind) {
	f.t.Helper()
	require.NoError(f.t, f.store.InsertEdge(context.Background(), &entities.ParentChild{
		ID:        fmt.Sprintf("%s->%s", parentID, childID),
		ParentID:  parentID,
		ChildID:   childID,
		Kind:      kind,
		CreatedAt: time.Unix(0, 0),
	}))
}

// chain links each id as the biological parent of the next.
func (f *family) chain(ids ...string) {
	f.t.Helper()
	for i := 0; i+1 < len(ids); i++ {
		f.parent(ids[i], ids[i+1])
	}
}

func (f *family) marry(members ...string) string {
	f.t.Helper()
	f.unions++
	id := fmt.Sprintf("union-%d", f.unions)
	ctx := context.Background()
	require.NoError(f.t, f.store.SaveUnion(ctx, &entities.Union{ID: id, TreeID: testTree, Type: entities.UnionMarriage}))
	for _, m := range members {
		require.NoError(f.t, f.store.AddUnionMember(ctx, &entities.UnionMember{
			ID: id + ":" + m, UnionID: id, PersonID: m,
		}))
	}
	return id
}

func (f *family) get(id string) *entities.Person {
	f.t.Helper()
	p, err := f.store.FindPersonByID(context.Background(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, p, "person %s", id)
	return p
}

// cancelledContext returns a context that is already cancelled.
func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
