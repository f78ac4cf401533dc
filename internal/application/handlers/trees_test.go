package handlers

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/mocks"
	"github.com/ersonp/lineage-core/internal/domain/ports"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

// mockOpener hands out one shared in-memory store and records the paths opened.
type mockOpener struct {
	store  *mocks.GraphStore
	opened []string
	err    error
}

func (o *mockOpener) open(path string) (ports.GraphStore, error) {
	o.opened = append(o.opened, path)
	if o.err != nil {
		return nil, o.err
	}
	return o.store, nil
}

func newTreesHandler() (*TreesHandler, *mockOpener) {
	opener := &mockOpener{store: mocks.NewGraphStore()}
	return NewTreesHandler(opener.open), opener
}

func TestTreesHandler_HandleCreate(t *testing.T) {
	dir := t.TempDir()
	handler, opener := newTreesHandler()
	ctx := context.Background()

	result, err := handler.HandleCreate(ctx, dir, CreateTreeRequest{Name: "Smith Family", Description: "Smiths of Leeds"})
	require.NoError(t, err)
	assert.True(t, result.Initialized)
	assert.True(t, config.Exists(dir))
	assert.NotEmpty(t, result.Tree.ID)
	assert.Equal(t, config.SQLitePathForTree(dir, "Smith Family"), result.Tree.DBPath)
	assert.Equal(t, []string{result.Tree.DBPath}, opener.opened)
	assert.DirExists(t, config.TreeDir(dir, "Smith Family"))

	second, err := handler.HandleCreate(ctx, dir, CreateTreeRequest{Name: "jones"})
	require.NoError(t, err)
	assert.False(t, second.Initialized)
	assert.NotEqual(t, result.Tree.ID, second.Tree.ID)

	trees, err := handler.HandleList(dir)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "Smith Family", trees[0].Name)
	assert.Equal(t, "Smiths of Leeds", trees[0].Description)
	assert.Equal(t, "jones", trees[1].Name)
}

func TestTreesHandler_HandleCreate_Rejects(t *testing.T) {
	dir := t.TempDir()
	handler, _ := newTreesHandler()
	ctx := context.Background()

	_, err := handler.HandleCreate(ctx, dir, CreateTreeRequest{Name: "smith-family"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  CreateTreeRequest
		want string
	}{
		{name: "empty name", req: CreateTreeRequest{}, want: "name is required"},
		{name: "duplicate", req: CreateTreeRequest{Name: "smith-family"}, want: "already exists"},
		{name: "same directory", req: CreateTreeRequest{Name: "Smith Family"}, want: "would share a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.HandleCreate(ctx, dir, tt.req)
			require.Error(t, err)
			assert.True(t, entities.IsCode(err, entities.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTreesHandler_HandleCreate_OpenError(t *testing.T) {
	dir := t.TempDir()
	handler, opener := newTreesHandler()
	opener.err = errors.New("disk full")

	_, err := handler.HandleCreate(context.Background(), dir, CreateTreeRequest{Name: "smith"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	trees, err := handler.HandleList(dir)
	require.NoError(t, err)
	assert.Empty(t, trees, "failed trees are not registered")
}

func TestTreesHandler_Scope(t *testing.T) {
	dir := t.TempDir()
	handler, _ := newTreesHandler()

	_, err := handler.Scope(dir, "")
	assert.True(t, entities.IsCode(err, entities.CodeValidation))

	_, err = handler.Scope(dir, "smith")
	assert.True(t, entities.IsCode(err, entities.CodeNotFound))

	created, err := handler.HandleCreate(context.Background(), dir, CreateTreeRequest{Name: "smith"})
	require.NoError(t, err)

	scope, err := handler.Scope(dir, "smith")
	require.NoError(t, err)
	assert.Equal(t, created.Tree.ID, scope.TreeID)
}

func TestTreesHandler_HandleDelete(t *testing.T) {
	dir := t.TempDir()
	handler, opener := newTreesHandler()
	ctx := context.Background()

	created, err := handler.HandleCreate(ctx, dir, CreateTreeRequest{Name: "smith"})
	require.NoError(t, err)

	// The mock opener creates no file; stand one in so the person count runs.
	require.NoError(t, os.WriteFile(created.Tree.DBPath, nil, 0644))
	scope := entities.Scope{TreeID: created.Tree.ID}
	require.NoError(t, opener.store.SavePerson(ctx, &entities.Person{ID: "p1", TreeID: scope.TreeID, GivenName: "Ann"}))

	err = handler.HandleDelete(ctx, dir, "smith", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains 1 persons")

	require.NoError(t, handler.HandleDelete(ctx, dir, "smith", true))
	assert.NoDirExists(t, config.TreeDir(dir, "smith"))

	trees, err := handler.HandleList(dir)
	require.NoError(t, err)
	assert.Empty(t, trees)

	err = handler.HandleDelete(ctx, dir, "smith", false)
	assert.True(t, entities.IsCode(err, entities.CodeNotFound))
}
