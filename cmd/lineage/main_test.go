package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "lineage %s", strings.Join(args, " "))
	return out
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("LINEAGE_TREE", "")
	dir := t.TempDir()
	t.Chdir(dir)
	mustExecute(t, "trees", "create", "smiths", "-d", "The Smith family")
	return dir
}

func addPerson(t *testing.T, args ...string) entities.Person {
	t.Helper()
	out := mustExecute(t, append([]string{"-t", "smiths", "person", "add", "--format", "json"}, args...)...)
	var p entities.Person
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	return p
}

func TestCLI_TreesLifecycle(t *testing.T) {
	dir := setupWorkspace(t)

	assert.FileExists(t, config.ConfigFilePath(dir))
	assert.FileExists(t, config.SQLitePathForTree(dir, "smiths"))

	out := mustExecute(t, "trees", "list")
	assert.Contains(t, out, "smiths")
	assert.Contains(t, out, "The Smith family")

	_, err := execute(t, "trees", "create", "smiths")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	addPerson(t, "--given", "John", "--surname", "Smith")

	_, err = execute(t, "trees", "delete", "smiths")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	out = mustExecute(t, "trees", "delete", "smiths", "--force")
	assert.Contains(t, out, `Deleted tree "smiths"`)
	assert.NoDirExists(t, config.TreeDir(dir, "smiths"))
}

func TestCLI_FamilyFlow(t *testing.T) {
	setupWorkspace(t)

	john := addPerson(t, "--given", "John", "--surname", "Smith", "--sex", "m", "--birth", "1900")
	addPerson(t, "--given", "Mary", "--surname", "Smith", "--sex", "f")
	tom := addPerson(t, "--given", "Tom", "--surname", "Smith", "--sex", "m", "--name", "de:Thomas:Schmidt")
	assert.Equal(t, entities.SexMale, john.Sex)

	out := mustExecute(t, "-t", "smiths", "union", "create", "John Smith", "Mary Smith", "--start", "1925")
	require.True(t, strings.HasPrefix(out, "Created marriage "))
	unionID := strings.TrimSpace(strings.TrimPrefix(out, "Created marriage "))

	out = mustExecute(t, "-t", "smiths", "union", "add-child", unionID, "Tom Smith")
	assert.Contains(t, out, "Linked 2 parent(s)")

	t.Run("tree", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "tree", "Tom Smith")
		assert.Contains(t, out, "Tom Smith")
		assert.Contains(t, out, "father: John Smith (~1900-)")
		assert.Contains(t, out, "mother: Mary Smith")
	})

	t.Run("tree json", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "tree", john.ID, "--mode", "descendants", "--format", "json")
		var result struct {
			Mode string             `json:"mode"`
			Root *entities.TreeNode `json:"root"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "descendants", result.Mode)
		require.Len(t, result.Root.Children, 1)
		assert.Equal(t, tom.ID, result.Root.Children[0].Person.ID)
	})

	t.Run("family", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "family", "John Smith")
		assert.Contains(t, out, "marriage: Mary Smith")
		assert.Contains(t, out, "son: Tom Smith")
	})

	t.Run("relationship", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "relationship", "Tom Smith", "John Smith")
		assert.Contains(t, out, "Tom Smith -> John Smith: Child")
		assert.Contains(t, out, "Blood related: yes")
	})

	t.Run("path", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "path", "John Smith", "Mary Smith")
		assert.Contains(t, out, "(1 steps)")
		assert.Contains(t, out, "Mary Smith is spouse of John Smith")
	})

	t.Run("search by localized name", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "person", "list", "--search", "schmidt")
		assert.Contains(t, out, "Tom Smith")
		assert.NotContains(t, out, "Mary Smith")
	})

	t.Run("show", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "person", "show", tom.ID)
		assert.Contains(t, out, "de: Thomas Schmidt")
		assert.Contains(t, out, "History:")
	})

	t.Run("duplicate parent is rejected", func(t *testing.T) {
		_, err := execute(t, "-t", "smiths", "parent", "add", "John Smith", "Tom Smith")
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(err))
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		_, err := execute(t, "-t", "smiths", "parent", "add", "Tom Smith", "John Smith")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
		assert.Equal(t, 2, exitCode(err))
	})

	t.Run("unknown person", func(t *testing.T) {
		_, err := execute(t, "-t", "smiths", "person", "show", "Nobody")
		require.Error(t, err)
		assert.Equal(t, 3, exitCode(err))
	})

	t.Run("remove child", func(t *testing.T) {
		out := mustExecute(t, "-t", "smiths", "union", "remove-child", unionID, "Tom Smith")
		assert.Contains(t, out, "Removed 2 link(s)")

		out = mustExecute(t, "-t", "smiths", "family", "Tom Smith")
		assert.Contains(t, out, "Parents:\n  (none)")
	})
}

func TestCLI_Import(t *testing.T) {
	dir := setupWorkspace(t)

	data := `{
  "persons": [
    {"ref": "a", "given_name": "Alice", "surname": "Lee", "sex": "f"},
    {"ref": "b", "given_name": "Bob", "surname": "Lee", "sex": "m"}
  ],
  "parents": [{"parent": "a", "child": "b"}]
}`
	path := filepath.Join(dir, "family.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	out := mustExecute(t, "-t", "smiths", "import", path, "--dry-run")
	assert.Contains(t, out, "Dry run, would import: 2 persons, 0 unions, 1 parent links")

	out = mustExecute(t, "-t", "smiths", "person", "list")
	assert.Contains(t, out, "No persons found.")

	out = mustExecute(t, "-t", "smiths", "import", path)
	assert.Contains(t, out, "Imported: 2 persons, 0 unions, 1 parent links")

	out = mustExecute(t, "-t", "smiths", "person", "list")
	assert.Contains(t, out, "2 of 2 persons")
}

func TestCLI_RequiresTree(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t, "person", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tree")
	assert.Equal(t, 2, exitCode(err))

	_, err = execute(t, "-t", "ghosts", "person", "list")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestCLI_InvalidFormat(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t, "-t", "smiths", "tree", "x", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format: xml (valid: tree, json)")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", entities.NewValidationError("bad"), 2},
		{"not found", entities.NewNotFoundError("missing"), 3},
		{"forbidden", entities.NewForbiddenError("no"), 4},
		{"wrapped", errors.Join(errors.New("ctx"), entities.NewNotFoundError("missing")), 3},
		{"plain", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestParseLocalizedName(t *testing.T) {
	name, err := parseLocalizedName("fr:Adélaïde:Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "fr", name.Locale)
	assert.Equal(t, "Adélaïde", name.GivenName)
	assert.Equal(t, "Lovelace", name.Surname)

	name, err = parseLocalizedName("ja:太郎")
	require.NoError(t, err)
	assert.Empty(t, name.Surname)

	_, err = parseLocalizedName("nolocale")
	assert.Error(t, err)
}
