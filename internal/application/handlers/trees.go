package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

// StoreOpener opens the graph store at path.
type StoreOpener func(path string) (ports.GraphStore, error)

// TreesHandler manages the registry of family trees and their databases.
type TreesHandler struct {
	open StoreOpener
}

// NewTreesHandler creates a new trees handler.
func NewTreesHandler(open StoreOpener) *TreesHandler {
	return &TreesHandler{
		open: open,
	}
}

// CreateTreeRequest describes a tree to create.
type CreateTreeRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"max=256"`
}

// TreeInfo describes a registered tree.
type TreeInfo struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	DBPath      string    `json:"db_path"`
}

// CreateTreeResult contains the result of creating a tree.
type CreateTreeResult struct {
	Tree        TreeInfo `json:"tree"`
	Initialized bool     `json:"initialized"` // config was written by this call
}

// HandleCreate registers a tree, writing the default config on first use,
// and creates its database schema.
func (h *TreesHandler) HandleCreate(ctx context.Context, basePath string, req CreateTreeRequest) (*CreateTreeResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	initialized := false
	if !config.Exists(basePath) {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		initialized = true
	}

	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return nil, err
	}
	if trees.Exists(req.Name) {
		return nil, entities.NewValidationError("tree %q already exists", req.Name)
	}
	dir := config.SanitizeTreeName(req.Name)
	for _, name := range trees.Names() {
		if config.SanitizeTreeName(name) == dir {
			return nil, entities.NewValidationError("tree %q would share a directory with %q", req.Name, name)
		}
	}

	if err := os.MkdirAll(config.TreeDir(basePath, req.Name), 0755); err != nil {
		return nil, fmt.Errorf("creating tree directory: %w", err)
	}

	dbPath := config.SQLitePathForTree(basePath, req.Name)
	store, err := h.open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening tree database: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating tree schema: %w", err)
	}

	entry := config.TreeEntry{
		ID:          uuid.New().String(),
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	trees.Add(req.Name, entry)
	if err := trees.Save(basePath); err != nil {
		return nil, err
	}

	return &CreateTreeResult{
		Tree:        treeInfo(basePath, req.Name, entry),
		Initialized: initialized,
	}, nil
}

// HandleList returns all registered trees sorted by name.
func (h *TreesHandler) HandleList(basePath string) ([]TreeInfo, error) {
	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return nil, err
	}

	infos := make([]TreeInfo, 0, len(trees.Trees))
	for _, name := range trees.Names() {
		infos = append(infos, treeInfo(basePath, name, trees.Trees[name]))
	}
	return infos, nil
}

// HandleDelete unregisters a tree. Its database is removed unless the tree
// still holds persons and force is false.
func (h *TreesHandler) HandleDelete(ctx context.Context, basePath, name string, force bool) error {
	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return err
	}
	entry, err := trees.Get(name)
	if err != nil {
		return entities.NewNotFoundError("%v", err)
	}

	dbPath := config.SQLitePathForTree(basePath, name)
	if !force {
		if _, statErr := os.Stat(dbPath); statErr == nil {
			count, err := h.countPersons(ctx, dbPath, entry.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return entities.NewValidationError("tree %q contains %d persons, use --force to delete", name, count)
			}
		}
	}

	if err := os.RemoveAll(config.TreeDir(basePath, name)); err != nil {
		return fmt.Errorf("removing tree directory: %w", err)
	}

	trees.Remove(name)
	return trees.Save(basePath)
}

// Scope resolves a tree name to the scope every operation runs in.
func (h *TreesHandler) Scope(basePath, name string) (entities.Scope, error) {
	if name == "" {
		return entities.Scope{}, entities.NewValidationError("tree is required (use --tree flag)")
	}

	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return entities.Scope{}, err
	}
	entry, err := trees.Get(name)
	if err != nil {
		return entities.Scope{}, entities.NewNotFoundError("%v", err)
	}
	return entities.Scope{TreeID: entry.ID}, nil
}

func (h *TreesHandler) countPersons(ctx context.Context, dbPath, treeID string) (int, error) {
	store, err := h.open(dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening tree database: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensuring tree schema: %w", err)
	}
	return store.CountPersons(ctx, treeID)
}

func treeInfo(basePath, name string, entry config.TreeEntry) TreeInfo {
	return TreeInfo{
		Name:        name,
		ID:          entry.ID,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
		DBPath:      config.SQLitePathForTree(basePath, name),
	}
}
