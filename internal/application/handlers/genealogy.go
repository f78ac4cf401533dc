package handlers

import (
	"context"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/services"
)

// GenealogyHandler handles the read operations: trees, family groups,
// relationships and paths.
type GenealogyHandler struct {
	genealogy *services.GenealogyService
	persons   *services.PersonService
}

// NewGenealogyHandler creates a new GenealogyHandler.
func NewGenealogyHandler(genealogy *services.GenealogyService, persons *services.PersonService) *GenealogyHandler {
	return &GenealogyHandler{
		genealogy: genealogy,
		persons:   persons,
	}
}

// TreeRequest asks for a pedigree, descendant or hourglass view.
// Zero generations uses the mode's configured default.
type TreeRequest struct {
	Person      string `json:"person" validate:"required"`
	Mode        string `json:"mode" validate:"omitempty,treemode"`
	Generations int    `json:"generations" validate:"gte=0"`
}

// PairRequest names two persons.
type PairRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

// PathRequest asks for the shortest path between two persons.
// Zero max depth uses the configured search depth.
type PathRequest struct {
	PairRequest
	MaxDepth int `json:"max_depth" validate:"gte=0"`
}

// TreeResult is a built tree with the mode that produced it.
type TreeResult struct {
	Mode string             `json:"mode"`
	Root *entities.TreeNode `json:"root"`
}

// RelationshipResult is the relationship of A to B.
type RelationshipResult struct {
	A            entities.Person        `json:"a"`
	B            entities.Person        `json:"b"`
	Relationship *entities.Relationship `json:"relationship"`
}

// PathResult is the shortest path from A to B.
type PathResult struct {
	A    entities.Person            `json:"a"`
	B    entities.Person            `json:"b"`
	Path *entities.RelationshipPath `json:"path"`
}

// HandleTree builds the requested tree view.
func (h *GenealogyHandler) HandleTree(ctx context.Context, scope entities.Scope, req TreeRequest) (*TreeResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	person, err := h.persons.Resolve(ctx, scope, req.Person)
	if err != nil {
		return nil, err
	}

	mode, _ := services.ParseHierarchyMode(req.Mode)
	root, err := h.genealogy.GetTree(ctx, scope, person.ID, mode, req.Generations)
	if err != nil {
		return nil, err
	}

	return &TreeResult{
		Mode: string(mode),
		Root: root,
	}, nil
}

// HandleFamily returns a person's parents, spouses and children.
func (h *GenealogyHandler) HandleFamily(ctx context.Context, scope entities.Scope, ref string) (*entities.FamilyGroup, error) {
	person, err := h.persons.Resolve(ctx, scope, ref)
	if err != nil {
		return nil, err
	}
	return h.genealogy.GetFamilyGroup(ctx, scope, person.ID)
}

// HandleRelationship classifies the relationship of A to B.
func (h *GenealogyHandler) HandleRelationship(ctx context.Context, scope entities.Scope, req PairRequest) (*RelationshipResult, error) {
	a, b, err := h.resolvePair(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	rel, err := h.genealogy.GetRelationship(ctx, scope, a.ID, b.ID)
	if err != nil {
		return nil, err
	}

	return &RelationshipResult{A: *a, B: *b, Relationship: rel}, nil
}

// HandlePath finds the shortest path from A to B.
func (h *GenealogyHandler) HandlePath(ctx context.Context, scope entities.Scope, req PathRequest) (*PathResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	a, b, err := h.resolvePair(ctx, scope, req.PairRequest)
	if err != nil {
		return nil, err
	}

	path, err := h.genealogy.FindRelationshipPath(ctx, scope, a.ID, b.ID, req.MaxDepth)
	if err != nil {
		return nil, err
	}

	return &PathResult{A: *a, B: *b, Path: path}, nil
}

func (h *GenealogyHandler) resolvePair(ctx context.Context, scope entities.Scope, req PairRequest) (*entities.Person, *entities.Person, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	a, err := h.persons.Resolve(ctx, scope, req.A)
	if err != nil {
		return nil, nil, err
	}
	b, err := h.persons.Resolve(ctx, scope, req.B)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
