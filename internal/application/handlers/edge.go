package handlers

import (
	"context"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/services"
)

// EdgeHandler handles parent-child and union mutations. Person arguments
// accept an ID or a unique display name.
type EdgeHandler struct {
	edges   *services.EdgeService
	persons *services.PersonService
}

// NewEdgeHandler creates a new EdgeHandler.
func NewEdgeHandler(edges *services.EdgeService, persons *services.PersonService) *EdgeHandler {
	return &EdgeHandler{
		edges:   edges,
		persons: persons,
	}
}

// AddParentRequest links a parent to a child.
type AddParentRequest struct {
	Parent string `json:"parent" validate:"required"`
	Child  string `json:"child" validate:"required"`
	Kind   string `json:"kind" validate:"omitempty,parentkind"`
}

// CreateUnionRequest describes a union to create.
type CreateUnionRequest struct {
	Type    string   `json:"type" validate:"omitempty,uniontype"`
	Start   string   `json:"start" validate:"omitempty,fuzzydate"`
	End     string   `json:"end" validate:"omitempty,fuzzydate"`
	Members []string `json:"members" validate:"min=1,dive,required"`
}

// UnionChildRequest links a child to every member of a union.
type UnionChildRequest struct {
	UnionID string `json:"union_id" validate:"required"`
	Child   string `json:"child" validate:"required"`
	Kind    string `json:"kind" validate:"omitempty,parentkind"`
}

// HandleAddParent validates and adds a parent-child edge.
func (h *EdgeHandler) HandleAddParent(ctx context.Context, scope entities.Scope, req AddParentRequest) (*entities.ParentChild, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	parent, err := h.persons.Resolve(ctx, scope, req.Parent)
	if err != nil {
		return nil, err
	}
	child, err := h.persons.Resolve(ctx, scope, req.Child)
	if err != nil {
		return nil, err
	}

	kind, _ := entities.ParseParentKind(req.Kind)
	return h.edges.AddParentChildEdge(ctx, scope, parent.ID, child.ID, kind)
}

// HandleRemoveParent soft-deletes a parent-child edge by ID.
func (h *EdgeHandler) HandleRemoveParent(ctx context.Context, scope entities.Scope, edgeID string) error {
	return h.edges.RemoveParentChildEdge(ctx, scope, edgeID)
}

// HandleCreateUnion validates and creates a union with its initial members.
func (h *EdgeHandler) HandleCreateUnion(ctx context.Context, scope entities.Scope, req CreateUnionRequest) (*entities.Union, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	memberIDs := make([]string, 0, len(req.Members))
	for _, ref := range req.Members {
		p, err := h.persons.Resolve(ctx, scope, ref)
		if err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, p.ID)
	}

	unionType, _ := entities.ParseUnionType(req.Type)
	return h.edges.CreateUnion(ctx, scope, unionType, mustFuzzyDate(req.Start), mustFuzzyDate(req.End), memberIDs...)
}

// HandleAddMember adds a person to a union.
func (h *EdgeHandler) HandleAddMember(ctx context.Context, scope entities.Scope, unionID, personRef string) (*entities.UnionMember, error) {
	p, err := h.persons.Resolve(ctx, scope, personRef)
	if err != nil {
		return nil, err
	}
	return h.edges.AddUnionMember(ctx, scope, unionID, p.ID)
}

// HandleRemoveMember removes a person from a union.
func (h *EdgeHandler) HandleRemoveMember(ctx context.Context, scope entities.Scope, unionID, personRef string) error {
	p, err := h.persons.Resolve(ctx, scope, personRef)
	if err != nil {
		return err
	}
	return h.edges.RemoveUnionMember(ctx, scope, unionID, p.ID)
}

// HandleAddChild adds a child to every member of a union.
func (h *EdgeHandler) HandleAddChild(ctx context.Context, scope entities.Scope, req UnionChildRequest) (*services.UnionChildResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	child, err := h.persons.Resolve(ctx, scope, req.Child)
	if err != nil {
		return nil, err
	}

	kind, _ := entities.ParseParentKind(req.Kind)
	return h.edges.AddUnionChild(ctx, scope, req.UnionID, child.ID, kind)
}

// HandleRemoveChild removes a child's edges to every member of a union.
func (h *EdgeHandler) HandleRemoveChild(ctx context.Context, scope entities.Scope, unionID, childRef string) (int, error) {
	child, err := h.persons.Resolve(ctx, scope, childRef)
	if err != nil {
		return 0, err
	}
	return h.edges.RemoveUnionChild(ctx, scope, unionID, child.ID)
}
