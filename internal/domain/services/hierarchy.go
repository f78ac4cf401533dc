package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// Default generation counts for each hierarchy mode.
const (
	DefaultPedigreeDepth   = 4
	DefaultDescendantDepth = 4
	DefaultHourglassDepth  = 3
)

// HierarchyMode selects which tree view to build.
type HierarchyMode string

const (
	ModePedigree    HierarchyMode = "pedigree"
	ModeDescendants HierarchyMode = "descendants"
	ModeHourglass   HierarchyMode = "hourglass"
)

// ParseHierarchyMode validates a mode string. Empty input defaults to pedigree.
func ParseHierarchyMode(s string) (HierarchyMode, error) {
	switch HierarchyMode(s) {
	case "", ModePedigree:
		return ModePedigree, nil
	case ModeDescendants:
		return ModeDescendants, nil
	case ModeHourglass:
		return ModeHourglass, nil
	default:
		return "", fmt.Errorf("invalid tree mode: %s (valid: pedigree, descendants, hourglass)", s)
	}
}

// visitedSet records person IDs already placed in the tree being built.
// Each build owns its own set; it is passed down the recursion explicitly.
type visitedSet map[string]bool

// HierarchyBuilder builds depth-bounded ancestor and descendant trees.
type HierarchyBuilder struct {
	reader ports.GraphReader
}

// NewHierarchyBuilder creates a new HierarchyBuilder.
func NewHierarchyBuilder(reader ports.GraphReader) *HierarchyBuilder {
	return &HierarchyBuilder{reader: reader}
}

// Build dispatches to the builder for mode.
func (b *HierarchyBuilder) Build(ctx context.Context, mode HierarchyMode, root *entities.Person, generations int) (*entities.TreeNode, error) {
	switch mode {
	case ModePedigree:
		return b.Pedigree(ctx, root, generations)
	case ModeDescendants:
		return b.Descendants(ctx, root, generations)
	case ModeHourglass:
		return b.Hourglass(ctx, root, generations)
	default:
		return nil, fmt.Errorf("unknown tree mode %q", mode)
	}
}

// Pedigree builds the ancestors of root up to generations levels.
// Nodes at the last level have HasMoreAncestors set when further parents exist.
func (b *HierarchyBuilder) Pedigree(ctx context.Context, root *entities.Person, generations int) (*entities.TreeNode, error) {
	node, err := b.newNode(ctx, root, 0)
	if err != nil {
		return nil, err
	}
	if err := b.expandParents(ctx, node, generations, visitedSet{root.ID: true}); err != nil {
		return nil, err
	}
	return node, nil
}

// Descendants builds the descendants of root up to generations levels.
func (b *HierarchyBuilder) Descendants(ctx context.Context, root *entities.Person, generations int) (*entities.TreeNode, error) {
	node, err := b.newNode(ctx, root, 0)
	if err != nil {
		return nil, err
	}
	if err := b.expandChildren(ctx, node, generations, visitedSet{root.ID: true}); err != nil {
		return nil, err
	}
	return node, nil
}

// Hourglass builds the pedigree of root and attaches its descendant tree as
// the root's children. The descendant half gets its own visited set that
// already contains the root.
func (b *HierarchyBuilder) Hourglass(ctx context.Context, root *entities.Person, generations int) (*entities.TreeNode, error) {
	node, err := b.Pedigree(ctx, root, generations)
	if err != nil {
		return nil, err
	}
	if err := b.expandChildren(ctx, node, generations, visitedSet{root.ID: true}); err != nil {
		return nil, err
	}
	return node, nil
}

// expandParents attaches the parents of node and recurses until max depth.
func (b *HierarchyBuilder) expandParents(ctx context.Context, node *entities.TreeNode, maxDepth int, visited visitedSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parents, err := b.reader.FindParents(ctx, node.Person.ID)
	if err != nil {
		return fmt.Errorf("finding parents of %s: %w", node.Person.ID, err)
	}
	if node.Depth >= maxDepth {
		node.HasMoreAncestors = len(parents) > 0
		return nil
	}

	for i := range parents {
		parent := &parents[i].Person
		if visited[parent.ID] {
			leaf, err := b.repeatedNode(ctx, parent, node.Depth+1)
			if err != nil {
				return err
			}
			node.Parents = append(node.Parents, leaf)
			continue
		}
		visited[parent.ID] = true

		child, err := b.newNode(ctx, parent, node.Depth+1)
		if err != nil {
			return err
		}
		if err := b.expandParents(ctx, child, maxDepth, visited); err != nil {
			return err
		}
		node.Parents = append(node.Parents, child)
	}
	return nil
}

// expandChildren attaches the children of node and recurses until max depth.
func (b *HierarchyBuilder) expandChildren(ctx context.Context, node *entities.TreeNode, maxDepth int, visited visitedSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := b.reader.FindChildren(ctx, node.Person.ID)
	if err != nil {
		return fmt.Errorf("finding children of %s: %w", node.Person.ID, err)
	}
	if node.Depth >= maxDepth {
		node.HasMoreDescendants = len(children) > 0
		return nil
	}

	for i := range children {
		kid := &children[i].Person
		if visited[kid.ID] {
			leaf, err := b.repeatedNode(ctx, kid, node.Depth+1)
			if err != nil {
				return err
			}
			node.Children = append(node.Children, leaf)
			continue
		}
		visited[kid.ID] = true

		next, err := b.newNode(ctx, kid, node.Depth+1)
		if err != nil {
			return err
		}
		if err := b.expandChildren(ctx, next, maxDepth, visited); err != nil {
			return err
		}
		node.Children = append(node.Children, next)
	}
	return nil
}

// newNode creates a node for person with its unions attached.
func (b *HierarchyBuilder) newNode(ctx context.Context, person *entities.Person, depth int) (*entities.TreeNode, error) {
	unions, err := unionNodes(ctx, b.reader, person.ID)
	if err != nil {
		return nil, err
	}
	return &entities.TreeNode{Person: *person, Depth: depth, Unions: unions}, nil
}

// repeatedNode is a leaf for a person already placed in this build. It keeps
// the person's unions but its parents and children are not expanded again.
func (b *HierarchyBuilder) repeatedNode(ctx context.Context, person *entities.Person, depth int) (*entities.TreeNode, error) {
	node, err := b.newNode(ctx, person, depth)
	if err != nil {
		return nil, err
	}
	node.Repeated = true
	return node, nil
}

// unionNodes lists the unions of personID with co-members as partners.
func unionNodes(ctx context.Context, reader ports.GraphReader, personID string) ([]entities.UnionNode, error) {
	unions, err := reader.FindUnionsByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("finding unions of %s: %w", personID, err)
	}
	if len(unions) == 0 {
		return nil, nil
	}

	out := make([]entities.UnionNode, 0, len(unions))
	for i := range unions {
		u := &unions[i]
		members, err := reader.FindUnionMembers(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("finding members of union %s: %w", u.ID, err)
		}
		partners := make([]entities.Person, 0, len(members))
		for _, m := range members {
			if m.ID != personID {
				partners = append(partners, m)
			}
		}
		out = append(out, entities.UnionNode{
			UnionID:  u.ID,
			Type:     u.Type,
			Start:    u.Start,
			End:      u.End,
			Partners: partners,
		})
	}
	return out, nil
}
