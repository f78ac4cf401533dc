package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// DefaultMaxSearchDepth is the longest path, in edges, the path finder explores.
const DefaultMaxSearchDepth = 15

// Labels for paths that have no common-ancestor pivot.
const (
	LabelSamePerson = "same person"
	LabelSpouse     = "Spouse"
	LabelByMarriage = "Related by marriage"
)

// neighbour is a person one edge away from the current search node.
type neighbour struct {
	person entities.Person
	via    entities.PathEdgeKind
}

// PathFinder searches for the shortest relationship path between two people
// across parent, child and spouse edges.
type PathFinder struct {
	reader ports.GraphReader
}

// NewPathFinder creates a new PathFinder.
func NewPathFinder(reader ports.GraphReader) *PathFinder {
	return &PathFinder{reader: reader}
}

// FindPath runs a breadth-first search from a to b. Paths longer than maxDepth
// edges are abandoned; the search continues with the rest of the queue.
// Not finding a path is a normal result with PathFound=false.
func (f *PathFinder) FindPath(ctx context.Context, a, b *entities.Person, maxDepth int) (*entities.RelationshipPath, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSearchDepth
	}

	if a.ID == b.ID {
		return &entities.RelationshipPath{
			PathFound:         true,
			Path:              []entities.PathStep{{Person: *a, Via: entities.EdgeNone}},
			Links:             []entities.PathLink{},
			RelationshipLabel: LabelSamePerson,
			CommonAncestors:   []entities.CommonAncestor{},
			BloodRelated:      true,
		}, nil
	}

	path, truncated, err := f.search(ctx, a, b.ID, maxDepth)
	if err != nil {
		return nil, err
	}
	if path == nil {
		msg := fmt.Sprintf("no path found: %s and %s are not connected through any parent, child or spouse edge",
			a.DisplayName(), b.DisplayName())
		if truncated {
			msg = fmt.Sprintf("no path found between %s and %s within %d steps",
				a.DisplayName(), b.DisplayName(), maxDepth)
		}
		return &entities.RelationshipPath{
			Path:            []entities.PathStep{},
			Links:           []entities.PathLink{},
			CommonAncestors: []entities.CommonAncestor{},
			Message:         msg,
		}, nil
	}

	return describePath(path)
}

// search returns the first path reaching target, or nil. truncated reports
// whether any branch was cut off by maxDepth.
func (f *PathFinder) search(ctx context.Context, source *entities.Person, target string, maxDepth int) ([]entities.PathStep, bool, error) {
	visited := map[string]bool{source.ID: true}
	queue := [][]entities.PathStep{{{Person: *source, Via: entities.EdgeNone}}}
	truncated := false

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		path := queue[0]
		queue = queue[1:]

		if len(path)-1 >= maxDepth {
			truncated = true
			continue
		}

		current := path[len(path)-1].Person.ID
		next, err := f.neighbours(ctx, current)
		if err != nil {
			return nil, false, err
		}

		for _, n := range next {
			if visited[n.person.ID] {
				continue
			}
			visited[n.person.ID] = true

			extended := make([]entities.PathStep, len(path), len(path)+1)
			copy(extended, path)
			extended = append(extended, entities.PathStep{Person: n.person, Via: n.via})

			if n.person.ID == target {
				return extended, false, nil
			}
			queue = append(queue, extended)
		}
	}
	return nil, truncated, nil
}

// neighbours lists parents, then children, then spouses of personID.
func (f *PathFinder) neighbours(ctx context.Context, personID string) ([]neighbour, error) {
	parents, err := f.reader.FindParents(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("finding parents of %s: %w", personID, err)
	}
	children, err := f.reader.FindChildren(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("finding children of %s: %w", personID, err)
	}
	spouses, err := spousesOf(ctx, f.reader, personID)
	if err != nil {
		return nil, err
	}

	out := make([]neighbour, 0, len(parents)+len(children)+len(spouses))
	for i := range parents {
		out = append(out, neighbour{person: parents[i].Person, via: entities.EdgeParent})
	}
	for i := range children {
		out = append(out, neighbour{person: children[i].Person, via: entities.EdgeChild})
	}
	for i := range spouses {
		out = append(out, neighbour{person: spouses[i], via: entities.EdgeSpouse})
	}
	return out, nil
}

// spousesOf returns co-members of every union containing personID, in union order.
func spousesOf(ctx context.Context, reader ports.GraphReader, personID string) ([]entities.Person, error) {
	unions, err := reader.FindUnionsByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("finding unions of %s: %w", personID, err)
	}

	var out []entities.Person
	seen := make(map[string]bool)
	for i := range unions {
		members, err := reader.FindUnionMembers(ctx, unions[i].ID)
		if err != nil {
			return nil, fmt.Errorf("finding members of union %s: %w", unions[i].ID, err)
		}
		for _, m := range members {
			if m.ID == personID || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// describePath labels every hop and the path as a whole.
func describePath(path []entities.PathStep) (*entities.RelationshipPath, error) {
	links := make([]entities.PathLink, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		next := path[i+1]
		label, err := next.Via.StepLabel(next.Person.Sex)
		if err != nil {
			return nil, fmt.Errorf("labelling step %d: %w", i+1, err)
		}
		links = append(links, entities.PathLink{
			FromID: path[i].Person.ID,
			ToID:   next.Person.ID,
			Kind:   next.Via,
			Label:  label,
		})
	}

	result := &entities.RelationshipPath{
		PathFound:       true,
		Path:            path,
		Links:           links,
		CommonAncestors: []entities.CommonAncestor{},
	}

	if pivot := PivotAncestor(path); pivot != nil {
		result.CommonAncestors = append(result.CommonAncestors, *pivot)
		result.RelationshipLabel = Classify(pivot.DistanceA, pivot.DistanceB).Label
		result.BloodRelated = true
		return result, nil
	}

	edges := len(path) - 1
	switch {
	case allVia(path, entities.EdgeParent):
		// b is an ancestor of a
		result.RelationshipLabel = Classify(edges, 0).Label
		result.BloodRelated = true
	case allVia(path, entities.EdgeChild):
		result.RelationshipLabel = Classify(0, edges).Label
		result.BloodRelated = true
	case edges == 1 && path[1].Via == entities.EdgeSpouse:
		result.RelationshipLabel = LabelSpouse
	default:
		result.RelationshipLabel = LabelByMarriage
	}
	return result, nil
}

func allVia(path []entities.PathStep, kind entities.PathEdgeKind) bool {
	for _, step := range path[1:] {
		if step.Via != kind {
			return false
		}
	}
	return true
}
