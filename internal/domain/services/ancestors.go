package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// DefaultMaxAncestorDepth bounds the upward walk of the whole-ancestor-set mode.
const DefaultMaxAncestorDepth = 30

// ancestorSet maps ancestor IDs to their minimum generation distance.
// Order keeps discovery order so ties resolve deterministically.
type ancestorSet struct {
	distance map[string]int
	person   map[string]entities.Person
	order    []string
}

// AncestorResolver locates the nearest ancestors two people share.
type AncestorResolver struct {
	reader   ports.GraphReader
	maxDepth int
}

// NewAncestorResolver creates a new AncestorResolver.
// A non-positive maxDepth uses DefaultMaxAncestorDepth.
func NewAncestorResolver(reader ports.GraphReader, maxDepth int) *AncestorResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxAncestorDepth
	}
	return &AncestorResolver{reader: reader, maxDepth: maxDepth}
}

// Ancestors walks parent edges upward from person and returns every ancestor,
// the person included at distance 0, with its minimum generation distance.
func (r *AncestorResolver) Ancestors(ctx context.Context, person *entities.Person) (map[string]int, error) {
	set, err := r.ancestors(ctx, person)
	if err != nil {
		return nil, err
	}
	return set.distance, nil
}

func (r *AncestorResolver) ancestors(ctx context.Context, person *entities.Person) (*ancestorSet, error) {
	set := &ancestorSet{
		distance: map[string]int{person.ID: 0},
		person:   map[string]entities.Person{person.ID: *person},
		order:    []string{person.ID},
	}
	queue := []string{person.ID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		depth := set.distance[current]
		if depth >= r.maxDepth {
			continue
		}

		parents, err := r.reader.FindParents(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("finding parents of %s: %w", current, err)
		}
		for i := range parents {
			p := parents[i].Person
			if _, seen := set.distance[p.ID]; seen {
				continue
			}
			set.distance[p.ID] = depth + 1
			set.person[p.ID] = p
			set.order = append(set.order, p.ID)
			queue = append(queue, p.ID)
		}
	}
	return set, nil
}

// NearestCommon intersects the ancestor sets of a and b and returns every
// shared ancestor at the minimal combined distance, in a's discovery order.
// The first entry is the nearest common ancestor. An empty result means the
// two share no lineage.
func (r *AncestorResolver) NearestCommon(ctx context.Context, a, b *entities.Person) ([]entities.CommonAncestor, error) {
	setA, err := r.ancestors(ctx, a)
	if err != nil {
		return nil, err
	}
	setB, err := r.ancestors(ctx, b)
	if err != nil {
		return nil, err
	}

	best := -1
	var found []entities.CommonAncestor
	for _, id := range setA.order {
		distB, ok := setB.distance[id]
		if !ok {
			continue
		}
		distA := setA.distance[id]
		total := distA + distB
		switch {
		case best < 0 || total < best:
			best = total
			found = found[:0]
		case total > best:
			continue
		}
		found = append(found, entities.CommonAncestor{
			Person:    setA.person[id],
			DistanceA: distA,
			DistanceB: distB,
		})
	}
	return found, nil
}

// PivotAncestor finds the common ancestor on an already computed path.
// The path must climb only Parent edges to the pivot and then descend only
// Child edges; anything else, including a path through a spouse edge or a
// purely monotonic path, yields nil.
func PivotAncestor(path []entities.PathStep) *entities.CommonAncestor {
	edges := len(path) - 1
	if edges < 2 {
		return nil
	}

	pivot := 0
	for pivot < edges && path[pivot+1].Via == entities.EdgeParent {
		pivot++
	}
	if pivot == 0 || pivot == edges {
		return nil
	}
	for i := pivot + 1; i <= edges; i++ {
		if path[i].Via != entities.EdgeChild {
			return nil
		}
	}

	return &entities.CommonAncestor{
		Person:    path[pivot].Person,
		DistanceA: pivot,
		DistanceB: edges - pivot,
	}
}
