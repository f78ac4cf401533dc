package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// Reasons a proposed parent-child edge is rejected.
const (
	ReasonSelfEdge      = "self_edge"
	ReasonDuplicate     = "duplicate"
	ReasonMaxBiological = "max_biological_parents"
	ReasonSameSex       = "same_sex_parent"
	ReasonCycle         = "cycle"
	ReasonConstraint    = "storage_constraint"
)

// maxBiologicalParents is the number of active biological parents a child may have.
const maxBiologicalParents = 2

// Rejection explains why a proposed edge may not be written.
type Rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Err converts the rejection to a validation error.
func (r *Rejection) Err() error {
	return entities.NewValidationError("%s", r.Message)
}

// CycleGuard validates proposed parent-child edges against the current graph.
type CycleGuard struct {
	reader ports.GraphReader
}

// NewCycleGuard creates a new CycleGuard.
func NewCycleGuard(reader ports.GraphReader) *CycleGuard {
	return &CycleGuard{reader: reader}
}

// Check runs every pre-write rule for the edge parent→child of the given kind.
// It returns a Rejection for the first rule broken, or nil if the edge is allowed.
// The error return is reserved for storage failures and cancellation.
func (g *CycleGuard) Check(ctx context.Context, parent *entities.Person, childID string, kind entities.ParentKind) (*Rejection, error) {
	if parent.ID == childID {
		return &Rejection{Reason: ReasonSelfEdge, Message: "a person cannot be their own parent"}, nil
	}

	parents, err := g.reader.FindParents(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("finding parents of %s: %w", childID, err)
	}

	for i := range parents {
		if parents[i].Person.ID == parent.ID {
			return &Rejection{
				Reason:  ReasonDuplicate,
				Message: fmt.Sprintf("duplicate edge: %s is already a parent of %s", parent.DisplayName(), childID),
			}, nil
		}
	}

	if kind == entities.ParentBiological {
		if r := checkBiological(parent, parents); r != nil {
			return r, nil
		}
	}

	cycle, err := g.WouldCreateCycle(ctx, parent.ID, childID)
	if err != nil {
		return nil, err
	}
	if cycle {
		return &Rejection{
			Reason:  ReasonCycle,
			Message: fmt.Sprintf("edge would create a cycle: %s is a descendant of %s", parent.DisplayName(), childID),
		}, nil
	}
	return nil, nil
}

// checkBiological enforces the cardinality and one-per-sex rules.
func checkBiological(parent *entities.Person, existing []entities.Relative) *Rejection {
	var biological []*entities.Relative
	for i := range existing {
		if existing[i].Edge.Kind == entities.ParentBiological {
			biological = append(biological, &existing[i])
		}
	}
	if len(biological) >= maxBiologicalParents {
		return &Rejection{Reason: ReasonMaxBiological, Message: "max 2 biological parents"}
	}
	if parent.Sex == entities.SexUnknown {
		return nil
	}
	for _, rel := range biological {
		if rel.Person.Sex == parent.Sex {
			return &Rejection{
				Reason:  ReasonSameSex,
				Message: fmt.Sprintf("child already has a %s biological parent: %s", parent.Sex, rel.Person.DisplayName()),
			}
		}
	}
	return nil
}

// WouldCreateCycle reports whether adding parentCandidate→child closes a cycle.
// It walks child's descendants breadth-first along active edges and reports
// true if parentCandidate is among them.
func (g *CycleGuard) WouldCreateCycle(ctx context.Context, parentCandidate, child string) (bool, error) {
	if parentCandidate == child {
		return true, nil
	}

	visited := map[string]bool{child: true}
	queue := []string{child}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		current := queue[0]
		queue = queue[1:]

		children, err := g.reader.FindChildren(ctx, current)
		if err != nil {
			return false, fmt.Errorf("finding children of %s: %w", current, err)
		}
		for i := range children {
			id := children[i].Person.ID
			if id == parentCandidate {
				return true, nil
			}
			if visited[id] {
				continue
			}
			visited[id] = true
			queue = append(queue, id)
		}
	}
	return false, nil
}
