// Package ports defines interfaces for external service communication.
package ports

import (
	"context"
	"time"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

// GraphReader is the read side of the edge store used by traversals.
// Every method is a single fetch; traversals call it once per expansion step.
type GraphReader interface {
	// FindPersonByID finds a person by ID. Returns nil, nil when absent.
	FindPersonByID(ctx context.Context, personID string) (*entities.Person, error)

	// FindParents returns the active parent edges of a person with the parent records.
	FindParents(ctx context.Context, personID string) ([]entities.Relative, error)

	// FindChildren returns the active child edges of a person with the child records.
	FindChildren(ctx context.Context, personID string) ([]entities.Relative, error)

	// FindUnionsByPerson returns active unions the person is an active member of.
	FindUnionsByPerson(ctx context.Context, personID string) ([]entities.Union, error)

	// FindUnionMembers returns the active members of a union.
	FindUnionMembers(ctx context.Context, unionID string) ([]entities.Person, error)
}

// PersonStore persists person records.
type PersonStore interface {
	// SavePerson saves or updates a person.
	SavePerson(ctx context.Context, person *entities.Person) error

	// FindPersonByID finds a person by ID. Returns nil, nil when absent.
	FindPersonByID(ctx context.Context, personID string) (*entities.Person, error)

	// FindPersonsByName finds persons whose normalized display name equals name.
	FindPersonsByName(ctx context.Context, treeID, name string) ([]entities.Person, error)

	// ListPersons lists persons of a tree with pagination.
	ListPersons(ctx context.Context, treeID string, limit, offset int) ([]entities.Person, error)

	// SearchPersons searches persons by name pattern, including localized names.
	SearchPersons(ctx context.Context, treeID, query string, limit int) ([]entities.Person, error)

	// CountPersons returns the number of persons in a tree.
	CountPersons(ctx context.Context, treeID string) (int, error)
}

// EdgeStore persists parent-child edges.
type EdgeStore interface {
	// FindParents returns the active parent edges of a person with the parent records.
	FindParents(ctx context.Context, personID string) ([]entities.Relative, error)

	// FindChildren returns the active child edges of a person with the child records.
	FindChildren(ctx context.Context, personID string) ([]entities.Relative, error)

	// FindActiveEdge finds the active edge parent→child. Returns nil, nil when absent.
	FindActiveEdge(ctx context.Context, parentID, childID string) (*entities.ParentChild, error)

	// FindEdgeByID finds an edge, active or not. Returns nil, nil when absent.
	FindEdgeByID(ctx context.Context, edgeID string) (*entities.ParentChild, error)

	// InsertEdge inserts a new active edge. Implementations must reject, with
	// entities.ErrConstraintViolation, an insert that would break a storage
	// constraint (duplicate, cardinality, cycle) even if the caller checked first.
	InsertEdge(ctx context.Context, edge *entities.ParentChild) error

	// SoftDeleteEdge marks an active edge deleted at the given time.
	SoftDeleteEdge(ctx context.Context, edgeID string, at time.Time) error
}

// UnionStore persists unions and their membership.
type UnionStore interface {
	// SaveUnion saves or updates a union.
	SaveUnion(ctx context.Context, union *entities.Union) error

	// CreateUnion saves a new union and its memberships atomically: on error
	// neither the union nor any membership is stored.
	CreateUnion(ctx context.Context, union *entities.Union, members []entities.UnionMember) error

	// FindUnionByID finds a union. Returns nil, nil when absent.
	FindUnionByID(ctx context.Context, unionID string) (*entities.Union, error)

	// FindUnionsByPerson returns active unions the person is an active member of.
	FindUnionsByPerson(ctx context.Context, personID string) ([]entities.Union, error)

	// FindUnionMembers returns the active members of a union.
	FindUnionMembers(ctx context.Context, unionID string) ([]entities.Person, error)

	// AddUnionMember adds an active membership. A duplicate active membership
	// is rejected with entities.ErrConstraintViolation.
	AddUnionMember(ctx context.Context, member *entities.UnionMember) error

	// RemoveUnionMember soft-deletes an active membership.
	RemoveUnionMember(ctx context.Context, unionID, personID string, at time.Time) error
}

// AuditLog records graph mutations.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error

	// FindAuditLog finds audit log entries for a subject.
	FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error)
}

// GraphStore is the full edge store collaborator.
type GraphStore interface {
	// EnsureSchema creates the storage schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	PersonStore
	EdgeStore
	UnionStore
	AuditLog
}
