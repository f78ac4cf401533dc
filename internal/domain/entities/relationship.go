package entities

import (
	"fmt"
	"strings"
	"time"
)

// ParentKind defines the nature of a parent-child link.
type ParentKind string

const (
	ParentBiological ParentKind = "biological"
	ParentAdoptive   ParentKind = "adoptive"
	ParentStep       ParentKind = "step"
	ParentFoster     ParentKind = "foster"
)

// ValidParentKinds lists all valid parent kind strings.
var ValidParentKinds = []string{"biological", "adoptive", "step", "foster"}

// ParseParentKind validates and converts a string to ParentKind.
// Empty input defaults to biological.
func ParseParentKind(s string) (ParentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "biological":
		return ParentBiological, nil
	case "adoptive":
		return ParentAdoptive, nil
	case "step":
		return ParentStep, nil
	case "foster":
		return ParentFoster, nil
	default:
		return "", fmt.Errorf("invalid parent kind: %s (valid: %s)", s, strings.Join(ValidParentKinds, ", "))
	}
}

// ParentChild is a directed edge from a parent to a child.
// Edges are never physically removed; DeletedAt marks a soft delete.
type ParentChild struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parent_id"`
	ChildID   string     `json:"child_id"`
	Kind      ParentKind `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the edge has not been soft-deleted.
func (e *ParentChild) IsActive() bool {
	return e.DeletedAt == nil
}

// Relative pairs a person with the edge that connects them to the queried person.
// FindParents returns the parent side, FindChildren the child side.
type Relative struct {
	Person Person      `json:"person"`
	Edge   ParentChild `json:"edge"`
}
