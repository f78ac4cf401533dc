package entities

import (
	"fmt"
	"strings"
	"time"
)

// UnionType categorizes a union.
type UnionType string

const (
	UnionMarriage    UnionType = "marriage"
	UnionCivil       UnionType = "civil_union"
	UnionPartnership UnionType = "partnership"
	UnionEngagement  UnionType = "engagement"
	UnionOther       UnionType = "other"
)

// ParseUnionType validates a union type string. Empty input defaults to marriage.
func ParseUnionType(s string) (UnionType, error) {
	switch UnionType(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnionMarriage:
		return UnionMarriage, nil
	case UnionCivil:
		return UnionCivil, nil
	case UnionPartnership:
		return UnionPartnership, nil
	case UnionEngagement:
		return UnionEngagement, nil
	case UnionOther:
		return UnionOther, nil
	default:
		return "", fmt.Errorf("invalid union type: %s (valid: marriage, civil_union, partnership, engagement, other)", s)
	}
}

// Union groups one or more persons (normally two) into a partnership.
type Union struct {
	ID        string     `json:"id"`
	TreeID    string     `json:"tree_id"`
	Type      UnionType  `json:"type"`
	Start     *FuzzyDate `json:"start,omitempty"`
	End       *FuzzyDate `json:"end,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the union has not been soft-deleted.
func (u *Union) IsActive() bool {
	return u.DeletedAt == nil
}

// UnionMember links a person to a union.
type UnionMember struct {
	ID        string     `json:"id"`
	UnionID   string     `json:"union_id"`
	PersonID  string     `json:"person_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Scope is the tree a request is allowed to read and write.
// It is resolved by the caller before any traversal starts.
type Scope struct {
	TreeID string `json:"tree_id"`
}
