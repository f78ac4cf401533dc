package entities

import "time"

// Audit actions recorded for graph mutations.
const (
	ActionEdgeCreated        = "edge.created"
	ActionEdgeRemoved        = "edge.removed"
	ActionUnionCreated       = "union.created"
	ActionUnionMemberAdded   = "union.member_added"
	ActionUnionMemberRemoved = "union.member_removed"
	ActionPersonCreated      = "person.created"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	SubjectID string         `json:"subject_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
