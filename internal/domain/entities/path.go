package entities

import "fmt"

// PathEdgeKind is the kind of edge a relationship-path step arrived by.
type PathEdgeKind int

const (
	// EdgeNone marks the first step of a path.
	EdgeNone PathEdgeKind = iota
	// EdgeParent moves from a person to one of their parents.
	EdgeParent
	// EdgeChild moves from a person to one of their children.
	EdgeChild
	// EdgeSpouse moves between co-members of a union.
	EdgeSpouse
)

// String returns the lowercase name of the kind.
func (k PathEdgeKind) String() string {
	switch k {
	case EdgeNone:
		return "none"
	case EdgeParent:
		return "parent"
	case EdgeChild:
		return "child"
	case EdgeSpouse:
		return "spouse"
	default:
		return fmt.Sprintf("PathEdgeKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k PathEdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StepLabel names the person reached by an edge of kind k, relative to the
// person the edge left from. The sex is that of the person reached.
func (k PathEdgeKind) StepLabel(reached Sex) (string, error) {
	switch k {
	case EdgeParent:
		switch reached {
		case SexMale:
			return "father of", nil
		case SexFemale:
			return "mother of", nil
		default:
			return "parent of", nil
		}
	case EdgeChild:
		switch reached {
		case SexMale:
			return "son of", nil
		case SexFemale:
			return "daughter of", nil
		default:
			return "child of", nil
		}
	case EdgeSpouse:
		return "spouse of", nil
	case EdgeNone:
		return "", fmt.Errorf("edge kind %s has no label", k)
	default:
		return "", fmt.Errorf("unknown edge kind %d", int(k))
	}
}

// PathStep is one person on a relationship path.
type PathStep struct {
	Person Person       `json:"person"`
	Via    PathEdgeKind `json:"via"`
}

// PathLink labels the hop between two consecutive path steps.
// Label reads "<To> is <Label> <From>", e.g. "Anna is mother of Ben".
type PathLink struct {
	FromID string       `json:"from_id"`
	ToID   string       `json:"to_id"`
	Kind   PathEdgeKind `json:"kind"`
	Label  string       `json:"label"`
}

// CommonAncestor is a shared ancestor and its generation distance from each
// of the two people being compared.
type CommonAncestor struct {
	Person    Person `json:"person"`
	DistanceA int    `json:"distance_a"`
	DistanceB int    `json:"distance_b"`
}

// RelationshipPath is the result of a shortest-path search between two people.
// PathFound=false is a normal result, explained by Message.
type RelationshipPath struct {
	PathFound         bool             `json:"path_found"`
	Path              []PathStep       `json:"path"`
	Links             []PathLink       `json:"links"`
	RelationshipLabel string           `json:"relationship_label"`
	CommonAncestors   []CommonAncestor `json:"common_ancestors"`
	BloodRelated      bool             `json:"blood_related"`
	Message           string           `json:"message,omitempty"`
}

// EdgeCount returns the number of hops in the path.
func (p *RelationshipPath) EdgeCount() int {
	if len(p.Path) == 0 {
		return 0
	}
	return len(p.Path) - 1
}

// KinshipType is the family of a kinship label.
type KinshipType string

const (
	KinshipSelf        KinshipType = "self"
	KinshipAncestor    KinshipType = "ancestor"
	KinshipDescendant  KinshipType = "descendant"
	KinshipSibling     KinshipType = "sibling"
	KinshipAuntUncle   KinshipType = "aunt_uncle"
	KinshipNieceNephew KinshipType = "niece_nephew"
	KinshipCousin      KinshipType = "cousin"
	KinshipSpouse      KinshipType = "spouse"
	KinshipByMarriage  KinshipType = "by_marriage"
	KinshipNone        KinshipType = "none"
)

// Kinship is a classified relationship label.
type Kinship struct {
	Type  KinshipType `json:"type"`
	Label string      `json:"label"`
}

// Relationship is the blood relationship of person A to person B.
type Relationship struct {
	Type            KinshipType      `json:"type"`
	Description     string           `json:"description"`
	CommonAncestors []CommonAncestor `json:"common_ancestors"`
	BloodRelated    bool             `json:"blood_related"`
}
