package entities

// TreeNode is one person in a pedigree, descendant or hourglass view.
// Parents and Children hold the expanded neighbours; Unions lists partners only.
type TreeNode struct {
	Person             Person      `json:"person"`
	Depth              int         `json:"depth"`
	Parents            []*TreeNode `json:"parents,omitempty"`
	Children           []*TreeNode `json:"children,omitempty"`
	Unions             []UnionNode `json:"unions,omitempty"`
	HasMoreAncestors   bool        `json:"has_more_ancestors"`
	HasMoreDescendants bool        `json:"has_more_descendants"`
	// Repeated marks a person already placed elsewhere in the same build
	// (a diamond). Its neighbours are not expanded again.
	Repeated bool `json:"repeated,omitempty"`
}

// UnionNode describes a union of the node's person and who else is in it.
type UnionNode struct {
	UnionID  string     `json:"union_id"`
	Type     UnionType  `json:"type"`
	Start    *FuzzyDate `json:"start,omitempty"`
	End      *FuzzyDate `json:"end,omitempty"`
	Partners []Person   `json:"partners"`
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *TreeNode) Clone() *TreeNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Parents != nil {
		c.Parents = make([]*TreeNode, len(n.Parents))
		for i, p := range n.Parents {
			c.Parents[i] = p.Clone()
		}
	}
	if n.Children != nil {
		c.Children = make([]*TreeNode, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	if n.Unions != nil {
		c.Unions = make([]UnionNode, len(n.Unions))
		for i, u := range n.Unions {
			u.Partners = append([]Person(nil), u.Partners...)
			c.Unions[i] = u
		}
	}
	return &c
}

// Walk calls fn for n and every node below it, parents before children.
func (n *TreeNode) Walk(fn func(*TreeNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, p := range n.Parents {
		p.Walk(fn)
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FamilyGroup is the immediate family of a person.
type FamilyGroup struct {
	Person   Person      `json:"person"`
	Parents  []Relative  `json:"parents"`
	Spouses  []UnionNode `json:"spouses"`
	Children []Relative  `json:"children"`
}
