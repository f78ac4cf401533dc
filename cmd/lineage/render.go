package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/lineage-core/internal/application/handlers"
	"github.com/ersonp/lineage-core/internal/domain/entities"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// lifespan renders "1900-1970", "1900-" or "" when no dates are known.
func lifespan(p *entities.Person) string {
	if p.Birth == nil && p.Death == nil {
		return ""
	}
	var b strings.Builder
	if p.Birth != nil {
		b.WriteString(p.Birth.String())
	} else {
		b.WriteString("?")
	}
	b.WriteString("-")
	if p.Death != nil {
		b.WriteString(p.Death.String())
	}
	return b.String()
}

// personLabel renders a person as "Name (lifespan) [short-id]".
func personLabel(p *entities.Person) string {
	label := p.DisplayName()
	if span := lifespan(p); span != "" {
		label += " (" + span + ")"
	}
	return label + " [" + shortID(p.ID) + "]"
}

func printPersonDetails(w io.Writer, d *handlers.PersonDetails) {
	p := d.Person
	fmt.Fprintln(w, p.DisplayName())
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "ID:    %s\n", p.ID)
	fmt.Fprintf(w, "Sex:   %s\n", p.Sex)
	if p.Birth != nil {
		fmt.Fprintf(w, "Born:  %s\n", p.Birth)
	}
	if p.Death != nil {
		fmt.Fprintf(w, "Died:  %s\n", p.Death)
	}
	if len(p.Names) > 0 {
		fmt.Fprintln(w, "Names:")
		for _, n := range p.Names {
			fmt.Fprintf(w, "  %s: %s\n", n.Locale, strings.TrimSpace(n.GivenName+" "+n.Surname))
		}
	}
	if len(d.History) > 0 {
		fmt.Fprintln(w, "History:")
		for _, h := range d.History {
			fmt.Fprintf(w, "  %s  %s\n", h.CreatedAt.Format("2006-01-02 15:04"), h.Action)
		}
	}
}

func parentRole(sex entities.Sex) string {
	switch sex {
	case entities.SexMale:
		return "father"
	case entities.SexFemale:
		return "mother"
	default:
		return "parent"
	}
}

func childRole(sex entities.Sex) string {
	switch sex {
	case entities.SexMale:
		return "son"
	case entities.SexFemale:
		return "daughter"
	default:
		return "child"
	}
}

// treeBranch is one line below a node: either a nested node or a plain label.
type treeBranch struct {
	label string
	node  *entities.TreeNode
}

func nodeLabel(n *entities.TreeNode) string {
	label := personLabel(&n.Person)
	if n.Repeated {
		label += " (repeated)"
	}
	if n.HasMoreAncestors {
		label += " [more ancestors]"
	}
	if n.HasMoreDescendants {
		label += " [more descendants]"
	}
	return label
}

func unionLabel(u entities.UnionNode) string {
	names := make([]string, 0, len(u.Partners))
	for i := range u.Partners {
		names = append(names, personLabel(&u.Partners[i]))
	}
	partners := strings.Join(names, ", ")
	if partners == "" {
		partners = "no partner recorded"
	}
	label := fmt.Sprintf("%s: %s", u.Type, partners)
	if u.Start != nil {
		label += " from " + u.Start.String()
	}
	if u.End != nil {
		label += " until " + u.End.String()
	}
	return label
}

func treeBranches(n *entities.TreeNode) []treeBranch {
	var branches []treeBranch
	for _, p := range n.Parents {
		branches = append(branches, treeBranch{label: parentRole(p.Person.Sex) + ": " + nodeLabel(p), node: p})
	}
	for _, u := range n.Unions {
		branches = append(branches, treeBranch{label: unionLabel(u)})
	}
	for _, c := range n.Children {
		branches = append(branches, treeBranch{label: childRole(c.Person.Sex) + ": " + nodeLabel(c), node: c})
	}
	return branches
}

func writeTreeNode(w io.Writer, n *entities.TreeNode, prefix string) {
	branches := treeBranches(n)
	for i, b := range branches {
		last := i == len(branches)-1
		connector, indent := "+- ", "|  "
		if last {
			connector, indent = "\\- ", "   "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, b.label)
		if b.node != nil {
			writeTreeNode(w, b.node, prefix+indent)
		}
	}
}

func printTree(w io.Writer, result *handlers.TreeResult) {
	fmt.Fprintf(w, "%s (%s)\n", nodeLabel(result.Root), result.Mode)
	writeTreeNode(w, result.Root, "")
}

func printRelatives(w io.Writer, title string, relatives []entities.Relative, role func(entities.Sex) string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(relatives) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i := range relatives {
		r := &relatives[i]
		kind := ""
		if r.Edge.Kind != entities.ParentBiological {
			kind = " (" + string(r.Edge.Kind) + ")"
		}
		fmt.Fprintf(w, "  %s: %s%s\n", role(r.Person.Sex), personLabel(&r.Person), kind)
	}
}

func printFamily(w io.Writer, fg *entities.FamilyGroup) {
	fmt.Fprintln(w, personLabel(&fg.Person))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	printRelatives(w, "Parents", fg.Parents, parentRole)
	fmt.Fprintln(w, "Unions:")
	if len(fg.Spouses) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, u := range fg.Spouses {
		fmt.Fprintf(w, "  %s\n", unionLabel(u))
	}
	printRelatives(w, "Children", fg.Children, childRole)
}

func printCommonAncestors(w io.Writer, ancestors []entities.CommonAncestor) {
	if len(ancestors) == 0 {
		return
	}
	fmt.Fprintln(w, "Common ancestors:")
	for i := range ancestors {
		ca := &ancestors[i]
		fmt.Fprintf(w, "  %s (%d/%d generations)\n", personLabel(&ca.Person), ca.DistanceA, ca.DistanceB)
	}
}

func printRelationship(w io.Writer, r *handlers.RelationshipResult) {
	fmt.Fprintf(w, "%s -> %s: %s\n", r.A.DisplayName(), r.B.DisplayName(), r.Relationship.Description)
	if r.Relationship.BloodRelated {
		fmt.Fprintln(w, "Blood related: yes")
	} else {
		fmt.Fprintln(w, "Blood related: no")
	}
	printCommonAncestors(w, r.Relationship.CommonAncestors)
}

func printPath(w io.Writer, r *handlers.PathResult) {
	path := r.Path
	if !path.PathFound {
		fmt.Fprintf(w, "No path between %s and %s: %s\n", r.A.DisplayName(), r.B.DisplayName(), path.Message)
		return
	}

	fmt.Fprintf(w, "%s -> %s: %s (%d steps)\n",
		r.A.DisplayName(), r.B.DisplayName(), path.RelationshipLabel, path.EdgeCount())

	names := make(map[string]string, len(path.Path))
	for i := range path.Path {
		names[path.Path[i].Person.ID] = path.Path[i].Person.DisplayName()
	}
	for i, link := range path.Links {
		fmt.Fprintf(w, "  %d. %s is %s %s\n", i+1, names[link.ToID], link.Label, names[link.FromID])
	}
	printCommonAncestors(w, path.CommonAncestors)
}
