package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

// GraphStore is an in-memory implementation of ports.GraphStore.
// It enforces the same constraints as the SQLite store so services can be
// tested against the storage backstop without a database.
type GraphStore struct {
	mu sync.Mutex

	persons     map[string]*entities.Person
	personOrder []string
	edges       []*entities.ParentChild
	unions      map[string]*entities.Union
	unionOrder  []string
	members     []*entities.UnionMember
	audit       []entities.AuditEntry

	// Err is returned by every method when set.
	Err error

	// BeforeInsertEdge runs inside InsertEdge before constraints are checked.
	// Tests use it to simulate a concurrent writer.
	BeforeInsertEdge func(edge *entities.ParentChild)

	fetches map[string]int
}

// NewGraphStore creates a new empty in-memory GraphStore.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		persons: make(map[string]*entities.Person),
		unions:  make(map[string]*entities.Union),
		fetches: make(map[string]int),
	}
}

// Fetches returns how many times method was called.
func (m *GraphStore) Fetches(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[method]
}

// ResetFetches clears the call counters.
func (m *GraphStore) ResetFetches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = make(map[string]int)
}

// EdgeCount returns the number of stored edges, active or not.
func (m *GraphStore) EdgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// ActiveEdges returns a copy of every active edge in insertion order.
func (m *GraphStore) ActiveEdges() []entities.ParentChild {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.ParentChild
	for _, e := range m.edges {
		if e.IsActive() {
			out = append(out, *e)
		}
	}
	return out
}

func (m *GraphStore) track(method string) error {
	m.fetches[method]++
	return m.Err
}

// EnsureSchema is a no-op.
func (m *GraphStore) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *GraphStore) Close() error {
	return nil
}

// Person methods.

// SavePerson saves or updates a person.
func (m *GraphStore) SavePerson(_ context.Context, p *entities.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SavePerson"); err != nil {
		return err
	}
	if _, ok := m.persons[p.ID]; !ok {
		m.personOrder = append(m.personOrder, p.ID)
	}
	cp := *p
	m.persons[p.ID] = &cp
	return nil
}

// FindPersonByID finds a person by ID.
func (m *GraphStore) FindPersonByID(_ context.Context, id string) (*entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindPersonByID"); err != nil {
		return nil, err
	}
	p, ok := m.persons[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// FindPersonsByName finds persons by normalized display name.
func (m *GraphStore) FindPersonsByName(_ context.Context, treeID, name string) ([]entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindPersonsByName"); err != nil {
		return nil, err
	}
	want := entities.NormalizeName(name)
	var out []entities.Person
	for _, id := range m.personOrder {
		p := m.persons[id]
		if p.TreeID == treeID && entities.NormalizeName(p.DisplayName()) == want {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ListPersons lists persons of a tree sorted by surname then given name.
func (m *GraphStore) ListPersons(_ context.Context, treeID string, limit, offset int) ([]entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("ListPersons"); err != nil {
		return nil, err
	}
	out := m.treePersons(treeID)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Surname != out[j].Surname {
			return out[i].Surname < out[j].Surname
		}
		return out[i].GivenName < out[j].GivenName
	})
	if offset >= len(out) {
		return []entities.Person{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// SearchPersons matches query as a substring of primary or localized names.
func (m *GraphStore) SearchPersons(_ context.Context, treeID, query string, limit int) ([]entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SearchPersons"); err != nil {
		return nil, err
	}
	q := entities.NormalizeName(query)
	var out []entities.Person
	for _, p := range m.treePersons(treeID) {
		if personMatches(&p, q) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func personMatches(p *entities.Person, q string) bool {
	if strings.Contains(entities.NormalizeName(p.DisplayName()), q) {
		return true
	}
	for _, n := range p.Names {
		if strings.Contains(entities.NormalizeName(n.GivenName+" "+n.Surname), q) {
			return true
		}
	}
	return false
}

// CountPersons returns the number of persons in a tree.
func (m *GraphStore) CountPersons(_ context.Context, treeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("CountPersons"); err != nil {
		return 0, err
	}
	return len(m.treePersons(treeID)), nil
}

func (m *GraphStore) treePersons(treeID string) []entities.Person {
	var out []entities.Person
	for _, id := range m.personOrder {
		if p := m.persons[id]; p.TreeID == treeID {
			out = append(out, *p)
		}
	}
	return out
}

// Edge methods.

// FindParents returns active parent edges of a person in insertion order.
func (m *GraphStore) FindParents(_ context.Context, personID string) ([]entities.Relative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindParents"); err != nil {
		return nil, err
	}
	var out []entities.Relative
	for _, e := range m.edges {
		if e.IsActive() && e.ChildID == personID {
			if p, ok := m.persons[e.ParentID]; ok {
				out = append(out, entities.Relative{Person: *p, Edge: *e})
			}
		}
	}
	return out, nil
}

// FindChildren returns active child edges of a person in insertion order.
func (m *GraphStore) FindChildren(_ context.Context, personID string) ([]entities.Relative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindChildren"); err != nil {
		return nil, err
	}
	var out []entities.Relative
	for _, e := range m.edges {
		if e.IsActive() && e.ParentID == personID {
			if c, ok := m.persons[e.ChildID]; ok {
				out = append(out, entities.Relative{Person: *c, Edge: *e})
			}
		}
	}
	return out, nil
}

// FindActiveEdge finds the active edge parent→child.
func (m *GraphStore) FindActiveEdge(_ context.Context, parentID, childID string) (*entities.ParentChild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindActiveEdge"); err != nil {
		return nil, err
	}
	if e := m.activeEdge(parentID, childID); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

// FindEdgeByID finds an edge by ID.
func (m *GraphStore) FindEdgeByID(_ context.Context, id string) (*entities.ParentChild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindEdgeByID"); err != nil {
		return nil, err
	}
	for _, e := range m.edges {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

// InsertEdge inserts an edge after checking storage constraints.
func (m *GraphStore) InsertEdge(_ context.Context, edge *entities.ParentChild) error {
	if m.BeforeInsertEdge != nil {
		m.BeforeInsertEdge(edge)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("InsertEdge"); err != nil {
		return err
	}
	if err := m.checkEdge(edge); err != nil {
		return err
	}
	cp := *edge
	m.edges = append(m.edges, &cp)
	return nil
}

func (m *GraphStore) checkEdge(edge *entities.ParentChild) error {
	if edge.ParentID == edge.ChildID {
		return fmt.Errorf("self edge: %w", entities.ErrConstraintViolation)
	}
	if m.activeEdge(edge.ParentID, edge.ChildID) != nil {
		return fmt.Errorf("duplicate edge: %w", entities.ErrConstraintViolation)
	}
	if edge.Kind == entities.ParentBiological {
		parent := m.persons[edge.ParentID]
		count := 0
		for _, e := range m.edges {
			if !e.IsActive() || e.ChildID != edge.ChildID || e.Kind != entities.ParentBiological {
				continue
			}
			count++
			other := m.persons[e.ParentID]
			if parent != nil && other != nil && parent.Sex != entities.SexUnknown && other.Sex == parent.Sex {
				return fmt.Errorf("same-sex biological parent: %w", entities.ErrConstraintViolation)
			}
		}
		if count >= 2 {
			return fmt.Errorf("biological parent limit: %w", entities.ErrConstraintViolation)
		}
	}
	if m.reachable(edge.ChildID, edge.ParentID) {
		return fmt.Errorf("cycle: %w", entities.ErrConstraintViolation)
	}
	return nil
}

// reachable reports whether to is a descendant of from via active edges.
func (m *GraphStore) reachable(from, to string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range m.edges {
			if !e.IsActive() || e.ParentID != cur || seen[e.ChildID] {
				continue
			}
			if e.ChildID == to {
				return true
			}
			seen[e.ChildID] = true
			queue = append(queue, e.ChildID)
		}
	}
	return false
}

func (m *GraphStore) activeEdge(parentID, childID string) *entities.ParentChild {
	for _, e := range m.edges {
		if e.IsActive() && e.ParentID == parentID && e.ChildID == childID {
			return e
		}
	}
	return nil
}

// SoftDeleteEdge marks an active edge deleted.
func (m *GraphStore) SoftDeleteEdge(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SoftDeleteEdge"); err != nil {
		return err
	}
	for _, e := range m.edges {
		if e.ID == id && e.IsActive() {
			t := at
			e.DeletedAt = &t
			return nil
		}
	}
	return fmt.Errorf("edge not found: %s", id)
}

// Union methods.

// SaveUnion saves or updates a union.
func (m *GraphStore) SaveUnion(_ context.Context, u *entities.Union) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SaveUnion"); err != nil {
		return err
	}
	if _, ok := m.unions[u.ID]; !ok {
		m.unionOrder = append(m.unionOrder, u.ID)
	}
	cp := *u
	m.unions[u.ID] = &cp
	return nil
}

// CreateUnion saves a union and its memberships, or nothing when a member is
// unknown or listed twice.
func (m *GraphStore) CreateUnion(_ context.Context, u *entities.Union, members []entities.UnionMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("CreateUnion"); err != nil {
		return err
	}
	if _, ok := m.unions[u.ID]; ok {
		return fmt.Errorf("union %s exists: %w", u.ID, entities.ErrConstraintViolation)
	}
	seen := make(map[string]bool, len(members))
	for _, mem := range members {
		if _, ok := m.persons[mem.PersonID]; !ok {
			return fmt.Errorf("unknown person %s: %w", mem.PersonID, entities.ErrConstraintViolation)
		}
		if seen[mem.PersonID] {
			return fmt.Errorf("duplicate membership: %w", entities.ErrConstraintViolation)
		}
		seen[mem.PersonID] = true
	}

	m.unionOrder = append(m.unionOrder, u.ID)
	cp := *u
	m.unions[u.ID] = &cp
	for _, mem := range members {
		mc := mem
		m.members = append(m.members, &mc)
	}
	return nil
}

// FindUnionByID finds a union by ID.
func (m *GraphStore) FindUnionByID(_ context.Context, id string) (*entities.Union, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindUnionByID"); err != nil {
		return nil, err
	}
	u, ok := m.unions[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// FindUnionsByPerson returns active unions with an active membership of personID.
func (m *GraphStore) FindUnionsByPerson(_ context.Context, personID string) ([]entities.Union, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindUnionsByPerson"); err != nil {
		return nil, err
	}
	var out []entities.Union
	for _, id := range m.unionOrder {
		u := m.unions[id]
		if !u.IsActive() {
			continue
		}
		for _, mem := range m.members {
			if mem.UnionID == id && mem.PersonID == personID && mem.DeletedAt == nil {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

// FindUnionMembers returns the active members of a union.
func (m *GraphStore) FindUnionMembers(_ context.Context, unionID string) ([]entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindUnionMembers"); err != nil {
		return nil, err
	}
	var out []entities.Person
	for _, mem := range m.members {
		if mem.UnionID == unionID && mem.DeletedAt == nil {
			if p, ok := m.persons[mem.PersonID]; ok {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

// AddUnionMember adds an active membership.
func (m *GraphStore) AddUnionMember(_ context.Context, member *entities.UnionMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("AddUnionMember"); err != nil {
		return err
	}
	for _, mem := range m.members {
		if mem.UnionID == member.UnionID && mem.PersonID == member.PersonID && mem.DeletedAt == nil {
			return fmt.Errorf("duplicate membership: %w", entities.ErrConstraintViolation)
		}
	}
	cp := *member
	m.members = append(m.members, &cp)
	return nil
}

// RemoveUnionMember soft-deletes an active membership.
func (m *GraphStore) RemoveUnionMember(_ context.Context, unionID, personID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("RemoveUnionMember"); err != nil {
		return err
	}
	for _, mem := range m.members {
		if mem.UnionID == unionID && mem.PersonID == personID && mem.DeletedAt == nil {
			t := at
			mem.DeletedAt = &t
			return nil
		}
	}
	return fmt.Errorf("membership not found: %s/%s", unionID, personID)
}

// Audit methods.

// LogAction appends an audit entry.
func (m *GraphStore) LogAction(_ context.Context, action, subjectID string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("LogAction"); err != nil {
		return err
	}
	m.audit = append(m.audit, entities.AuditEntry{
		ID:        int64(len(m.audit) + 1),
		Action:    action,
		SubjectID: subjectID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// FindAuditLog returns audit entries for a subject, newest first.
func (m *GraphStore) FindAuditLog(_ context.Context, subjectID string) ([]entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("FindAuditLog"); err != nil {
		return nil, err
	}
	var out []entities.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].SubjectID == subjectID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}
