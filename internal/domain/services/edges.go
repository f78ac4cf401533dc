package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// SkippedParent is a union member for whom no edge was created.
type SkippedParent struct {
	Person entities.Person `json:"person"`
	Rejection
}

// UnionChildResult reports the outcome of linking a child to every member of a union.
type UnionChildResult struct {
	Created []entities.ParentChild `json:"created"`
	Skipped []SkippedParent        `json:"skipped"`
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock locks key and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// EdgeService is the write side of the family graph. Every parent-child edge
// passes the cycle guard before it is inserted; the store's own constraints
// catch anything a concurrent writer slipped in between check and insert.
type EdgeService struct {
	store  ports.GraphStore
	guard  *CycleGuard
	cache  ports.TraversalCache
	logger *slog.Logger
	locks  *keyedMutex
	now    func() time.Time
}

// NewEdgeService creates a new EdgeService. cache and logger may be nil.
func NewEdgeService(store ports.GraphStore, cache ports.TraversalCache, logger *slog.Logger) *EdgeService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EdgeService{
		store:  store,
		guard:  NewCycleGuard(store),
		cache:  cache,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// AddParentChildEdge links parentID as a parent of childID.
// A rejected edge returns a validation error and leaves the graph unchanged.
func (s *EdgeService) AddParentChildEdge(ctx context.Context, scope entities.Scope, parentID, childID string, kind entities.ParentKind) (edge *entities.ParentChild, err error) {
	ctx, finish := startOp(ctx, "edge.add",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("parent_id", parentID),
		attribute.String("child_id", childID),
		attribute.String("kind", string(kind)),
	)
	defer func() { finish(err) }()

	parent, err := personInScope(ctx, s.store, scope, parentID)
	if err != nil {
		return nil, err
	}
	if _, err := personInScope(ctx, s.store, scope, childID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(childID)
	defer unlock()

	edge, rejection, err := s.addEdgeLocked(ctx, parent, childID, kind)
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection.Err()
	}

	s.invalidate(scope)
	return edge, nil
}

// addEdgeLocked validates and inserts one edge. The caller holds the child lock.
func (s *EdgeService) addEdgeLocked(ctx context.Context, parent *entities.Person, childID string, kind entities.ParentKind) (*entities.ParentChild, *Rejection, error) {
	rejection, err := s.guard.Check(ctx, parent, childID, kind)
	if err != nil {
		return nil, nil, entities.Classify("validating edge", err)
	}
	if rejection != nil {
		s.reject(rejection, parent.ID, childID)
		return nil, rejection, nil
	}

	edge := &entities.ParentChild{
		ID:        uuid.New().String(),
		ParentID:  parent.ID,
		ChildID:   childID,
		Kind:      kind,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertEdge(ctx, edge); err != nil {
		if errors.Is(err, entities.ErrConstraintViolation) {
			r := &Rejection{Reason: ReasonConstraint, Message: fmt.Sprintf("edge rejected by storage constraint: %v", err)}
			s.reject(r, parent.ID, childID)
			return nil, r, nil
		}
		return nil, nil, entities.Classify("inserting edge", fmt.Errorf("inserting edge: %w", err))
	}

	s.audit(ctx, entities.ActionEdgeCreated, edge.ChildID, map[string]any{
		"edge_id":   edge.ID,
		"parent_id": edge.ParentID,
		"kind":      string(edge.Kind),
	})
	s.logger.InfoContext(ctx, "edge created", "edge_id", edge.ID, "parent_id", edge.ParentID, "child_id", edge.ChildID, "kind", edge.Kind)
	return edge, nil, nil
}

// RemoveParentChildEdge soft-deletes an active edge.
func (s *EdgeService) RemoveParentChildEdge(ctx context.Context, scope entities.Scope, edgeID string) (err error) {
	ctx, finish := startOp(ctx, "edge.remove",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("edge_id", edgeID),
	)
	defer func() { finish(err) }()

	edge, err := s.store.FindEdgeByID(ctx, edgeID)
	if err != nil {
		return entities.Classify("removing edge", fmt.Errorf("finding edge: %w", err))
	}
	if edge == nil || !edge.IsActive() {
		return entities.NewNotFoundError("edge not found: %s", edgeID)
	}
	if _, err := personInScope(ctx, s.store, scope, edge.ChildID); err != nil {
		return err
	}

	unlock := s.locks.Lock(edge.ChildID)
	defer unlock()

	if err := s.removeEdgeLocked(ctx, edge); err != nil {
		return err
	}
	s.invalidate(scope)
	return nil
}

func (s *EdgeService) removeEdgeLocked(ctx context.Context, edge *entities.ParentChild) error {
	if err := s.store.SoftDeleteEdge(ctx, edge.ID, s.now()); err != nil {
		return entities.Classify("removing edge", fmt.Errorf("deleting edge: %w", err))
	}
	s.audit(ctx, entities.ActionEdgeRemoved, edge.ChildID, map[string]any{
		"edge_id":   edge.ID,
		"parent_id": edge.ParentID,
	})
	s.logger.InfoContext(ctx, "edge removed", "edge_id", edge.ID, "parent_id", edge.ParentID, "child_id", edge.ChildID)
	return nil
}

// CreateUnion creates a union with the given members.
func (s *EdgeService) CreateUnion(ctx context.Context, scope entities.Scope, unionType entities.UnionType, start, end *entities.FuzzyDate, memberIDs ...string) (union *entities.Union, err error) {
	ctx, finish := startOp(ctx, "union.create",
		attribute.String("tree_id", scope.TreeID),
		attribute.StringSlice("member_ids", memberIDs),
	)
	defer func() { finish(err) }()

	if len(memberIDs) == 0 {
		return nil, entities.NewValidationError("a union needs at least one member")
	}
	if start != nil && end != nil && end.Date.Before(start.Date) {
		return nil, entities.NewValidationError("union end %s is before start %s", end, start)
	}

	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			return nil, entities.NewValidationError("duplicate union member: %s", id)
		}
		seen[id] = true
		if _, err := personInScope(ctx, s.store, scope, id); err != nil {
			return nil, err
		}
	}

	now := s.now()
	union = &entities.Union{
		ID:        uuid.New().String(),
		TreeID:    scope.TreeID,
		Type:      unionType,
		Start:     start,
		End:       end,
		CreatedAt: now,
	}
	members := make([]entities.UnionMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, entities.UnionMember{ID: uuid.New().String(), UnionID: union.ID, PersonID: id, CreatedAt: now})
	}
	if err := s.store.CreateUnion(ctx, union, members); err != nil {
		if errors.Is(err, entities.ErrConstraintViolation) {
			return nil, entities.NewValidationError("union rejected by storage constraint: %v", err)
		}
		return nil, entities.Classify("creating union", fmt.Errorf("saving union: %w", err))
	}

	s.audit(ctx, entities.ActionUnionCreated, union.ID, map[string]any{
		"type":    string(union.Type),
		"members": memberIDs,
	})
	s.logger.InfoContext(ctx, "union created", "union_id", union.ID, "type", union.Type, "members", len(memberIDs))
	s.invalidate(scope)
	return union, nil
}

// AddUnionMember adds personID to a union.
func (s *EdgeService) AddUnionMember(ctx context.Context, scope entities.Scope, unionID, personID string) (member *entities.UnionMember, err error) {
	ctx, finish := startOp(ctx, "union.add_member",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("union_id", unionID),
		attribute.String("person_id", personID),
	)
	defer func() { finish(err) }()

	if _, err := s.unionInScope(ctx, scope, unionID); err != nil {
		return nil, err
	}
	if _, err := personInScope(ctx, s.store, scope, personID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("union:" + unionID)
	defer unlock()

	members, err := s.store.FindUnionMembers(ctx, unionID)
	if err != nil {
		return nil, entities.Classify("adding union member", fmt.Errorf("finding members: %w", err))
	}
	for _, m := range members {
		if m.ID == personID {
			return nil, entities.NewValidationError("%s is already a member of union %s", m.DisplayName(), unionID)
		}
	}

	member = &entities.UnionMember{ID: uuid.New().String(), UnionID: unionID, PersonID: personID, CreatedAt: s.now()}
	if err := s.store.AddUnionMember(ctx, member); err != nil {
		if errors.Is(err, entities.ErrConstraintViolation) {
			return nil, entities.NewValidationError("membership rejected by storage constraint: %v", err)
		}
		return nil, entities.Classify("adding union member", fmt.Errorf("adding member: %w", err))
	}

	s.audit(ctx, entities.ActionUnionMemberAdded, unionID, map[string]any{"person_id": personID})
	s.logger.InfoContext(ctx, "union member added", "union_id", unionID, "person_id", personID)
	s.invalidate(scope)
	return member, nil
}

// RemoveUnionMember removes personID from a union.
func (s *EdgeService) RemoveUnionMember(ctx context.Context, scope entities.Scope, unionID, personID string) (err error) {
	ctx, finish := startOp(ctx, "union.remove_member",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("union_id", unionID),
		attribute.String("person_id", personID),
	)
	defer func() { finish(err) }()

	if _, err := s.unionInScope(ctx, scope, unionID); err != nil {
		return err
	}

	unlock := s.locks.Lock("union:" + unionID)
	defer unlock()

	members, err := s.store.FindUnionMembers(ctx, unionID)
	if err != nil {
		return entities.Classify("removing union member", fmt.Errorf("finding members: %w", err))
	}
	if !containsPerson(members, personID) {
		return entities.NewNotFoundError("person %s is not a member of union %s", personID, unionID)
	}
	if len(members) == 1 {
		return entities.NewValidationError("cannot remove the last member of union %s", unionID)
	}

	if err := s.store.RemoveUnionMember(ctx, unionID, personID, s.now()); err != nil {
		return entities.Classify("removing union member", fmt.Errorf("removing member: %w", err))
	}

	s.audit(ctx, entities.ActionUnionMemberRemoved, unionID, map[string]any{"person_id": personID})
	s.logger.InfoContext(ctx, "union member removed", "union_id", unionID, "person_id", personID)
	s.invalidate(scope)
	return nil
}

// AddUnionChild links childID to every active member of a union. Members whose
// edge would break a rule are skipped with the reason; the others are linked.
func (s *EdgeService) AddUnionChild(ctx context.Context, scope entities.Scope, unionID, childID string, kind entities.ParentKind) (result *UnionChildResult, err error) {
	ctx, finish := startOp(ctx, "union.add_child",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("union_id", unionID),
		attribute.String("child_id", childID),
	)
	defer func() { finish(err) }()

	if _, err := s.unionInScope(ctx, scope, unionID); err != nil {
		return nil, err
	}
	if _, err := personInScope(ctx, s.store, scope, childID); err != nil {
		return nil, err
	}

	members, err := s.store.FindUnionMembers(ctx, unionID)
	if err != nil {
		return nil, entities.Classify("adding union child", fmt.Errorf("finding members: %w", err))
	}
	if len(members) == 0 {
		return nil, entities.NewValidationError("union %s has no members", unionID)
	}

	unlock := s.locks.Lock(childID)
	defer unlock()

	result = &UnionChildResult{Created: []entities.ParentChild{}, Skipped: []SkippedParent{}}
	for i := range members {
		member := &members[i]
		edge, rejection, err := s.addEdgeLocked(ctx, member, childID, kind)
		if err != nil {
			if len(result.Created) > 0 {
				s.invalidate(scope)
			}
			return nil, err
		}
		if rejection != nil {
			result.Skipped = append(result.Skipped, SkippedParent{Person: *member, Rejection: *rejection})
			continue
		}
		result.Created = append(result.Created, *edge)
	}

	if len(result.Created) > 0 {
		s.invalidate(scope)
	}
	s.logger.InfoContext(ctx, "union child linked",
		"union_id", unionID, "child_id", childID, "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}

// RemoveUnionChild soft-deletes the active edges from every union member to
// childID and returns how many were removed.
func (s *EdgeService) RemoveUnionChild(ctx context.Context, scope entities.Scope, unionID, childID string) (removed int, err error) {
	ctx, finish := startOp(ctx, "union.remove_child",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("union_id", unionID),
		attribute.String("child_id", childID),
	)
	defer func() { finish(err) }()

	if _, err := s.unionInScope(ctx, scope, unionID); err != nil {
		return 0, err
	}
	if _, err := personInScope(ctx, s.store, scope, childID); err != nil {
		return 0, err
	}

	members, err := s.store.FindUnionMembers(ctx, unionID)
	if err != nil {
		return 0, entities.Classify("removing union child", fmt.Errorf("finding members: %w", err))
	}

	unlock := s.locks.Lock(childID)
	defer unlock()

	defer func() {
		if removed > 0 {
			s.invalidate(scope)
		}
	}()
	for _, m := range members {
		edge, err := s.store.FindActiveEdge(ctx, m.ID, childID)
		if err != nil {
			return removed, entities.Classify("removing union child", fmt.Errorf("finding edge: %w", err))
		}
		if edge == nil {
			continue
		}
		if err := s.removeEdgeLocked(ctx, edge); err != nil {
			return removed, err
		}
		removed++
	}
	if removed == 0 {
		return 0, entities.NewNotFoundError("no member of union %s is a parent of %s", unionID, childID)
	}
	return removed, nil
}

// unionInScope loads an active union and checks its tree.
func (s *EdgeService) unionInScope(ctx context.Context, scope entities.Scope, unionID string) (*entities.Union, error) {
	if scope.TreeID == "" {
		return nil, entities.NewValidationError("tree scope is required")
	}
	union, err := s.store.FindUnionByID(ctx, unionID)
	if err != nil {
		return nil, entities.Classify("loading union", fmt.Errorf("finding union %s: %w", unionID, err))
	}
	if union == nil || !union.IsActive() {
		return nil, entities.NewNotFoundError("union not found: %s", unionID)
	}
	if union.TreeID != scope.TreeID {
		return nil, entities.NewForbiddenError("union %s is outside tree %s", unionID, scope.TreeID)
	}
	return union, nil
}

func (s *EdgeService) reject(r *Rejection, parentID, childID string) {
	edgeRejections.WithLabelValues(r.Reason).Inc()
	s.logger.Info("edge rejected", "reason", r.Reason, "parent_id", parentID, "child_id", childID)
}

// audit records a mutation. The write already happened, so a failure is logged only.
func (s *EdgeService) audit(ctx context.Context, action, subjectID string, details map[string]any) {
	if err := s.store.LogAction(ctx, action, subjectID, details); err != nil {
		s.logger.WarnContext(ctx, "audit log write failed", "action", action, "subject_id", subjectID, "error", err)
	}
}

func (s *EdgeService) invalidate(scope entities.Scope) {
	if s.cache != nil {
		s.cache.InvalidateScope(scope.TreeID)
	}
}

func containsPerson(persons []entities.Person, id string) bool {
	for i := range persons {
		if persons[i].ID == id {
			return true
		}
	}
	return false
}
