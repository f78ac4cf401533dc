package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

func TestCycleGuard_WouldCreateCycle_Chain(t *testing.T) {
	f := newFamily(t)
	f.male("a", "b", "c", "d")
	f.chain("a", "b", "c", "d")
	guard := NewCycleGuard(f.store)

	tests := []struct {
		name   string
		parent string
		child  string
		want   bool
	}{
		{name: "descendant as parent of root", parent: "d", child: "a", want: true},
		{name: "grandchild as parent", parent: "c", child: "a", want: true},
		{name: "direct child as parent", parent: "b", child: "a", want: true},
		{name: "self", parent: "a", child: "a", want: true},
		{name: "ancestor skipping a generation", parent: "a", child: "d", want: false},
		{name: "unrelated direction", parent: "b", child: "d", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.WouldCreateCycle(context.Background(), tt.parent, tt.child)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCycleGuard_Check_ChainRejectsCycle(t *testing.T) {
	f := newFamily(t)
	f.male("a", "b", "c", "d")
	f.chain("a", "b", "c", "d")
	guard := NewCycleGuard(f.store)

	rejection, err := guard.Check(context.Background(), f.get("d"), "a", entities.ParentBiological)

	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, ReasonCycle, rejection.Reason)
	assert.Len(t, f.store.ActiveEdges(), 3)
}

// For any acyclic graph an edge p→c is accepted iff p is not a descendant of c.
func TestCycleGuard_WouldCreateCycle_MatchesReachability(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			f := newFamily(t)

			const n = 12
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("p%02d", i)
				f.unknown(ids[i])
			}

			// edges only go from lower to higher index, so the graph is acyclic
			adj := make(map[string][]string)
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					if rng.Intn(4) == 0 {
						f.link(ids[i], ids[j], entities.ParentAdoptive)
						adj[ids[i]] = append(adj[ids[i]], ids[j])
					}
				}
			}

			guard := NewCycleGuard(f.store)
			for _, p := range ids {
				for _, c := range ids {
					got, err := guard.WouldCreateCycle(context.Background(), p, c)
					require.NoError(t, err)
					assert.Equal(t, p == c || reaches(adj, c, p), got, "%s -> %s", p, c)
				}
			}
		})
	}
}

// reaches reports whether to is reachable from from by a depth-first walk.
func reaches(adj map[string][]string, from, to string) bool {
	seen := map[string]bool{}
	var visit func(string) bool
	visit = func(id string) bool {
		for _, next := range adj[id] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				if visit(next) {
					return true
				}
			}
		}
		return false
	}
	return visit(from)
}

func TestCycleGuard_Check_Rules(t *testing.T) {
	f := newFamily(t)
	f.male("a", "d", "e")
	f.female("b")
	f.unknown("x", "y")
	f.male("c")
	f.parent("a", "c")
	f.parent("b", "c")
	f.parent("x", "y")
	guard := NewCycleGuard(f.store)

	tests := []struct {
		name       string
		parent     string
		child      string
		kind       entities.ParentKind
		wantReason string
		wantMsg    string
	}{
		{name: "third biological parent", parent: "d", child: "c", kind: entities.ParentBiological, wantReason: ReasonMaxBiological, wantMsg: "max 2 biological parents"},
		{name: "re-adding father", parent: "a", child: "c", kind: entities.ParentBiological, wantReason: ReasonDuplicate, wantMsg: "duplicate"},
		{name: "duplicate regardless of kind", parent: "a", child: "c", kind: entities.ParentStep, wantReason: ReasonDuplicate},
		{name: "self edge", parent: "c", child: "c", kind: entities.ParentBiological, wantReason: ReasonSelfEdge},
		{name: "adoptive third parent allowed", parent: "d", child: "c", kind: entities.ParentAdoptive},
		{name: "second parent beside unknown-sex parent", parent: "e", child: "y", kind: entities.ParentBiological},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejection, err := guard.Check(context.Background(), f.get(tt.parent), tt.child, tt.kind)
			require.NoError(t, err)
			if tt.wantReason == "" {
				assert.Nil(t, rejection)
				return
			}
			require.NotNil(t, rejection)
			assert.Equal(t, tt.wantReason, rejection.Reason)
			assert.Contains(t, rejection.Message, tt.wantMsg)
		})
	}
}

func TestCycleGuard_Check_SameSex(t *testing.T) {
	f := newFamily(t)
	f.male("father", "other", "child")
	f.unknown("someone")
	f.parent("father", "child")
	guard := NewCycleGuard(f.store)

	rejection, err := guard.Check(context.Background(), f.get("other"), "child", entities.ParentBiological)
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, ReasonSameSex, rejection.Reason)

	// unknown sex is never a same-sex conflict
	rejection, err = guard.Check(context.Background(), f.get("someone"), "child", entities.ParentBiological)
	require.NoError(t, err)
	assert.Nil(t, rejection)

	// the rule only applies to biological edges
	rejection, err = guard.Check(context.Background(), f.get("other"), "child", entities.ParentStep)
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCycleGuard_Check_IgnoresRemovedEdges(t *testing.T) {
	f := newFamily(t)
	f.male("a", "b", "c")
	f.parent("a", "b")
	require.NoError(t, f.store.SoftDeleteEdge(context.Background(), "a->b", f.get("a").CreatedAt))
	guard := NewCycleGuard(f.store)

	rejection, err := guard.Check(context.Background(), f.get("b"), "a", entities.ParentBiological)
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCycleGuard_WouldCreateCycle_Cancelled(t *testing.T) {
	f := newFamily(t)
	f.male("a", "b")
	f.parent("a", "b")
	guard := NewCycleGuard(f.store)

	_, err := guard.WouldCreateCycle(cancelledContext(), "b", "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCycleGuard_StoreError(t *testing.T) {
	f := newFamily(t)
	f.male("a", "b")
	f.store.Err = assert.AnError
	guard := NewCycleGuard(f.store)

	_, err := guard.Check(context.Background(), &entities.Person{ID: "a"}, "b", entities.ParentBiological)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRejection_Err(t *testing.T) {
	r := &Rejection{Reason: ReasonCycle, Message: "edge would create a cycle"}
	err := r.Err()
	assert.True(t, entities.IsCode(err, entities.CodeValidation))
	assert.Contains(t, err.Error(), "edge would create a cycle")
}
