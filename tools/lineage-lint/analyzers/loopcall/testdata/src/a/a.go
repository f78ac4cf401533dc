package a

import "context"

type Person struct{ ID string }

type Relative struct {
	Person Person
}

type Store interface {
	FindPersonByID(ctx context.Context, id string) (*Person, error)
	FindParents(ctx context.Context, id string) ([]Relative, error)
	FindEdgeByID(ctx context.Context, id string) (*Person, error)
}

func bad(ctx context.Context, ids []string, s Store) {
	for _, id := range ids {
		s.FindPersonByID(ctx, id) // want "potential N\\+1: FindPersonByID called inside loop"
	}
	for i := 0; i < len(ids); i++ {
		for range ids {
			s.FindEdgeByID(ctx, ids[i]) // want "potential N\\+1: FindEdgeByID called inside loop"
		}
	}
}

func good(ctx context.Context, id string, s Store) {
	// Relatives carry their records - should not flag
	rels, _ := s.FindParents(ctx, id)
	for _, r := range rels {
		_ = r.Person.ID
	}
	for _, r := range rels {
		s.FindParents(ctx, r.Person.ID)
	}
}
