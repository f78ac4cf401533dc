package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// TraversalLimits bounds the read operations.
type TraversalLimits struct {
	PedigreeDepth    int
	DescendantDepth  int
	HourglassDepth   int
	MaxGenerations   int
	MaxSearchDepth   int
	MaxAncestorDepth int
}

// DefaultTraversalLimits returns the limits used when none are configured.
func DefaultTraversalLimits() TraversalLimits {
	return TraversalLimits{
		PedigreeDepth:    DefaultPedigreeDepth,
		DescendantDepth:  DefaultDescendantDepth,
		HourglassDepth:   DefaultHourglassDepth,
		MaxGenerations:   10,
		MaxSearchDepth:   DefaultMaxSearchDepth,
		MaxAncestorDepth: DefaultMaxAncestorDepth,
	}
}

// defaultDepth returns the configured default generations for mode.
func (l TraversalLimits) defaultDepth(mode HierarchyMode) int {
	switch mode {
	case ModeDescendants:
		return l.DescendantDepth
	case ModeHourglass:
		return l.HourglassDepth
	default:
		return l.PedigreeDepth
	}
}

// GenealogyOption configures a GenealogyService.
type GenealogyOption func(*GenealogyService)

// WithCache sets the traversal cache.
func WithCache(cache ports.TraversalCache) GenealogyOption {
	return func(s *GenealogyService) { s.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GenealogyOption {
	return func(s *GenealogyService) { s.logger = logger }
}

// WithLimits sets the traversal limits.
func WithLimits(limits TraversalLimits) GenealogyOption {
	return func(s *GenealogyService) { s.limits = limits }
}

// GenealogyService exposes the read operations over a family graph.
// Every operation checks that the persons it starts from belong to the
// caller's scope before traversing.
type GenealogyService struct {
	reader   ports.GraphReader
	builder  *HierarchyBuilder
	finder   *PathFinder
	resolver *AncestorResolver
	cache    ports.TraversalCache
	logger   *slog.Logger
	limits   TraversalLimits
}

// NewGenealogyService creates a new GenealogyService.
func NewGenealogyService(reader ports.GraphReader, opts ...GenealogyOption) *GenealogyService {
	s := &GenealogyService{
		reader: reader,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		limits: DefaultTraversalLimits(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = NewHierarchyBuilder(reader)
	s.finder = NewPathFinder(reader)
	s.resolver = NewAncestorResolver(reader, s.limits.MaxAncestorDepth)
	return s
}

// GetPedigree returns the ancestor tree of personID.
func (s *GenealogyService) GetPedigree(ctx context.Context, scope entities.Scope, personID string, generations int) (*entities.TreeNode, error) {
	return s.GetTree(ctx, scope, personID, ModePedigree, generations)
}

// GetDescendants returns the descendant tree of personID.
func (s *GenealogyService) GetDescendants(ctx context.Context, scope entities.Scope, personID string, generations int) (*entities.TreeNode, error) {
	return s.GetTree(ctx, scope, personID, ModeDescendants, generations)
}

// GetHourglass returns the combined ancestor and descendant tree of personID.
func (s *GenealogyService) GetHourglass(ctx context.Context, scope entities.Scope, personID string, generations int) (*entities.TreeNode, error) {
	return s.GetTree(ctx, scope, personID, ModeHourglass, generations)
}

// GetTree builds the tree of the given mode. Zero generations uses the mode's
// default; negative values or values above MaxGenerations are rejected.
func (s *GenealogyService) GetTree(ctx context.Context, scope entities.Scope, personID string, mode HierarchyMode, generations int) (node *entities.TreeNode, err error) {
	op := "tree." + string(mode)
	ctx, finish := startOp(ctx, op,
		attribute.String("tree_id", scope.TreeID),
		attribute.String("person_id", personID),
		attribute.Int("generations", generations),
	)
	defer func() { finish(err) }()

	if generations == 0 {
		generations = s.limits.defaultDepth(mode)
	}
	if generations < 0 || generations > s.limits.MaxGenerations {
		return nil, entities.NewValidationError("generations must be between 1 and %d, got %d", s.limits.MaxGenerations, generations)
	}

	root, err := personInScope(ctx, s.reader, scope, personID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s:%d", mode, personID, generations)
	v, err := s.cached(ctx, scope, key, func(ctx context.Context) (any, error) {
		return s.builder.Build(ctx, mode, root, generations)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "tree build failed", "mode", mode, "person_id", personID, "error", err)
		return nil, entities.Classify(op, err)
	}

	node = v.(*entities.TreeNode).Clone()
	s.logger.DebugContext(ctx, "tree built", "mode", mode, "person_id", personID, "generations", generations)
	return node, nil
}

// GetFamilyGroup returns a person's parents, unions and children.
func (s *GenealogyService) GetFamilyGroup(ctx context.Context, scope entities.Scope, personID string) (group *entities.FamilyGroup, err error) {
	ctx, finish := startOp(ctx, "family_group",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("person_id", personID),
	)
	defer func() { finish(err) }()

	person, err := personInScope(ctx, s.reader, scope, personID)
	if err != nil {
		return nil, err
	}

	parents, err := s.reader.FindParents(ctx, personID)
	if err != nil {
		return nil, entities.Classify("family_group", fmt.Errorf("finding parents: %w", err))
	}
	spouses, err := unionNodes(ctx, s.reader, personID)
	if err != nil {
		return nil, entities.Classify("family_group", err)
	}
	children, err := s.reader.FindChildren(ctx, personID)
	if err != nil {
		return nil, entities.Classify("family_group", fmt.Errorf("finding children: %w", err))
	}

	return &entities.FamilyGroup{
		Person:   *person,
		Parents:  nonNil(parents),
		Spouses:  nonNil(spouses),
		Children: nonNil(children),
	}, nil
}

// GetRelationship classifies the blood relationship of a to b through their
// nearest common ancestors. No shared ancestor is a normal result of type
// none with BloodRelated=false.
func (s *GenealogyService) GetRelationship(ctx context.Context, scope entities.Scope, personA, personB string) (rel *entities.Relationship, err error) {
	ctx, finish := startOp(ctx, "relationship",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("person_a", personA),
		attribute.String("person_b", personB),
	)
	defer func() { finish(err) }()

	a, err := personInScope(ctx, s.reader, scope, personA)
	if err != nil {
		return nil, err
	}
	b, err := personInScope(ctx, s.reader, scope, personB)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("relationship:%s:%s", a.ID, b.ID)
	v, err := s.cached(ctx, scope, key, func(ctx context.Context) (any, error) {
		return s.relationship(ctx, a, b)
	})
	if err != nil {
		return nil, entities.Classify("relationship", err)
	}

	cp := *v.(*entities.Relationship)
	cp.CommonAncestors = append([]entities.CommonAncestor{}, cp.CommonAncestors...)
	return &cp, nil
}

func (s *GenealogyService) relationship(ctx context.Context, a, b *entities.Person) (*entities.Relationship, error) {
	common, err := s.resolver.NearestCommon(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if len(common) == 0 {
		return &entities.Relationship{
			Type:            entities.KinshipNone,
			Description:     NoBloodRelation,
			CommonAncestors: []entities.CommonAncestor{},
		}, nil
	}

	nearest := common[0]
	kin := Classify(nearest.DistanceA, nearest.DistanceB)
	return &entities.Relationship{
		Type:            kin.Type,
		Description:     kin.Label,
		CommonAncestors: common,
		BloodRelated:    true,
	}, nil
}

// FindRelationshipPath finds the shortest path from a to b across parent,
// child and spouse edges. Zero maxDepth uses the configured search depth.
func (s *GenealogyService) FindRelationshipPath(ctx context.Context, scope entities.Scope, personA, personB string, maxDepth int) (path *entities.RelationshipPath, err error) {
	ctx, finish := startOp(ctx, "path",
		attribute.String("tree_id", scope.TreeID),
		attribute.String("person_a", personA),
		attribute.String("person_b", personB),
		attribute.Int("max_depth", maxDepth),
	)
	defer func() { finish(err) }()

	if maxDepth == 0 {
		maxDepth = s.limits.MaxSearchDepth
	}
	if maxDepth < 0 || maxDepth > s.limits.MaxSearchDepth {
		return nil, entities.NewValidationError("max depth must be between 1 and %d, got %d", s.limits.MaxSearchDepth, maxDepth)
	}

	a, err := personInScope(ctx, s.reader, scope, personA)
	if err != nil {
		return nil, err
	}
	b, err := personInScope(ctx, s.reader, scope, personB)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("path:%s:%s:%d", a.ID, b.ID, maxDepth)
	v, err := s.cached(ctx, scope, key, func(ctx context.Context) (any, error) {
		return s.finder.FindPath(ctx, a, b, maxDepth)
	})
	if err != nil {
		return nil, entities.Classify("path", err)
	}

	result := clonePath(v.(*entities.RelationshipPath))
	s.logger.DebugContext(ctx, "path search finished",
		"person_a", a.ID, "person_b", b.ID, "found", result.PathFound, "edges", result.EdgeCount())
	return result, nil
}

// cached consults the traversal cache when one is configured.
func (s *GenealogyService) cached(ctx context.Context, scope entities.Scope, key string, load ports.LoadFunc) (any, error) {
	if s.cache == nil {
		return load(ctx)
	}

	hit := true
	v, err := s.cache.GetOrLoad(ctx, scope.TreeID, key, func(ctx context.Context) (any, error) {
		hit = false
		return load(ctx)
	})
	switch {
	case err != nil:
		cacheRequests.WithLabelValues("error").Inc()
	case hit:
		cacheRequests.WithLabelValues("hit").Inc()
	default:
		cacheRequests.WithLabelValues("miss").Inc()
	}
	return v, err
}

func clonePath(p *entities.RelationshipPath) *entities.RelationshipPath {
	cp := *p
	cp.Path = append([]entities.PathStep{}, p.Path...)
	cp.Links = append([]entities.PathLink{}, p.Links...)
	cp.CommonAncestors = append([]entities.CommonAncestor{}, p.CommonAncestors...)
	return &cp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
