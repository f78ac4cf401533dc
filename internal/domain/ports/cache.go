package ports

import "context"

// LoadFunc computes a value on a cache miss.
type LoadFunc func(ctx context.Context) (any, error)

// TraversalCache holds computed traversal results across requests.
// Entries are tagged with the tree scope they were computed in so that a
// mutation of one tree drops only that tree's results.
type TraversalCache interface {
	// GetOrLoad returns the cached value for key or computes it with load.
	// Errors from load are returned and never cached.
	GetOrLoad(ctx context.Context, scope, key string, load LoadFunc) (any, error)

	// InvalidateScope drops every entry tagged with scope.
	InvalidateScope(scope string)
}
