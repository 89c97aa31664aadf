package ports

import "context"

// ResultCache stores encoded analysis results.
// Entries are derived data: losing one only costs a recomputation.
type ResultCache interface {
	// Get returns the cached value or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value []byte) error
}
