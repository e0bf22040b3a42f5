package ports

import (
	"context"
	"time"
)

// Cache stores encoded read-model results, diff computations mostly.
// Implementations are free to evict at any time; a miss is never an
// error.
type Cache interface {
	// Get retrieves a value; the second return reports presence
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Clear drops everything
	Clear(ctx context.Context) error
}
