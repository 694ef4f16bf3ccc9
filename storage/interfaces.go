package storage

import (
	"context"

	"github.com/candlekeep/oracle/core"
)

// TabularExecutor executes read-only statements against the structured
// monster store. Statement text is opaque to the engine: generated by the
// language model, passed through here, and on failure the error text is fed
// back into the repair prompt verbatim.
// Implementations must be thread-safe, must enforce a read-only policy, and
// must classify failures via QueryError so the retry loop can distinguish
// syntax errors, execution errors, and timeouts.
type TabularExecutor interface {
	// Execute runs a statement and returns its rows. Zero rows with a nil
	// error is a valid outcome. The context deadline bounds execution.
	Execute(ctx context.Context, statement string) (core.Rows, error)

	// Close releases the underlying store handle.
	Close() error
}

// ChunkIndex provides nearest-neighbor search over embedded lore chunks.
// The engine holds no write path to the index; population happens through
// implementation-specific repositories used by tooling and tests.
// Implementations must be thread-safe for concurrent use.
type ChunkIndex interface {
	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error)

	// Close closes the index and releases resources.
	Close() error
}
