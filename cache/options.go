package cache

import (
	"context"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — displaced by an insert into a full fold.
	// Explicit Remove is not reported as an eviction.
	EvictCapacity EvictReason = iota
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
}

// AutoFolds selects an automatic fold count derived from capacity and CPU
// parallelism. Any negative Folds value means the same thing.
const AutoFolds = -1

// Options configures the cache behavior. Nil fields get sane defaults
// in New():
//   - nil Hasher   => Mix64 integer mixing
//   - nil Metrics  => NoopMetrics
//   - nil Atomics  => StrictAtomics
//
// Capacity and Folds are validated, not defaulted: a zero Capacity and a
// zero Folds are both rejected.
type Options struct {
	// Capacity is the total entry count limit across all folds. Required.
	Capacity int

	// Folds defines the number of folds, in [1..Capacity]. Zero is
	// rejected with ErrBadFoldCount; pass AutoFolds to let the cache pick.
	// Many small folds keep every scan within a few cache lines; one large
	// fold degenerates to a full linear scan and is supported but not
	// recommended.
	Folds int

	// Hasher maps a key to a 64-bit hash used for fold routing.
	// Nil selects util.Mix64. The facade reduces the hash modulo the
	// fold count.
	Hasher func(k int64) uint64

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k int64) (int64, error)

	// OnEvict is called for every capacity eviction, under the fold lock;
	// keep callbacks lightweight.
	OnEvict func(k, v int64, reason EvictReason)

	// Metrics receives Hit/Miss/Evict signals.
	Metrics Metrics

	// Atomics substitutes the slot-level cell operations (instrumentation,
	// stress harnesses). Nil => StrictAtomics.
	Atomics Atomics
}
