// Package cache provides a fixed-capacity, thread-safe int64→int64 cache
// with approximate-LRU eviction, lock-free reads, and fold-scoped write
// locks, plus optional singleflight loading and lightweight metrics hooks.
//
// Design
//
//   - Concurrency: the key space is partitioned into folds. Each fold owns
//     three parallel slot arrays (keys, values, hit counters) and one write
//     mutex. Writers on different folds never contend; readers never block
//     at all.
//
//   - Storage: slots are allocated once at construction and never freed.
//     A key cell of 0 marks a free slot, which is why the key 0 is reserved
//     and rejected by every operation.
//
//   - Publication protocol: a writer stores the value and hit cells first
//     and publishes the key last; a reused slot passes through key 0 before
//     receiving a new key. A reader loads the key, reads the value, then
//     re-checks the key: seeing the same non-zero key on both sides proves
//     the value belongs to that key. This replaces the linked-list
//     reordering of a classic LRU, which cannot be read lock-free.
//
//   - Eviction: on insert into a full fold, the live slot with the fewest
//     hits is evicted (lowest index among ties). The policy is local to the
//     fold; with many small folds the victim scan stays within a few cache
//     lines. Hit counters saturate rather than wrap; call Age to halve them
//     if decay is wanted.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict signals. By default
//     NoopMetrics is used; plug a Prometheus adapter to export metrics.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every capacity
//     eviction under the fold lock. A panicking callback releases the lock
//     (all lock holders unlock via defer) and leaves the fold consistent.
//
// Basic usage
//
//	c, err := cache.New(cache.Options{Capacity: 10_000, Folds: cache.AutoFolds})
//	if err != nil { ... }
//	c.Put(42, 1)
//	if v, ok := c.Get(42); ok {
//	    _ = v // use value
//	}
//	c.Remove(42)
//
// With GetOrLoad (singleflight)
//
//	c, _ := cache.New(cache.Options{
//	    Capacity: 1024,
//	    Folds:    cache.AutoFolds,
//	    Loader: func(ctx context.Context, k int64) (int64, error) {
//	        // e.g. fetch from DB
//	        return k * k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), 7)
//
// Exporting metrics (example Prometheus adapter)
//
//	m := prom.New(nil, "foldcache", "demo", nil) // implements Metrics
//	c, _ := cache.New(cache.Options{
//	    Capacity: 10_000,
//	    Folds:    cache.AutoFolds,
//	    Metrics:  m,
//	})
//
// Guarantees & limits
//
// A Get(k) that starts after a Put(k, v) returned observes v or a later
// value for k. There is no ordering between different keys and no global
// linearization point across folds. Len is a best-effort sum of per-fold
// counts, bounded by Capacity. Eviction approximates LRU via hit counts;
// it is not strict LRU ordering.
package cache
