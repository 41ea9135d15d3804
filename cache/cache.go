package cache

import (
	"context"
	"sync/atomic"

	"github.com/IvanBrykalov/foldcache/internal/singleflight"
	"github.com/IvanBrykalov/foldcache/internal/util"
)

// Construction and argument errors. Invalid arguments are reported at the
// call site and never mutate state.
var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errorsNew("cache: no Loader provided")
	// ErrZeroCapacity is returned by New when Options.Capacity is not positive.
	ErrZeroCapacity = errorsNew("cache: Capacity must be > 0")
	// ErrBadFoldCount is returned by New when Options.Folds is zero or
	// exceeds Capacity.
	ErrBadFoldCount = errorsNew("cache: Folds must be AutoFolds or in [1..Capacity]")
	// ErrZeroKey is returned by GetOrLoad for the reserved key 0.
	ErrZeroKey = errorsNew("cache: key 0 is reserved")
)

// lightweight local errors.New to avoid importing std 'errors' everywhere
func errorsNew(s string) error { return &strErr{s} }

type strErr struct{ s string }

func (e *strErr) Error() string { return e.s }

// cache routes keys to folds. After construction it holds no shared mutable
// state of its own besides the closed flag and the GetOrLoad singleflight
// group; all Get/Put/Remove contention lives inside the folds.
type cache struct {
	folds []*fold
	hash  func(int64) uint64
	mask  uint64 // len(folds)-1 when that is a power of two; 0 => modulo routing
	cap   int

	closed atomic.Bool

	opt Options

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[int64, int64]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - nil Hasher   -> util.Mix64
//   - nil Atomics  -> StrictAtomics
//   - AutoFolds    -> fold count derived from capacity and CPU parallelism
//
// Folds must be AutoFolds (any negative value) or in [1..Capacity]; in
// particular a zero fold count is rejected, not defaulted. Capacity is
// split across folds as evenly as possible; the first Capacity mod Folds
// folds get one extra slot.
func New(opt Options) (Cache, error) {
	if opt.Capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	if opt.Folds == 0 || opt.Folds > opt.Capacity {
		return nil, ErrBadFoldCount
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Hasher == nil {
		opt.Hasher = util.Mix64
	}
	if opt.Atomics == nil {
		opt.Atomics = StrictAtomics{}
	}

	fc := opt.Folds
	if fc < 0 {
		fc = util.DefaultFoldCount(opt.Capacity)
	}

	c := &cache{
		folds: make([]*fold, fc),
		hash:  opt.Hasher,
		cap:   opt.Capacity,
		opt:   opt,
	}
	if fc&(fc-1) == 0 {
		c.mask = uint64(fc - 1)
	}
	base, rem := opt.Capacity/fc, opt.Capacity%fc
	for i := range c.folds {
		slots := base
		if i < rem {
			slots++
		}
		c.folds[i] = newFold(slots, &c.opt)
	}
	return c, nil
}

// ---- Cache implementation ----

// Get returns the value for k and a presence flag. Lock-free.
// The reserved key 0 is always a miss and does not touch any fold: a zero
// key would otherwise match every free slot.
func (c *cache) Get(k int64) (int64, bool) {
	if k == 0 || c.closed.Load() {
		return 0, false
	}
	return c.getFold(k).Get(k)
}

// Put inserts or updates k→v, evicting the target fold's minimum-hits entry
// if the fold is full. The reserved key 0 is ignored.
func (c *cache) Put(k, v int64) {
	if k == 0 || c.closed.Load() {
		return
	}
	c.getFold(k).Put(k, v)
}

// Remove deletes k if present and returns true on success.
func (c *cache) Remove(k int64) bool {
	if k == 0 || c.closed.Load() {
		return false
	}
	return c.getFold(k).Remove(k)
}

// Len returns the total number of resident entries across all folds.
// Per-fold counts are sampled without global synchronization, so the sum is
// best-effort; each count is bounded by its fold's capacity, so the total
// never exceeds Capacity().
func (c *cache) Len() int {
	total := 0
	for _, f := range c.folds {
		total += f.Len()
	}
	return total
}

// Capacity returns the entry limit fixed at construction.
func (c *cache) Capacity() int { return c.cap }

// Snapshot captures each fold under its own lock, in index order.
// The result is consistent per fold, not a global instant.
func (c *cache) Snapshot() [][]Entry {
	out := make([][]Entry, len(c.folds))
	for i, f := range c.folds {
		out[i] = f.Snapshot()
	}
	return out
}

// Stats sums the per-fold operation counters.
func (c *cache) Stats() Stats {
	var st Stats
	for _, f := range c.folds {
		st.Hits += f.gets.Load()
		st.Misses += f.misses.Load()
		st.Evictions += f.evicts.Load()
	}
	return st
}

// Age halves hit counters fold by fold. Each fold is aged under its own
// write lock; readers keep running throughout.
func (c *cache) Age() {
	for _, f := range c.folds {
		f.Age()
	}
}

// Close marks the cache as closed. Get, Put and Remove are rejected from
// then on; see Cache.Close for the methods that keep working.
func (c *cache) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache) GetOrLoad(ctx context.Context, k int64) (int64, error) {
	if k == 0 {
		return 0, ErrZeroKey
	}
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		return 0, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (int64, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Put(k, v)
		}
		return v, err
	})
}

// ---- helpers ----

// getFold picks a fold by hashing the key. Power-of-two fold counts (the
// AutoFolds case) route with the precomputed mask; others pay the modulo.
func (c *cache) getFold(k int64) *fold {
	h := c.hash(k)
	if c.mask != 0 {
		return c.folds[h&c.mask]
	}
	return c.folds[h%uint64(len(c.folds))]
}
