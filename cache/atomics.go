package cache

import (
	"math"
	"sync/atomic"
)

// Atomics abstracts the slot-level cell operations a fold performs, so that
// alternative orderings or instrumentation (counting loads, injecting delays
// in stress tests) can be substituted without touching the fold algorithm.
//
// Contract:
//   - PublishKey is the publication point: a fold always stores the value
//     and hit cells BEFORE publishing a non-zero key, and always publishes
//     key 0 BEFORE reusing a slot for a different key.
//   - LoadKey on the read path pairs with PublishKey; Go atomics are
//     sequentially consistent, which covers the acquire/release pairing
//     the protocol needs.
//   - BumpHits may be called without the fold lock; everything else that
//     stores is called only by the lock holder.
type Atomics interface {
	// LoadKey reads a key cell (readers and writers).
	LoadKey(c *atomic.Int64) int64
	// PublishKey stores a key cell. Storing a non-zero key makes the slot's
	// value visible; storing zero frees the slot.
	PublishKey(c *atomic.Int64, k int64)

	// LoadValue / StoreValue access a value cell. A value read is only
	// meaningful between two LoadKey calls that returned the same non-zero key.
	LoadValue(c *atomic.Int64) int64
	StoreValue(c *atomic.Int64, v int64)

	// LoadHits / StoreHits access a hit cell. StoreHits is lock-holder only.
	LoadHits(c *atomic.Uint32) uint32
	StoreHits(c *atomic.Uint32, n uint32)
	// BumpHits increments a hit cell by one, saturating at MaxUint32.
	BumpHits(c *atomic.Uint32)
}

// StrictAtomics is the default Atomics implementation on sync/atomic.
type StrictAtomics struct{}

func (StrictAtomics) LoadKey(c *atomic.Int64) int64        { return c.Load() }
func (StrictAtomics) PublishKey(c *atomic.Int64, k int64)  { c.Store(k) }
func (StrictAtomics) LoadValue(c *atomic.Int64) int64      { return c.Load() }
func (StrictAtomics) StoreValue(c *atomic.Int64, v int64)  { c.Store(v) }
func (StrictAtomics) LoadHits(c *atomic.Uint32) uint32     { return c.Load() }
func (StrictAtomics) StoreHits(c *atomic.Uint32, n uint32) { c.Store(n) }

// BumpHits saturates instead of wrapping: a wrapped counter would make the
// hottest slot look like the coldest and get it evicted first.
func (StrictAtomics) BumpHits(c *atomic.Uint32) {
	for {
		h := c.Load()
		if h == math.MaxUint32 {
			return
		}
		if c.CompareAndSwap(h, h+1) {
			return
		}
	}
}

// Ensure StrictAtomics implements the Atomics interface at compile time.
var _ Atomics = StrictAtomics{}
