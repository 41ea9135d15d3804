package cache

import (
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/foldcache/internal/util"
)

// fold is an independent partition of the cache: three parallel slot arrays
// (key, value and hit cells at the same index) plus one write mutex.
//
// Readers never take mu. They rely on the publication order enforced by the
// writers: value and hit cells are stored BEFORE a non-zero key is published,
// and a reused slot passes through key 0 first. A reader that observes the
// same non-zero key before and after its value load has therefore read the
// value that was paired with that key.
//
// Sizing: each array of a fold should span a small multiple of a CPU cache
// line, so the scans below are effectively O(1) wall-clock. The facade's
// defaults aim for that.
type fold struct {
	// ---- write path (guarded by mu) ----
	// All lock holders unlock via defer, so a panicking OnEvict callback
	// releases the lock and the next writer proceeds; the slot arrays are
	// kept consistent at every point where a callback may fire.
	mu sync.Mutex

	// ---- slot arrays (shared with lock-free readers) ----
	keys []atomic.Int64  // 0 = free slot; the key cell is the publication point
	vals []atomic.Int64  // meaningful only while the same non-zero key is observed
	hits []atomic.Uint32 // usage hint driving eviction; saturating

	// live counts non-zero keys. Mutated only by the lock holder, read
	// without the lock by Len; it never exceeds len(keys).
	live atomic.Int32

	ops Atomics
	opt *Options

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	gets   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// newFold allocates a fold with the given slot count. Slots are created once
// here and never deallocated.
func newFold(slots int, opt *Options) *fold {
	return &fold{
		keys: make([]atomic.Int64, slots),
		vals: make([]atomic.Int64, slots),
		hits: make([]atomic.Uint32, slots),
		ops:  opt.Atomics,
		opt:  opt,
	}
}

// Get scans the key cells for k without taking the lock.
//
// On a candidate match the value is loaded and the key re-checked. If the
// re-check fails the slot was concurrently cleared or reused: retry the pair
// once, then give up on this slot and keep scanning. The caller guarantees
// k != 0 (a zero key would "match" every free slot).
func (f *fold) Get(k int64) (int64, bool) {
	ops := f.ops
	for i := range f.keys {
		if ops.LoadKey(&f.keys[i]) != k {
			continue
		}
		v := ops.LoadValue(&f.vals[i])
		if ops.LoadKey(&f.keys[i]) != k {
			// Slot reused mid-read. One retry of the value/key pair.
			v = ops.LoadValue(&f.vals[i])
			if ops.LoadKey(&f.keys[i]) != k {
				continue
			}
		}
		ops.BumpHits(&f.hits[i])
		f.gets.Add(1)
		f.opt.Metrics.Hit()
		return v, true
	}
	f.misses.Add(1)
	f.opt.Metrics.Miss()
	return 0, false
}

// Put inserts or updates k→v under the fold lock.
//
// Three scans, in order: update an existing slot in place, claim a free
// slot, or evict the minimum-hits victim and reuse its slot.
func (f *fold) Put(k, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops := f.ops

	// Scan 1 — update existing. The key cell already holds k, so storing
	// the value is enough; concurrent readers see either the old or the
	// new value, both published for k.
	for i := range f.keys {
		if ops.LoadKey(&f.keys[i]) == k {
			ops.StoreValue(&f.vals[i], v)
			ops.BumpHits(&f.hits[i])
			return
		}
	}

	// Scan 2 — claim a free slot.
	for i := range f.keys {
		if ops.LoadKey(&f.keys[i]) == 0 {
			f.publish(i, k, v)
			f.live.Add(1)
			return
		}
	}

	// Scan 3 — all slots live: evict the coldest, lowest index among ties.
	victim := 0
	coldest := ops.LoadHits(&f.hits[0])
	for i := 1; i < len(f.hits); i++ {
		if h := ops.LoadHits(&f.hits[i]); h < coldest {
			coldest, victim = h, i
		}
	}

	oldKey := ops.LoadKey(&f.keys[victim])
	oldVal := ops.LoadValue(&f.vals[victim])

	// Clear-then-publish: readers searching for oldKey observe either the
	// old entry or a free slot, never oldKey paired with the new value.
	ops.PublishKey(&f.keys[victim], 0)
	ops.StoreHits(&f.hits[victim], 0)
	f.live.Add(-1)

	f.evicts.Add(1)
	f.opt.Metrics.Evict(EvictCapacity)
	if cb := f.opt.OnEvict; cb != nil {
		// May panic; the slot is already consistent (free) at this point.
		cb(oldKey, oldVal, EvictCapacity)
	}

	f.publish(victim, k, v)
	f.live.Add(1)
}

// publish writes the value and hit cells, then the key. The key store is the
// publication point; it must come last. Lock must be held and slot i free.
func (f *fold) publish(i int, k, v int64) {
	f.ops.StoreValue(&f.vals[i], v)
	f.ops.StoreHits(&f.hits[i], 1)
	f.ops.PublishKey(&f.keys[i], k)
}

// Remove deletes k if present. Returns true if the entry existed.
func (f *fold) Remove(k int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops := f.ops
	for i := range f.keys {
		if ops.LoadKey(&f.keys[i]) == k {
			ops.PublishKey(&f.keys[i], 0)
			ops.StoreHits(&f.hits[i], 0)
			f.live.Add(-1)
			return true
		}
	}
	return false
}

// Len returns the number of resident entries in this fold without locking.
func (f *fold) Len() int {
	return int(f.live.Load())
}

// Snapshot lists the fold's live entries under the lock.
func (f *fold) Snapshot() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops := f.ops
	out := make([]Entry, 0, f.live.Load())
	for i := range f.keys {
		k := ops.LoadKey(&f.keys[i])
		if k == 0 {
			continue
		}
		out = append(out, Entry{
			Key:   k,
			Value: ops.LoadValue(&f.vals[i]),
			Hits:  ops.LoadHits(&f.hits[i]),
		})
	}
	return out
}

// Age halves every hit counter under the lock. Live slots keep a floor of 1
// so an aged entry still ranks above a freshly cleared slot.
func (f *fold) Age() {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops := f.ops
	for i := range f.hits {
		if ops.LoadKey(&f.keys[i]) == 0 {
			continue
		}
		h := ops.LoadHits(&f.hits[i]) / 2
		if h == 0 {
			h = 1
		}
		ops.StoreHits(&f.hits[i], h)
	}
}
