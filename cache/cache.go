// Package cache implements the fixed-capacity, direct-mapped sector cache
// that sits between the read/write engines and the block device drivers.
//
// The cache is deliberately dumb: no LRU, no write-back, no dirty tracking.
// A collision simply evicts whatever was there. This mirrors the source
// layer's design goal of bounded, predictable memory use over hit rate.
package cache

import (
	"fmt"

	bitmap "github.com/boljen/go-bitmap"

	derrors "github.com/dargueta/diskio/errors"
)

// DefaultBits is log2 of the cluster size in logical sectors. 6 means a
// cluster is 64 logical sectors, 32 KiB.
const DefaultBits = 6

// DefaultSlots is the number of entries in a cache built with New. It's
// prime, matching the source layer's collision-avoidance heuristic.
const DefaultSlots = 1021

// the two large primes used to mix a cache key into a slot index. Kept
// exact so tests can target specific slot collisions deliberately.
const (
	mixPrime1 = 524287
	mixPrime2 = 2606459
)

// Allocator produces a zeroed buffer of n bytes. It exists so tests can
// simulate allocation failure in Store without needing to exhaust real
// memory.
type Allocator func(n int) ([]byte, error)

func defaultAllocate(n int) ([]byte, error) {
	return make([]byte, n), nil
}

type entry struct {
	classID       uint32
	diskID        uint64
	clusterSector uint64
	data          []byte
	locked        bool
}

func (e *entry) occupied() bool {
	return len(e.data) > 0
}

func (e *entry) matches(classID uint32, diskID, clusterSector uint64) bool {
	return e.occupied() &&
		e.classID == classID &&
		e.diskID == diskID &&
		e.clusterSector == clusterSector
}

// Cache is a fixed-size, direct-mapped cache of sector clusters.
type Cache struct {
	bits     uint
	slots    []entry
	occupied bitmap.Bitmap
	allocate Allocator
	enabled  bool
	hits     uint64
	misses   uint64
}

// New creates a Cache holding clusters of 1<<bits logical sectors, with
// slotCount direct-mapped slots.
func New(bits uint, slotCount int) *Cache {
	return &Cache{
		bits:     bits,
		slots:    make([]entry, slotCount),
		occupied: bitmap.NewSlice(slotCount),
		allocate: defaultAllocate,
		enabled:  true,
	}
}

// NewDefault creates a Cache using DefaultBits and DefaultSlots.
func NewDefault() *Cache {
	return New(DefaultBits, DefaultSlots)
}

// SetAllocator overrides how Store allocates cluster buffers. Intended for
// tests exercising the out-of-memory path.
func (c *Cache) SetAllocator(a Allocator) {
	if a == nil {
		a = defaultAllocate
	}
	c.allocate = a
}

// SetEnabled turns caching on or off. While disabled, Fetch always misses
// and Store is a no-op; Invalidate and InvalidateAll still work. This is
// the layer's equivalent of a "--no-cache" debug switch.
func (c *Cache) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Bits reports log2 of the cluster size in logical sectors.
func (c *Cache) Bits() uint {
	return c.bits
}

// ClusterSectors returns the number of logical sectors in one cluster.
func (c *Cache) ClusterSectors() uint64 {
	return uint64(1) << c.bits
}

// ClusterBytes returns the size in bytes of one cluster (logical sectors are
// always 512 bytes).
func (c *Cache) ClusterBytes() uint64 {
	return c.ClusterSectors() << 9
}

// AlignDown rounds sector down to the start of the cluster containing it.
func (c *Cache) AlignDown(sector uint64) uint64 {
	mask := c.ClusterSectors() - 1
	return sector &^ mask
}

func (c *Cache) index(classID uint32, diskID, clusterSector uint64) int {
	clusterIndex := clusterSector >> c.bits
	mixed := uint64(classID)*mixPrime1 + diskID*mixPrime2 + clusterIndex
	return int(mixed % uint64(len(c.slots)))
}

// Fetch looks up the cluster starting at clusterSector for (classID,
// diskID). On a hit, the slot is locked (the returned slice must not be
// retained past the matching Unlock call) and the borrowed slice is
// returned together with true. On a miss, (nil, false) is returned.
func (c *Cache) Fetch(classID uint32, diskID, clusterSector uint64) ([]byte, bool) {
	if !c.enabled {
		c.misses++
		return nil, false
	}

	idx := c.index(classID, diskID, clusterSector)
	e := &c.slots[idx]
	if e.matches(classID, diskID, clusterSector) {
		e.locked = true
		c.hits++
		return e.data, true
	}

	c.misses++
	return nil, false
}

// Unlock releases the lock taken by a prior Fetch. It's a no-op if the slot
// was evicted in the meantime.
func (c *Cache) Unlock(classID uint32, diskID, clusterSector uint64) {
	idx := c.index(classID, diskID, clusterSector)
	e := &c.slots[idx]
	if e.matches(classID, diskID, clusterSector) {
		e.locked = false
	}
}

// Store evicts whatever the target slot holds and installs data as the
// cluster for (classID, diskID, clusterSector). len(data) must equal
// ClusterBytes(). An allocation failure leaves the slot empty and returns
// [errors.ErrOutOfMemory]; the caller's read has already succeeded by the
// time Store is invoked, so this error should be swallowed, not surfaced.
func (c *Cache) Store(classID uint32, diskID, clusterSector uint64, data []byte) error {
	if !c.enabled {
		return nil
	}

	clusterBytes := c.ClusterBytes()
	if uint64(len(data)) != clusterBytes {
		return derrors.ErrBadArgument.WithMessage(
			fmt.Sprintf(
				"Store: data is %d bytes, cluster size is %d",
				len(data),
				clusterBytes,
			),
		)
	}

	idx := c.index(classID, diskID, clusterSector)
	c.freeSlot(idx)

	buf, err := c.allocate(int(clusterBytes))
	if err != nil {
		return derrors.ErrOutOfMemory.WrapError(err)
	}

	copy(buf, data)
	c.slots[idx] = entry{
		classID:       classID,
		diskID:        diskID,
		clusterSector: clusterSector,
		data:          buf,
	}
	c.occupied.Set(idx, true)
	return nil
}

// Invalidate frees the slot for the cluster containing sector, for
// (classID, diskID), if it's occupied and unlocked. sector is rounded down
// to cluster alignment before lookup.
func (c *Cache) Invalidate(classID uint32, diskID, sector uint64) {
	clusterSector := c.AlignDown(sector)
	idx := c.index(classID, diskID, clusterSector)
	e := &c.slots[idx]
	if e.matches(classID, diskID, clusterSector) && !e.locked {
		c.freeSlot(idx)
	}
}

// InvalidateAll frees every unlocked occupied slot in the cache.
func (c *Cache) InvalidateAll() {
	for idx := 0; idx < len(c.slots); idx++ {
		if c.occupied.Get(idx) && !c.slots[idx].locked {
			c.freeSlot(idx)
		}
	}
}

func (c *Cache) freeSlot(idx int) {
	c.slots[idx] = entry{}
	c.occupied.Set(idx, false)
}

// Stats returns the number of Fetch hits and misses observed since the
// cache was created or last reset with ResetStats.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// ResetStats zeroes the hit/miss counters.
func (c *Cache) ResetStats() {
	c.hits = 0
	c.misses = 0
}

// OccupiedCount reports how many slots currently hold data, locked or not.
func (c *Cache) OccupiedCount() int {
	count := 0
	for idx := 0; idx < len(c.slots); idx++ {
		if c.occupied.Get(idx) {
			count++
		}
	}
	return count
}
