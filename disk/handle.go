// Package disk implements the disk handle, and the read and write engines
// that sit on top of the driver registry, sector cache, and partition
// walker to provide byte-granular, partition-relative, cached access to a
// block device.
package disk

import (
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/diskio/cache"
	"github.com/dargueta/diskio/driver"
	"github.com/dargueta/diskio/partition"
)

// CloseReuseWindow is how long a disk's cache entries survive after Close
// before the next Open purges them. Reopening within this window assumes
// the same physical device is still behind the name; reopening after it
// assumes the device may have been swapped and the cache can't be trusted.
const CloseReuseWindow = 2 * time.Second

var (
	lastAccessMu   sync.Mutex
	lastAccessTime time.Time
)

// ReadHook is invoked once per logical sector touched by a successful Read,
// in order. sector/byteOffset/length describe the slice of that sector the
// read covered; userData is whatever was passed to SetReadHook.
type ReadHook func(sector uint64, byteOffset, length uint64, userData any)

// Options customizes Open. The zero value uses the package-wide default
// cache and refuses to open a disk name with a partition spec (there is no
// default Prober, because partition table parsing is a collaborator this
// layer doesn't implement).
type Options struct {
	// Cache overrides the sector cache used by this disk. If nil, the
	// package-level default cache (shared by every disk opened without an
	// explicit one) is used.
	Cache *cache.Cache

	// Prober resolves a partition spec into a partition chain. It's
	// required only if the name passed to Open contains one.
	Prober partition.Prober
}

// Handle is an open disk: a driver instance plus whatever partition
// translation and addressing state is needed to service Read/Write/GetSize
// calls. The zero value is not usable; create one with Open.
type Handle struct {
	name          string
	driverHandle  driver.Handle
	classID       uint32
	diskID        uint64
	logSectorSize uint
	totalNative   uint64
	part          *partition.Node
	cache         *cache.Cache
	readHook      ReadHook
	readHookData  any
	closed        bool
}

var defaultCache = cache.NewDefault()

// DefaultCache returns the cache used by disks opened without an explicit
// Options.Cache. Tests that want isolation from each other should build
// their own cache.Cache and pass it in Options instead of touching this.
func DefaultCache() *cache.Cache {
	return defaultCache
}

// Name returns the string Open was called with.
func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) totalLogicalSectors() uint64 {
	if h.totalNative == driver.SizeUnknown {
		return partition.Unknown
	}
	return h.totalNative << (h.logSectorSize - 9)
}

func (h *Handle) nativeSectorSize() uint64 {
	return uint64(1) << h.logSectorSize
}

// GetSize reports the disk's logical size in 512-byte sectors: the
// innermost partition's length if the handle is partitioned, else the
// driver's reported size converted to logical sectors. ok is false if
// neither is known.
func (h *Handle) GetSize() (sectors uint64, ok bool) {
	if h.part != nil {
		return h.part.Len, true
	}
	total := h.totalLogicalSectors()
	if total == partition.Unknown {
		return 0, false
	}
	return total, true
}

// SetReadHook installs a callback fired once per logical sector touched by
// a successful Read. Pass a nil hook to remove it.
func (h *Handle) SetReadHook(hook ReadHook, userData any) {
	h.readHook = hook
	h.readHookData = userData
}

// Close releases the driver handle and marks h unusable. It is safe to call
// more than once; calls after the first are no-ops.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	var result *multierror.Error
	if err := h.driverHandle.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	h.part = nil

	touchLastAccess()
	return result.ErrorOrNil()
}

func touchLastAccess() {
	lastAccessMu.Lock()
	defer lastAccessMu.Unlock()
	lastAccessTime = time.Now()
}

// purgeIfStale invalidates c if more than CloseReuseWindow has elapsed
// since the last Open or Close touched the clock, then stamps the clock
// regardless. It's called once per Open.
func purgeIfStale(c *cache.Cache) {
	lastAccessMu.Lock()
	defer lastAccessMu.Unlock()

	if time.Since(lastAccessTime) > CloseReuseWindow {
		c.InvalidateAll()
	}
	lastAccessTime = time.Now()
}
