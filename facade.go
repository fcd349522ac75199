package diskio

import (
	"github.com/dargueta/diskio/cache"
	"github.com/dargueta/diskio/disk"
	"github.com/dargueta/diskio/driver"
	"github.com/dargueta/diskio/partition"
)

// Disk is an open disk handle. See [disk.Handle] for the full method set;
// it's aliased here so callers that only import this package don't also
// need to import "github.com/dargueta/diskio/disk".
type Disk = disk.Handle

// Options customizes Open. See [disk.Options].
type Options = disk.Options

// ReadHook is the signature for a callback installed with SetReadHook. See
// [disk.ReadHook].
type ReadHook = disk.ReadHook

// Prober resolves a partition spec into a partition chain. See
// [partition.Prober].
type Prober = partition.Prober

// RegisterDriver adds driver to the front of the global driver list, used
// by Open to resolve disk names.
func RegisterDriver(d driver.Driver) {
	driver.Register(d)
}

// UnregisterDriver removes a driver previously added with RegisterDriver.
func UnregisterDriver(d driver.Driver) {
	driver.Unregister(d)
}

// Open resolves name against the registered drivers and returns a handle
// ready for Read/Write/GetSize. name has the grammar
// "device[,partition-spec]"; a literal comma inside device is written "\,".
func Open(name string, opts Options) (*Disk, error) {
	return disk.Open(name, opts)
}

// Close releases d. Safe to call more than once.
func Close(d *Disk) error {
	return d.Close()
}

// Read fills buf starting at the given sector and byte offset, relative to
// d's partition.
func Read(d *Disk, sector, offset uint64, buf []byte) error {
	return d.Read(sector, offset, buf)
}

// Write writes buf starting at the given sector and byte offset, relative
// to d's partition.
func Write(d *Disk, sector, offset uint64, buf []byte) error {
	return d.Write(sector, offset, buf)
}

// GetSize reports d's logical size in 512-byte sectors.
func GetSize(d *Disk) (sectors uint64, ok bool) {
	return d.GetSize()
}

// SetReadHook installs a callback fired once per logical sector touched by
// a successful Read on d.
func SetReadHook(d *Disk, hook ReadHook, userData any) {
	d.SetReadHook(hook, userData)
}

// CacheInvalidateAll frees every unlocked entry in the default cache shared
// by disks opened without a custom [Options.Cache].
func CacheInvalidateAll() {
	disk.DefaultCache().InvalidateAll()
}

// CacheStats reports hit/miss counts for the default cache.
func CacheStats() (hits, misses uint64) {
	return disk.DefaultCache().Stats()
}

// CacheResetStats zeroes the default cache's hit/miss counters, e.g. between
// runs of "diskioctl cache-stats --reset".
func CacheResetStats() {
	disk.DefaultCache().ResetStats()
}

// SetCacheEnabled turns the default cache on or off. While disabled, every
// Read bypasses the cache entirely; this is the layer's "--no-cache" debug
// switch (spec.md §6, GRUB's disk_cache_disable).
func SetCacheEnabled(enabled bool) {
	disk.DefaultCache().SetEnabled(enabled)
}

// NewCache creates an isolated sector cache, e.g. for a test suite that
// wants cache behavior without interference from other tests sharing the
// package default.
func NewCache(bits uint, slots int) *cache.Cache {
	return cache.New(bits, slots)
}
