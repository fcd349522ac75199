// Package driver defines the contract block device drivers must satisfy to
// be usable by the disk access layer, and the registry that resolves a disk
// name to the driver that owns it.
package driver

// SizeUnknown is the sentinel a driver returns from Handle.TotalSectors when
// it cannot determine the size of the underlying device.
const SizeUnknown = ^uint64(0)

// Handle is what a Driver hands back from Open. It represents one open
// instance of a device; DiskID disambiguates multiple instances of the same
// driver (e.g. two floppy images opened by the same loopback driver).
type Handle interface {
	// DiskID identifies this particular instance among others opened by the
	// same driver. It is assigned by the driver, not the caller.
	DiskID() uint64

	// TotalSectors reports the size of the device in its own native sectors,
	// or SizeUnknown if the driver can't tell.
	TotalSectors() uint64

	// LogSectorSize is log2 of the device's native sector size in bytes. It
	// must be in [9, 9+bits], where bits is the cluster size exponent of the
	// cache the disk is opened with; disk.Open rejects handles outside that
	// range.
	LogSectorSize() uint

	// Read fills out with nativeCount native sectors starting at
	// nativeSector. len(out) must equal nativeCount << LogSectorSize().
	Read(nativeSector, nativeCount uint64, out []byte) error

	// Close releases any resources held by the handle. It is called at most
	// once.
	Close() error
}

// Writer is implemented by Handles that support writing. A Handle that
// doesn't implement Writer represents a read-only device.
type Writer interface {
	// Write writes nativeCount native sectors starting at nativeSector from
	// in. len(in) must equal nativeCount << LogSectorSize().
	Write(nativeSector, nativeCount uint64, in []byte) error
}

// Driver is a block device family. A single Driver instance can service many
// Handles, one per disk name it has opened.
type Driver interface {
	// ClassID identifies this driver's device family. It is combined with a
	// Handle's DiskID to form a sector cache key.
	ClassID() uint32

	// Open attempts to open rawName, the device-name portion of a disk name
	// with any partition spec already stripped off. Drivers that don't
	// recognize rawName must return errors.ErrUnknownDevice (or a
	// DriverError wrapping it); the registry treats that, and only that, as
	// "try the next driver".
	Open(rawName string) (Handle, error)
}
