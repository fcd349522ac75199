// Package testing provides fixture helpers shared by this module's own
// test suites: building random or sequential disk images and opening them
// through the memdisk driver without repeating the registration dance in
// every test file.
package testing

import (
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/diskio"
	"github.com/dargueta/diskio/drivers/memdisk"
)

// RandomImage returns totalSectors*sectorSize bytes of cryptographically
// random data. It fails the test and aborts if the RNG can't be read,
// which in practice never happens.
func RandomImage(t *testing.T, sectorSize, totalSectors uint) []byte {
	data := make([]byte, sectorSize*totalSectors)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to fill %d sectors of size %d with random bytes",
		totalSectors, sectorSize)
	return data
}

// SequentialImage returns totalSectors*sectorSize bytes where byte i has
// value i mod 256. Unlike RandomImage, its contents are predictable, which
// is what read/write round-trip tests usually want instead of having to
// separately track what random bytes went in.
func SequentialImage(sectorSize, totalSectors uint) []byte {
	data := make([]byte, sectorSize*totalSectors)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// OpenMemImage registers data under a fresh memdisk driver and opens it
// through diskio.Open, returning a handle that's automatically closed and
// unregistered at test cleanup. The image is registered under the device
// part of name (everything before the first unescaped comma, with "\,"
// unescaped), which is the name disk.Open hands to the driver; name itself,
// partition spec included, is what gets opened. classID must be unique
// among drivers alive at the same time; tests that don't care can pass any
// fixed value, since each call gets its own private Driver instance.
func OpenMemImage(
	t *testing.T,
	classID uint32,
	name string,
	data []byte,
	logSectorSize uint,
	writable bool,
	opts diskio.Options,
) *diskio.Disk {
	var rawName strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) && name[i+1] == ',' {
			rawName.WriteByte(',')
			i++
			continue
		}
		if name[i] == ',' {
			break
		}
		rawName.WriteByte(name[i])
	}

	d := memdisk.New(classID)
	require.NoError(t, d.Register(rawName.String(), data, logSectorSize, writable),
		fmt.Sprintf("registering fixture image %q", name))

	diskio.RegisterDriver(d)
	t.Cleanup(func() { diskio.UnregisterDriver(d) })

	handle, err := diskio.Open(name, opts)
	require.NoError(t, err, "opening fixture image %q", name)
	t.Cleanup(func() { _ = diskio.Close(handle) })

	return handle
}
