package memdisk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/diskio/disk"
	"github.com/dargueta/diskio/drivers/memdisk"
	fixtures "github.com/dargueta/diskio/testing"
)

func TestOpen_UnregisteredNameIsUnknownDevice(t *testing.T) {
	d := memdisk.New(1)
	_, err := d.Open("nope.img")
	assert.Error(t, err)
}

func TestRegister_RejectsMisalignedImage(t *testing.T) {
	d := memdisk.New(1)
	err := d.Register("bad.img", make([]byte, 513), 9, true)
	assert.Error(t, err)
}

func TestOpen_ReadOnlyImageIsNotAWriter(t *testing.T) {
	d := memdisk.New(1)
	require.NoError(t, d.Register("ro.img", make([]byte, 1024), 9, false))

	h, err := d.Open("ro.img")
	require.NoError(t, err)

	_, ok := h.(interface {
		Write(nativeSector, nativeCount uint64, in []byte) error
	})
	assert.False(t, ok, "a read-only image must not statically satisfy driver.Writer")
}

func TestOpen_WritableImageRoundTripsData(t *testing.T) {
	d := memdisk.New(1)
	data := make([]byte, 1024)
	require.NoError(t, d.Register("rw.img", data, 9, true))

	h, err := d.Open("rw.img")
	require.NoError(t, err)

	writer, ok := h.(interface {
		Write(nativeSector, nativeCount uint64, in []byte) error
	})
	require.True(t, ok)

	payload := []byte("hello, disk")
	buf := make([]byte, 512)
	copy(buf, payload)
	require.NoError(t, writer.Write(1, 1, buf))

	out := make([]byte, 512)
	require.NoError(t, h.Read(1, 1, out))
	assert.Equal(t, buf, out)
}

func TestOpen_ReopeningAnImageKeepsItsDiskID(t *testing.T) {
	d := memdisk.New(1)
	require.NoError(t, d.Register("a.img", make([]byte, 512), 9, false))

	h1, err := d.Open("a.img")
	require.NoError(t, err)
	h2, err := d.Open("a.img")
	require.NoError(t, err)

	assert.Equal(t, h1.DiskID(), h2.DiskID())
}

func TestForget_MakesTheImageUnknownAgain(t *testing.T) {
	d := memdisk.New(1)
	require.NoError(t, d.Register("a.img", make([]byte, 512), 9, false))
	d.Forget("a.img")

	_, err := d.Open("a.img")
	assert.Error(t, err)
}

func TestTotalSectors_ReflectsSectorSize(t *testing.T) {
	d := memdisk.New(1)
	require.NoError(t, d.Register("a.img", make([]byte, 4096), 12, false))

	h, err := d.Open("a.img")
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.TotalSectors())
	assert.EqualValues(t, 12, h.LogSectorSize())
}

func TestRegisterFromGeometry_UnknownSlugFails(t *testing.T) {
	d := memdisk.New(1)
	err := d.RegisterFromGeometry("floppy.img", "not-a-real-geometry", false)
	assert.Error(t, err)
}

func TestOpen_ThroughDiskFacadeRoundTripsWrites(t *testing.T) {
	// Unlike TestOpen_WritableImageRoundTripsData above, which drives the
	// driver.Handle directly, this goes through disk.Open/Read/Write, the
	// path a real caller of this driver uses.
	h := fixtures.OpenMemImage(t, 2, "facade.img", make([]byte, 4*512), 9, true, disk.Options{})

	payload := []byte("hello, facade")
	buf := make([]byte, 512)
	copy(buf, payload)
	require.NoError(t, h.Write(0, 0, buf))

	out := make([]byte, 512)
	require.NoError(t, h.Read(0, 0, out))
	assert.Equal(t, buf, out)
}
