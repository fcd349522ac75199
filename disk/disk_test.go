package disk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/diskio/cache"
	"github.com/dargueta/diskio/disk"
	"github.com/dargueta/diskio/driver"
	"github.com/dargueta/diskio/drivers/memdisk"
	"github.com/dargueta/diskio/partition"
	fixtures "github.com/dargueta/diskio/testing"
)

// freshDriver registers a memdisk.Driver under a test-unique class ID and
// unregisters it at test cleanup, so disk.Open's registry walk only ever
// sees the image(s) this test set up. It's used only by tests that need
// Register/Open to fail or to call disk.Open more than once against the
// same registration; tests that just want one open handle should use
// fixtures.OpenMemImage instead.
func freshDriver(t *testing.T, classID uint32) *memdisk.Driver {
	t.Helper()
	d := memdisk.New(classID)
	driver.Register(d)
	t.Cleanup(func() { driver.Unregister(d) })
	return d
}

func sequentialBytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestOpen_UnknownNameFails(t *testing.T) {
	freshDriver(t, 100)
	_, err := disk.Open("does-not-exist.img", disk.Options{})
	assert.Error(t, err)
}

func TestOpen_RejectsSectorSizeAboveCacheRange(t *testing.T) {
	d := freshDriver(t, 101)
	require.NoError(t, d.Register("huge.img", make([]byte, 1<<20), 20, false))

	c := cache.New(3, 17) // cluster covers sectors of log size up to 9+3=12
	_, err := disk.Open("huge.img", disk.Options{Cache: c})
	assert.Error(t, err)
}

func TestRead_AlignedWholeClusterRoundTrips(t *testing.T) {
	data := sequentialBytes(64 * 512) // 64 logical sectors
	c := cache.New(3, 17)             // 8 logical sectors/cluster
	h := fixtures.OpenMemImage(t, 102, "a.img", data, 9, false, disk.Options{Cache: c})

	buf := make([]byte, 8*512)
	require.NoError(t, h.Read(0, 0, buf))
	assert.Equal(t, data[:8*512], buf)
}

func TestRead_UnalignedHeadBodyTail(t *testing.T) {
	data := sequentialBytes(64 * 512)
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 103, "a.img", data, 9, false, disk.Options{Cache: c})

	// Start partway into sector 1, span through several full clusters, end
	// partway into a trailing sector: exercises all three read phases.
	start := 1*512 + 100
	length := 20*512 - 50
	buf := make([]byte, length)
	require.NoError(t, h.Read(1, 100, buf))
	assert.Equal(t, data[start:start+length], buf)
}

func TestRead_SecondReadOfSameClusterIsACacheHit(t *testing.T) {
	data := sequentialBytes(64 * 512)
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 104, "a.img", data, 9, false, disk.Options{Cache: c})

	buf := make([]byte, 512)
	require.NoError(t, h.Read(0, 0, buf))
	_, missesAfterFirst := c.Stats()

	require.NoError(t, h.Read(0, 0, buf))
	hits, misses := c.Stats()
	assert.GreaterOrEqual(t, hits, uint64(1))
	assert.Equal(t, missesAfterFirst, misses, "second read of the same cluster shouldn't miss again")
}

func TestRead_AgglomeratesContiguousMissesAcrossManyClusters(t *testing.T) {
	// 16 clusters of 8 sectors each at CACHE_BITS=3.
	data := sequentialBytes(128 * 512)
	c := cache.New(3, 1021)
	h := fixtures.OpenMemImage(t, 105, "a.img", data, 9, false, disk.Options{Cache: c})

	buf := make([]byte, 128*512)
	require.NoError(t, h.Read(0, 0, buf))
	assert.Equal(t, data, buf)

	_, misses := c.Stats()
	// All 16 clusters were fetched in one agglomerated driver read, but the
	// cache still records a miss per cluster scanned.
	assert.EqualValues(t, 16, misses)
}

func TestRead_OutOfRangeFailsWithoutTouchingDriver(t *testing.T) {
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 106, "a.img", make([]byte, 8*512), 9, false, disk.Options{Cache: c})

	buf := make([]byte, 512)
	err := h.Read(100, 0, buf)
	assert.Error(t, err)
}

func TestRead_RespectsPartitionTranslation(t *testing.T) {
	data := sequentialBytes(64 * 512)
	prober := partition.SingleSlice(10, 20) // partition starts at sector 10
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 107, "a.img,0", data, 9, false, disk.Options{Cache: c, Prober: prober})

	buf := make([]byte, 512)
	require.NoError(t, h.Read(0, 0, buf))
	assert.Equal(t, data[10*512:11*512], buf)

	sectors, ok := h.GetSize()
	require.True(t, ok)
	assert.EqualValues(t, 20, sectors)
}

func TestRead_PartitionBoundsAreEnforced(t *testing.T) {
	data := sequentialBytes(64 * 512)
	prober := partition.SingleSlice(10, 5) // only 5 sectors long
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 108, "a.img,0", data, 9, false, disk.Options{Cache: c, Prober: prober})

	buf := make([]byte, 512)
	err := h.Read(5, 0, buf) // sector 5 is past the partition's 5-sector length
	assert.Error(t, err)
}

func TestWrite_ReadOnlyDiskRejectsWrite(t *testing.T) {
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 109, "a.img", make([]byte, 8*512), 9, false, disk.Options{Cache: c})

	err := h.Write(0, 0, []byte("x"))
	assert.Error(t, err)
}

func TestWrite_AlignedBulkWriteRoundTrips(t *testing.T) {
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 110, "a.img", make([]byte, 16*512), 9, true, disk.Options{Cache: c})

	payload := sequentialBytes(8 * 512)
	require.NoError(t, h.Write(0, 0, payload))

	readBack := make([]byte, 8*512)
	require.NoError(t, h.Read(0, 0, readBack))
	assert.Equal(t, payload, readBack)
}

func TestWrite_UnalignedWriteDoesReadModifyWrite(t *testing.T) {
	original := sequentialBytes(4 * 512)
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 111, "a.img", original, 9, true, disk.Options{Cache: c})

	patch := []byte{0xAA, 0xBB, 0xCC}
	require.NoError(t, h.Write(1, 100, patch))

	readBack := make([]byte, 512)
	require.NoError(t, h.Read(1, 0, readBack))

	expected := make([]byte, 512)
	copy(expected, original[512:1024])
	copy(expected[100:103], patch)
	assert.Equal(t, expected, readBack)
}

func TestWrite_UnalignedWriteInvalidatesStaleCacheEntry(t *testing.T) {
	original := sequentialBytes(8 * 512)
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 112, "a.img", original, 9, true, disk.Options{Cache: c})

	warm := make([]byte, 8*512)
	require.NoError(t, h.Read(0, 0, warm)) // warms the whole cluster

	require.NoError(t, h.Write(2, 0, []byte{0xFF}))

	readBack := make([]byte, 8*512)
	require.NoError(t, h.Read(0, 0, readBack))
	assert.EqualValues(t, 0xFF, readBack[2*512])
}

func TestWrite_LargerNativeSectorSizeRMWTargetsCorrectBytes(t *testing.T) {
	original := sequentialBytes(2 * 4096) // two 4096-byte native sectors
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 113, "a.img", original, 12, true, disk.Options{Cache: c})

	// Logical sector 9 (byte 4608) is inside native sector 1 (bytes
	// 4096..8191), at native offset 512.
	patch := []byte{0x01, 0x02}
	require.NoError(t, h.Write(9, 0, patch))

	readBack := make([]byte, 4096)
	require.NoError(t, h.Read(8, 0, readBack)) // native sector 1 starts at logical sector 8
	expected := make([]byte, 4096)
	copy(expected, original[4096:8192])
	copy(expected[512:514], patch)
	assert.Equal(t, expected, readBack)
}

func TestSetReadHook_FiresOncePerLogicalSector(t *testing.T) {
	data := sequentialBytes(4 * 512)
	c := cache.New(3, 17)
	h := fixtures.OpenMemImage(t, 114, "a.img", data, 9, false, disk.Options{Cache: c})

	type hit struct {
		sector, offset, length uint64
	}
	var hits []hit
	h.SetReadHook(func(sector uint64, offset, length uint64, _ any) {
		hits = append(hits, hit{sector, offset, length})
	}, nil)

	buf := make([]byte, 600) // crosses from sector 0 into sector 1
	require.NoError(t, h.Read(0, 100, buf))

	require.Len(t, hits, 2)
	assert.Equal(t, hit{0, 100, 412}, hits[0])
	assert.Equal(t, hit{1, 0, 188}, hits[1])
}

func TestClose_IsIdempotent(t *testing.T) {
	h := fixtures.OpenMemImage(t, 115, "a.img", make([]byte, 512), 9, false, disk.Options{Cache: cache.New(3, 17)})
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}

func TestOpen_ReopenWithinWindowPreservesCache(t *testing.T) {
	data := sequentialBytes(8 * 512)
	shared := cache.New(3, 17)
	h1 := fixtures.OpenMemImage(t, 116, "a.img", data, 9, false, disk.Options{Cache: shared})

	buf := make([]byte, 8*512)
	require.NoError(t, h1.Read(0, 0, buf))
	require.NoError(t, h1.Close())

	// The driver registered by OpenMemImage stays registered until test
	// cleanup, so a second disk.Open against the same name finds it.
	h2, err := disk.Open("a.img", disk.Options{Cache: shared})
	require.NoError(t, err)
	defer h2.Close()

	_, missesBefore := shared.Stats()
	require.NoError(t, h2.Read(0, 0, buf))
	_, missesAfter := shared.Stats()
	assert.Equal(t, missesBefore, missesAfter, "reopening promptly should reuse the warm cache")
}

func TestOpen_ReopenAfterCloseReuseWindowPurgesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps past disk.CloseReuseWindow")
	}

	data := sequentialBytes(8 * 512)
	shared := cache.New(3, 17)
	h1 := fixtures.OpenMemImage(t, 117, "a.img", data, 9, false, disk.Options{Cache: shared})

	buf := make([]byte, 8*512)
	require.NoError(t, h1.Read(0, 0, buf))
	require.NoError(t, h1.Close())

	time.Sleep(disk.CloseReuseWindow + 100*time.Millisecond)

	h2, err := disk.Open("a.img", disk.Options{Cache: shared})
	require.NoError(t, err)
	defer h2.Close()

	_, missesBefore := shared.Stats()
	require.NoError(t, h2.Read(0, 0, buf))
	_, missesAfter := shared.Stats()
	assert.Greater(t, missesAfter, missesBefore, "reopening after the reuse window should have purged the cache")
}
