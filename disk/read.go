package disk

import (
	derrors "github.com/dargueta/diskio/errors"
	"github.com/dargueta/diskio/partition"
)

// Read fills buf with len(buf) bytes starting sector sectors and offset
// bytes into the disk, relative to the handle's partition (or the raw
// device if unpartitioned). It fails with [errors.ErrOutOfRange] without
// touching the driver if the range doesn't fit, and otherwise always
// leaves buf fully populated or returns a non-nil error.
func (h *Handle) Read(sector, offset uint64, buf []byte) error {
	size := uint64(len(buf))
	if size == 0 {
		return nil
	}

	realSector, realOffset, err := partition.AdjustRange(
		h.part, sector, offset, size, h.totalLogicalSectors(),
	)
	if err != nil {
		return err
	}

	hookSector, hookOffset, hookSize := realSector, realOffset, size

	csz := h.cache.ClusterSectors()
	cbs := h.cache.ClusterBytes()

	curSector := realSector
	curOffset := realOffset
	remaining := size
	out := buf

	// Phase 1: unaligned head.
	if curOffset != 0 || curSector&(csz-1) != 0 {
		clusterStart := h.cache.AlignDown(curSector)
		pos := (curSector-clusterStart)<<9 + curOffset
		n := minU64(cbs-pos, remaining)

		if err := h.smallRead(clusterStart, pos, n, out[:n]); err != nil {
			return err
		}

		out = out[n:]
		remaining -= n
		curOffset = 0
		curSector = clusterStart + csz
	}

	// Phase 2: full-cluster body, agglomerating contiguous misses.
	for remaining >= cbs {
		maxClusters := remaining / cbs
		k := uint64(0)
		var hitData []byte
		hit := false

		for k < maxClusters {
			clusterStart := curSector + k*csz
			if data, ok := h.cache.Fetch(h.classID, h.diskID, clusterStart); ok {
				hitData = data
				hit = true
				break
			}
			k++
		}

		if k > 0 {
			nativeSector := curSector >> (h.logSectorSize - 9)
			nativeCount := (k * csz) >> (h.logSectorSize - 9)
			runBuf := out[:k*cbs]

			if err := h.driverHandle.Read(nativeSector, nativeCount, runBuf); err != nil {
				return derrors.ErrIO.WrapError(err)
			}
			for i := uint64(0); i < k; i++ {
				clusterStart := curSector + i*csz
				_ = h.cache.Store(h.classID, h.diskID, clusterStart, runBuf[i*cbs:(i+1)*cbs])
			}

			out = out[k*cbs:]
			curSector += k * csz
			remaining -= k * cbs
			continue
		}

		if hit {
			copy(out[:cbs], hitData)
			h.cache.Unlock(h.classID, h.diskID, curSector)
			out = out[cbs:]
			curSector += csz
			remaining -= cbs
			continue
		}

		// maxClusters was 0, which can't happen since remaining >= cbs.
		break
	}

	// Phase 3: unaligned tail.
	if remaining > 0 {
		if err := h.smallRead(curSector, 0, remaining, out[:remaining]); err != nil {
			return err
		}
	}

	if h.readHook != nil {
		h.fireReadHook(hookSector, hookOffset, hookSize)
	}
	return nil
}

// smallRead copies n bytes starting at byte offset posInCluster of the
// cluster starting at the cluster-aligned logical sector clusterStart into
// dst. It tries the cache first, then a whole-cluster driver fill (which
// warms the cache), then falls back to a minimal aligned native-sector read
// that bypasses the cache entirely when the cluster doesn't fit on the
// disk.
func (h *Handle) smallRead(clusterStart, posInCluster, n uint64, dst []byte) error {
	if data, ok := h.cache.Fetch(h.classID, h.diskID, clusterStart); ok {
		copy(dst, data[posInCluster:posInCluster+n])
		h.cache.Unlock(h.classID, h.diskID, clusterStart)
		return nil
	}

	csz := h.cache.ClusterSectors()
	cbs := h.cache.ClusterBytes()
	shift := h.logSectorSize - 9
	nativeClusterSector := clusterStart >> shift
	nativeClusterCount := csz >> shift

	total := h.totalLogicalSectors()
	fits := total == partition.Unknown || clusterStart+csz <= total

	if fits {
		full := make([]byte, cbs)
		err := h.driverHandle.Read(nativeClusterSector, nativeClusterCount, full)
		if err == nil {
			copy(dst, full[posInCluster:posInCluster+n])
			_ = h.cache.Store(h.classID, h.diskID, clusterStart, full)
			return nil
		}
		// Fall through to the minimal aligned read below.
	}

	nativeSectorSize := h.nativeSectorSize()
	firstNative := posInCluster / nativeSectorSize
	lastNative := (posInCluster + n - 1) / nativeSectorSize
	nativeCount := lastNative - firstNative + 1

	window := make([]byte, nativeCount*nativeSectorSize)
	if err := h.driverHandle.Read(nativeClusterSector+firstNative, nativeCount, window); err != nil {
		return derrors.ErrIO.WrapError(err)
	}

	offsetInWindow := posInCluster - firstNative*nativeSectorSize
	copy(dst, window[offsetInWindow:offsetInWindow+n])
	return nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
