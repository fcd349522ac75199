package disk

import (
	"github.com/dargueta/diskio/driver"
	derrors "github.com/dargueta/diskio/errors"
	"github.com/dargueta/diskio/partition"
)

// Write writes buf to the disk starting sector sectors and offset bytes in,
// relative to the handle's partition. Unaligned leading/trailing native
// sectors are serviced with a read-modify-write; fully aligned native
// sectors in between go out as a single bulk driver write. Every sector a
// write touches is invalidated in the cache before the driver call that
// could fail, so a failed write never leaves a stale cache entry.
func (h *Handle) Write(sector, offset uint64, buf []byte) error {
	size := uint64(len(buf))
	if size == 0 {
		return nil
	}

	writer, ok := h.driverHandle.(driver.Writer)
	if !ok {
		return derrors.ErrIO.WithMessage("disk is read-only")
	}

	realSector, realOffset, err := partition.AdjustRange(
		h.part, sector, offset, size, h.totalLogicalSectors(),
	)
	if err != nil {
		return err
	}

	nativeSectorSize := h.nativeSectorSize()
	byteAddr := realSector*512 + realOffset

	curNative := byteAddr / nativeSectorSize
	curOffset := byteAddr % nativeSectorSize
	remaining := size
	pos := uint64(0)

	for remaining > 0 {
		if curOffset != 0 || remaining < nativeSectorSize {
			length := minU64(nativeSectorSize-curOffset, remaining)

			sectorBuf := make([]byte, nativeSectorSize)
			if err := h.readRawNative(curNative, sectorBuf); err != nil {
				return derrors.ErrIO.WrapError(err)
			}
			copy(sectorBuf[curOffset:curOffset+length], buf[pos:pos+length])

			h.invalidateNativeSector(curNative)
			if err := writer.Write(curNative, 1, sectorBuf); err != nil {
				return derrors.ErrIO.WrapError(err)
			}

			pos += length
			remaining -= length
			curNative++
			curOffset = 0
			continue
		}

		n := remaining / nativeSectorSize
		chunk := buf[pos : pos+n*nativeSectorSize]

		for i := uint64(0); i < n; i++ {
			h.invalidateNativeSector(curNative + i)
		}
		if err := writer.Write(curNative, n, chunk); err != nil {
			return derrors.ErrIO.WrapError(err)
		}

		pos += n * nativeSectorSize
		remaining -= n * nativeSectorSize
		curNative += n
	}

	return nil
}

// readRawNative reads exactly one native sector at device-absolute native
// sector nativeSector, still consulting the cache, but without going
// through the partition walker: the source's "temporarily detach the
// partition chain" trick, recast as a dedicated entry point instead of a
// mutated field.
func (h *Handle) readRawNative(nativeSector uint64, buf []byte) error {
	logicalSector := nativeSector << (h.logSectorSize - 9)
	clusterStart := h.cache.AlignDown(logicalSector)
	posInCluster := (logicalSector-clusterStart)<<9 + 0
	return h.smallRead(clusterStart, posInCluster, uint64(len(buf)), buf)
}

func (h *Handle) invalidateNativeSector(nativeSector uint64) {
	logicalSector := nativeSector << (h.logSectorSize - 9)
	h.cache.Invalidate(h.classID, h.diskID, logicalSector)
}
