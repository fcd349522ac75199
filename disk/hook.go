package disk

// fireReadHook invokes h.readHook once per logical sector covered by
// [sector*512+offset, +size), in order, starting from the device-absolute
// coordinates a successful Read resolved.
func (h *Handle) fireReadHook(sector, offset, size uint64) {
	remaining := size
	curSector := sector
	curOffset := offset

	for remaining > 0 {
		length := minU64(512-curOffset, remaining)
		h.readHook(curSector, curOffset, length, h.readHookData)

		remaining -= length
		curSector++
		curOffset = 0
	}
}
