// Package partition translates a partition-relative (sector, offset, size)
// triple into device-absolute coordinates, walking a chain of nested
// partitions from innermost to outermost and enforcing containment at each
// level and against the whole disk.
package partition

import (
	"fmt"

	derrors "github.com/dargueta/diskio/errors"
)

// Node is one link in a partition chain: a half-open range of logical
// sectors, Start..Start+Len, relative to Parent (or to the raw device if
// Parent is nil).
type Node struct {
	Start  uint64
	Len    uint64
	Parent *Node
}

// Prober resolves a partition specification string (the part of a disk name
// after the comma) against a raw device name into the innermost Node of a
// partition chain. Table parsing itself is out of scope for this layer;
// Prober is the seam a real MBR/GPT/BSD-label implementation plugs into.
type Prober interface {
	Probe(rawDeviceName, spec string) (*Node, error)
}

// AdjustRange converts sector/offset, relative to leaf (the innermost
// partition, or nil for an unpartitioned disk), into device-absolute
// logical-sector/byte coordinates, and checks that [sector*512+offset,
// +size) fits inside every enclosing partition and, if totalSectors is not
// [Unknown], inside the whole disk.
//
// totalSectors is the disk's total size in the same logical-sector units as
// sector/offset/size (i.e. already converted from native sectors).
func AdjustRange(
	leaf *Node,
	sector, offset, size uint64,
	totalSectors uint64,
) (realSector, realOffset uint64, err error) {
	sector += offset >> 9
	offset &= 511

	for part := leaf; part != nil; part = part.Parent {
		if err := checkContainment(sector, offset, size, part.Len); err != nil {
			return 0, 0, err
		}
		sector += part.Start
	}

	if totalSectors != Unknown {
		if err := checkContainment(sector, offset, size, totalSectors); err != nil {
			return 0, 0, err
		}
	}

	return sector, offset, nil
}

// Unknown marks a disk whose total size the driver couldn't report.
const Unknown = ^uint64(0)

func checkContainment(sector, offset, size, limit uint64) error {
	need := ceilDiv(offset+size, 512)

	if sector >= limit {
		return derrors.ErrOutOfRange.WithMessage(
			fmt.Sprintf("sector %d is past the end of a %d-sector range", sector, limit),
		)
	}
	if limit-sector < need {
		return derrors.ErrOutOfRange.WithMessage(
			fmt.Sprintf(
				"range [sector %d, +%d sectors) exceeds a %d-sector range",
				sector, need, limit,
			),
		)
	}
	return nil
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
