package partition

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/noxer/bytewriter"

	derrors "github.com/dargueta/diskio/errors"
)

// Entry is one row of a [Table]: a partition's start and length, in the
// units the table's owner uses (logical sectors for every prober in this
// package).
type Entry struct {
	Start uint64
	Len   uint64
}

const entrySize = 16 // two little-endian uint64s

// BuildTable serializes entries into a flat binary table suitable for
// embedding at a fixed offset in a disk image. It exists so tests can
// construct a partition table without hand-assembling bytes.
func BuildTable(entries []Entry) []byte {
	buf := make([]byte, len(entries)*entrySize)
	writer := bytewriter.New(buf)
	for _, e := range entries {
		// Errors from binary.Write against a fixed-size bytewriter buffer
		// only happen if the buffer is too small, which can't occur here.
		_ = binary.Write(writer, binary.LittleEndian, e.Start)
		_ = binary.Write(writer, binary.LittleEndian, e.Len)
	}
	return buf
}

// ParseTable is the inverse of BuildTable.
func ParseTable(raw []byte) ([]Entry, error) {
	if len(raw)%entrySize != 0 {
		return nil, derrors.ErrBadArgument.WithMessage(
			fmt.Sprintf("partition table is %d bytes, not a multiple of %d", len(raw), entrySize),
		)
	}

	entries := make([]Entry, 0, len(raw)/entrySize)
	for off := 0; off < len(raw); off += entrySize {
		entries = append(entries, Entry{
			Start: binary.LittleEndian.Uint64(raw[off : off+8]),
			Len:   binary.LittleEndian.Uint64(raw[off+8 : off+16]),
		})
	}
	return entries, nil
}

// TableProber resolves a numeric partition-spec string ("0", "1", ...)
// against a fixed in-memory Table. It's the Prober used by tests (passed
// in disk.Options); real MBR/GPT parsing is out of this layer's scope.
type TableProber struct {
	Entries []Entry
}

// Probe implements [Prober]. rawDeviceName is ignored; spec must be a
// base-10 partition index into Entries.
func (p TableProber) Probe(rawDeviceName, spec string) (*Node, error) {
	index, err := strconv.ParseUint(spec, 10, 32)
	if err != nil {
		return nil, derrors.ErrUnknownDevice.WithMessage(
			fmt.Sprintf("malformed partition spec %q", spec),
		)
	}
	if index >= uint64(len(p.Entries)) {
		return nil, derrors.ErrUnknownDevice.WithMessage(
			fmt.Sprintf("no such partition %q", spec),
		)
	}

	e := p.Entries[index]
	return &Node{Start: e.Start, Len: e.Len}, nil
}

// SingleSlice returns a Prober that recognizes exactly one partition spec
// ("0") covering [start, start+length) logical sectors of the raw device.
// It's a convenience for tests and drivers that only ever expose one
// partition.
func SingleSlice(start, length uint64) Prober {
	return TableProber{Entries: []Entry{{Start: start, Len: length}}}
}
