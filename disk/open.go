package disk

import (
	"fmt"
	"strings"

	"github.com/dargueta/diskio/driver"
	derrors "github.com/dargueta/diskio/errors"
)

// Open resolves name against the driver registry and returns a ready-to-use
// Handle. name has the grammar "device[,partition-spec]"; a literal comma
// inside device is written "\,".
func Open(name string, opts Options) (*Handle, error) {
	c := opts.Cache
	if c == nil {
		c = defaultCache
	}

	rawName, spec, err := splitName(name)
	if err != nil {
		return nil, err
	}

	dh, classID, err := driver.Open(rawName)
	if err != nil {
		return nil, err
	}

	logSectorSize := dh.LogSectorSize()
	if logSectorSize < 9 || logSectorSize > 9+c.Bits() {
		dh.Close()
		return nil, derrors.ErrNotImplemented.WithMessage(
			fmt.Sprintf(
				"driver reported log sector size %d, must be in [9, %d]",
				logSectorSize, 9+c.Bits(),
			),
		)
	}

	h := &Handle{
		name:          name,
		driverHandle:  dh,
		classID:       classID,
		diskID:        dh.DiskID(),
		logSectorSize: logSectorSize,
		totalNative:   dh.TotalSectors(),
		cache:         c,
	}

	if spec != "" {
		if opts.Prober == nil {
			dh.Close()
			return nil, derrors.ErrUnknownDevice.WithMessage("no such partition")
		}
		part, err := opts.Prober.Probe(rawName, spec)
		if err != nil {
			dh.Close()
			return nil, derrors.ErrUnknownDevice.WithMessage("no such partition").WrapError(err)
		}
		h.part = part
	}

	purgeIfStale(c)
	return h, nil
}

// splitName splits "device[,partition-spec]" into its two parts, unescaping
// "\," to a literal comma in the device portion. The first unescaped comma
// ends the device name; everything after it, verbatim, is the partition
// spec.
func splitName(name string) (rawName, spec string, err error) {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch {
		case name[i] == '\\' && i+1 < len(name) && name[i+1] == ',':
			b.WriteByte(',')
			i++
		case name[i] == ',':
			return b.String(), name[i+1:], nil
		default:
			b.WriteByte(name[i])
		}
	}
	return b.String(), "", nil
}
