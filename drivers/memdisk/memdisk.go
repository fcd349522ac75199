// Package memdisk implements an in-memory reference Driver, used by tests
// and by the diskioctl CLI for disk images backed by an ordinary []byte
// rather than a real block device.
package memdisk

import (
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/diskio/driver"
	derrors "github.com/dargueta/diskio/errors"
	"github.com/dargueta/diskio/geometry"
)

type image struct {
	data          []byte
	logSectorSize uint
	writable      bool
	diskID        uint64
}

// Driver is a [driver.Driver] backing each opened disk with an in-memory
// byte slice registered ahead of time under a name. Unlike a real block
// device, names must be registered explicitly with Register before Open
// will recognize them.
type Driver struct {
	classID uint32

	mu         sync.Mutex
	images     map[string]*image
	nextDiskID uint64
}

// New creates a Driver advertising classID. Register it with
// driver.Register to make it visible to disk.Open.
func New(classID uint32) *Driver {
	return &Driver{classID: classID, images: make(map[string]*image)}
}

func (d *Driver) ClassID() uint32 {
	return d.classID
}

// Register makes data available under name. logSectorSize is log2 of the
// native sector size this image should be reported as; len(data) must be a
// multiple of 1<<logSectorSize. Each registration gets its own DiskID, which
// every Open of that name reports, so reopening an image keeps its cache
// entries addressable.
func (d *Driver) Register(name string, data []byte, logSectorSize uint, writable bool) error {
	sectorSize := uint64(1) << logSectorSize
	if uint64(len(data))%sectorSize != 0 {
		return derrors.ErrBadArgument.WithMessage(
			fmt.Sprintf("image is %d bytes, not a multiple of the sector size %d", len(data), sectorSize),
		)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextDiskID++
	d.images[name] = &image{
		data:          data,
		logSectorSize: logSectorSize,
		writable:      writable,
		diskID:        d.nextDiskID,
	}
	return nil
}

// RegisterFromGeometry registers a zeroed image under name, sized from a
// predefined [geometry.Geometry], with 512-byte logical sectors.
func (d *Driver) RegisterFromGeometry(name, slug string, writable bool) error {
	g, err := geometry.Lookup(slug)
	if err != nil {
		return err
	}
	data := make([]byte, g.LogicalSectorCount()*512)
	return d.Register(name, data, 9, writable)
}

// Forget removes a previously registered image.
func (d *Driver) Forget(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.images, name)
}

// Open implements [driver.Driver].
func (d *Driver) Open(rawName string) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, ok := d.images[rawName]
	if !ok {
		return nil, derrors.ErrUnknownDevice.WithMessage(
			fmt.Sprintf("memdisk: no image registered as %q", rawName),
		)
	}

	base := &handle{
		img:    img,
		diskID: img.diskID,
		stream: bytesextra.NewReadWriteSeeker(img.data),
	}
	if img.writable {
		return &writableHandle{handle: base}, nil
	}
	return base, nil
}

type handle struct {
	img    *image
	diskID uint64
	stream io.ReadWriteSeeker
}

func (h *handle) DiskID() uint64 {
	return h.diskID
}

func (h *handle) TotalSectors() uint64 {
	return uint64(len(h.img.data)) >> h.img.logSectorSize
}

func (h *handle) LogSectorSize() uint {
	return h.img.logSectorSize
}

func (h *handle) Read(nativeSector, nativeCount uint64, out []byte) error {
	sectorSize := uint64(1) << h.img.logSectorSize
	if _, err := h.stream.Seek(int64(nativeSector*sectorSize), io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(h.stream, out[:nativeCount*sectorSize])
	return err
}

func (h *handle) Close() error {
	return nil
}

// writableHandle adds Write, satisfying [driver.Writer]. Images registered
// with writable=false never surface a Write method, so disk.Write's type
// assertion correctly reports them read-only.
type writableHandle struct {
	*handle
}

func (h *writableHandle) Write(nativeSector, nativeCount uint64, in []byte) error {
	sectorSize := uint64(1) << h.img.logSectorSize
	if _, err := h.stream.Seek(int64(nativeSector*sectorSize), io.SeekStart); err != nil {
		return err
	}
	_, err := h.stream.Write(in[:nativeCount*sectorSize])
	return err
}
