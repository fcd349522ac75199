package driver

import (
	"errors"
	"fmt"
	"sync"

	derrors "github.com/dargueta/diskio/errors"
)

type node struct {
	driver Driver
	next   *node
}

var (
	registryMu sync.Mutex
	head       *node
)

// Register adds driver to the front of the driver list. The most recently
// registered driver is tried first when opening a disk, so a driver can be
// registered to shadow one with a narrower name match.
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	head = &node{driver: d, next: head}
}

// Unregister removes driver from the list. It is a no-op if the driver was
// never registered. Comparison is by interface identity.
func Unregister(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()

	var prev *node
	for n := head; n != nil; n = n.next {
		if n.driver == d {
			if prev == nil {
				head = n.next
			} else {
				prev.next = n.next
			}
			return
		}
		prev = n
	}
}

// Open walks the registered drivers in order and returns the Handle from the
// first one that claims rawName. A driver reporting
// [errors.ErrUnknownDevice] is skipped; any other error aborts the walk and
// is returned to the caller.
func Open(rawName string) (Handle, uint32, error) {
	registryMu.Lock()
	snapshot := head
	registryMu.Unlock()

	for n := snapshot; n != nil; n = n.next {
		h, err := n.driver.Open(rawName)
		if err == nil {
			return h, n.driver.ClassID(), nil
		}
		if isUnknownDevice(err) {
			continue
		}
		return nil, 0, err
	}

	return nil, 0, derrors.ErrUnknownDevice.WithMessage(
		fmt.Sprintf("disk %q not found", rawName),
	)
}

func isUnknownDevice(err error) bool {
	return errors.Is(err, derrors.ErrUnknownDevice)
}
