package errors

import "fmt"

// DiskoError is a coarse error kind for the disk access layer. Each kind is a
// distinct sentinel value; use [DiskoError.WithMessage] or
// [DiskoError.WrapError] to attach context without losing the kind for
// errors.Is comparisons.
type DiskoError string

// ErrUnknownDevice is returned when no registered driver claims a device
// name, or a partition prober can't find the requested partition.
const ErrUnknownDevice = DiskoError("unknown device")

// ErrNotImplemented is returned when a driver reports a native sector size
// outside [9, 9+bits] on Open, where bits is the disk's cache cluster size
// exponent ([cache.Cache.Bits]).
const ErrNotImplemented = DiskoError("function not implemented")

// ErrOutOfRange is returned when a request extends beyond a partition or the
// whole disk.
const ErrOutOfRange = DiskoError("argument out of range")

// ErrOutOfMemory is returned when a temporary or cache buffer can't be
// allocated.
const ErrOutOfMemory = DiskoError("out of memory")

// ErrIO is returned when a driver read or write call fails.
const ErrIO = DiskoError("input/output error")

// ErrBadArgument is returned for malformed device names or partition specs.
const ErrBadArgument = DiskoError("invalid argument")

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		message:       e.Error() + ": " + err.Error(),
		originalError: fmt.Errorf("%w: %w", e, err),
	}
}
