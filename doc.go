// Package diskio is the public facade of the disk access layer: a thin,
// cached, byte-granular view over block devices that expose only
// sector-granular, driver-specific I/O.
//
// Most callers only need this package and a driver package such as
// drivers/memdisk. The driver registry, sector cache, partition walker, and
// disk handle live in their own packages (driver, cache, partition, disk)
// for callers that want to wire things together differently, e.g. giving
// two unrelated test suites their own isolated cache.
package diskio
