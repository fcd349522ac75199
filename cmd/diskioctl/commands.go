package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/diskio"
	"github.com/dargueta/diskio/geometry"
)

// createCommand writes a zeroed image file sized from a predefined
// [geometry.Geometry], e.g. "diskioctl create floppy.img 35hd".
func createCommand(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: diskioctl create IMAGE_FILE GEOMETRY_SLUG", 1)
	}
	path := c.Args().Get(0)
	slug := c.Args().Get(1)

	g, err := geometry.Lookup(slug)
	if err != nil {
		return err
	}

	data := make([]byte, g.LogicalSectorCount()*512)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("created %s: %s, %d bytes\n", path, g.Name, len(data))
	return nil
}

// openImage reads path fully into memory, registers it with the memdisk
// driver under its own path as the name, and opens it through diskio. The
// returned flush function must be called to persist writes back to path;
// it's a no-op for read-only opens. noCache disables the shared cache for
// the duration of this open, the CLI's "--no-cache" debug switch.
func openImage(path string, logSectorBits uint, writable, noCache bool) (*diskio.Disk, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := memDriver.Register(path, data, logSectorBits, writable); err != nil {
		return nil, nil, err
	}

	diskio.SetCacheEnabled(!noCache)
	d, err := diskio.Open(path, diskio.Options{})
	if err != nil {
		memDriver.Forget(path)
		return nil, nil, err
	}

	flush := func() error {
		if !writable {
			return nil
		}
		return os.WriteFile(path, data, 0o644)
	}
	return d, flush, nil
}

func parseUint(c *cli.Context, index int, name string) (uint64, error) {
	raw := c.Args().Get(index)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func statCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("usage: diskioctl stat IMAGE_FILE", 1)
	}

	d, flush, err := openImage(path, c.Uint("sector-bits"), false, c.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer func() {
		_ = flush()
		_ = diskio.Close(d)
	}()

	sectors, ok := diskio.GetSize(d)
	if !ok {
		fmt.Println("size: unknown")
		return nil
	}
	fmt.Printf("size: %d logical sectors (%d bytes)\n", sectors, sectors*512)
	return nil
}

func readCommand(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return cli.Exit("usage: diskioctl read IMAGE_FILE SECTOR OFFSET SIZE", 1)
	}
	path := c.Args().Get(0)

	sector, err := parseUint(c, 1, "SECTOR")
	if err != nil {
		return err
	}
	offset, err := parseUint(c, 2, "OFFSET")
	if err != nil {
		return err
	}
	size, err := parseUint(c, 3, "SIZE")
	if err != nil {
		return err
	}

	d, flush, err := openImage(path, c.Uint("sector-bits"), false, c.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer func() {
		_ = flush()
		_ = diskio.Close(d)
	}()

	buf := make([]byte, size)
	if err := diskio.Read(d, sector, offset, buf); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(buf))
	return nil
}

func writeCommand(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return cli.Exit("usage: diskioctl write IMAGE_FILE SECTOR OFFSET HEX_DATA", 1)
	}
	path := c.Args().Get(0)

	sector, err := parseUint(c, 1, "SECTOR")
	if err != nil {
		return err
	}
	offset, err := parseUint(c, 2, "OFFSET")
	if err != nil {
		return err
	}

	buf, err := hex.DecodeString(c.Args().Get(3))
	if err != nil {
		return fmt.Errorf("HEX_DATA must be valid hex: %w", err)
	}

	d, flush, err := openImage(path, c.Uint("sector-bits"), true, c.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer func() {
		_ = diskio.Close(d)
	}()

	if err := diskio.Write(d, sector, offset, buf); err != nil {
		return err
	}
	return flush()
}

func formatStats(hits, misses uint64) string {
	total := hits + misses
	if total == 0 {
		return "hits: 0, misses: 0\n"
	}
	return fmt.Sprintf(
		"hits: %d, misses: %d (%.1f%% hit rate)\n",
		hits, misses, 100*float64(hits)/float64(total),
	)
}
