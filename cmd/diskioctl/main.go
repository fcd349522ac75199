// Command diskioctl is a small inspection tool for disk images, built on
// top of the diskio package and the memdisk driver.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/diskio"
	"github.com/dargueta/diskio/drivers/memdisk"
)

var memDriver = memdisk.New(1)

func main() {
	diskio.RegisterDriver(memDriver)

	app := cli.App{
		Name:  "diskioctl",
		Usage: "Inspect and edit disk image files through the diskio read/write engines",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a zeroed image file sized from a predefined disk geometry",
				ArgsUsage: "IMAGE_FILE GEOMETRY_SLUG",
				Action:    createCommand,
			},
			{
				Name:      "stat",
				Usage:     "Print the logical size of an image",
				ArgsUsage: "IMAGE_FILE",
				Action:    statCommand,
			},
			{
				Name:      "read",
				Usage:     "Read SIZE bytes at SECTOR,OFFSET and print them as hex",
				ArgsUsage: "IMAGE_FILE SECTOR OFFSET SIZE",
				Action:    readCommand,
			},
			{
				Name:      "write",
				Usage:     "Write hex-encoded DATA at SECTOR,OFFSET",
				ArgsUsage: "IMAGE_FILE SECTOR OFFSET HEX_DATA",
				Action:    writeCommand,
			},
			{
				Name:  "cache-stats",
				Usage: "Print cumulative cache hit/miss counts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "zero the hit/miss counters after printing them",
					},
				},
				Action: func(c *cli.Context) error {
					hits, misses := diskio.CacheStats()
					if _, err := os.Stdout.WriteString(formatStats(hits, misses)); err != nil {
						return err
					}
					if c.Bool("reset") {
						diskio.CacheResetStats()
					}
					return nil
				},
			},
		},
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "sector-bits",
				Usage: "log2 of the image's native sector size",
				Value: 9,
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "bypass the sector cache for this invocation, for debugging",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("diskioctl: %s", err)
	}
}
