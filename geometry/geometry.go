// Package geometry catalogs well-known disk geometries by name, so test
// fixtures and the CLI can build a disk image of, say, "a 1.44 MB 3.5-inch
// floppy" without hand-computing sector counts.
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes a physical disk's addressing layout.
//
// https://en.wikipedia.org/wiki/List_of_floppy_disk_formats
type Geometry struct {
	Name               string `csv:"name"`
	Slug               string `csv:"slug"`
	FirstYearAvailable uint   `csv:"first_year_available"`
	FormFactor         string `csv:"form_factor"`
	IsRemovable        uint   `csv:"is_removable"`

	// BitsPerAddressUnit gives the number of bits in the device's smallest
	// addressable unit of memory. For most devices it's a byte (8). For
	// those where this isn't the case, documentation usually calls it a
	// "word"; 12 and 18 bits per word are common on older devices.
	BitsPerAddressUnit uint `csv:"bits_per_address_unit"`

	// AddressUnitsPerSector gives the number of address units in a sector.
	AddressUnitsPerSector uint `csv:"address_units_per_sector"`
	SectorsPerTrack       uint `csv:"sectors_per_track"`

	// TotalDataTracks gives the number of data tracks per head.
	TotalDataTracks uint   `csv:"total_data_tracks"`
	HiddenTracks    uint   `csv:"hidden_tracks"`
	Heads           uint   `csv:"heads"`
	Notes           string `csv:"notes"`
}

// TotalSizeBytes gives the size of the storage device, rounded up to the
// nearest byte.
func (g *Geometry) TotalSizeBytes() int64 {
	bits := int64(
		g.BitsPerAddressUnit * g.AddressUnitsPerSector * g.SectorsPerTrack *
			g.TotalDataTracks * g.Heads)
	if bits%8 == 0 {
		return bits / 8
	}
	return (bits / 8) + 1
}

// LogicalSectorCount gives the device's size in 512-byte logical sectors,
// rounding up. This is what memdisk.RegisterFromGeometry uses to size an
// image.
func (g *Geometry) LogicalSectorCount() uint64 {
	bytes := g.TotalSizeBytes()
	return uint64((bytes + 511) / 512)
}

//go:embed disk-geometries.csv
var rawCSV string

var byName map[string]Geometry

// Lookup returns the predefined geometry registered under slug.
func Lookup(slug string) (Geometry, error) {
	g, ok := byName[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined disk geometry exists with slug %q", slug)
	}
	return g, nil
}

func init() {
	byName = make(map[string]Geometry)

	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := byName[row.Slug]; exists {
			return fmt.Errorf("duplicate definition for disk geometry %q", row.Slug)
		}
		byName[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}
