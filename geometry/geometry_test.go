package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/diskio/geometry"
)

func TestLookup_KnownSlugSucceeds(t *testing.T) {
	g, err := geometry.Lookup("35hd")
	require.NoError(t, err)
	assert.Equal(t, "35hd", g.Slug)
	assert.NotZero(t, g.TotalSizeBytes())
}

func TestLookup_UnknownSlugFails(t *testing.T) {
	_, err := geometry.Lookup("not-a-real-format")
	assert.Error(t, err)
}

func TestTotalSizeBytes_MatchesWellKnown144MBFloppy(t *testing.T) {
	g, err := geometry.Lookup("35hd")
	require.NoError(t, err)
	// A standard 3.5" HD floppy is 1440 KiB (1,474,560 bytes) of formatted
	// capacity.
	assert.EqualValues(t, 1_474_560, g.TotalSizeBytes())
}

func TestLogicalSectorCount_RoundsUpToWholeSectors(t *testing.T) {
	g := geometry.Geometry{
		BitsPerAddressUnit:    8,
		AddressUnitsPerSector: 513, // deliberately not a multiple of 512
		SectorsPerTrack:       1,
		TotalDataTracks:       1,
		Heads:                 1,
	}
	assert.EqualValues(t, 2, g.LogicalSectorCount())
}
