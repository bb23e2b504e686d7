package raid

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveLoadCatalogRoundTrip(t *testing.T) {
	t.Run("RoundTripsLevelSignatureLBAAndPlacement", func(t *testing.T) {
		dir := t.TempDir()
		drives := []*Drive{
			NewDrive(0, dir, "sig-0"),
			NewDrive(1, dir, "sig-1"),
			NewDrive(2, dir, "sig-2"),
		}
		placement := NewPlacementMap()
		placement.Record(0, 0, 0)
		placement.Record(0, 2, 0)
		placement.MarkLost(1, 1)

		assert.NoError(t, SaveCatalog(dir, RAID5, "array-sig", 2, placement, drives))

		loaded, err := LoadCatalog(dir)
		assert.NoError(t, err)
		assert.Equal(t, RAID5, loaded.Level)
		assert.Equal(t, "array-sig", loaded.Signature)
		assert.Equal(t, 2, loaded.CurrentLBA)
		assert.Len(t, loaded.Drives, 3)

		sector, ok := loaded.Placement.Lookup(0, 0)
		assert.True(t, ok)
		assert.Equal(t, 0, sector)

		lostSector, ok := loaded.Placement.Lookup(1, 1)
		assert.True(t, ok)
		assert.Equal(t, LostSector, lostSector)
	})

	t.Run("DetectsMissingArtifact", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-0")
		placement := NewPlacementMap()
		assert.NoError(t, SaveCatalog(dir, RAID1, "array-sig", 0, placement, []*Drive{d}))

		assert.NoError(t, os.Remove(d.ArtifactPath()))

		loaded, err := LoadCatalog(dir)
		assert.NoError(t, err)
		assert.Equal(t, StatusFailedFileMissing, loaded.Drives[0].Status)
		assert.False(t, loaded.Drives[0].Active)
	})

	t.Run("DetectsSignatureMismatch", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-original")
		placement := NewPlacementMap()
		assert.NoError(t, SaveCatalog(dir, RAID1, "array-sig", 0, placement, []*Drive{d}))

		// Simulate a foreign drive's artifact landing in this slot: same
		// path, different signature recorded inside it.
		imposter := NewDrive(0, dir, "sig-imposter")
		_ = imposter

		loaded, err := LoadCatalog(dir)
		assert.NoError(t, err)
		assert.Equal(t, StatusFailedSignatureMismatch, loaded.Drives[0].Status)
	})
}
