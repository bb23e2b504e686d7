package raid

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDrive(t *testing.T) {
	t.Run("RendersArtifactOnCreation", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "")
		assert.NotEmpty(t, d.Signature, "a signature should be minted when none is supplied")

		_, err := os.Stat(d.ArtifactPath())
		assert.NoError(t, err, "creating a drive should render its artifact file immediately")
	})
}

func TestDriveAppendWrite(t *testing.T) {
	t.Run("AssignsSequentialSectors", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")

		s0, err := d.AppendWrite("A", RoleData, 0, true)
		assert.NoError(t, err)
		assert.Equal(t, 0, s0)

		s1, err := d.AppendWrite("B", RoleData, 1, true)
		assert.NoError(t, err)
		assert.Equal(t, 1, s1)
	})

	t.Run("RefusesWriteToInactiveDrive", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")
		d.MarkFailed()

		_, err := d.AppendWrite("A", RoleData, 0, true)
		assert.ErrorIs(t, err, ErrDriveInactive)
	})
}

func TestDriveRead(t *testing.T) {
	t.Run("ReturnsWrittenPayload", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")
		sector, err := d.AppendWrite("A", RoleData, 0, true)
		assert.NoError(t, err)

		payload, ok := d.Read(sector)
		assert.True(t, ok)
		assert.Equal(t, "A", payload)
	})

	t.Run("MissingSectorReadsFalse", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")
		_, ok := d.Read(99)
		assert.False(t, ok)
	})

	t.Run("MissingArtifactMarksFileMissing", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")
		assert.NoError(t, os.Remove(d.ArtifactPath()))

		_, ok := d.Read(0)
		assert.False(t, ok)
		assert.Equal(t, StatusFailedFileMissing, d.Status)
		assert.False(t, d.Active)
	})
}

func TestDriveMarkFailed(t *testing.T) {
	t.Run("IsIdempotent", func(t *testing.T) {
		dir := t.TempDir()
		d := NewDrive(0, dir, "sig-1")
		d.MarkFailed()
		d.MarkFailed()
		assert.False(t, d.Active)
		assert.Equal(t, StatusFailed, d.Status)
	})
}
