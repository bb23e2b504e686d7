package raid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	t.Run("FreshArrayIsOK", func(t *testing.T) {
		dir := t.TempDir()
		a, err := CreateArray(dir, RAID5, 3)
		assert.NoError(t, err)
		defer a.Cleanup()

		assert.NoError(t, a.WriteData("ABC"))

		report, err := a.HealthCheck()
		assert.NoError(t, err)
		assert.Equal(t, HealthOK, report.Overall)
		assert.Equal(t, 3, report.ActiveDrives)
	})

	t.Run("OneFailureIsDegradedWithinFaultTolerance", func(t *testing.T) {
		dir := t.TempDir()
		a, err := CreateArray(dir, RAID5, 3)
		assert.NoError(t, err)
		defer a.Cleanup()

		assert.NoError(t, a.WriteData("ABC"))
		assert.NoError(t, a.RemoveDrive(1))

		report, err := a.HealthCheck()
		assert.NoError(t, err)
		assert.Equal(t, HealthDegraded, report.Overall)
		assert.Equal(t, 2, report.ActiveDrives)
	})

	t.Run("RAID0LossIsAlwaysCritical", func(t *testing.T) {
		dir := t.TempDir()
		a, err := CreateArray(dir, RAID0, 2)
		assert.NoError(t, err)
		defer a.Cleanup()

		assert.NoError(t, a.WriteData("HI"))
		assert.NoError(t, a.RemoveDrive(0))

		report, err := a.HealthCheck()
		assert.NoError(t, err)
		assert.Equal(t, HealthCritical, report.Overall)
	})
}
