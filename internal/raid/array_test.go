package raid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// waitForWorker polls until the array's background worker goes idle, or
// fails the test after a generous timeout. The worker paces itself with
// config.WorkerYieldInterval between LBAs, so this should resolve almost
// immediately for the handful of LBAs these tests write.
func waitForWorker(t *testing.T, a *Array) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !a.gate.Busy() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("worker did not finish before deadline")
}

func TestScenarioRaid5WriteFailRebuild(t *testing.T) {
	// S1: RAID-5 write, fail, rebuild.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID5, 3)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("ABC"))
	assert.NoError(t, a.RemoveDrive(1))

	replacementID, err := a.AddDrive(false)
	assert.NoError(t, err)

	assert.NoError(t, a.StartRebuild(1, replacementID, true))
	waitForWorker(t, a)

	report, err := a.HealthCheck()
	assert.NoError(t, err)
	assert.Equal(t, HealthOK, report.Overall, "array should be fully healthy after rebuild completes")

	// Parity rotates over lba mod 3: drive 1 held lba 0's DATA ("A") and
	// lba 1's PARITY (P-code of "B"); lba 2 lived on drives 0 and 2 only.
	for lba, want := range map[int]string{0: "A", 1: "P066"} {
		sector, ok := a.Placement.Lookup(lba, replacementID)
		assert.True(t, ok, "replacement drive should hold a block for lba %d", lba)
		payload, ok := a.Drives[replacementID].Read(sector)
		assert.True(t, ok)
		assert.Equal(t, want, payload, "reconstructed payload for lba %d should match the block drive 1 held", lba)
	}
	_, held := a.Placement.Lookup(2, replacementID)
	assert.False(t, held, "drive 1 held no block for lba 2, so its replacement should not either")
}

func TestScenarioRaid0CannotRebuild(t *testing.T) {
	// S2: RAID-0 cannot rebuild.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID0, 2)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("HI"))
	assert.NoError(t, a.RemoveDrive(0))

	replacementID, err := a.AddDrive(false)
	assert.NoError(t, err)

	assert.NoError(t, a.StartRebuild(0, replacementID, true))
	waitForWorker(t, a)

	sector, ok := a.Placement.Lookup(0, replacementID)
	if ok {
		assert.Equal(t, LostSector, sector)
	}

	replacementDrive := a.Drives[replacementID]
	foundPermLost := false
	for _, entry := range replacementDrive.Sectors {
		if entry.HasLBA && entry.LBA == 0 {
			assert.Equal(t, RolePermLost, entry.Role, "raid-0 has no redundancy, a failed rebuild commits a permanent-loss sentinel")
			assert.Equal(t, "LOST", entry.Payload)
			foundPermLost = true
		}
	}
	assert.True(t, foundPermLost, "replacement drive should have committed a permanent-loss entry for lba 0")

	report, err := a.HealthCheck()
	assert.NoError(t, err)
	assert.Equal(t, HealthCritical, report.Overall, "raid-0 with no redundancy cannot recover a lost member")
}

func TestScenarioRaid1SyncOnAdd(t *testing.T) {
	// S3: RAID-1 sync on add.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID1, 2)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("XYZ"))

	newID, err := a.AddDrive(false)
	assert.NoError(t, err)
	assert.NoError(t, a.StartRebuild(-1, newID, true))
	waitForWorker(t, a)

	for lba, want := range map[int]byte{0: 'X', 1: 'Y', 2: 'Z'} {
		sector, ok := a.Placement.Lookup(lba, newID)
		assert.True(t, ok, "new mirror member should hold a synced block for lba %d", lba)
		payload, ok := a.Drives[newID].Read(sector)
		assert.True(t, ok)
		assert.Equal(t, string(want), payload)
	}

	report, err := a.HealthCheck()
	assert.NoError(t, err)
	assert.Equal(t, HealthOK, report.Overall)
}

func TestScenarioRaid6DoubleParityLayout(t *testing.T) {
	// S4: RAID-6 double-parity layout.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID6, 4)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("A"))

	drivesAtZero := a.Placement.DrivesFor(0)
	assert.Len(t, drivesAtZero, 3, "lba 0 should have exactly three entries: DATA, PARITY-P, PARITY-Q")

	roles := make(map[int]Role)
	for _, driveID := range drivesAtZero {
		sector, _ := a.Placement.Lookup(0, driveID)
		roles[driveID] = a.Drives[driveID].Sectors[sector].Role
	}
	assert.Equal(t, RoleParityP, roles[0])
	assert.Equal(t, RoleParityQ, roles[1])
	assert.Equal(t, RoleData, roles[2])
}

func TestScenarioRebalanceAfterRaid5Expansion(t *testing.T) {
	// S5: rebalance after RAID-5 expansion.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID5, 3)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("WXYZ"))

	newID, err := a.AddDrive(false)
	assert.NoError(t, err)
	assert.NoError(t, a.StartRebalance(newID))
	waitForWorker(t, a)

	want := map[int]byte{0: 'W', 1: 'X', 2: 'Y', 3: 'Z'}
	for lba, char := range want {
		parityDrive := lba % 4
		sector, ok := a.Placement.Lookup(lba, parityDrive)
		assert.True(t, ok, "lba %d should have a parity entry on drives[lba mod 4]=%d", lba, parityDrive)
		entry := a.Drives[parityDrive].Sectors[sector]
		assert.Equal(t, RoleParity, entry.Role)
		_ = char
	}
}

func TestRecentDecisionsRecordsCommittedAssignments(t *testing.T) {
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID5, 3)
	assert.NoError(t, err)
	defer a.Cleanup()

	assert.NoError(t, a.WriteData("AB"))

	decisions := a.RecentDecisions()
	assert.Len(t, decisions, 4, "each of the 2 writes commits a DATA and a PARITY assignment")

	var sawParity, sawData bool
	for _, d := range decisions {
		assert.True(t, d.LBA == 0 || d.LBA == 1)
		switch d.Role {
		case RoleParity:
			sawParity = true
		case RoleData:
			sawData = true
		}
	}
	assert.True(t, sawParity, "scrub log should include parity assignments")
	assert.True(t, sawData, "scrub log should include data assignments")
}

func TestScenarioCatalogSurvivesRestart(t *testing.T) {
	// S6: catalog survives restart.
	dir := t.TempDir()
	a, err := CreateArray(dir, RAID5, 3)
	assert.NoError(t, err)

	assert.NoError(t, a.WriteData("ABC"))
	preCleanupLBA := a.CurrentLBA
	preCleanupSignature := a.Signature
	a.Cleanup()

	reopened, err := OpenArray(dir)
	assert.NoError(t, err)
	defer reopened.Cleanup()

	assert.Equal(t, preCleanupLBA, reopened.CurrentLBA)
	assert.Equal(t, preCleanupSignature, reopened.Signature)
	assert.Equal(t, RAID5, reopened.Level)

	report, err := reopened.HealthCheck()
	assert.NoError(t, err)
	assert.Equal(t, HealthOK, report.Overall)

	assert.NoError(t, reopened.WriteData("D"))
	assert.Equal(t, 4, reopened.CurrentLBA)
}
