package raid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaid0Assignments(t *testing.T) {
	t.Run("RoundRobinsAcrossActiveDrives", func(t *testing.T) {
		active := []int{0, 1, 2}
		a, err := raid0Assignments(active, 4)
		assert.NoError(t, err)
		assert.Equal(t, []Assignment{{DriveID: 1, Role: RoleData}}, a, "lba 4 mod 3 active drives should land on drive 1")
	})

	t.Run("RejectsEmptyRoster", func(t *testing.T) {
		_, err := raid0Assignments(nil, 0)
		assert.ErrorIs(t, err, ErrBelowWriteQuorum)
	})
}

func TestRaid5Assignments(t *testing.T) {
	t.Run("RotatesParityAndPicksRemainingDataDrive", func(t *testing.T) {
		active := []int{0, 1, 2}
		assignments, err := raid5Assignments(active, 0)
		assert.NoError(t, err)
		assert.Len(t, assignments, 2)

		var parityDrive, dataDrive int
		for _, asg := range assignments {
			switch asg.Role {
			case RoleParity:
				parityDrive = asg.DriveID
			case RoleData:
				dataDrive = asg.DriveID
			}
		}
		assert.Equal(t, 0, parityDrive, "lba 0 mod 3 active drives selects drive 0 as parity")
		assert.Equal(t, 1, dataDrive, "remaining data drives are [1,2]; lba 0 mod 2 selects drive 1")
	})
}

func TestRaid6Assignments(t *testing.T) {
	t.Run("S4DoubleParityLayout", func(t *testing.T) {
		active := []int{0, 1, 2, 3}
		assignments, err := raid6Assignments(active, 0)
		assert.NoError(t, err)
		assert.Len(t, assignments, 3)

		roles := make(map[int]Role)
		for _, asg := range assignments {
			roles[asg.DriveID] = asg.Role
		}
		assert.Equal(t, RoleParityP, roles[0], "p = lba(0) mod 4 = 0")
		assert.Equal(t, RoleParityQ, roles[1], "q = (lba+1) mod 4 = 1")
		assert.Equal(t, RoleData, roles[2], "data drive is chosen from the remaining [2,3] at index 0 mod 2")
	})
}

func TestRaid10Assignments(t *testing.T) {
	t.Run("WritesOnlyToActiveMembersOfSelectedPair", func(t *testing.T) {
		all := []int{0, 1, 2, 3}
		active := []int{0, 2, 3}
		assignments, err := raid10Assignments(all, active, 0)
		assert.NoError(t, err)
		assert.Equal(t, []Assignment{{DriveID: 0, Role: RoleData}}, assignments, "pair [0,1] selected for lba 0; only drive 0 is active")
	})

	t.Run("RejectsFullyFailedPair", func(t *testing.T) {
		all := []int{0, 1, 2, 3}
		active := []int{2, 3}
		_, err := raid10Assignments(all, active, 0)
		assert.ErrorIs(t, err, ErrBelowWriteQuorum)
	})
}

func TestSubArrayOf(t *testing.T) {
	t.Run("RAID50GroupsDrivesInThrees", func(t *testing.T) {
		all := []int{0, 1, 2, 3, 4, 5}
		group, err := SubArrayOf(RAID50, all, 4)
		assert.NoError(t, err)
		assert.Equal(t, []int{3, 4, 5}, group)
	})
}

func TestPairOf(t *testing.T) {
	t.Run("FindsContainingPair", func(t *testing.T) {
		all := []int{0, 1, 2, 3}
		pair, err := PairOf(all, 3)
		assert.NoError(t, err)
		assert.Equal(t, []int{2, 3}, pair)
	})
}
