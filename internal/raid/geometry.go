package raid

import "fmt"

// Assignment says which drive should receive which role's block for one
// LBA write. Geometry functions only decide placement and role; the
// payload and parity codes are computed by the caller (array.go) once it
// knows which drive plays which part.
type Assignment struct {
	DriveID int
	Role    Role
}

// GeometryDecision records one committed Assignment: the LBA it was made
// for, alongside the drive/role it resolved to. Array accumulates these as
// writeChar commits each assignment, giving a driver a scrub log of every
// placement decision without having to re-derive Geometry after the fact.
type GeometryDecision struct {
	LBA     int
	DriveID int
	Role    Role
}

// WriteAssignments computes the per-drive role assignment for a single
// LBA write, given the full drive roster (sorted ascending by id, used
// only by the geometries whose grouping is positional rather than
// active-count-based) and the currently active subset (also sorted).
func WriteAssignments(level RaidLevel, allDriveIDs, activeDriveIDs []int, lba int) ([]Assignment, error) {
	switch {
	case level == RAID0:
		return raid0Assignments(activeDriveIDs, lba)
	case level == RAID1:
		return raid1Assignments(activeDriveIDs), nil
	case level == RAID5:
		return raid5Assignments(activeDriveIDs, lba)
	case level == RAID6:
		return raid6Assignments(activeDriveIDs, lba)
	case level == RAID10:
		return raid10Assignments(allDriveIDs, activeDriveIDs, lba)
	case level.Nested():
		return nestedAssignments(level, allDriveIDs, activeDriveIDs, lba)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLevel, int(level))
	}
}

// raid0Assignments round-robins across every active drive. Striping with
// no redundancy requires every drive to be up; a caller who already
// checked quorum never reaches this with a short roster, but an empty
// roster is still rejected defensively.
func raid0Assignments(active []int, lba int) ([]Assignment, error) {
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: no active drives", ErrBelowWriteQuorum)
	}
	target := active[lba%len(active)]
	return []Assignment{{DriveID: target, Role: RoleData}}, nil
}

// raid1Assignments mirrors to every active drive.
func raid1Assignments(active []int) []Assignment {
	out := make([]Assignment, 0, len(active))
	for _, id := range active {
		out = append(out, Assignment{DriveID: id, Role: RoleData})
	}
	return out
}

// raid5Assignments rotates the parity drive through the active roster
// and picks the data drive from whatever remains.
func raid5Assignments(active []int, lba int) ([]Assignment, error) {
	if len(active) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 active drives for a parity stripe", ErrBelowWriteQuorum)
	}
	parityIdx := lba % len(active)
	parityDrive := active[parityIdx]

	dataDrives := make([]int, 0, len(active)-1)
	for i, id := range active {
		if i != parityIdx {
			dataDrives = append(dataDrives, id)
		}
	}
	dataDrive := dataDrives[lba%len(dataDrives)]

	return []Assignment{
		{DriveID: dataDrive, Role: RoleData},
		{DriveID: parityDrive, Role: RoleParity},
	}, nil
}

// raid6Assignments rotates two parity drives (P, Q) through the active
// roster, bumping the Q index forward if it would collide with P.
func raid6Assignments(active []int, lba int) ([]Assignment, error) {
	if len(active) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 active drives for a dual-parity stripe", ErrBelowWriteQuorum)
	}
	n := len(active)
	pIdx := lba % n
	qIdx := (lba + 1) % n
	if qIdx == pIdx {
		qIdx = (qIdx + 1) % n
	}

	dataDrives := make([]int, 0, n-2)
	for i, id := range active {
		if i != pIdx && i != qIdx {
			dataDrives = append(dataDrives, id)
		}
	}
	dataDrive := dataDrives[lba%len(dataDrives)]

	return []Assignment{
		{DriveID: dataDrive, Role: RoleData},
		{DriveID: active[pIdx], Role: RoleParityP},
		{DriveID: active[qIdx], Role: RoleParityQ},
	}, nil
}

// pairUp groups a sorted drive roster into consecutive mirrored pairs
// [0,1], [2,3], .... An odd leftover member (never expected once the
// level's minimum-drive invariant holds) is dropped silently since it has
// no partner to mirror with.
func pairUp(ids []int) [][]int {
	pairs := make([][]int, 0, len(ids)/2)
	for i := 0; i+1 < len(ids); i += 2 {
		pairs = append(pairs, []int{ids[i], ids[i+1]})
	}
	return pairs
}

// raid10Assignments selects a mirrored pair by lba and writes to every
// active member of that pair. Pairing is positional over the full
// roster, so it stays stable across drive failures.
func raid10Assignments(all, active []int, lba int) ([]Assignment, error) {
	pairs := pairUp(all)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no mirrored pairs available", ErrBelowWriteQuorum)
	}
	activeSet := toSet(active)
	pair := pairs[lba%len(pairs)]

	out := make([]Assignment, 0, 2)
	for _, id := range pair {
		if activeSet[id] {
			out = append(out, Assignment{DriveID: id, Role: RoleData})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: both members of mirrored pair are down", ErrBelowWriteQuorum)
	}
	return out, nil
}

// subArrays partitions the full roster into consecutive chunks of size
// groupSize, one chunk per RAID-50/60 sub-group.
func subArrays(all []int, groupSize int) [][]int {
	groups := make([][]int, 0, (len(all)+groupSize-1)/groupSize)
	for i := 0; i < len(all); i += groupSize {
		end := i + groupSize
		if end > len(all) {
			end = len(all)
		}
		groups = append(groups, all[i:end])
	}
	return groups
}

// nestedAssignments picks a RAID-50/60 sub-array by lba, then applies the
// inner RAID-5/6 rule using only that sub-array's currently active
// members.
func nestedAssignments(level RaidLevel, all, active []int, lba int) ([]Assignment, error) {
	inner := level.innerLevel()
	cfg, err := inner.Config()
	if err != nil {
		return nil, err
	}

	groups := subArrays(all, cfg.MinDrives)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no sub-arrays available", ErrBelowWriteQuorum)
	}
	group := groups[lba%len(groups)]

	activeSet := toSet(active)
	groupActive := make([]int, 0, len(group))
	for _, id := range group {
		if activeSet[id] {
			groupActive = append(groupActive, id)
		}
	}

	switch inner {
	case RAID5:
		return raid5Assignments(groupActive, lba)
	case RAID6:
		return raid6Assignments(groupActive, lba)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLevel, int(level))
	}
}

func toSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// SubArrayOf returns the sub-array (as a slice of drive ids) that
// contains driveID for a nested level, used by the rebuild worker to
// scope RAID-50/60 reconstruction to the right group.
func SubArrayOf(level RaidLevel, all []int, driveID int) ([]int, error) {
	inner := level.innerLevel()
	cfg, err := inner.Config()
	if err != nil {
		return nil, err
	}
	for _, group := range subArrays(all, cfg.MinDrives) {
		for _, id := range group {
			if id == driveID {
				return group, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: drive %d not found in any sub-array", ErrInvalidDriveIndex, driveID)
}

// PairOf returns the mirrored pair containing driveID for RAID-10.
func PairOf(all []int, driveID int) ([]int, error) {
	for _, pair := range pairUp(all) {
		for _, id := range pair {
			if id == driveID {
				return pair, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: drive %d not found in any mirrored pair", ErrInvalidDriveIndex, driveID)
}
