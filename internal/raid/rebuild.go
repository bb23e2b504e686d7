package raid

import (
	"context"
	"time"

	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/sirupsen/logrus"
)

// StartRebuild launches the background rebuild worker for a replacement
// drive. failedPosition is the id of the drive being replaced (-1 when
// there was no specific failed slot, e.g. a fresh mirror member being
// added to RAID-1). isNewDriveAdd marks a brand-new drive joining rather
// than a failed one being swapped, which always wipes the target first.
//
// Only one of rebuild/rebalance may run at a time; a second call while
// one is in flight is refused with ErrWorkerBusy.
func (a *Array) StartRebuild(failedPosition, replacementID int, isNewDriveAdd bool) error {
	a.mu.Lock()
	if a.gate.Busy() {
		a.mu.Unlock()
		return ErrWorkerBusy
	}
	replacement, ok := a.Drives[replacementID]
	if !ok {
		a.mu.Unlock()
		return ErrInvalidDriveIndex
	}

	switch {
	case isNewDriveAdd:
		replacement.Reset()
		replacement.Activate(StatusSyncing)
	case failedPosition != replacementID:
		replacement.Reset()
		replacement.Activate(StatusRebuilding)
	default:
		replacement.Activate(StatusReAdding)
	}

	totalLBA := a.CurrentLBA
	level := a.Level
	all := a.allDriveIDs()
	a.mu.Unlock()

	logrus.Infof("array: starting rebuild of drive %d (failed slot %d, new=%v) across %d logical blocks", replacementID, failedPosition, isNewDriveAdd, totalLBA)

	return a.gate.Start(WorkerRebuilding, func(ctx context.Context) {
		a.runRebuildWorker(ctx, level, all, replacementID, failedPosition, totalLBA)
	})
}

func (a *Array) runRebuildWorker(ctx context.Context, level RaidLevel, all []int, targetID, failedPosition, totalLBA int) {
	defer func() {
		a.mu.Lock()
		if d, ok := a.Drives[targetID]; ok && d.Active {
			d.SetStatus(StatusActive)
		}
		_ = a.save()
		a.mu.Unlock()
	}()

	for lba := 0; lba < totalLBA; lba++ {
		select {
		case <-ctx.Done():
			logrus.Warnf("array: rebuild of drive %d cancelled at lba %d", targetID, lba)
			return
		case <-time.After(config.WorkerYieldInterval):
		}

		a.mu.Lock()
		// The replacement takes over exactly the blocks the failed slot
		// held, so an lba that slot never held has nothing to reconstruct.
		// Mirror levels copy every lba of their set regardless.
		if _, held := a.Placement.Lookup(lba, failedPosition); failedPosition >= 0 && !held && level != RAID1 && level != RAID10 {
			a.mu.Unlock()
			logrus.Infof("array: rebuild of drive %d: lba %d/%d skipped, slot %d held no block", targetID, lba+1, totalLBA, failedPosition)
			continue
		}
		result, recErr := reconstructBlock(level, all, a.Drives, a.Placement, targetID, failedPosition, lba)
		a.rebuildWriteResult(level, targetID, lba, result, recErr)
		a.mu.Unlock()
		logrus.Infof("array: rebuild of drive %d: lba %d/%d done", targetID, lba+1, totalLBA)
	}
	logrus.Infof("array: rebuild of drive %d complete", targetID)
}

// rebuildWriteResult commits one reconstructed (or unrecoverable) block
// to the target drive. Caller holds a.mu. RAID-0 has no redundancy at
// all, so a failure to reconstruct there is not a generic reconstruction
// miss, it is a permanent, total loss of that block; it is committed
// with payload "LOST" and role PERM_LOST rather than the generic
// REBUILD-FAIL sentinel other levels use when recovery comes up short.
func (a *Array) rebuildWriteResult(level RaidLevel, targetID, lba int, result string, recErr error) {
	target, ok := a.Drives[targetID]
	if !ok {
		return
	}

	role := RoleRebuilt
	if target.Status == StatusSyncing {
		role = RoleSynced
	}
	payload := result
	switch {
	case recErr != nil && level == RAID0:
		logrus.Warnf("array: lba %d permanently lost for drive %d: raid-0 has no redundancy", lba, targetID)
		payload = "LOST"
		role = RolePermLost
	case recErr != nil:
		logrus.Warnf("array: lba %d could not be reconstructed for drive %d: %v", lba, targetID, recErr)
		payload = "???"
		role = RoleRebuildFail
	}

	sector, wantSector := a.Placement.Lookup(lba, targetID)
	var err error
	if wantSector && sector != LostSector {
		err = target.TargetedWrite(sector, payload, role, lba, true)
	} else {
		sector, err = target.AppendWrite(payload, role, lba, true)
	}
	if err != nil {
		logrus.Warnf("array: failed to write rebuilt block for lba %d drive %d: %v", lba, targetID, err)
		return
	}
	if recErr == nil {
		a.Placement.Record(lba, targetID, sector)
	} else {
		a.Placement.MarkLost(lba, targetID)
	}
}

// reconstructBlock recovers the block that belongs at (targetID, lba),
// choosing the strategy appropriate to level. drives/placement reflect
// the array's live state. RAID-1 and RAID-10 copy from any surviving
// mirror and ignore failedPosition; RAID-5/6/50/60 pass it to
// historicalGroup to place the target within the write-time roster.
func reconstructBlock(level RaidLevel, all []int, drives map[int]*Drive, placement PlacementMap, targetID, failedPosition, lba int) (string, error) {
	switch {
	case level == RAID0:
		return "", ErrReconstructionUnavailable
	case level == RAID1:
		return reconstructMirror(all, drives, placement, targetID, lba)
	case level == RAID5:
		group, roleID := historicalGroup(all, targetID, failedPosition)
		return reconstructParity(group, drives, placement, roleID, lba)
	case level == RAID6:
		group, roleID := historicalGroup(all, targetID, failedPosition)
		return reconstructDualParity(group, drives, placement, roleID, lba)
	case level == RAID10:
		pair, err := PairOf(all, targetID)
		if err != nil {
			return "", err
		}
		return reconstructMirror(pair, drives, placement, targetID, lba)
	case level.Nested():
		roster, roleID := historicalGroup(all, targetID, failedPosition)
		group, err := SubArrayOf(level, roster, roleID)
		if err != nil {
			return "", err
		}
		if level.innerLevel() == RAID5 {
			return reconstructParity(group, drives, placement, roleID, lba)
		}
		return reconstructDualParity(group, drives, placement, roleID, lba)
	default:
		return "", ErrUnsupportedLevel
	}
}

// historicalGroup returns the roster and role-lookup id that positional
// (parity/syndrome) geometry should use when reconstructing lba for
// targetID. A brand-new replacement id was never part of the roster the
// writer saw, so it is excluded and failedPosition - the slot it stands
// in for - is used to find its position instead. A same-slot re-add
// (targetID == failedPosition) or an unpositioned call (failedPosition
// -1, e.g. a mirror sync or rebalance snapshot) needs no adjustment.
func historicalGroup(all []int, targetID, failedPosition int) ([]int, int) {
	if failedPosition >= 0 && failedPosition != targetID {
		return excludeID(all, targetID), failedPosition
	}
	return all, targetID
}

func excludeID(ids []int, exclude int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

// reconstructMirror scans every other member of group for a live copy of
// lba's block.
func reconstructMirror(group []int, drives map[int]*Drive, placement PlacementMap, targetID, lba int) (string, error) {
	for _, id := range group {
		if id == targetID {
			continue
		}
		d, ok := drives[id]
		if !ok || !d.Active {
			continue
		}
		sector, ok := placement.Lookup(lba, id)
		if !ok || sector == LostSector {
			continue
		}
		if payload, ok := d.Read(sector); ok {
			return payload, nil
		}
	}
	return "", ErrReconstructionUnavailable
}

// blockAt is a small helper: the live payload and role at (driveID, lba),
// if the drive is active and the block survived.
func blockAt(drives map[int]*Drive, placement PlacementMap, driveID, lba int) (string, Role, bool) {
	d, ok := drives[driveID]
	if !ok || !d.Active {
		return "", "", false
	}
	sector, ok := placement.Lookup(lba, driveID)
	if !ok || sector == LostSector {
		return "", "", false
	}
	payload, ok := d.Read(sector)
	if !ok {
		return "", "", false
	}
	return payload, d.Sectors[sector].Role, true
}

// reconstructParity recomputes a RAID-5 block: the conceptual parity
// drive for lba is whichever member of group index lba%len(group) names,
// determined positionally over the WHOLE group (not just the active
// members), since that is what the writer used at write time.
func reconstructParity(group []int, drives map[int]*Drive, placement PlacementMap, targetID, lba int) (string, error) {
	n := len(group)
	if n == 0 {
		return "", ErrReconstructionUnavailable
	}
	parityDrive := group[lba%n]

	var dataPayload string
	haveData := false
	var parityPayload string
	haveParity := false

	for _, id := range group {
		if id == targetID {
			continue
		}
		payload, _, ok := blockAt(drives, placement, id, lba)
		if !ok {
			continue
		}
		if id == parityDrive {
			parityPayload, haveParity = payload, true
		} else if !haveData {
			dataPayload, haveData = payload, true
		}
	}

	if targetID == parityDrive {
		if !haveData {
			return "", ErrReconstructionUnavailable
		}
		return computeParity(dataPayload), nil
	}

	switch {
	case haveParity && haveData:
		return recoverViaParity(parityPayload, dataPayload)
	case haveParity:
		return recoverViaParity(parityPayload, "")
	default:
		return "", ErrReconstructionUnavailable
	}
}

// reconstructDualParity is RAID-6's analogue of reconstructParity,
// preferring the P-parity path and falling back to Q only when P did not
// survive.
func reconstructDualParity(group []int, drives map[int]*Drive, placement PlacementMap, targetID, lba int) (string, error) {
	n := len(group)
	if n < 2 {
		return "", ErrReconstructionUnavailable
	}
	pDrive := group[lba%n]
	qIdx := (lba + 1) % n
	if group[qIdx] == pDrive {
		qIdx = (qIdx + 1) % n
	}
	qDrive := group[qIdx]

	var dataPayload, pPayload, qPayload string
	var haveData, haveP, haveQ bool

	for _, id := range group {
		if id == targetID {
			continue
		}
		payload, _, ok := blockAt(drives, placement, id, lba)
		if !ok {
			continue
		}
		switch id {
		case pDrive:
			pPayload, haveP = payload, true
		case qDrive:
			qPayload, haveQ = payload, true
		default:
			if !haveData {
				dataPayload, haveData = payload, true
			}
		}
	}

	switch targetID {
	case pDrive:
		if !haveData {
			return "", ErrReconstructionUnavailable
		}
		return computeParity(dataPayload), nil
	case qDrive:
		if !haveData {
			return "", ErrReconstructionUnavailable
		}
		return computeQSyndrome(dataPayload, lba), nil
	default:
		switch {
		case haveP && haveData:
			return recoverViaParity(pPayload, dataPayload)
		case haveQ && !haveP:
			return recoverViaQSyndrome(qPayload, lba)
		case haveP:
			return recoverViaParity(pPayload, "")
		default:
			return "", ErrReconstructionUnavailable
		}
	}
}
