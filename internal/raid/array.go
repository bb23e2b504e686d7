package raid

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Array is the in-memory, operating instance of a RAID array: its
// geometry, its drives, the logical-to-physical placement map, and the
// single background-worker gate that serializes rebuild/rebalance runs.
type Array struct {
	mu sync.RWMutex

	Level      RaidLevel
	Signature  string
	FolderPath string
	CurrentLBA int
	Placement  PlacementMap
	Drives     map[int]*Drive

	gate      *workerGate
	decisions []GeometryDecision
}

// CreateArray provisions a brand-new array: a fresh array signature, a
// folder, and numDrives freshly minted drives numbered 0..numDrives-1.
func CreateArray(folder string, level RaidLevel, numDrives int) (*Array, error) {
	cfg, err := level.Config()
	if err != nil {
		return nil, err
	}
	if numDrives < cfg.MinDrives {
		return nil, fmt.Errorf("%w: %s needs at least %d drives, got %d", ErrBelowWriteQuorum, cfg.Name, cfg.MinDrives, numDrives)
	}

	gate, err := newWorkerGate()
	if err != nil {
		return nil, err
	}

	a := &Array{
		Level:      level,
		Signature:  uuid.New().String(),
		FolderPath: folder,
		CurrentLBA: 0,
		Placement:  NewPlacementMap(),
		Drives:     make(map[int]*Drive, numDrives),
		gate:       gate,
	}

	for i := 0; i < numDrives; i++ {
		a.Drives[i] = NewDrive(i, folder, "")
	}

	logrus.Infof("array: created %s with %d drives in %s", cfg.Name, numDrives, folder)
	if err := a.save(); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenArray loads an existing array's catalog and reattaches its drives.
func OpenArray(folder string) (*Array, error) {
	loaded, err := LoadCatalog(folder)
	if err != nil {
		return nil, err
	}

	gate, err := newWorkerGate()
	if err != nil {
		return nil, err
	}

	a := &Array{
		Level:      loaded.Level,
		Signature:  loaded.Signature,
		FolderPath: folder,
		CurrentLBA: loaded.CurrentLBA,
		Placement:  loaded.Placement,
		Drives:     make(map[int]*Drive, len(loaded.Drives)),
		gate:       gate,
	}
	for _, d := range loaded.Drives {
		a.Drives[d.ID] = d
	}
	return a, nil
}

func (a *Array) allDriveIDs() []int {
	ids := make([]int, 0, len(a.Drives))
	for id := range a.Drives {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (a *Array) activeDriveIDs() []int {
	ids := make([]int, 0, len(a.Drives))
	for id, d := range a.Drives {
		if d.Active {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (a *Array) save() error {
	drives := make([]*Drive, 0, len(a.Drives))
	for _, id := range a.allDriveIDs() {
		drives = append(drives, a.Drives[id])
	}
	return SaveCatalog(a.FolderPath, a.Level, a.Signature, a.CurrentLBA, a.Placement, drives)
}

// WriteData appends data to the array one character at a time, each
// character becoming one new LBA. Quorum is checked per character
// against the array's current active roster: RAID-0 requires every
// drive up, every other level requires active count to cover its fault
// tolerance. If a sub-write fails mid-LBA, that drive is marked failed,
// its placement entry is set to LostSector if it was the data
// destination, and the rest of the input string is abandoned; every LBA
// allocated up to and including the failing one stays committed and the
// catalog is saved before the error is returned.
func (a *Array) WriteData(data string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gate.Busy() {
		return ErrWorkerBusy
	}

	cfg, err := a.Level.Config()
	if err != nil {
		return err
	}

	for _, r := range data {
		active := a.activeDriveIDs()
		total := len(a.Drives)

		if a.Level == RAID0 {
			if len(active) < total {
				return fmt.Errorf("%w: raid-0 requires all %d drives active, %d active", ErrBelowWriteQuorum, total, len(active))
			}
		} else if len(active) < total-cfg.FaultTolerance {
			return fmt.Errorf("%w: need %d active drives, have %d", ErrBeyondFaultTolerance, total-cfg.FaultTolerance, len(active))
		}

		lba := a.CurrentLBA
		writeErr := a.writeChar(string(r), lba, active)
		a.CurrentLBA++
		if err := a.save(); err != nil {
			return err
		}
		if writeErr != nil {
			return writeErr
		}
	}
	return nil
}

// writeChar places one character's blocks (data plus whatever parity the
// geometry demands) across the drives WriteAssignments selects for lba,
// in the order Geometry returned them (data first). A sub-write failure
// marks that drive failed, records a lost placement entry if it was the
// data destination, and stops: assignments already committed for this
// lba stay recorded, assignments after the failure are never attempted.
func (a *Array) writeChar(char string, lba int, active []int) error {
	assignments, err := WriteAssignments(a.Level, a.allDriveIDs(), active, lba)
	if err != nil {
		return err
	}

	var dataBlock string
	for _, asg := range assignments {
		if asg.Role == RoleData {
			dataBlock = char
		}
	}

	for _, asg := range assignments {
		drive := a.Drives[asg.DriveID]
		payload := char
		switch asg.Role {
		case RoleParity, RoleParityP:
			payload = computeParity(dataBlock)
		case RoleParityQ:
			payload = computeQSyndrome(dataBlock, lba)
		}
		sector, err := drive.AppendWrite(payload, asg.Role, lba, true)
		if err != nil {
			drive.MarkFailed()
			if asg.Role == RoleData {
				a.Placement.MarkLost(lba, asg.DriveID)
			}
			return err
		}
		a.Placement.Record(lba, asg.DriveID, sector)
		a.recordDecision(lba, asg.DriveID, asg.Role)
	}
	return nil
}

// recordDecision appends one committed geometry decision to the scrub log,
// trimming from the front once it grows past config.DecisionLogCap. Caller
// holds a.mu.
func (a *Array) recordDecision(lba, driveID int, role Role) {
	a.decisions = append(a.decisions, GeometryDecision{LBA: lba, DriveID: driveID, Role: role})
	if over := len(a.decisions) - config.DecisionLogCap; over > 0 {
		a.decisions = a.decisions[over:]
	}
}

// RecentDecisions returns a copy of the array's scrub log: every role
// assignment decision committed by writeChar, oldest first, bounded to the
// last config.DecisionLogCap entries.
func (a *Array) RecentDecisions() []GeometryDecision {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]GeometryDecision, len(a.decisions))
	copy(out, a.decisions)
	return out
}

// AddDrive provisions a new drive and returns its id. Dynamic growth
// (initialSetup=false) is refused for RAID-10/50/60, whose positional
// grouping is fixed at creation time. AddDrive only provisions the
// drive; it is the caller's job to follow up with StartRebuild (RAID-1's
// new mirror, or any same-slot re-add) or StartRebalance (RAID-0/5/6's
// re-stripe), matching the engine's external interface where these are
// distinct operations.
func (a *Array) AddDrive(initialSetup bool) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !initialSetup && (a.Level.Nested() || a.Level == RAID10) {
		return 0, fmt.Errorf("%w: cannot grow %s dynamically", ErrUnsupportedLevel, a.Level)
	}

	id := 0
	for {
		if _, taken := a.Drives[id]; !taken {
			break
		}
		id++
	}
	a.Drives[id] = NewDrive(id, a.FolderPath, "")
	if !initialSetup {
		a.Drives[id].SetStatus(StatusSyncing)
	}
	if err := a.save(); err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveDrive simulates a drive failure: the drive is marked failed and
// stays in the roster (so rebuild/rebalance can target its old slot)
// rather than being deleted outright.
func (a *Array) RemoveDrive(driveID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	d, ok := a.Drives[driveID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidDriveIndex, driveID)
	}
	d.MarkFailed()
	return a.save()
}

// DisplayStatus renders a human-readable summary of the array: geometry,
// signature, drive table, and current worker activity.
func (a *Array) DisplayStatus() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cfg, err := a.Level.Config()
	name := a.Level.String()
	if err == nil {
		name = cfg.Name
	}

	out := fmt.Sprintf("Array %s\n  level:     %s\n  signature: %s\n  folder:    %s\n  lba count: %d\n  worker:    %s\n",
		name, name, a.Signature, a.FolderPath, a.CurrentLBA, a.gate.State())

	out += "  drives:\n"
	for _, id := range a.allDriveIDs() {
		d := a.Drives[id]
		out += fmt.Sprintf("    [%d] active=%-5v status=%-26s sectors=%d\n", d.ID, d.Active, d.Status, len(d.Sectors))
	}
	return out
}

// Cleanup stops any in-flight background worker and releases the array's
// worker slot. It does not delete drive artifacts or the catalog file;
// those remain on disk for later inspection.
func (a *Array) Cleanup() {
	a.gate.Stop()
	a.gate.Close()
}
