package raid

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// HealthStatus is the engine's four-way health classification, each
// level strictly more severe than the last.
type HealthStatus int

const (
	HealthOK HealthStatus = iota
	HealthInconsistent
	HealthDegraded
	HealthCritical
)

func (h HealthStatus) String() string {
	switch h {
	case HealthInconsistent:
		return "INCONSISTENT"
	case HealthDegraded:
		return "DEGRADED"
	case HealthCritical:
		return "CRITICAL"
	default:
		return "OK"
	}
}

func (h HealthStatus) worseThan(other HealthStatus) bool { return h > other }

// LBAHealth records how many of a block's expected surviving components
// are actually reachable.
type LBAHealth struct {
	LBA       int
	Expected  int
	Available int
	Status    HealthStatus
}

// HealthReport is the outcome of a full array health check.
type HealthReport struct {
	Overall      HealthStatus
	ActiveDrives int
	TotalDrives  int
	WorkerState  WorkerState
	Blocks       []LBAHealth
}

// expectedComponents is the per-geometry count of sources a single LBA
// should have available when fully healthy: 1 for RAID-0 (no
// redundancy), every drive for RAID-1, 2 for RAID-5/10/50 (data plus
// parity or mirror) and 3 for RAID-6/60 (data, P and Q).
func expectedComponents(level RaidLevel, groupSize int) int {
	switch {
	case level == RAID0:
		return 1
	case level == RAID1:
		return groupSize
	case level == RAID5:
		return 2
	case level == RAID6:
		return 3
	case level == RAID10:
		return 2
	case level.Nested() && level.innerLevel() == RAID5:
		return 2
	case level.Nested() && level.innerLevel() == RAID6:
		return 3
	default:
		return 1
	}
}

// blockStatus turns an available/expected pair into a per-block status:
// zero survivors is always critical, a partial shortfall is degraded
// (or, for RAID-1's every-copy-should-match semantics, reported as
// inconsistent since the remaining copies still disagree about
// completeness), full survival is OK.
func blockStatus(level RaidLevel, available, expected int) HealthStatus {
	if available <= 0 {
		return HealthCritical
	}
	if available < expected {
		if level == RAID1 {
			return HealthInconsistent
		}
		return HealthDegraded
	}
	return HealthOK
}

// HealthCheck audits every drive for liveness/signature problems, then
// fans out across all written LBAs (one errgroup goroutine per LBA, with
// no concurrency limit, the same fan-out shape the pack uses for
// per-item validation sweeps) to find blocks that have lost some or all
// of their redundancy. The array lock is held for the whole check, so a
// running worker cannot change the placement map underneath it.
func (a *Array) HealthCheck() (HealthReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	level := a.Level
	all := a.allDriveIDs()
	totalLBA := a.CurrentLBA
	workerState := a.gate.State()
	drives := a.Drives
	placement := a.Placement

	active := 0
	for _, id := range all {
		if drives[id].Active {
			active++
		}
	}

	cfg, err := level.Config()
	if err != nil {
		return HealthReport{}, err
	}

	overall := HealthOK
	if active < len(all)-cfg.FaultTolerance {
		overall = HealthCritical
	} else if active < len(all) {
		overall = HealthDegraded
	}
	if workerState != WorkerIdle {
		switch overall {
		case HealthOK, HealthInconsistent:
			overall = HealthDegraded
		}
	}

	blocks := make([]LBAHealth, totalLBA)
	g, _ := errgroup.WithContext(context.Background())
	for lba := 0; lba < totalLBA; lba++ {
		lba := lba
		g.Go(func() error {
			group, groupSize, err := groupFor(level, all, lba)
			if err != nil {
				return err
			}
			available := 0
			for _, id := range group {
				d, ok := drives[id]
				if !ok || !d.Active {
					continue
				}
				sector, ok := placement.Lookup(lba, id)
				if !ok || sector == LostSector {
					continue
				}
				if _, ok := d.Read(sector); ok {
					available++
				}
			}
			expected := expectedComponents(level, groupSize)
			blocks[lba] = LBAHealth{
				LBA:       lba,
				Expected:  expected,
				Available: available,
				Status:    blockStatus(level, available, expected),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return HealthReport{}, err
	}

	for _, b := range blocks {
		if b.Status.worseThan(overall) {
			overall = b.Status
		}
	}

	return HealthReport{
		Overall:      overall,
		ActiveDrives: active,
		TotalDrives:  len(all),
		WorkerState:  workerState,
		Blocks:       blocks,
	}, nil
}

// groupFor returns the set of drives (and its size, used for
// expectedComponents) relevant to an LBA's redundancy: the mirrored pair
// for RAID-10, the sub-array for RAID-50/60, the whole active-eligible
// roster otherwise.
func groupFor(level RaidLevel, all []int, lba int) ([]int, int, error) {
	switch {
	case level == RAID10:
		pairs := pairUp(all)
		if len(pairs) == 0 {
			return nil, 0, fmt.Errorf("%w: no mirrored pairs", ErrBelowWriteQuorum)
		}
		pair := pairs[lba%len(pairs)]
		return pair, len(pair), nil
	case level.Nested():
		inner := level.innerLevel()
		cfg, err := inner.Config()
		if err != nil {
			return nil, 0, err
		}
		groups := subArrays(all, cfg.MinDrives)
		if len(groups) == 0 {
			return nil, 0, fmt.Errorf("%w: no sub-arrays", ErrBelowWriteQuorum)
		}
		group := groups[lba%len(groups)]
		return group, len(group), nil
	default:
		return all, len(all), nil
	}
}
