package raid

import "fmt"

// RaidLevel is a closed, typed enumeration of supported geometries,
// replacing a dynamic dictionary-of-configs with a per-variant constants
// table.
type RaidLevel int

const (
	RAID0  RaidLevel = 0
	RAID1  RaidLevel = 1
	RAID5  RaidLevel = 5
	RAID6  RaidLevel = 6
	RAID10 RaidLevel = 10
	RAID50 RaidLevel = 50
	RAID60 RaidLevel = 60
)

// LevelConfig is the per-variant constants table: minimum drive count,
// display name, and fault tolerance (simultaneous failures survived
// without data loss).
type LevelConfig struct {
	MinDrives      int
	Name           string
	FaultTolerance int
}

var levelConfigs = map[RaidLevel]LevelConfig{
	RAID0:  {MinDrives: 2, Name: "RAID-0 (Striping)", FaultTolerance: 0},
	RAID1:  {MinDrives: 2, Name: "RAID-1 (Mirroring)", FaultTolerance: 1},
	RAID5:  {MinDrives: 3, Name: "RAID-5 (Striping with Parity)", FaultTolerance: 1},
	RAID6:  {MinDrives: 4, Name: "RAID-6 (Striping with Dual Parity)", FaultTolerance: 2},
	RAID10: {MinDrives: 4, Name: "RAID-10 (Mirrored Stripes)", FaultTolerance: 2},
	RAID50: {MinDrives: 6, Name: "RAID-50 (Striped RAID-5)", FaultTolerance: 2},
	RAID60: {MinDrives: 8, Name: "RAID-60 (Striped RAID-6)", FaultTolerance: 4},
}

// Config returns the constants table entry for a level, or an error if the
// level is not one of the seven supported geometries.
func (l RaidLevel) Config() (LevelConfig, error) {
	cfg, ok := levelConfigs[l]
	if !ok {
		return LevelConfig{}, fmt.Errorf("%w: %d", ErrUnsupportedLevel, int(l))
	}
	return cfg, nil
}

// Valid reports whether l is one of the seven supported geometries.
func (l RaidLevel) Valid() bool {
	_, ok := levelConfigs[l]
	return ok
}

func (l RaidLevel) String() string {
	if cfg, err := l.Config(); err == nil {
		return cfg.Name
	}
	return fmt.Sprintf("RAID-%d (unknown)", int(l))
}

// Nested reports whether a level is a striped array of sub-arrays
// (RAID-50/60), which this engine never expands dynamically.
func (l RaidLevel) Nested() bool {
	return l == RAID50 || l == RAID60
}

// innerLevel returns the RAID level used inside each sub-group of a
// nested level (5 for RAID-50, 6 for RAID-60).
func (l RaidLevel) innerLevel() RaidLevel {
	switch l {
	case RAID50:
		return RAID5
	case RAID60:
		return RAID6
	default:
		return l
	}
}
