package raid

// Role is the function a stored block plays in its stripe: a closed set
// of tags, each carrying the same payload shape, replacing a duck-typed
// {data, type, lba?} map.
type Role string

const (
	RoleData        Role = "DATA"
	RoleParity      Role = "PARITY"
	RoleParityP     Role = "PARITY-P"
	RoleParityQ     Role = "PARITY-Q"
	RoleRebuilt     Role = "REBUILT"
	RoleSynced      Role = "SYNCED"
	RolePermLost    Role = "PERM_LOST"
	RoleRebuildFail Role = "REBUILD-FAIL"
)

// SectorEntry is one physical sector's contents: a payload, the role it
// plays, and the LBA it belongs to (sectors written outside any LBA
// context, which never happens in this engine, would carry HasLBA=false).
type SectorEntry struct {
	Payload string
	Role    Role
	LBA     int
	HasLBA  bool
}

// LostSector is the sentinel placement value meaning "was written, now
// permanently lost".
const LostSector = -1
