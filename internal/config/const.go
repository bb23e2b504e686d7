package config

import "time"

// Log levels accepted by logger.InitLogger.
const (
	LogLevelDebug   string = "debug"
	LogLevelInfo    string = "info"
	LogLevelWarning string = "warn"
	LogLevelError   string = "error"

	LogFilePath string = "raid-simulator/log/log_output.txt"

	Version string = "0.1.0"
)

// Engine-wide tunables, kept as plain constants rather than a parsed
// config struct.
const (
	// CatalogDirPrefix is the folder an array's on-disk artifacts live under:
	// CatalogDirPrefix + "<level>" (e.g. "raid_5").
	CatalogDirPrefix = "raid_"

	// CatalogFileName is the JSON snapshot written inside each array folder.
	CatalogFileName = "raid_config.json"

	// DriveFilePrefix names each drive's human-readable artifact file.
	DriveFilePrefix = "disk_"

	// WorkerYieldInterval paces the rebuild/rebalance workers between LBAs,
	// the simulated-I/O yield point described by the engine's concurrency
	// model. Kept small so demonstrations and tests stay fast.
	WorkerYieldInterval = 2 * time.Millisecond

	// DecisionLogCap bounds the in-memory scrub log of geometry role
	// assignments: the oldest entries are dropped once this many have
	// accumulated, so a long-running array doesn't grow the log forever.
	DecisionLogCap = 500
)
