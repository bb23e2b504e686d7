package raid

import "errors"

// Sentinel errors surfaced by the core. Callers match them with
// errors.Is; none of these are meant to crash the driver, they are
// translated into drive-failure transitions or refused operations, with
// the detail logged.
var (
	ErrUnsupportedLevel = errors.New("raid: unsupported raid level")

	ErrDriveInactive             = errors.New("raid: drive inactive")
	ErrBelowWriteQuorum          = errors.New("raid: below write quorum")
	ErrBeyondFaultTolerance      = errors.New("raid: beyond fault tolerance")
	ErrArtifactMissing           = errors.New("raid: drive artifact missing")
	ErrSignatureMismatch         = errors.New("raid: drive signature mismatch")
	ErrReconstructionUnavailable = errors.New("raid: reconstruction unavailable")
	ErrWorkerBusy                = errors.New("raid: rebuild or rebalance already active")

	ErrInvalidDriveIndex   = errors.New("raid: invalid drive index")
	ErrRebalanceNotOffered = errors.New("raid: rebalance not offered for this raid level")
	ErrCatalogLoad         = errors.New("raid: failed to load catalog")
	ErrCatalogSave         = errors.New("raid: failed to save catalog")
	ErrCatalogSchema       = errors.New("raid: catalog failed schema validation")
)
