package raid

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DriveStatus is a drive's lifecycle state.
type DriveStatus string

const (
	StatusActive                  DriveStatus = "active"
	StatusRebuilding              DriveStatus = "rebuilding"
	StatusSyncing                 DriveStatus = "syncing"
	StatusReAdding                DriveStatus = "re_adding"
	StatusRebalancing             DriveStatus = "rebalancing"
	StatusFailed                  DriveStatus = "failed"
	StatusFailedFileMissing       DriveStatus = "failed_file_missing"
	StatusFailedSignatureMismatch DriveStatus = "failed_signature_mismatch"
	StatusPermanentlyFailed       DriveStatus = "permanently_failed"
)

// Drive simulates a single disk: a sparse map of physical sectors, a
// monotonic next-sector counter, a liveness flag and an identity
// signature, plus the human-readable on-disk artifact that mirrors its
// in-memory state.
type Drive struct {
	mu sync.Mutex

	ID         int
	FolderPath string
	Signature  string
	CreatedAt  time.Time

	Active bool
	Status DriveStatus

	Sectors            map[int]SectorEntry
	NextPhysicalSector int
}

// NewDrive creates a drive and renders its artifact file immediately. If
// signature is empty a fresh one is minted with uuid.
func NewDrive(id int, folderPath, signature string) *Drive {
	if signature == "" {
		signature = uuid.New().String()
	}
	d := &Drive{
		ID:                 id,
		FolderPath:         folderPath,
		Signature:          signature,
		CreatedAt:          time.Now(),
		Active:             true,
		Status:             StatusActive,
		Sectors:            make(map[int]SectorEntry),
		NextPhysicalSector: 0,
	}
	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render initial artifact: %v", id, err)
	}
	return d
}

// ArtifactPath is the drive's on-disk file: <folder>/disk_<id>.
func (d *Drive) ArtifactPath() string {
	return filepath.Join(d.FolderPath, fmt.Sprintf("%s%d", config.DriveFilePrefix, d.ID))
}

// fingerprint is a short sha256 digest of the signature folded with the
// drive id, stamped into the artifact purely as an integrity cue for a
// human reader; signature equality (not the fingerprint) is what the
// catalog actually checks on load.
func (d *Drive) fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", d.ID, d.Signature)))
	return hex.EncodeToString(sum[:])[:12]
}

// AppendWrite assigns the next physical sector, requires the drive to be
// active.
func (d *Drive) AppendWrite(payload string, role Role, lba int, hasLBA bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Active {
		return 0, fmt.Errorf("%w: drive %d", ErrDriveInactive, d.ID)
	}

	sector := d.NextPhysicalSector
	d.Sectors[sector] = SectorEntry{Payload: payload, Role: role, LBA: lba, HasLBA: hasLBA}
	d.NextPhysicalSector++

	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render artifact after write: %v", d.ID, err)
	}
	logrus.Debugf("drive %d: wrote %q to sector %d (lba=%d) as %s", d.ID, payload, sector, lba, role)
	return sector, nil
}

// TargetedWrite writes to a caller-specified sector, used only by the
// rebuild/rebalance workers. If sector is beyond the current counter, the
// counter advances past it.
func (d *Drive) TargetedWrite(sector int, payload string, role Role, lba int, hasLBA bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Active {
		return fmt.Errorf("%w: drive %d", ErrDriveInactive, d.ID)
	}

	d.Sectors[sector] = SectorEntry{Payload: payload, Role: role, LBA: lba, HasLBA: hasLBA}
	if sector >= d.NextPhysicalSector {
		d.NextPhysicalSector = sector + 1
	}

	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render artifact after targeted write: %v", d.ID, err)
	}
	logrus.Debugf("drive %d: targeted-wrote %q to sector %d (lba=%d) as %s", d.ID, payload, sector, lba, role)
	return nil
}

// Read returns the payload at sector, or (.., false) if the drive is
// inactive, the artifact has vanished, or nothing was ever written there.
func (d *Drive) Read(sector int) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Active {
		return "", false
	}

	if _, err := os.Stat(d.ArtifactPath()); err != nil {
		logrus.Errorf("drive %d: artifact missing on read, marking failed_file_missing", d.ID)
		d.Active = false
		d.Status = StatusFailedFileMissing
		return "", false
	}

	entry, ok := d.Sectors[sector]
	if !ok {
		return "", false
	}
	return entry.Payload, true
}

// MarkFailed is idempotent: it sets Active=false, Status=failed, and
// re-renders the artifact.
func (d *Drive) MarkFailed() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Active = false
	d.Status = StatusFailed
	logrus.Errorf("drive %d: marked failed", d.ID)
	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render artifact on failure: %v", d.ID, err)
	}
}

// Reset clears a drive's sectors and counter, used when a replacement
// drive takes over a failed slot or a new drive is wiped before a
// rebuild/rebalance run.
func (d *Drive) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Sectors = make(map[int]SectorEntry)
	d.NextPhysicalSector = 0
}

// SetStatus updates status without touching Active, for transitions like
// rebuilding/syncing/re_adding/rebalancing.
func (d *Drive) SetStatus(status DriveStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Status = status
	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render artifact after status change: %v", d.ID, err)
	}
}

// Activate marks the drive active with the given status (rebuilding,
// syncing, active, ...). Caller holds no lock.
func (d *Drive) Activate(status DriveStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Active = true
	d.Status = status
	if err := d.render(); err != nil {
		logrus.Warnf("drive %d: failed to render artifact after activation: %v", d.ID, err)
	}
}

// readArtifactSignature scans a drive artifact for its "Signature:" line,
// used by the catalog loader to cross-check a recorded drive against
// what is actually sitting on disk.
func readArtifactSignature(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	const prefix = "Signature: "
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), nil
		}
	}
	return "", scanner.Err()
}

// parseArtifactSectors re-derives a drive's sector table from its rendered
// artifact's BLOCK DIAGRAM section, the tabwriter.Debug-rendered
// Sector/LBA/Role/Payload table render() writes. This is the catalog
// loader's only way to recover sector contents after a restart: the JSON
// catalog itself tracks placement and drive metadata but never payloads.
func parseArtifactSectors(path string) (map[int]SectorEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sectors := make(map[int]SectorEntry)
	scanner := bufio.NewScanner(f)

	inTable := false
	sawHeader := false
	for scanner.Scan() {
		line := scanner.Text()
		if !inTable {
			if strings.TrimSpace(line) == "BLOCK DIAGRAM:" {
				inTable = true
			}
			continue
		}
		if !sawHeader {
			// first line inside the table is the "Sector|LBA|Role|Payload" header
			sawHeader = true
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			return nil, fmt.Errorf("drive artifact %s: malformed block diagram row %q", path, line)
		}
		sectorStr := strings.TrimSpace(fields[0])
		lbaStr := strings.TrimSpace(fields[1])
		roleStr := strings.TrimSpace(fields[2])
		payload := strings.TrimSpace(fields[3])

		sector, err := strconv.Atoi(sectorStr)
		if err != nil {
			return nil, fmt.Errorf("drive artifact %s: bad sector %q: %w", path, sectorStr, err)
		}

		entry := SectorEntry{Payload: payload, Role: Role(roleStr)}
		if lbaStr != "N/A" {
			lba, err := strconv.Atoi(lbaStr)
			if err != nil {
				return nil, fmt.Errorf("drive artifact %s: bad lba %q: %w", path, lbaStr, err)
			}
			entry.LBA = lba
			entry.HasLBA = true
		}
		sectors[sector] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sectors, nil
}

// render rewrites the drive's human-readable artifact: header, metadata,
// and a sector table in ascending physical-sector order. Losing the
// artifact mid-render transitions the drive to failed_file_missing.
func (d *Drive) render() error {
	if err := os.MkdirAll(d.FolderPath, 0o755); err != nil {
		return err
	}

	f, err := os.Create(d.ArtifactPath())
	if err != nil {
		if d.Active {
			d.Active = false
			d.Status = StatusFailedFileMissing
		}
		return fmt.Errorf("%w: %v", ErrArtifactMissing, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "RAID DRIVE %d - DEMONSTRATION FILE\n", d.ID)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "METADATA:")
	fmt.Fprintf(w, "Drive ID: %d\n", d.ID)
	fmt.Fprintf(w, "Status: %s\n", d.Status)
	fmt.Fprintf(w, "Created: %s\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Signature: %s\n", d.Signature)
	fmt.Fprintf(w, "Fingerprint: %s\n", d.fingerprint())
	fmt.Fprintf(w, "Used Sectors: %d\n", len(d.Sectors))
	fmt.Fprintf(w, "Next Physical Sector: %d\n\n", d.NextPhysicalSector)
	fmt.Fprintln(w, "BLOCK DIAGRAM:")

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', tabwriter.Debug)
	fmt.Fprintln(tw, "Sector\tLBA\tRole\tPayload")

	sectors := make([]int, 0, len(d.Sectors))
	for s := range d.Sectors {
		sectors = append(sectors, s)
	}
	sort.Ints(sectors)

	for _, s := range sectors {
		entry := d.Sectors[s]
		preview := entry.Payload
		if len(preview) > 8 {
			preview = preview[:8]
		}
		lbaDisplay := "N/A"
		if entry.HasLBA {
			lbaDisplay = fmt.Sprintf("%d", entry.LBA)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s, lbaDisplay, entry.Role, preview)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	return w.Flush()
}
