package raid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// catalogSchema is validated against every catalog document before it is
// trusted, the same defensive posture bundoc's database.go takes with
// collection schemas: warn and refuse rather than load something
// malformed.
const catalogSchema = `{
	"type": "object",
	"required": ["raid_level", "raid_signature", "current_logical_block_index", "logical_to_physical_map", "drives"],
	"properties": {
		"raid_level": {"type": "integer"},
		"raid_signature": {"type": "string"},
		"current_logical_block_index": {"type": "integer"},
		"logical_to_physical_map": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["lba", "drive_id", "sector"],
				"properties": {
					"lba": {"type": "integer"},
					"drive_id": {"type": "integer"},
					"sector": {"type": "integer"}
				}
			}
		},
		"drives": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "signature", "is_active", "status", "next_physical_sector"],
				"properties": {
					"id": {"type": "integer"},
					"signature": {"type": "string"},
					"is_active": {"type": "boolean"},
					"status": {"type": "string"},
					"next_physical_sector": {"type": "integer"}
				}
			}
		}
	}
}`

// driveDoc is one drive's serialized record within the catalog.
type driveDoc struct {
	ID                 int    `json:"id"`
	Signature          string `json:"signature"`
	IsActive           bool   `json:"is_active"`
	Status             string `json:"status"`
	NextPhysicalSector int    `json:"next_physical_sector"`
}

// placementRecord is one (lba, drive_id) -> sector entry. The catalog
// serializes placement as a flat array of these rather than a
// JSON object keyed by stringified integers, so the wire format never
// depends on implicit numeric-string coercion.
type placementRecord struct {
	LBA     int `json:"lba"`
	DriveID int `json:"drive_id"`
	Sector  int `json:"sector"`
}

// catalogDoc is the on-disk catalog document, field names matched to the
// wire format this engine has always used.
type catalogDoc struct {
	RaidLevel                int                `json:"raid_level"`
	RaidSignature            string             `json:"raid_signature"`
	CurrentLogicalBlockIndex int                `json:"current_logical_block_index"`
	LogicalToPhysicalMap     []placementRecord  `json:"logical_to_physical_map"`
	Drives                   []driveDoc         `json:"drives"`
}

// CatalogPath returns <folder>/raid_config.json.
func CatalogPath(folder string) string {
	return filepath.Join(folder, config.CatalogFileName)
}

// SaveCatalog serializes the array's current state and writes it to
// disk, validating against catalogSchema first so a programming error
// never persists a document the loader would then choke on.
func SaveCatalog(folder string, level RaidLevel, signature string, currentLBA int, placement PlacementMap, drives []*Drive) error {
	doc := catalogDoc{
		RaidLevel:                int(level),
		RaidSignature:            signature,
		CurrentLogicalBlockIndex: currentLBA,
	}
	lbas := make([]int, 0, len(placement))
	for lba := range placement {
		lbas = append(lbas, lba)
	}
	sort.Ints(lbas)
	for _, lba := range lbas {
		for _, driveID := range placement.DrivesFor(lba) {
			sector, _ := placement.Lookup(lba, driveID)
			doc.LogicalToPhysicalMap = append(doc.LogicalToPhysicalMap, placementRecord{
				LBA: lba, DriveID: driveID, Sector: sector,
			})
		}
	}
	for _, d := range drives {
		doc.Drives = append(doc.Drives, driveDoc{
			ID:                 d.ID,
			Signature:          d.Signature,
			IsActive:           d.Active,
			Status:             string(d.Status),
			NextPhysicalSector: d.NextPhysicalSector,
		})
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogSave, err)
	}

	if err := validateCatalogJSON(raw); err != nil {
		return err
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogSave, err)
	}
	if err := os.WriteFile(CatalogPath(folder), raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogSave, err)
	}
	return nil
}

func validateCatalogJSON(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogSchema, err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			logrus.Errorf("catalog: schema violation: %s", desc)
		}
		return fmt.Errorf("%w: %d violation(s)", ErrCatalogSchema, len(result.Errors()))
	}
	return nil
}

// LoadedCatalog is the result of loading and revalidating a catalog
// against the drive artifacts actually present on disk.
type LoadedCatalog struct {
	Level      RaidLevel
	Signature  string
	CurrentLBA int
	Placement  PlacementMap
	Drives     []*Drive
}

// LoadCatalog reads the catalog document, validates it, and reattaches
// each recorded drive to its on-disk artifact. A drive whose artifact
// file is gone becomes failed_file_missing, and a drive whose live
// signature does not match the one recorded transitions to
// failed_signature_mismatch; a drive already recorded failed keeps that
// status in both cases (a problem on an already-dead drive is not news).
// Surviving drives are restored to their recorded status and re-sorted
// by id.
func LoadCatalog(folder string) (*LoadedCatalog, error) {
	raw, err := os.ReadFile(CatalogPath(folder))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	if err := validateCatalogJSON(raw); err != nil {
		return nil, err
	}

	var doc catalogDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}

	level := RaidLevel(doc.RaidLevel)
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLevel, doc.RaidLevel)
	}

	placement := NewPlacementMap()
	for _, rec := range doc.LogicalToPhysicalMap {
		placement.Record(rec.LBA, rec.DriveID, rec.Sector)
	}

	drives := make([]*Drive, 0, len(doc.Drives))
	for _, dd := range doc.Drives {
		d := &Drive{
			ID:                 dd.ID,
			FolderPath:         folder,
			Signature:          dd.Signature,
			Active:             dd.IsActive,
			Status:             DriveStatus(dd.Status),
			Sectors:            make(map[int]SectorEntry),
			NextPhysicalSector: dd.NextPhysicalSector,
		}
		revalidateDrive(d)
		if sectors, err := parseArtifactSectors(d.ArtifactPath()); err != nil {
			logrus.Warnf("catalog: drive %d: failed to recover sector table from artifact: %v", d.ID, err)
		} else {
			d.Sectors = sectors
		}
		drives = append(drives, d)
	}
	sort.Slice(drives, func(i, j int) bool { return drives[i].ID < drives[j].ID })

	return &LoadedCatalog{
		Level:      level,
		Signature:  doc.RaidSignature,
		CurrentLBA: doc.CurrentLogicalBlockIndex,
		Placement:  placement,
		Drives:     drives,
	}, nil
}

// revalidateDrive checks a freshly loaded drive record against what is
// actually on disk, demoting it if the artifact is gone or its signature
// no longer matches (the catalog's stored signature is the only thing we
// can compare against at load time; sector contents are recovered right
// after this by LoadCatalog, from the artifact's block diagram).
func revalidateDrive(d *Drive) {
	path := d.ArtifactPath()
	if _, err := os.Stat(path); err != nil {
		if d.Status != StatusFailed {
			logrus.Errorf("drive %d: artifact missing at %s, marking failed_file_missing", d.ID, path)
			d.Active = false
			d.Status = StatusFailedFileMissing
		}
		return
	}

	liveSignature, err := readArtifactSignature(path)
	if err != nil {
		logrus.Warnf("drive %d: could not read signature from artifact: %v", d.ID, err)
		return
	}
	if liveSignature != "" && liveSignature != d.Signature && d.Status != StatusFailed {
		logrus.Errorf("drive %d: signature mismatch (want %s, found %s), marking failed_signature_mismatch", d.ID, d.Signature, liveSignature)
		d.Active = false
		d.Status = StatusFailedSignatureMismatch
	}
}
