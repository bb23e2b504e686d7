package raid

import "sort"

// PlacementMap tracks, for every logical block address ever written,
// which physical sector on which drive holds each of its blocks. A
// sector value of LostSector means the block at that drive was
// permanently lost (RAID-0's verdict for a failed member, or any block a
// rebuild could not reconstruct).
type PlacementMap map[int]map[int]int

// NewPlacementMap returns an empty map, ready to record writes.
func NewPlacementMap() PlacementMap {
	return make(PlacementMap)
}

// Record stores the physical sector a (driveID, lba) pair landed on.
func (p PlacementMap) Record(lba, driveID, sector int) {
	entries, ok := p[lba]
	if !ok {
		entries = make(map[int]int)
		p[lba] = entries
	}
	entries[driveID] = sector
}

// MarkLost flags a drive's block at lba as permanently unrecoverable.
func (p PlacementMap) MarkLost(lba, driveID int) {
	p.Record(lba, driveID, LostSector)
}

// Lookup returns the physical sector recorded for (lba, driveID), and
// whether an entry exists at all (a missing entry is distinct from a
// LostSector entry: the former means this drive never held a block for
// this LBA, the latter means it did and lost it).
func (p PlacementMap) Lookup(lba, driveID int) (int, bool) {
	entries, ok := p[lba]
	if !ok {
		return 0, false
	}
	sector, ok := entries[driveID]
	return sector, ok
}

// DrivesFor returns the set of drive ids that hold (or held) a block for
// lba, in ascending order.
func (p PlacementMap) DrivesFor(lba int) []int {
	entries, ok := p[lba]
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Forget removes every entry recorded for lba.
func (p PlacementMap) Forget(lba int) {
	delete(p, lba)
}
