// Package offsettable builds the chunk-index -> physical-location map from
// an EWF container's "table"/"table2" sections. The on-disk entry format is
// a flat array of packed 32-bit words (offset in the low 31 bits, the
// compressed flag in the MSB), grounded on internal/ewf.go's ParseTable in
// the teacher repo and matching spec.md §4.4.
package offsettable

import (
	"encoding/binary"
	"fmt"

	"github.com/arcanefs/goewf/internal/crc"
	"github.com/arcanefs/goewf/internal/errs"
)

// headerSize is the fixed portion of a table/table2 section payload that
// precedes the packed entry array: entry count(4) + padding(16) + checksum(4).
const headerSize = 24

const compressedFlag = uint32(1) << 31

// RawEntry is a single decoded table/table2 entry: a byte offset relative
// to the base offset the section was built against, and whether the chunk
// at that offset is compressed.
type RawEntry struct {
	Offset     uint32
	Compressed bool
}

// DecodeEntries parses the packed entry array following a table section's
// 24-byte header, validating the header checksum.
func DecodeEntries(payload []byte) ([]RawEntry, error) {
	if len(payload) < headerSize {
		return nil, fmt.Errorf("offsettable: payload too short for table header: %w", errs.ErrInvalidArgument)
	}
	count := binary.LittleEndian.Uint32(payload[0:4])
	wantSum := binary.LittleEndian.Uint32(payload[20:24])
	gotSum := crc.Compute(payload[0:20])
	if wantSum != gotSum {
		return nil, fmt.Errorf("offsettable: table header checksum: %w", errs.ErrSectionChecksumMismatch)
	}

	entryBytes := payload[headerSize:]
	if uint64(len(entryBytes)) < uint64(count)*4 {
		return nil, fmt.Errorf("offsettable: table entries truncated: %w", errs.ErrInvalidArgument)
	}

	out := make([]RawEntry, count)
	for i := range out {
		word := binary.LittleEndian.Uint32(entryBytes[i*4 : i*4+4])
		out[i] = RawEntry{
			Offset:     word &^ compressedFlag,
			Compressed: word&compressedFlag != 0,
		}
	}
	return out, nil
}

// EncodeEntries renders entries as a table/table2 payload (header plus
// packed array), including the header checksum.
func EncodeEntries(entries []RawEntry) []byte {
	buf := make([]byte, headerSize+len(entries)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	sum := crc.Compute(buf[0:20])
	binary.LittleEndian.PutUint32(buf[20:24], sum)

	for i, e := range entries {
		word := e.Offset
		if e.Compressed {
			word |= compressedFlag
		}
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:headerSize+i*4+4], word)
	}
	return buf
}

// Location is the resolved physical position of one chunk: which segment
// file holds it, the byte offset within that file, and whether the stored
// bytes are compressed. StoredSize is filled in once the next chunk's (or
// the section's end) offset is known, so it arrives via BuildSegment
// rather than from a single raw entry.
type Location struct {
	Segment    uint16
	FileOffset int64
	StoredSize uint32
	Compressed bool
}

// Table maps a chunk index (0-based, across the whole container) to its
// resolved Location.
type Table struct {
	locations []Location
}

// New returns an empty offset table.
func New() *Table {
	return &Table{}
}

// Len returns the number of chunks the table currently maps.
func (t *Table) Len() int {
	return len(t.locations)
}

// At returns the location of chunk index i.
func (t *Table) At(i int) (Location, bool) {
	if i < 0 || i >= len(t.locations) {
		return Location{}, false
	}
	return t.locations[i], true
}

// Append adds a resolved location for the next chunk index, used while
// building the table on write as each chunk is placed.
func (t *Table) Append(loc Location) {
	t.locations = append(t.locations, loc)
}

// BuildSegment resolves a single segment's table entries into Locations,
// given the segment number, the absolute file offset the entries' offsets
// are relative to (the base offset, conventionally the start of the
// "sectors" section the table describes), and the absolute end offset of
// the chunk data region (the table section's own start), used to derive
// the last entry's stored size.
func BuildSegment(segment uint16, entries []RawEntry, base int64, dataEnd int64) ([]Location, error) {
	locs := make([]Location, len(entries))
	for i, e := range entries {
		fileOffset := base + int64(e.Offset)
		var end int64
		if i+1 < len(entries) {
			end = base + int64(entries[i+1].Offset)
		} else {
			end = dataEnd
		}
		if end < fileOffset {
			return nil, fmt.Errorf("offsettable: entry %d offset exceeds section bounds: %w", i, errs.ErrChainCorrupt)
		}
		locs[i] = Location{
			Segment:    segment,
			FileOffset: fileOffset,
			StoredSize: uint32(end - fileOffset),
			Compressed: e.Compressed,
		}
	}
	return locs, nil
}

// Reconcile decides which of a segment's "table" and "table2" entry sets
// to trust. table2 is libewf's backup copy of table, written for
// redundancy; per spec.md §4.4 neither being invalid is fatal on its own,
// only both being invalid is. Disagreement between
// two otherwise-valid copies is recorded via BackupDisagrees rather than
// treated as corruption, since it is recoverable by picking either one.
func Reconcile(primary, backup []RawEntry, primaryErr, backupErr error) ([]RawEntry, error) {
	switch {
	case primaryErr == nil && backupErr == nil:
		if !equalEntries(primary, backup) {
			return primary, fmt.Errorf("offsettable: table/table2 disagree: %w", errs.ErrBackupDisagrees)
		}
		return primary, nil
	case primaryErr == nil:
		return primary, nil
	case backupErr == nil:
		return backup, nil
	default:
		return nil, fmt.Errorf("offsettable: table and table2 both invalid: %w", errs.ErrChainCorrupt)
	}
}

func equalEntries(a, b []RawEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
