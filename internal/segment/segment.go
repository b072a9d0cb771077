// Package segment models an EWF container's segment file set: the ordered
// table of .E01/.E02/... files that together hold one logical image, and
// the section emission order each segment follows. Grounded on the
// teacher's EWFImage.filepath/file handling in ewf.go, generalized from a
// single *os.File to the ordered multi-file table spec.md §5 describes.
package segment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/format"
)

// Descriptor identifies one segment file belonging to a container.
type Descriptor struct {
	Number  uint16
	Path    string
	IsFirst bool // carries header/header2/xheader in addition to volume/data
	IsLast  bool // carries done plus, on write, hash/digest/error2; other segments end in next
}

// Table is the ordered, by-number-indexed set of segment files making up
// one container.
type Table struct {
	order []Descriptor
	byNum map[uint16]int
}

// New returns an empty segment table.
func New() *Table {
	return &Table{byNum: make(map[uint16]int)}
}

// Add appends a segment descriptor. Segment numbers must be added in
// ascending order starting at 1, matching the sequence SegmentExtension
// produces.
func (t *Table) Add(d Descriptor) error {
	if d.Number == 0 {
		return fmt.Errorf("segment: number must be >= 1: %w", errs.ErrInvalidArgument)
	}
	if _, exists := t.byNum[d.Number]; exists {
		return fmt.Errorf("segment: duplicate segment number %d: %w", d.Number, errs.ErrInvalidArgument)
	}
	if len(t.order) > 0 {
		last := t.order[len(t.order)-1]
		last.IsLast = false
		t.order[len(t.order)-1] = last
	}
	d.IsFirst = len(t.order) == 0
	d.IsLast = true
	t.byNum[d.Number] = len(t.order)
	t.order = append(t.order, d)
	return nil
}

// Get returns the descriptor for a segment number.
func (t *Table) Get(number uint16) (Descriptor, bool) {
	idx, ok := t.byNum[number]
	if !ok {
		return Descriptor{}, false
	}
	return t.order[idx], true
}

// Count returns the number of segments in the table.
func (t *Table) Count() int {
	return len(t.order)
}

// All returns the segments in ascending number order.
func (t *Table) All() []Descriptor {
	out := make([]Descriptor, len(t.order))
	copy(out, t.order)
	return out
}

// Last returns the final segment in the table, if any.
func (t *Table) Last() (Descriptor, bool) {
	if len(t.order) == 0 {
		return Descriptor{}, false
	}
	return t.order[len(t.order)-1], true
}

// BuildPath derives the filesystem path of segment number n of base (a
// path without extension, e.g. "/evidence/case001"), in variant's
// filename sequence.
func BuildPath(base string, variant format.Variant, number uint16) (string, error) {
	ext, err := variant.SegmentExtension(number)
	if err != nil {
		return "", err
	}
	return base + "." + ext, nil
}

// BaseFromFirstSegment strips a first segment's numeric extension (.E01
// or .L01) to recover the base path BuildPath needs to derive the rest of
// the set, so opening segment 1 is enough to predict every other member's
// name before they are even read.
func BaseFromFirstSegment(firstSegmentPath string) string {
	ext := filepath.Ext(firstSegmentPath)
	return strings.TrimSuffix(firstSegmentPath, ext)
}

// SectionOrder lists the section types a segment emits, in order, given
// its position in the set and the container's format variant. Centralizing
// this here means the write pipeline never has to special-case "is this
// the first segment" or "is this the last" itself; it just emits whatever
// SectionOrder says.
type SectionKind string

const (
	SectionHeader   SectionKind = "header"
	SectionHeader2  SectionKind = "header2"
	SectionXHeader  SectionKind = "xheader"
	SectionVolume   SectionKind = "volume" // or "disk"/"data" per variant
	SectionSectors  SectionKind = "sectors"
	SectionTable    SectionKind = "table"
	SectionTable2   SectionKind = "table2"
	SectionNext     SectionKind = "next"
	SectionError2   SectionKind = "error2"
	SectionSession  SectionKind = "session"
	SectionHash     SectionKind = "hash"
	SectionDigest   SectionKind = "digest"
	SectionXHash    SectionKind = "xhash"
	SectionDone     SectionKind = "done"
)

// SectionOrder returns the section kinds d emits, in wire order, for a
// write of variant.
func SectionOrder(d Descriptor, variant format.Variant) []SectionKind {
	var order []SectionKind
	if d.IsFirst {
		order = append(order, SectionHeader)
		if variant.HasHeader2() {
			order = append(order, SectionHeader2)
		}
		if variant.HasXHeader() {
			order = append(order, SectionXHeader)
		}
		order = append(order, SectionVolume)
	}
	order = append(order, SectionSectors, SectionTable, SectionTable2)
	if d.IsLast {
		order = append(order, SectionError2, SectionSession)
		if variant.HasDigest() {
			order = append(order, SectionDigest)
			if variant.HasXHeader() {
				order = append(order, SectionXHash)
			}
		} else {
			order = append(order, SectionHash)
		}
		order = append(order, SectionDone)
	} else {
		order = append(order, SectionNext)
	}
	return order
}
