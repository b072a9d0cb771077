// Package section reads and writes EWF section descriptors: the fixed
// 76-byte record (type, next-offset, size, checksum) that precedes every
// section's type-specific payload, and the chain of them that makes up a
// segment file.
package section

import (
	"bytes"
	"fmt"
	"io"

	"encoding/binary"

	"github.com/arcanefs/goewf/internal/crc"
	"github.com/arcanefs/goewf/internal/errs"
)

// DescriptorSize is the on-disk size of a section descriptor.
const DescriptorSize = 76

const typeFieldSize = 16

// Type identifies the payload that follows a descriptor.
type Type string

// Section types used by the container, per spec.md §3.
const (
	TypeHeader  Type = "header"
	TypeHeader2 Type = "header2"
	TypeXHeader Type = "xheader"
	TypeVolume  Type = "volume"
	TypeDisk    Type = "disk"
	TypeData    Type = "data"
	TypeSectors Type = "sectors"
	TypeTable   Type = "table"
	TypeTable2  Type = "table2"
	TypeNext    Type = "next"
	TypeDone    Type = "done"
	TypeError2  Type = "error2"
	TypeHash    Type = "hash"
	TypeXHash   Type = "xhash"
	TypeDigest  Type = "digest"
	TypeSession Type = "session"
	TypeLtree   Type = "ltree"
)

// Descriptor is the 76-byte record at the head of every section.
type Descriptor struct {
	Type       Type
	NextOffset uint64 // absolute offset from the start of the segment file
	Size       uint64 // total section size, descriptor included
}

// MarshalBinary renders the descriptor in its on-disk form: 16 bytes of
// null-padded type, next-offset and size as little-endian u64s, 40 reserved
// zero bytes, and the Adler-32 of everything preceding the checksum field.
func (d Descriptor) MarshalBinary() ([]byte, error) {
	if len(d.Type) > typeFieldSize {
		return nil, fmt.Errorf("section: type %q longer than %d bytes: %w", d.Type, typeFieldSize, errs.ErrInvalidArgument)
	}

	buf := make([]byte, DescriptorSize)
	copy(buf[:typeFieldSize], d.Type)
	binary.LittleEndian.PutUint64(buf[16:24], d.NextOffset)
	binary.LittleEndian.PutUint64(buf[24:32], d.Size)
	// buf[32:72] stays zero (reserved).
	sum := crc.Compute(buf[:72])
	binary.LittleEndian.PutUint32(buf[72:76], sum)
	return buf, nil
}

// UnmarshalBinary parses a 76-byte descriptor and validates its checksum.
func (d *Descriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) != DescriptorSize {
		return fmt.Errorf("section: descriptor must be %d bytes, got %d: %w", DescriptorSize, len(buf), errs.ErrInvalidArgument)
	}

	typ := string(bytes.TrimRight(buf[:typeFieldSize], "\x00"))
	want := binary.LittleEndian.Uint32(buf[72:76])
	got := crc.Compute(buf[:72])
	if got != want {
		return fmt.Errorf("section %q: checksum %08x != stored %08x: %w", typ, got, want, errs.ErrSectionChecksumMismatch)
	}

	d.Type = Type(typ)
	d.NextOffset = binary.LittleEndian.Uint64(buf[16:24])
	d.Size = binary.LittleEndian.Uint64(buf[24:32])
	return nil
}

// Entry pairs a parsed descriptor with the absolute file offset it was
// read from.
type Entry struct {
	Descriptor
	Offset int64
}

// ReadAt reads and validates the descriptor at the given absolute offset.
func ReadAt(r io.ReaderAt, offset int64) (Descriptor, error) {
	buf := make([]byte, DescriptorSize)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return Descriptor{}, fmt.Errorf("section: read descriptor at %d: %w", offset, errs.ErrIO)
	}
	var d Descriptor
	if err := d.UnmarshalBinary(buf); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Walk follows a segment file's section chain starting at start, stopping
// at a "done" section or a self-pointing terminal (next_offset == its own
// offset, the on-disk convention for the last section of a non-final
// segment). A next_offset that repeats a previously visited offset, or
// that falls outside [0, fileSize), is reported as errs.ErrChainCorrupt
// rather than looped forever.
func Walk(r io.ReaderAt, fileSize int64, start int64) ([]Entry, error) {
	var entries []Entry
	visited := make(map[int64]bool)
	offset := start

	for {
		if visited[offset] {
			return entries, fmt.Errorf("section: chain revisits offset %d: %w", offset, errs.ErrChainCorrupt)
		}
		visited[offset] = true

		d, err := ReadAt(r, offset)
		if err != nil {
			return entries, err
		}
		entries = append(entries, Entry{Descriptor: d, Offset: offset})

		if d.Type == TypeDone {
			return entries, nil
		}

		next := int64(d.NextOffset)
		if next < 0 || next >= fileSize {
			return entries, fmt.Errorf("section: next offset %d out of bounds (file size %d): %w", next, fileSize, errs.ErrChainCorrupt)
		}
		if next == offset {
			// Terminal section of a non-last segment: points at itself.
			return entries, nil
		}
		offset = next
	}
}

// WriteDescriptorAt writes a descriptor at the given offset through w.
func WriteDescriptorAt(w io.WriterAt, offset int64, d Descriptor) error {
	buf, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("section: write descriptor at %d: %w", offset, errs.ErrIO)
	}
	return nil
}
