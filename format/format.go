// Package format centralizes the EWF format-variant dispatch table. format
// is a tagged enum, not a raw byte, per spec.md §9's design note: every
// place the volume layout, the presence of header2/xheader/digest, and the
// segment filename sequence depend on the container variant goes through
// this one table instead of being scattered across the codebase.
package format

import "fmt"

// Variant identifies which EWF dialect a container uses.
type Variant uint8

const (
	EnCase1 Variant = iota
	EnCase2
	EnCase3
	EnCase4
	EnCase5
	EnCase6
	FTK
	SMART
	LinEn
	LVF // logical evidence file
	EWFX
)

func (v Variant) String() string {
	switch v {
	case EnCase1:
		return "encase1"
	case EnCase2:
		return "encase2"
	case EnCase3:
		return "encase3"
	case EnCase4:
		return "encase4"
	case EnCase5:
		return "encase5"
	case EnCase6:
		return "encase6"
	case FTK:
		return "ftk"
	case SMART:
		return "smart"
	case LinEn:
		return "linen"
	case LVF:
		return "lvf"
	case EWFX:
		return "ewfx"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// HasHeader2 reports whether segment 1 of this variant carries a "header2"
// section (UTF-16) in addition to the ASCII "header".
func (v Variant) HasHeader2() bool {
	switch v {
	case EnCase3, EnCase4, EnCase5, EnCase6, LinEn, EWFX:
		return true
	default:
		return false
	}
}

// HasXHeader reports whether this variant carries the XML "xheader"
// section (EWFX only).
func (v Variant) HasXHeader() bool {
	return v == EWFX
}

// UsesSMARTVolume reports whether the volume section is the 94-byte
// DiskSMART layout (SMART, FTK) rather than the 1052-byte EnCase
// EWFSpecification layout.
func (v Variant) UsesSMARTVolume() bool {
	switch v {
	case SMART, FTK:
		return true
	default:
		return false
	}
}

// HasDigest reports whether the last segment carries a "digest" section
// (MD5+SHA1, EnCase6+) in addition to, or instead of, "hash" (MD5 only,
// EnCase<=5/SMART/FTK/LinEn).
func (v Variant) HasDigest() bool {
	switch v {
	case EnCase6, EWFX:
		return true
	default:
		return false
	}
}

// IsLogical reports whether this variant describes a logical evidence file
// (a selection of files, not a full physical/byte-for-byte image) rather
// than a disk/media image.
func (v Variant) IsLogical() bool {
	return v == LVF
}

// WriteSupported reports whether this implementation can produce a
// container of this variant on write. All variants round-trip on read;
// only the more common ones are supported as write targets.
func (v Variant) WriteSupported() bool {
	switch v {
	case EnCase5, EnCase6, SMART, LinEn, EWFX:
		return true
	default:
		return false
	}
}

// segmentLetters is the alphabet used once the two-digit numeric range is
// exhausted, matching the convention libewf_open follows
// (original_source/libewf/libewf_file.c).
const segmentLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SegmentExtension returns the filename extension (without the leading
// dot) for the Nth segment (1-based) of a container of this variant.
// Segments 1-99 use E01..E99. Beyond that, the leading letter (E for a
// media image, L for a logical evidence file) and two trailing letters
// roll like a base-26 counter: EAA..EZZ, then FAA..FZZ, and so on, so a
// reader of a heavily rolled-over multi-segment image recognizes the
// sequence real EnCase/libewf acquisitions produce.
func (v Variant) SegmentExtension(segmentNumber uint16) (string, error) {
	if segmentNumber == 0 {
		return "", fmt.Errorf("format: segment number must be >= 1")
	}

	base := byte('E')
	if v.IsLogical() {
		base = 'L'
	}

	if segmentNumber <= 99 {
		return fmt.Sprintf("%c%02d", base, segmentNumber), nil
	}

	const pairSize = 26 * 26
	n := int(segmentNumber) - 100 // 0-based index past E99/L99
	leadIncrement := n / pairSize
	pairIndex := n % pairSize
	second := pairIndex / 26
	third := pairIndex % 26

	lead := int(base) + leadIncrement
	if lead > 'Z' {
		return "", fmt.Errorf("format: segment number %d exceeds the letter sequence", segmentNumber)
	}
	return fmt.Sprintf("%c%c%c", byte(lead), segmentLetters[second], segmentLetters[third]), nil
}
