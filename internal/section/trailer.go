package section

import (
	"encoding/binary"
	"fmt"

	"github.com/arcanefs/goewf/internal/crc"
	"github.com/arcanefs/goewf/internal/errs"
)

// hashSize is the on-disk size of a "hash" section: MD5 digest, 40 bytes
// padding, 4-byte checksum (DigestSection/HashSection in the teacher repo).
const hashSize = 16 + 40 + 4

// digestSize is the on-disk size of a "digest" section: MD5 + SHA1
// digests, 40 bytes padding, checksum.
const digestSize = 16 + 20 + 40 + 4

// MarshalHash renders an MD5-only "hash" section payload.
func MarshalHash(md5 [16]byte) []byte {
	buf := make([]byte, hashSize)
	copy(buf[:16], md5[:])
	sum := crc.Compute(buf[:hashSize-4])
	binary.LittleEndian.PutUint32(buf[hashSize-4:], sum)
	return buf
}

// UnmarshalHash decodes a "hash" section payload.
func UnmarshalHash(buf []byte) (md5 [16]byte, err error) {
	if len(buf) != hashSize {
		return md5, fmt.Errorf("section: hash: %w: want %d bytes, got %d", errs.ErrInvalidArgument, hashSize, len(buf))
	}
	want := binary.LittleEndian.Uint32(buf[hashSize-4:])
	if crc.Compute(buf[:hashSize-4]) != want {
		return md5, fmt.Errorf("section: hash checksum: %w", errs.ErrSectionChecksumMismatch)
	}
	copy(md5[:], buf[:16])
	return md5, nil
}

// MarshalDigest renders an MD5+SHA1 "digest" section payload (EnCase6+/EWFX).
func MarshalDigest(md5 [16]byte, sha1 [20]byte) []byte {
	buf := make([]byte, digestSize)
	copy(buf[:16], md5[:])
	copy(buf[16:36], sha1[:])
	sum := crc.Compute(buf[:digestSize-4])
	binary.LittleEndian.PutUint32(buf[digestSize-4:], sum)
	return buf
}

// UnmarshalDigest decodes a "digest" section payload.
func UnmarshalDigest(buf []byte) (md5 [16]byte, sha1 [20]byte, err error) {
	if len(buf) != digestSize {
		return md5, sha1, fmt.Errorf("section: digest: %w: want %d bytes, got %d", errs.ErrInvalidArgument, digestSize, len(buf))
	}
	want := binary.LittleEndian.Uint32(buf[digestSize-4:])
	if crc.Compute(buf[:digestSize-4]) != want {
		return md5, sha1, fmt.Errorf("section: digest checksum: %w", errs.ErrSectionChecksumMismatch)
	}
	copy(md5[:], buf[:16])
	copy(sha1[:], buf[16:36])
	return md5, sha1, nil
}

// sessionHeaderSize is the fixed portion of a "session" section: entry
// count, 28 bytes padding, checksum. No session entries are currently
// recorded by this implementation, so MarshalSession always emits a
// zero-count table; the layout still matches libewf's so a reader that
// does track sessions elsewhere can append real entries the same way
// MarshalError2 does.
const sessionHeaderSize = 4 + 28 + 4

// MarshalSession renders an empty "session" section payload. Every EWF
// variant in this container format carries a session section on the
// final segment (internal/segment.SectionOrder), even when the caller
// never recorded a session boundary.
func MarshalSession() []byte {
	buf := make([]byte, sessionHeaderSize)
	sum := crc.Compute(buf[:sessionHeaderSize-4])
	binary.LittleEndian.PutUint32(buf[sessionHeaderSize-4:], sum)
	return buf
}

// error2HeaderSize is the fixed portion of an "error2" section: entry
// count, 28 bytes padding, checksum.
const error2HeaderSize = 4 + 28 + 4

// Error2Entry is one acquisition error record: the first affected sector
// and how many sectors from there failed to read.
type Error2Entry struct {
	FirstSector uint64
	SectorCount uint32
}

// MarshalError2 renders an "error2" section payload listing every
// recorded acquisition error.
func MarshalError2(entries []Error2Entry) []byte {
	buf := make([]byte, error2HeaderSize+len(entries)*12)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	sum := crc.Compute(buf[0:error2HeaderSize-4])
	binary.LittleEndian.PutUint32(buf[error2HeaderSize-4:error2HeaderSize], sum)
	for i, e := range entries {
		off := error2HeaderSize + i*12
		binary.LittleEndian.PutUint64(buf[off:off+8], e.FirstSector)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], e.SectorCount)
	}
	return buf
}

// UnmarshalError2 decodes an "error2" section payload.
func UnmarshalError2(buf []byte) ([]Error2Entry, error) {
	if len(buf) < error2HeaderSize {
		return nil, fmt.Errorf("section: error2 too short: %w", errs.ErrInvalidArgument)
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	want := binary.LittleEndian.Uint32(buf[error2HeaderSize-4 : error2HeaderSize])
	if crc.Compute(buf[0:error2HeaderSize-4]) != want {
		return nil, fmt.Errorf("section: error2 checksum: %w", errs.ErrSectionChecksumMismatch)
	}
	out := make([]Error2Entry, count)
	for i := range out {
		off := error2HeaderSize + i*12
		if off+12 > len(buf) {
			return nil, fmt.Errorf("section: error2 entries truncated: %w", errs.ErrInvalidArgument)
		}
		out[i] = Error2Entry{
			FirstSector: binary.LittleEndian.Uint64(buf[off : off+8]),
			SectorCount: binary.LittleEndian.Uint32(buf[off+8 : off+12]),
		}
	}
	return out, nil
}
