// Package chunk implements the EWF chunk codec: compress a raw chunk buffer
// into its stored form (zlib-deflated, or raw with an explicit trailing
// Adler-32), and invert that on read. Built on klauspost/compress/zlib
// rather than the standard library's compress/zlib — same API, but it is
// the zlib implementation the rest of the corpus reaches for (dsnet-compress,
// sargunv-rom-tools) and its Adler-32/deflate are noticeably faster on the
// chunk sizes EWF uses (typically 32-64 sectors, 16-32 KiB).
package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/arcanefs/goewf/internal/crc"
	"github.com/arcanefs/goewf/internal/errs"
)

// Compression levels, matching the EWF volume section's compression_level
// field (spec.md §3). LevelNone/-Fast/-Best mirror the teacher's
// CompressionNone/CompressionGood/CompressionBest constants.
const (
	LevelNone = 0
	LevelFast = 1
	LevelBest = 2
)

// Options controls how a chunk is compressed.
type Options struct {
	Level int
	// CompressEmptyBlock mirrors libewf_set_write_compression_values'
	// second argument: when true, an all-zero chunk is still deflated
	// instead of falling back to raw+CRC, because EnCase-family readers
	// expect genuinely empty media regions to be compact on disk.
	CompressEmptyBlock bool
}

func toZlibLevel(level int) int {
	switch level {
	case LevelBest:
		return zlib.BestCompression
	case LevelFast:
		return zlib.BestSpeed
	default:
		return zlib.DefaultCompression
	}
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func rawForm(raw []byte) []byte {
	stored := make([]byte, len(raw)+4)
	copy(stored, raw)
	binary.LittleEndian.PutUint32(stored[len(raw):], crc.Compute(raw))
	return stored
}

// Compress produces the on-disk representation of a raw chunk: either
// zlib-deflated bytes whose trailer doubles as the stored CRC, or raw bytes
// followed by an explicit 4-byte Adler-32. Deflated output no smaller than
// the uncompressed form (size >= len(raw)+4) falls back to the uncompressed
// form, so a chunk on disk never exceeds its raw size by more than 4 bytes.
func Compress(raw []byte, opts Options) (stored []byte, compressed bool, err error) {
	if opts.Level == LevelNone && !(opts.CompressEmptyBlock && isAllZero(raw)) {
		return rawForm(raw), false, nil
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, toZlibLevel(opts.Level))
	if err != nil {
		return nil, false, fmt.Errorf("chunk codec: open deflate writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, false, fmt.Errorf("chunk codec: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, false, fmt.Errorf("chunk codec: close deflate writer: %w", err)
	}

	if buf.Len() >= len(raw)+4 {
		return rawForm(raw), false, nil
	}
	return buf.Bytes(), true, nil
}

// Decompress inverts Compress. For an uncompressed chunk it validates the
// trailing Adler-32 against the decoded prefix; for a compressed chunk it
// inflates into a buffer of exactly expectedLen bytes, relying on zlib's
// own Adler-32 trailer to detect corruption. Any mismatch or inflate
// failure is reported as errs.ErrChunkCorrupt, but the returned bytes are
// always the best-effort recovered data rather than nil: the read
// pipeline's propagation policy (spec.md §4.6/§7) is never fatal on a CRC
// or chunk corruption, only on whether wipe_on_error replaces these bytes
// with zeroes before handing them to the caller.
func Decompress(stored []byte, expectedLen int, compressed bool) ([]byte, error) {
	if !compressed {
		if len(stored) < 4 {
			return make([]byte, expectedLen), fmt.Errorf("chunk codec: stored chunk shorter than a checksum: %w", errs.ErrChunkCorrupt)
		}
		raw := stored[:len(stored)-4]
		want := binary.LittleEndian.Uint32(stored[len(stored)-4:])
		if crc.Compute(raw) != want {
			return raw, fmt.Errorf("chunk codec: crc mismatch: %w", errs.ErrChunkCorrupt)
		}
		return raw, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(stored))
	if err != nil {
		return make([]byte, expectedLen), fmt.Errorf("chunk codec: open inflate reader: %w", errs.ErrChunkCorrupt)
	}
	defer r.Close()

	out := make([]byte, expectedLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return out, fmt.Errorf("chunk codec: inflate: %w", errs.ErrChunkCorrupt)
	}
	// Drain and close to force the trailing Adler-32 check.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return out, fmt.Errorf("chunk codec: inflate trailer: %w", errs.ErrChunkCorrupt)
	}
	if err := r.Close(); err != nil {
		return out, fmt.Errorf("chunk codec: inflate checksum: %w", errs.ErrChunkCorrupt)
	}
	return out, nil
}
