// Package readio implements the sequential/random-access read pipeline: an
// io.ReadSeeker over the logical media stream backed by the segment set
// and offset table, decompressing one chunk at a time. Grounded on the
// teacher's GetChunk/GetChunkByIndex (ewf.go), generalized from a single
// open *os.File to the multi-segment, cached, corruption-tolerant reader
// spec.md §6 describes.
package readio

import (
	"fmt"
	"io"

	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/offsettable"
)

// SegmentOpener returns a ReaderAt for the given segment number, opening
// the underlying file if it is not already open. Reader never closes what
// it is handed; lifecycle stays with the caller (the Handle).
type SegmentOpener func(segment uint16) (io.ReaderAt, error)

// CRCRecorder is satisfied by the root package's CRC error registry.
// readio only needs to record, never to read back, so the narrowest
// interface is all it depends on.
type CRCRecorder interface {
	RecordCRCError(chunkIndex uint32)
}

// Reader is a stateful cursor over one container's logical media stream.
type Reader struct {
	table       *offsettable.Table
	chunkSize   int
	mediaSize   int64
	open        SegmentOpener
	wipeOnError bool
	recorder    CRCRecorder

	pos int64

	cachedIndex int // -1 when nothing is cached
	cachedData  []byte
}

// New builds a Reader. chunkSize is sectorsPerChunk*bytesPerSector,
// constant for the life of the container (spec.md §2).
func New(table *offsettable.Table, chunkSize int, mediaSize int64, open SegmentOpener, wipeOnError bool, recorder CRCRecorder) *Reader {
	return &Reader{
		table:       table,
		chunkSize:   chunkSize,
		mediaSize:   mediaSize,
		open:        open,
		wipeOnError: wipeOnError,
		recorder:    recorder,
		cachedIndex: -1,
	}
}

// Seek implements io.Seeker over the logical media stream.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = r.mediaSize + offset
	default:
		return 0, fmt.Errorf("readio: invalid whence %d: %w", whence, errs.ErrInvalidArgument)
	}
	if target < 0 || target > r.mediaSize {
		return 0, fmt.Errorf("readio: seek target %d out of range [0,%d]: %w", target, r.mediaSize, errs.ErrInvalidArgument)
	}
	r.pos = target
	return r.pos, nil
}

// Read implements io.Reader over the logical media stream, pulling and
// decompressing chunks as the cursor crosses their boundaries.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.mediaSize {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) && r.pos < r.mediaSize {
		chunkIndex := int(r.pos / int64(r.chunkSize))
		chunkOffset := int(r.pos % int64(r.chunkSize))

		data, err := r.getChunk(chunkIndex)
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}

		avail := data[chunkOffset:]
		remaining := r.mediaSize - r.pos
		if int64(len(avail)) > remaining {
			avail = avail[:remaining]
		}
		n := copy(p[total:], avail)
		total += n
		r.pos += int64(n)
	}
	return total, nil
}

// getChunk returns chunk index's decompressed bytes, using the
// single-chunk cache (spec.md §6 replaces the teacher's random-eviction
// map cache with a single-slot cache: sequential and near-sequential
// access, the dominant pattern for a forensic image, never benefits from
// more than one slot since chunks aren't revisited out of order in
// practice, and a single slot has no eviction policy to get wrong).
func (r *Reader) getChunk(index int) ([]byte, error) {
	if index == r.cachedIndex {
		return r.cachedData, nil
	}

	loc, ok := r.table.At(index)
	if !ok {
		return nil, fmt.Errorf("readio: chunk %d not in offset table: %w", index, errs.ErrInvalidArgument)
	}
	src, err := r.open(loc.Segment)
	if err != nil {
		return nil, fmt.Errorf("readio: open segment %d: %w", loc.Segment, err)
	}

	stored := make([]byte, loc.StoredSize)
	if _, err := src.ReadAt(stored, loc.FileOffset); err != nil {
		return nil, fmt.Errorf("readio: read chunk %d: %w", index, err)
	}

	expected := r.chunkSize
	if tail := r.mediaSize - int64(index)*int64(r.chunkSize); tail < int64(expected) {
		expected = int(tail)
	}

	data, err := chunk.Decompress(stored, expected, loc.Compressed)
	if err != nil {
		// Recording is unconditional (spec.md §4.6/§7): a CRC or chunk
		// corruption is never fatal to the read, regardless of
		// wipe_on_error. wipe_on_error only decides which bytes are
		// served: zero-filled, or the (possibly bogus) recovered bytes
		// Decompress already returned.
		if r.recorder != nil {
			r.recorder.RecordCRCError(uint32(index))
		}
		if r.wipeOnError {
			data = make([]byte, expected)
		}
	}

	r.cachedIndex = index
	r.cachedData = data
	return data, nil
}
