package ewf

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/arcanefs/goewf/format"
	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/ioadapter"
	"github.com/arcanefs/goewf/internal/notify"
	"github.com/arcanefs/goewf/internal/offsettable"
	"github.com/arcanefs/goewf/internal/readio"
	"github.com/arcanefs/goewf/internal/section"
	"github.com/arcanefs/goewf/internal/segment"
	"github.com/arcanefs/goewf/internal/values"
	"github.com/arcanefs/goewf/internal/writeio"
)

// Handle is a single open EWF container, read or write. All access is
// serialized through mu: the format gives a single handle no benefit from
// concurrent chunk access, since chunks are necessarily read or written in
// segment order (spec.md §2's single-threaded-per-handle design note);
// internal compression may still run on multiple goroutines, see
// internal/writeio.CompressParallel.
type Handle struct {
	mu sync.Mutex

	variant  format.Variant
	basePath string
	mode     mode

	mediaType        uint8
	mediaFlags       uint8
	bytesPerSector   uint32
	sectorsPerChunk  uint32
	sectorCount      uint64
	errorGranularity uint32
	compressionLevel int
	guid             [16]byte
	guidSet          bool
	md5Set           bool

	header *values.Table
	hash   *values.Table

	segments     *segment.Table
	offsets      *offsettable.Table
	deltaOverlay *writeio.DeltaOverlay

	acquiryErrors *acquiryErrorRegistry
	crcErrors     *crcErrorRegistry

	write             *writeio.Machine
	writeSegmentFile  *ioadapter.File
	writeSegmentNum   uint16
	writeBudget       *writeio.SegmentBudget
	writeSegmentLimit int64
	pendingRaw        []byte
	pendingChunks      [][]byte
	writtenChunks      uint32
	writtenBytes       int64
	compressEmptyBlock bool
	md5Hash            hash.Hash
	sha1Hash           hash.Hash

	sectorsDescriptorOffset int64
	sectorsDataStart        int64
	segmentEntries          []offsettable.RawEntry

	wipeOnError bool

	segFiles map[uint16]*ioadapter.File

	deltaFile *ioadapter.File
	deltaPath string

	reader *readio.Reader
}

// deltaSegmentNumber is the offsettable.Location.Segment value reserved
// for a chunk override living in the delta file rather than a base
// segment; base segments are numbered from 1, so 0 never collides.
const deltaSegmentNumber = 0

type mode int

const (
	modeRead mode = iota
	modeWrite
)

// defaultSegmentFileSize matches libewf's own default (2000MiB expressed
// in bytes), used when a write Handle is never given an explicit limit.
const defaultSegmentFileSize int64 = 2000 * 1024 * 1024

// chunkSize returns the constant decompressed chunk size for this
// container: sectors per chunk times bytes per sector (spec.md §2).
func (h *Handle) chunkSize() int {
	return int(h.sectorsPerChunk) * int(h.bytesPerSector)
}

// mediaSize returns the logical media size in bytes implied by the
// current sector count and sector size.
func (h *Handle) mediaSize() int64 {
	return int64(h.sectorCount) * int64(h.bytesPerSector)
}

// New creates a write Handle for a fresh container of the given variant
// and base path (no extension; segment extensions are derived from it).
// Media parameters must be set before the first Write call.
func New(variant format.Variant, basePath string) (*Handle, error) {
	if !variant.WriteSupported() {
		return nil, fmt.Errorf("ewf: variant %s does not support write: %w", variant, errs.ErrFormatUnsupported)
	}
	h := &Handle{
		variant:          variant,
		basePath:         basePath,
		mode:             modeWrite,
		bytesPerSector:   512,
		sectorsPerChunk:  64,
		compressionLevel: chunk.LevelFast,
		header:           values.New(),
		hash:             values.New(),
		segments:         segment.New(),
		offsets:          offsettable.New(),
		deltaOverlay:     writeio.NewDeltaOverlay(),
		acquiryErrors:    newAcquiryErrorRegistry(),
		crcErrors:        newCRCErrorRegistry(),
		write:            writeio.NewMachine(),
		segFiles:         make(map[uint16]*ioadapter.File),
		writeSegmentLimit: defaultSegmentFileSize,
	}
	return h, nil
}

// Open opens an existing container for reading, given the path to its
// first segment file (.E01/.L01). Subsequent segments are located from
// the first segment's variant-derived filename sequence, matching
// libewf_open's multi-segment discovery.
func Open(firstSegmentPath string) (*Handle, error) {
	h := &Handle{
		mode:          modeRead,
		header:        values.New(),
		hash:          values.New(),
		segments:      segment.New(),
		offsets:       offsettable.New(),
		deltaOverlay:  writeio.NewDeltaOverlay(),
		acquiryErrors: newAcquiryErrorRegistry(),
		crcErrors:     newCRCErrorRegistry(),
		write:         writeio.NewMachine(),
		segFiles:      make(map[uint16]*ioadapter.File),
	}
	if err := h.openSegments(firstSegmentPath); err != nil {
		return nil, err
	}
	h.reader = readio.New(h.offsets, h.chunkSize(), h.mediaSize(), h.segmentSource, h.wipeOnError, h.crcErrors)
	return h, nil
}

// SetWipeOnError controls which bytes Read serves for a chunk whose CRC
// check fails: zeroed bytes (true) or the unverified recovered bytes
// (false, default). Either way the failure is recorded (CRCErrorChunks)
// and Read does not return an error for it. Changing it after Open
// rebuilds the internal reader so the new policy takes effect on the
// next Read.
func (h *Handle) SetWipeOnError(wipe bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != modeRead {
		return fmt.Errorf("ewf: wipe-on-error only applies to a read handle: %w", errs.ErrInvalidState)
	}
	h.wipeOnError = wipe
	h.reader = readio.New(h.offsets, h.chunkSize(), h.mediaSize(), h.segmentSource, h.wipeOnError, h.crcErrors)
	return nil
}

// segmentSource implements readio.SegmentOpener, lazily opening segment
// files as the reader reaches them and keeping them open for the life of
// the Handle.
func (h *Handle) segmentSource(number uint16) (io.ReaderAt, error) {
	if number == deltaSegmentNumber {
		if h.deltaFile == nil {
			return nil, fmt.Errorf("ewf: delta segment requested but no delta file open: %w", errs.ErrInvalidState)
		}
		return h.deltaFile, nil
	}
	if f, ok := h.segFiles[number]; ok {
		return f, nil
	}
	desc, ok := h.segments.Get(number)
	if !ok {
		return nil, fmt.Errorf("ewf: segment %d not in segment table: %w", number, errs.ErrInvalidArgument)
	}
	f, err := ioadapter.OpenRead(desc.Path)
	if err != nil {
		return nil, err
	}
	h.segFiles[number] = f
	return f, nil
}

// openSegments walks the first segment file's section chain, records its
// header/volume values, then locates and walks every following segment,
// building the global offset table and the segment table as it goes.
func (h *Handle) openSegments(firstSegmentPath string) error {
	base := segment.BaseFromFirstSegment(firstSegmentPath)
	// The exact EnCase/SMART/EWFX dialect can't be told apart from the
	// filename alone; only whether this is a logical evidence file (L01)
	// or a media image (E01) matters for predicting later segment names,
	// so that's all that's inferred here. applyVolume below fills in the
	// rest of the media parameters once the first segment's volume
	// section is read.
	if len(firstSegmentPath) >= 4 && firstSegmentPath[len(firstSegmentPath)-3] == 'L' {
		h.variant = format.LVF
	}
	number := uint16(1)
	sawFirst := false

	for {
		path := firstSegmentPath
		if number > 1 {
			var err error
			path, err = segment.BuildPath(base, h.variant, number)
			if err != nil {
				return err
			}
		}
		f, err := ioadapter.OpenRead(path)
		if err != nil {
			if number == 1 {
				return fmt.Errorf("ewf: open first segment %s: %w", path, err)
			}
			break // no more segments, this is the end of the set
		}
		h.segFiles[number] = f

		entries, err := section.Walk(f, f.Size(), 13)
		if err != nil {
			return fmt.Errorf("ewf: segment %d: %w", number, err)
		}

		var tableEntries, table2Entries []offsettable.RawEntry
		var tableErr, table2Err error
		var sectorsStart int64

		for _, e := range entries {
			payloadOff := e.Offset + section.DescriptorSize
			payloadLen := int64(e.Size) - section.DescriptorSize
			switch e.Type {
			case section.TypeHeader:
				if !sawFirst {
					buf := make([]byte, payloadLen)
					if _, err := f.ReadAt(buf, payloadOff); err == nil {
						if tbl, err := section.DecodeHeader(buf); err == nil {
							values.CopyInto(h.header, tbl)
						}
					}
				}
			case section.TypeHeader2:
				if !sawFirst {
					buf := make([]byte, payloadLen)
					if _, err := f.ReadAt(buf, payloadOff); err == nil {
						if tbl, err := section.DecodeHeader2(buf); err == nil {
							values.CopyInto(h.header, tbl)
						}
					}
				}
			case section.TypeXHeader:
				if !sawFirst {
					buf := make([]byte, payloadLen)
					if _, err := f.ReadAt(buf, payloadOff); err == nil {
						if tbl, err := section.DecodeXHeader(buf); err == nil {
							values.CopyInto(h.header, tbl)
						}
					}
				}
			case section.TypeVolume, section.TypeDisk, section.TypeData:
				if !sawFirst {
					buf := make([]byte, payloadLen)
					if _, err := f.ReadAt(buf, payloadOff); err == nil {
						smart := section.LooksLikeSMARTVolume(len(buf))
						if vol, err := section.UnmarshalVolumeFor(buf, smart); err == nil {
							h.applyVolume(vol)
						}
					}
				}
			case section.TypeSectors:
				sectorsStart = payloadOff
			case section.TypeTable:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					tableEntries, tableErr = offsettable.DecodeEntries(buf)
				} else {
					tableErr = err
				}
			case section.TypeTable2:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					table2Entries, table2Err = offsettable.DecodeEntries(buf)
				} else {
					table2Err = err
				}
			case section.TypeError2:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					if entries, err := section.UnmarshalError2(buf); err == nil {
						for _, e := range entries {
							h.acquiryErrors.Add(e.FirstSector, e.SectorCount)
						}
					}
				}
			case section.TypeHash:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					if md5Sum, err := section.UnmarshalHash(buf); err == nil {
						h.hash.Set("md5", fmt.Sprintf("%x", md5Sum))
						h.md5Set = true
					}
				}
			case section.TypeDigest:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					if md5Sum, sha1Sum, err := section.UnmarshalDigest(buf); err == nil {
						h.hash.Set("md5", fmt.Sprintf("%x", md5Sum))
						h.hash.Set("sha1", fmt.Sprintf("%x", sha1Sum))
						h.md5Set = true
					}
				}
			case section.TypeXHash:
				buf := make([]byte, payloadLen)
				if _, err := f.ReadAt(buf, payloadOff); err == nil {
					if tbl, err := section.DecodeXHash(buf); err == nil {
						values.CopyInto(h.hash, tbl)
						if _, ok := tbl.Get("md5"); ok {
							h.md5Set = true
						}
					}
				}
			}
		}
		sawFirst = true

		if len(tableEntries) > 0 || len(table2Entries) > 0 {
			resolved, err := offsettable.Reconcile(tableEntries, table2Entries, tableErr, table2Err)
			if err != nil {
				if errors.Is(err, errs.ErrBackupDisagrees) {
					notify.Warnf("segment %d: table/table2 disagree, using primary", number)
				} else {
					return fmt.Errorf("ewf: segment %d: %w", number, err)
				}
			}
			// dataEnd is the offset of the table section itself: the last
			// chunk's stored size runs up to where the table begins.
			dataEnd := sectorsStart
			for _, e := range entries {
				if e.Type == section.TypeTable {
					dataEnd = e.Offset
					break
				}
			}
			locs, err := offsettable.BuildSegment(number, resolved, sectorsStart, dataEnd)
			if err != nil {
				return fmt.Errorf("ewf: segment %d: %w", number, err)
			}
			for _, loc := range locs {
				h.offsets.Append(loc)
			}
		}

		if err := h.segments.Add(segment.Descriptor{Number: number, Path: path}); err != nil {
			return err
		}

		number++
	}
	return nil
}

// applyVolume copies a decoded volume section's fields into the Handle's
// media parameters, used while opening an existing container.
func (h *Handle) applyVolume(v section.Volume) {
	h.mediaType = v.MediaType
	h.mediaFlags = v.MediaFlags
	h.sectorsPerChunk = v.SectorsPerChunk
	h.bytesPerSector = v.BytesPerSector
	h.sectorCount = v.SectorCount
	h.errorGranularity = v.ErrorGranularity
	h.compressionLevel = int(v.CompressionLevel)
	h.guid = v.GUID
	h.guidSet = v.GUID != [16]byte{}
}

// Close finalizes a write Handle that hasn't been finalized yet (spec.md
// §3: close first invokes finalize if not already finalized), then
// releases every open segment file, including any open delta file.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	if h.mode == modeWrite && h.write.State() != writeio.Finalized {
		if err := h.finalizeLocked(); err != nil {
			firstErr = err
		}
	}
	for _, f := range h.segFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.deltaFile != nil {
		if err := h.deltaFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
