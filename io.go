package ewf

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/arcanefs/goewf/format"
	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/ioadapter"
	"github.com/arcanefs/goewf/internal/offsettable"
	"github.com/arcanefs/goewf/internal/section"
	"github.com/arcanefs/goewf/internal/segment"
	"github.com/arcanefs/goewf/internal/writeio"
)

// compressBatchSize is how many full chunks Write accumulates before
// handing them to writeio.CompressParallel as one batch: large enough to
// give the worker pool real parallel work, small enough that Finalize
// never has to wait on compressing an unbounded backlog.
const compressBatchSize = 8

// fileSignatureSize is the 13-byte header every segment file opens with:
// "EVF\x09\x0d\x0a\xff\x00" followed by fields-start(1), the segment
// number, and fields-end(0), matching EWFFileHeader in the teacher repo.
const fileSignatureSize = 13

func marshalFileHeader(segmentNumber uint16) []byte {
	buf := make([]byte, fileSignatureSize)
	copy(buf[:8], []byte{0x45, 0x56, 0x46, 0x09, 0x0d, 0x0a, 0xff, 0x00})
	buf[8] = 1
	binary.LittleEndian.PutUint16(buf[9:11], segmentNumber)
	return buf
}

// Read implements io.Reader over the logical media stream of an open
// read Handle (libewf_read_random's sequential counterpart).
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != modeRead {
		return 0, fmt.Errorf("ewf: read not supported on a write handle: %w", errs.ErrInvalidState)
	}
	return h.reader.Read(p)
}

// Seek implements io.Seeker over the logical media stream of an open read
// Handle (libewf_seek_offset).
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != modeRead {
		return 0, fmt.Errorf("ewf: seek not supported on a write handle: %w", errs.ErrInvalidState)
	}
	return h.reader.Seek(offset, whence)
}

// Write appends raw media bytes to the container, buffering them into full
// chunks (SectorsPerChunk*BytesPerSector bytes). Every compressBatchSize
// full chunks are compressed together and appended to the current segment
// file in order, rolling over to a new segment whenever the current one
// would exceed its size budget; chunks still buffered are written by
// Finalize
// (libewf_write_buffer, generalized across the segment boundary the
// teacher repo never had to cross since it only ever read).
func (h *Handle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != modeWrite {
		return 0, fmt.Errorf("ewf: write not supported on a read handle: %w", errs.ErrInvalidState)
	}
	if err := h.ensureWriteStarted(); err != nil {
		return 0, err
	}

	h.pendingRaw = append(h.pendingRaw, p...)
	size := h.chunkSize()
	for len(h.pendingRaw) >= size {
		raw := make([]byte, size)
		copy(raw, h.pendingRaw[:size])
		h.pendingChunks = append(h.pendingChunks, raw)
		h.pendingRaw = h.pendingRaw[size:]

		if len(h.pendingChunks) >= compressBatchSize {
			if err := h.flushBatch(h.pendingChunks); err != nil {
				return 0, err
			}
			h.pendingChunks = nil
		}
	}
	h.writtenBytes += int64(len(p))
	return len(p), nil
}

// Finalize flushes any partial last chunk, closes out the current
// segment's table/table2, writes the trailer sections (error2, hash or
// digest, done), and transitions the write state machine to Finalized.
// An image with zero bytes ever written still gets a complete,
// zero-chunk container (spec.md's empty-image scenario).
func (h *Handle) Finalize() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finalizeLocked()
}

// finalizeLocked is Finalize's body, factored out so Close can invoke it
// while already holding h.mu (spec.md §3: close on a write handle first
// finalizes if it hasn't already). Idempotent once Finalized.
func (h *Handle) finalizeLocked() error {
	if h.mode != modeWrite {
		return fmt.Errorf("ewf: finalize not supported on a read handle: %w", errs.ErrInvalidState)
	}
	if h.write.State() == writeio.Finalized {
		return nil
	}
	if err := h.ensureWriteStarted(); err != nil {
		return err
	}
	if len(h.pendingChunks) > 0 {
		if err := h.flushBatch(h.pendingChunks); err != nil {
			return err
		}
		h.pendingChunks = nil
	}
	if len(h.pendingRaw) > 0 {
		if err := h.flushChunk(h.pendingRaw); err != nil {
			return err
		}
		h.pendingRaw = nil
	}
	if h.sectorCount == 0 {
		h.sectorCount = uint64(h.writtenBytes) / uint64(h.bytesPerSector)
	}
	if err := h.closeWriteSegment(true); err != nil {
		return err
	}
	if err := h.writeVolumeSection(); err != nil {
		return err
	}
	return h.write.Finalize()
}

// ensureWriteStarted emits the first segment's header/volume sections on
// the first Write or Finalize call, transitioning Fresh -> HeaderEmitted.
func (h *Handle) ensureWriteStarted() error {
	if h.write.State() != writeio.Fresh {
		return nil
	}
	if h.md5Hash == nil {
		h.md5Hash = md5.New()
		h.sha1Hash = sha1.New()
	}
	if !h.guidSet {
		h.guid = uuid.New()
		h.guidSet = true
	}
	if err := h.openWriteSegment(1); err != nil {
		return err
	}
	return h.write.EmitHeader()
}

// flushChunk compresses one raw chunk (the shorter final chunk at
// Finalize, which doesn't warrant a parallel batch of its own) and
// appends it to the current segment. libewf pads a short final chunk to
// the full chunk size on EnCase5; this implementation stores the chunk
// at its true length instead and derives the expected length on read
// from the remaining media size, since the on-disk byte count is then
// exactly media_size with no ambiguity about how much of the last chunk
// is real data versus padding (spec.md §9's open question on
// input_write_size accounting).
func (h *Handle) flushChunk(raw []byte) error {
	h.md5Hash.Write(raw)
	h.sha1Hash.Write(raw)

	opts := chunk.Options{Level: h.compressionLevel, CompressEmptyBlock: h.compressEmptyBlock}
	stored, compressed, err := chunk.Compress(raw, opts)
	if err != nil {
		return err
	}
	return h.appendStoredChunk(stored, compressed)
}

// flushBatch compresses a run of full-size chunks through
// writeio.CompressParallel, whose bounded worker pool spreads the
// CPU-bound deflate work across every core, then appends the results to
// the current segment serially and in order so the on-disk layout is
// identical to a fully serial writer.
func (h *Handle) flushBatch(raws [][]byte) error {
	if len(raws) == 0 {
		return nil
	}
	opts := chunk.Options{Level: h.compressionLevel, CompressEmptyBlock: h.compressEmptyBlock}
	results, err := writeio.CompressParallel(context.Background(), raws, opts)
	if err != nil {
		return err
	}
	for _, res := range results {
		h.md5Hash.Write(raws[res.Index])
		h.sha1Hash.Write(raws[res.Index])
		if err := h.appendStoredChunk(res.Stored, res.Compressed); err != nil {
			return err
		}
	}
	return nil
}

// appendStoredChunk appends one already-compressed chunk to the current
// segment, rolling to a new segment first if it wouldn't fit.
func (h *Handle) appendStoredChunk(stored []byte, compressed bool) error {
	if !h.writeBudget.Fits(int64(len(stored))) {
		if err := h.closeWriteSegment(false); err != nil {
			return err
		}
		if err := h.openWriteSegment(h.writeSegmentNum + 1); err != nil {
			return err
		}
	}

	off, err := h.writeSegmentFile.Append(stored)
	if err != nil {
		return err
	}
	h.writeBudget.Commit(int64(len(stored)))
	h.segmentEntries = append(h.segmentEntries, offsettable.RawEntry{
		Offset:     uint32(off - h.sectorsDataStart),
		Compressed: compressed,
	})
	if err := h.write.BeginWriting(); err != nil {
		return err
	}
	h.writtenChunks++
	return nil
}

// openWriteSegment creates segment file number, writes its file header
// and (for segment 1) the header/volume sections, and reserves the
// "sectors" section descriptor the incoming chunk stream will be
// appended after.
func (h *Handle) openWriteSegment(number uint16) error {
	path, err := segment.BuildPath(h.basePath, h.variant, number)
	if err != nil {
		return err
	}
	f, err := ioadapter.CreateWrite(path)
	if err != nil {
		return err
	}
	h.writeSegmentFile = f
	h.writeSegmentNum = number
	h.writeBudget = writeio.NewSegmentBudget(h.writeSegmentLimit)
	h.segmentEntries = nil
	h.segFiles[number] = f

	if _, err := f.Append(marshalFileHeader(number)); err != nil {
		return err
	}

	if number == 1 {
		if err := h.writeHeaderSections(); err != nil {
			return err
		}
		if err := h.writeVolumeSection(); err != nil {
			return err
		}
	}

	descOff := f.Size()
	placeholder, err := section.Descriptor{Type: section.TypeSectors}.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.Append(placeholder); err != nil {
		return err
	}
	h.sectorsDescriptorOffset = descOff
	h.sectorsDataStart = f.Size()
	return h.segments.Add(segment.Descriptor{Number: number, Path: path})
}

// sectionOrderContains reports whether kind appears in the section order
// internal/segment.SectionOrder computes for a segment in d's position,
// the single source of truth this write path consults instead of
// re-deriving per-variant section presence ad hoc at every call site.
func sectionOrderContains(d segment.Descriptor, variant format.Variant, kind segment.SectionKind) bool {
	for _, k := range segment.SectionOrder(d, variant) {
		if k == kind {
			return true
		}
	}
	return false
}

func (h *Handle) writeHeaderSections() error {
	f := h.writeSegmentFile
	order := segment.Descriptor{IsFirst: true}
	payload, err := section.EncodeHeader(h.header)
	if err != nil {
		return err
	}
	if err := appendSection(f, section.TypeHeader, payload); err != nil {
		return err
	}
	if sectionOrderContains(order, h.variant, segment.SectionHeader2) {
		payload2, err := section.EncodeHeader2(h.header)
		if err != nil {
			return err
		}
		if err := appendSection(f, section.TypeHeader2, payload2); err != nil {
			return err
		}
	}
	if sectionOrderContains(order, h.variant, segment.SectionXHeader) {
		payloadX, err := section.EncodeXHeader(h.header)
		if err != nil {
			return err
		}
		if err := appendSection(f, section.TypeXHeader, payloadX); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handle) writeVolumeSection() error {
	vol := section.Volume{
		MediaType:        h.mediaType,
		ChunkCount:       h.writtenChunks,
		SectorsPerChunk:  h.sectorsPerChunk,
		BytesPerSector:   h.bytesPerSector,
		SectorCount:      h.sectorCount,
		MediaFlags:       h.mediaFlags,
		CompressionLevel: uint8(h.compressionLevel),
		ErrorGranularity: h.errorGranularity,
		GUID:             h.guid,
	}
	payload := vol.MarshalFor(h.variant.UsesSMARTVolume())
	if h.write.State() == writeio.Fresh {
		return appendSection(h.writeSegmentFile, section.TypeVolume, payload)
	}
	// Called again from Finalize: overwrite segment 1's volume payload in
	// place with the final chunk and sector counts.
	seg1 := h.segFiles[1]
	entries, err := section.Walk(seg1, seg1.Size(), fileSignatureSize)
	for _, e := range entries {
		if e.Type == section.TypeVolume && err == nil {
			_, err = seg1.WriteAt(payload, e.Offset+section.DescriptorSize)
		}
	}
	return err
}

// appendSection appends a section with a fully-known payload: writes its
// descriptor (next offset pointing immediately past the payload) followed
// by the payload itself.
func appendSection(f *ioadapter.File, typ section.Type, payload []byte) error {
	descOff := f.Size()
	next := descOff + section.DescriptorSize + int64(len(payload))
	d := section.Descriptor{Type: typ, NextOffset: uint64(next), Size: uint64(section.DescriptorSize + len(payload))}
	buf, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.Append(buf); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := f.Append(payload); err != nil {
			return err
		}
	}
	return nil
}

// closeWriteSegment patches the reserved "sectors" descriptor now that
// its size is known, writes "table"/"table2", and appends either a "next"
// section (more segments to come) or the finalize-only sections plus
// "done" (last segment).
func (h *Handle) closeWriteSegment(isLast bool) error {
	f := h.writeSegmentFile
	dataEnd := f.Size()

	tableOffset := dataEnd
	sectorsDesc := section.Descriptor{
		Type:       section.TypeSectors,
		NextOffset: uint64(tableOffset),
		Size:       uint64(dataEnd - h.sectorsDescriptorOffset),
	}
	if err := section.WriteDescriptorAt(f, h.sectorsDescriptorOffset, sectorsDesc); err != nil {
		return err
	}

	tablePayload := offsettable.EncodeEntries(h.segmentEntries)
	if err := appendSection(f, section.TypeTable, tablePayload); err != nil {
		return err
	}
	if err := appendSection(f, section.TypeTable2, tablePayload); err != nil {
		return err
	}

	for _, e := range h.segmentEntries {
		off := h.sectorsDataStart + int64(e.Offset)
		h.offsets.Append(offsettable.Location{Segment: h.writeSegmentNum, FileOffset: off, Compressed: e.Compressed})
	}

	if !isLast {
		return h.writeSelfLoopSection(section.TypeNext)
	}
	return h.writeFinalSections()
}

// writeSelfLoopSection appends a section whose next_offset points back
// at its own offset: the on-disk convention for a segment's terminal
// section when more segments follow, or for "done" itself
// (see internal/section.Walk).
func (h *Handle) writeSelfLoopSection(typ section.Type) error {
	f := h.writeSegmentFile
	descOff := f.Size()
	d := section.Descriptor{Type: typ, NextOffset: uint64(descOff), Size: uint64(section.DescriptorSize)}
	buf, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = f.Append(buf)
	return err
}

// writeFinalSections appends the last segment's trailer: any recorded
// acquisition errors, the MD5/SHA1 digest or MD5-only hash depending on
// variant, and the terminal "done" section.
func (h *Handle) writeFinalSections() error {
	f := h.writeSegmentFile
	order := segment.Descriptor{IsLast: true}

	entries := make([]section.Error2Entry, 0, h.acquiryErrors.Count())
	for _, e := range h.acquiryErrors.All() {
		entries = append(entries, section.Error2Entry{FirstSector: e.FirstSector, SectorCount: e.SectorCount})
	}
	if err := appendSection(f, section.TypeError2, section.MarshalError2(entries)); err != nil {
		return err
	}
	if sectionOrderContains(order, h.variant, segment.SectionSession) {
		if err := appendSection(f, section.TypeSession, section.MarshalSession()); err != nil {
			return err
		}
	}

	var md5Sum [16]byte
	var sha1Sum [20]byte
	copy(md5Sum[:], h.md5Hash.Sum(nil))
	copy(sha1Sum[:], h.sha1Hash.Sum(nil))
	h.hash.Set("md5", fmt.Sprintf("%x", md5Sum))
	h.hash.Set("sha1", fmt.Sprintf("%x", sha1Sum))
	h.md5Set = true

	if sectionOrderContains(order, h.variant, segment.SectionDigest) {
		if err := appendSection(f, section.TypeDigest, section.MarshalDigest(md5Sum, sha1Sum)); err != nil {
			return err
		}
	} else {
		if err := appendSection(f, section.TypeHash, section.MarshalHash(md5Sum)); err != nil {
			return err
		}
	}
	if sectionOrderContains(order, h.variant, segment.SectionXHash) {
		payloadX, err := section.EncodeXHash(h.hash)
		if err != nil {
			return err
		}
		if err := appendSection(f, section.TypeXHash, payloadX); err != nil {
			return err
		}
	}

	return h.writeSelfLoopSection(section.TypeDone)
}

var _ io.ReadSeeker = (*Handle)(nil)
