package ewf

import (
	"fmt"

	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/ioadapter"
	"github.com/arcanefs/goewf/internal/offsettable"
	"github.com/arcanefs/goewf/internal/readio"
	"github.com/arcanefs/goewf/internal/writeio"
)

// OpenDeltaWrite opens (creating if necessary) a delta segment file
// alongside an already-open read Handle, enabling ReplaceChunk: spec.md
// §4.7/§6's OPEN_READ|OPEN_WRITE mode, which overrides individual chunks
// without ever touching the base evidence segments, conventionally
// writing the overrides to a ".d01" sibling of the first segment.
func (h *Handle) OpenDeltaWrite(deltaPath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != modeRead {
		return fmt.Errorf("ewf: delta write requires an open read handle: %w", errs.ErrInvalidState)
	}
	if h.deltaFile != nil {
		return fmt.Errorf("ewf: delta file already open at %s: %w", h.deltaPath, errs.ErrAlreadySet)
	}
	f, err := ioadapter.CreateWrite(deltaPath)
	if err != nil {
		return err
	}
	h.deltaFile = f
	h.deltaPath = deltaPath
	return nil
}

// ReplaceChunk overrides chunk index's decompressed content: raw is
// compressed and appended to the delta file OpenDeltaWrite opened, and
// the override is recorded in the delta overlay (internal/writeio.DeltaOverlay).
// Every subsequent Read resolves index through the overlay ahead of the
// base offset table, leaving the base segments untouched.
func (h *Handle) ReplaceChunk(index int, raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deltaFile == nil {
		return fmt.Errorf("ewf: no delta file open, call OpenDeltaWrite first: %w", errs.ErrInvalidState)
	}
	if index < 0 || index >= h.offsets.Len() {
		return fmt.Errorf("ewf: chunk index %d out of range: %w", index, errs.ErrInvalidArgument)
	}
	if len(raw) != h.chunkSize() {
		return fmt.Errorf("ewf: replacement chunk must be %d bytes, got %d: %w", h.chunkSize(), len(raw), errs.ErrInvalidArgument)
	}

	opts := chunk.Options{Level: h.compressionLevel, CompressEmptyBlock: h.compressEmptyBlock}
	stored, compressed, err := chunk.Compress(raw, opts)
	if err != nil {
		return err
	}
	off, err := h.deltaFile.Append(stored)
	if err != nil {
		return err
	}

	h.deltaOverlay.Replace(index, offsettable.Location{
		Segment:    deltaSegmentNumber,
		FileOffset: off,
		StoredSize: uint32(len(stored)),
		Compressed: compressed,
	})

	merged, err := writeio.ApplyTo(h.offsets, h.deltaOverlay)
	if err != nil {
		return err
	}
	h.reader = readio.New(merged, h.chunkSize(), h.mediaSize(), h.segmentSource, h.wipeOnError, h.crcErrors)
	return nil
}

// DeltaOverrideCount returns how many chunks the delta overlay currently
// overrides.
func (h *Handle) DeltaOverrideCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deltaOverlay == nil {
		return 0
	}
	return h.deltaOverlay.Count()
}
