package ewf

import (
	"fmt"

	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/section"
	"github.com/arcanefs/goewf/internal/writeio"
)

// guardSettable returns an error if h is a read Handle, or a write Handle
// whose header has already been emitted: every media-parameter setter
// below is only legal in Fresh, matching libewf_set_* rejecting calls
// after libewf_write has started (original_source/libewf/libewf_file.c).
func (h *Handle) guardSettable() error {
	if h.mode != modeWrite {
		return fmt.Errorf("ewf: media parameters are read-only on a read handle: %w", errs.ErrInvalidState)
	}
	return h.write.RequireBefore(writeio.HeaderEmitted)
}

// MediaType returns the media type byte (libewf_get_media_type).
func (h *Handle) MediaType() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mediaType
}

// SetMediaType sets the media type byte (libewf_set_media_type).
func (h *Handle) SetMediaType(v uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.mediaType = v
	return nil
}

// MediaFlags returns the media flags byte (libewf_get_media_flags).
func (h *Handle) MediaFlags() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mediaFlags
}

// SetMediaFlags sets the media flags byte (libewf_set_media_flags).
func (h *Handle) SetMediaFlags(v uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.mediaFlags = v
	return nil
}

// BytesPerSector returns the sector size in bytes (libewf_get_bytes_per_sector).
func (h *Handle) BytesPerSector() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bytesPerSector
}

// SetBytesPerSector sets the sector size in bytes (libewf_set_bytes_per_sector).
func (h *Handle) SetBytesPerSector(v uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	if v == 0 {
		return fmt.Errorf("ewf: bytes per sector must be > 0: %w", errs.ErrInvalidArgument)
	}
	h.bytesPerSector = v
	return nil
}

// SectorsPerChunk returns the number of sectors per chunk (libewf_get_sectors_per_chunk).
func (h *Handle) SectorsPerChunk() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sectorsPerChunk
}

// SetSectorsPerChunk sets the number of sectors per chunk (libewf_set_sectors_per_chunk).
func (h *Handle) SetSectorsPerChunk(v uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	if v == 0 {
		return fmt.Errorf("ewf: sectors per chunk must be > 0: %w", errs.ErrInvalidArgument)
	}
	h.sectorsPerChunk = v
	return nil
}

// SectorCount returns the total number of sectors the media holds
// (libewf_get_amount_of_sectors/libewf_get_media_size derives from this).
func (h *Handle) SectorCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sectorCount
}

// SetSectorCount sets the total number of sectors the media holds.
// On write this is normally derived automatically as Write accumulates
// data; setting it explicitly up front (a known source device size) lets
// the offset table and last-chunk bounds be predicted before any chunk
// is written.
func (h *Handle) SetSectorCount(v uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.sectorCount = v
	return nil
}

// MediaSize returns the logical media size in bytes: SectorCount *
// BytesPerSector (libewf_get_media_size).
func (h *Handle) MediaSize() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mediaSize()
}

// ErrorGranularity returns the sector error granularity (libewf_get_error_granularity).
func (h *Handle) ErrorGranularity() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errorGranularity
}

// SetErrorGranularity sets the sector error granularity (libewf_set_error_granularity).
func (h *Handle) SetErrorGranularity(v uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.errorGranularity = v
	return nil
}

// CompressionLevel returns the chunk compression level (libewf_get_compression_values).
func (h *Handle) CompressionLevel() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compressionLevel
}

// SetCompressionLevel sets the chunk compression level
// (libewf_set_write_compression_values's first argument).
func (h *Handle) SetCompressionLevel(level int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.compressionLevel = level
	return nil
}

// GUID returns the container's segment file set identifier, if one has
// been set (libewf_get_guid).
func (h *Handle) GUID() ([16]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.guid, h.guidSet
}

// SetGUID sets the container's segment file set identifier. A GUID may
// only be set once per container (libewf_set_guid refuses to overwrite
// one already generated at acquisition start).
func (h *Handle) SetGUID(guid [16]byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	if h.guidSet {
		return fmt.Errorf("ewf: guid already set: %w", errs.ErrAlreadySet)
	}
	h.guid = guid
	h.guidSet = true
	return nil
}

// SegmentFileSizeLimit returns the byte budget each segment file is
// capped at (libewf_set_segment_file_size's counterpart getter).
func (h *Handle) SegmentFileSizeLimit() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writeSegmentLimit
}

// SetSegmentFileSizeLimit sets the byte budget each segment file is
// capped at (libewf_set_segment_file_size).
func (h *Handle) SetSegmentFileSizeLimit(limit int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	if limit <= int64(section.DescriptorSize)*4 {
		return fmt.Errorf("ewf: segment file size limit too small: %w", errs.ErrInvalidArgument)
	}
	h.writeSegmentLimit = limit
	return nil
}

// CurrentSegmentBytesUsed returns how many bytes (chunk data plus the
// fixed per-segment overhead) have been committed to the segment file a
// write Handle is currently appending to. Zero for a read Handle, or a
// write Handle that hasn't opened its first segment yet.
func (h *Handle) CurrentSegmentBytesUsed() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeBudget == nil {
		return 0
	}
	return h.writeBudget.Used()
}
