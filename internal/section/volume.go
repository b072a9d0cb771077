package section

import (
	"encoding/binary"
	"fmt"

	"github.com/arcanefs/goewf/internal/crc"
	"github.com/arcanefs/goewf/internal/errs"
)

// specificationSize is the on-disk size of the EnCase1-5 "volume"/"disk"
// layout (EWFSpecification in the teacher repo, expanded to carry every
// §3 media parameter): media type(1) + padding(3) + chunk count(4) +
// sectors-per-chunk(4) + bytes-per-sector(4) + sector count(8) + CHS(12)
// + media flags(1) + padding(3) + palm start sector(4) + padding(4) +
// smart-logs start sector(4) + compression level(1) + padding(3) + error
// granularity(4) + padding(4) + guid(16) + reserved + signature(5) +
// checksum(4), per spec.md §6 ("1052 bytes for
// EnCase5").
const specificationSize = 1052

// smartVolumeSize is the on-disk size of the SMART/FTK "volume" layout
// (DiskSMART in the teacher repo): the same media parameters as the
// EnCase layout, packed without room for CHS geometry, per spec.md §6
// ("94 bytes for SMART").
const smartVolumeSize = 94

// Volume holds the fields spec.md §3/§6 names for the "volume"/"disk"/
// "data" section, independent of which of the two on-disk layouts
// produced or will receive them. format.Variant.UsesSMARTVolume selects
// the layout; Volume itself is variant-agnostic.
type Volume struct {
	MediaType       uint8
	ChunkCount      uint32
	SectorsPerChunk uint32
	BytesPerSector  uint32
	SectorCount     uint64

	// CHS geometry only round-trips on the EnCase/"Specification" layout;
	// no acquisition tool this implementation targets ever populates it.
	CHSCylinders          uint32
	CHSHeads              uint32
	CHSSectors            uint32
	MediaFlags            uint8
	PalmVolumeStartSector uint32
	SmartLogsStartSector  uint32
	CompressionLevel      uint8
	ErrorGranularity      uint32
	GUID                  [16]byte
}

// MarshalSpecification encodes v in the 1052-byte EnCase1-5 layout,
// carrying every §3 media parameter.
func (v Volume) MarshalSpecification() []byte {
	buf := make([]byte, specificationSize)
	buf[0] = v.MediaType
	binary.LittleEndian.PutUint32(buf[4:8], v.ChunkCount)
	binary.LittleEndian.PutUint32(buf[8:12], v.SectorsPerChunk)
	binary.LittleEndian.PutUint32(buf[12:16], v.BytesPerSector)
	binary.LittleEndian.PutUint64(buf[16:24], v.SectorCount)
	binary.LittleEndian.PutUint32(buf[24:28], v.CHSCylinders)
	binary.LittleEndian.PutUint32(buf[28:32], v.CHSHeads)
	binary.LittleEndian.PutUint32(buf[32:36], v.CHSSectors)
	buf[36] = v.MediaFlags
	binary.LittleEndian.PutUint32(buf[40:44], v.PalmVolumeStartSector)
	binary.LittleEndian.PutUint32(buf[48:52], v.SmartLogsStartSector)
	buf[52] = v.CompressionLevel
	binary.LittleEndian.PutUint32(buf[56:60], v.ErrorGranularity)
	copy(buf[64:80], v.GUID[:])
	copy(buf[1043:1048], "EVF\x09\x0d")
	sum := crc.Compute(buf[:specificationSize-4])
	binary.LittleEndian.PutUint32(buf[specificationSize-4:], sum)
	return buf
}

// UnmarshalSpecification decodes the 1052-byte EnCase1-5 layout.
func UnmarshalSpecification(buf []byte) (Volume, error) {
	if len(buf) != specificationSize {
		return Volume{}, fmt.Errorf("section: specification volume: %w: want %d bytes, got %d", errs.ErrInvalidArgument, specificationSize, len(buf))
	}
	want := binary.LittleEndian.Uint32(buf[specificationSize-4:])
	got := crc.Compute(buf[:specificationSize-4])
	if want != got {
		return Volume{}, fmt.Errorf("section: specification volume checksum: %w", errs.ErrSectionChecksumMismatch)
	}
	v := Volume{
		MediaType:             buf[0],
		ChunkCount:            binary.LittleEndian.Uint32(buf[4:8]),
		SectorsPerChunk:       binary.LittleEndian.Uint32(buf[8:12]),
		BytesPerSector:        binary.LittleEndian.Uint32(buf[12:16]),
		SectorCount:           binary.LittleEndian.Uint64(buf[16:24]),
		CHSCylinders:          binary.LittleEndian.Uint32(buf[24:28]),
		CHSHeads:              binary.LittleEndian.Uint32(buf[28:32]),
		CHSSectors:            binary.LittleEndian.Uint32(buf[32:36]),
		MediaFlags:            buf[36],
		PalmVolumeStartSector: binary.LittleEndian.Uint32(buf[40:44]),
		SmartLogsStartSector:  binary.LittleEndian.Uint32(buf[48:52]),
		CompressionLevel:      buf[52],
		ErrorGranularity:      binary.LittleEndian.Uint32(buf[56:60]),
	}
	copy(v.GUID[:], buf[64:80])
	return v, nil
}

// MarshalSMART encodes v in the 94-byte SMART/FTK layout: the same media
// parameters as the EnCase layout, minus CHS geometry, packed tightly
// enough to fit ahead of the trailing signature and checksum.
func (v Volume) MarshalSMART() []byte {
	buf := make([]byte, smartVolumeSize)
	buf[0] = v.MediaType
	binary.LittleEndian.PutUint32(buf[4:8], v.ChunkCount)
	binary.LittleEndian.PutUint32(buf[8:12], v.SectorsPerChunk)
	binary.LittleEndian.PutUint32(buf[12:16], v.BytesPerSector)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(v.SectorCount))
	buf[20] = v.MediaFlags
	binary.LittleEndian.PutUint32(buf[24:28], v.PalmVolumeStartSector)
	binary.LittleEndian.PutUint32(buf[28:32], v.SmartLogsStartSector)
	buf[32] = v.CompressionLevel
	binary.LittleEndian.PutUint32(buf[36:40], v.ErrorGranularity)
	copy(buf[40:56], v.GUID[:])
	copy(buf[85:90], "EVF\x09\x0d")
	sum := crc.Compute(buf[:smartVolumeSize-4])
	binary.LittleEndian.PutUint32(buf[smartVolumeSize-4:], sum)
	return buf
}

// UnmarshalSMART decodes the 94-byte SMART/FTK layout.
func UnmarshalSMART(buf []byte) (Volume, error) {
	if len(buf) != smartVolumeSize {
		return Volume{}, fmt.Errorf("section: smart volume: %w: want %d bytes, got %d", errs.ErrInvalidArgument, smartVolumeSize, len(buf))
	}
	want := binary.LittleEndian.Uint32(buf[smartVolumeSize-4:])
	got := crc.Compute(buf[:smartVolumeSize-4])
	if want != got {
		return Volume{}, fmt.Errorf("section: smart volume checksum: %w", errs.ErrSectionChecksumMismatch)
	}
	v := Volume{
		MediaType:             buf[0],
		ChunkCount:            binary.LittleEndian.Uint32(buf[4:8]),
		SectorsPerChunk:       binary.LittleEndian.Uint32(buf[8:12]),
		BytesPerSector:        binary.LittleEndian.Uint32(buf[12:16]),
		SectorCount:           uint64(binary.LittleEndian.Uint32(buf[16:20])),
		MediaFlags:            buf[20],
		PalmVolumeStartSector: binary.LittleEndian.Uint32(buf[24:28]),
		SmartLogsStartSector:  binary.LittleEndian.Uint32(buf[28:32]),
		CompressionLevel:      buf[32],
		ErrorGranularity:      binary.LittleEndian.Uint32(buf[36:40]),
	}
	copy(v.GUID[:], buf[40:56])
	return v, nil
}

// LooksLikeSMARTVolume reports whether a volume/disk section payload of
// the given length matches the 94-byte SMART/FTK layout rather than the
// 1052-byte EnCase specification layout. Used when opening a container
// whose format.Variant isn't known yet: the two layouts' sizes never
// collide, so the payload length alone identifies which one was written.
func LooksLikeSMARTVolume(payloadLen int) bool {
	return payloadLen < specificationSize
}

// MarshalFor encodes v using the layout smart selects, matching the
// container's format.Variant.
func (v Volume) MarshalFor(smart bool) []byte {
	if smart {
		return v.MarshalSMART()
	}
	return v.MarshalSpecification()
}

// UnmarshalVolumeFor decodes buf using the layout smart selects.
func UnmarshalVolumeFor(buf []byte, smart bool) (Volume, error) {
	if smart {
		return UnmarshalSMART(buf)
	}
	return UnmarshalSpecification(buf)
}
