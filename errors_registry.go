package ewf

import "sort"

// AcquiryError records a range of sectors the original acquisition
// software failed to read from the source media (the "error2" section),
// as distinct from a CRC failure detected later by a reader of the image.
type AcquiryError struct {
	FirstSector uint64
	SectorCount uint32
}

// acquiryErrorRegistry stores acquiry errors deduplicated by starting
// sector, matching libewf_add_acquiry_error's behavior of refusing a
// second entry for a sector range already recorded rather than
// accumulating duplicates across re-opens.
type acquiryErrorRegistry struct {
	bySector map[uint64]AcquiryError
}

func newAcquiryErrorRegistry() *acquiryErrorRegistry {
	return &acquiryErrorRegistry{bySector: make(map[uint64]AcquiryError)}
}

// Add records an acquiry error, ignoring a duplicate for a first sector
// already present.
func (r *acquiryErrorRegistry) Add(firstSector uint64, sectorCount uint32) {
	if _, exists := r.bySector[firstSector]; exists {
		return
	}
	r.bySector[firstSector] = AcquiryError{FirstSector: firstSector, SectorCount: sectorCount}
}

// All returns every recorded acquiry error, ordered by first sector.
func (r *acquiryErrorRegistry) All() []AcquiryError {
	out := make([]AcquiryError, 0, len(r.bySector))
	for _, e := range r.bySector {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSector < out[j].FirstSector })
	return out
}

// Get returns the acquiry error starting at firstSector, if any.
func (r *acquiryErrorRegistry) Get(firstSector uint64) (AcquiryError, bool) {
	e, ok := r.bySector[firstSector]
	return e, ok
}

// Count returns the number of recorded acquiry errors.
func (r *acquiryErrorRegistry) Count() int {
	return len(r.bySector)
}

// crcErrorRegistry records chunks whose stored checksum failed to
// validate on read, implementing the CRCRecorder interface the read
// pipeline (internal/readio) depends on.
type crcErrorRegistry struct {
	indices map[uint32]struct{}
}

func newCRCErrorRegistry() *crcErrorRegistry {
	return &crcErrorRegistry{indices: make(map[uint32]struct{})}
}

// RecordCRCError implements readio.CRCRecorder.
func (r *crcErrorRegistry) RecordCRCError(chunkIndex uint32) {
	r.indices[chunkIndex] = struct{}{}
}

// All returns the recorded chunk indices in ascending order.
func (r *crcErrorRegistry) All() []uint32 {
	out := make([]uint32, 0, len(r.indices))
	for idx := range r.indices {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether chunkIndex was recorded as a CRC failure.
func (r *crcErrorRegistry) Has(chunkIndex uint32) bool {
	_, ok := r.indices[chunkIndex]
	return ok
}

// Count returns the number of distinct chunks with a recorded CRC error.
func (r *crcErrorRegistry) Count() int {
	return len(r.indices)
}

// AddAcquiryError records that sectorCount sectors starting at firstSector
// failed during acquisition (libewf_add_acquiry_error).
func (h *Handle) AddAcquiryError(firstSector uint64, sectorCount uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acquiryErrors.Add(firstSector, sectorCount)
}

// GetAcquiryError returns the acquiry error starting at firstSector, if
// one was recorded (libewf_get_acquiry_error).
func (h *Handle) GetAcquiryError(firstSector uint64) (AcquiryError, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.acquiryErrors.Get(firstSector)
}

// AcquiryErrors returns every recorded acquiry error, ordered by sector.
func (h *Handle) AcquiryErrors() []AcquiryError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.acquiryErrors.All()
}

// CRCErrorChunks returns the chunk indices whose stored checksum failed
// validation on read (libewf_get_crc_error equivalent, by chunk index
// rather than sector since that is the codec's natural unit).
func (h *Handle) CRCErrorChunks() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.crcErrors.All()
}
