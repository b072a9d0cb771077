package writeio

import "github.com/arcanefs/goewf/internal/section"

// FixedOverhead is the byte cost every segment pays regardless of how
// many chunk bytes it carries: the 13-byte file signature plus the
// sectors, table, table2, and terminal next-or-done section descriptors
// that bracket the chunk stream. Fits counts this against the segment's
// limit together with the committed chunk bytes. The budget does not
// count the table/table2 payloads (a 24-byte header plus 4 bytes per
// chunk, each), segment 1's header and volume sections, or the last
// segment's error2/session/hash/digest/xhash sections, so a finished
// segment file can exceed segment_file_size by that many bytes.
const FixedOverhead = 13 + 4*section.DescriptorSize

// SegmentBudget tracks how many bytes have been committed to the segment
// currently being written, so the write pipeline knows when to close it
// and open the next one rather than exceeding segment_file_size.
type SegmentBudget struct {
	limit int64
	used  int64
}

// NewSegmentBudget returns a budget for a segment capped at limit bytes,
// pre-charged with FixedOverhead so the very first chunk's Fits check
// already reflects the signature and section descriptor bytes.
func NewSegmentBudget(limit int64) *SegmentBudget {
	return &SegmentBudget{limit: limit, used: FixedOverhead}
}

// Fits reports whether an additional n bytes can be appended to the
// current segment without exceeding its limit. A segment that has
// written nothing but its fixed overhead always fits at least one
// chunk, even one larger than the limit, so a single oversized chunk
// never deadlocks the writer.
func (b *SegmentBudget) Fits(n int64) bool {
	if b.used <= FixedOverhead {
		return true
	}
	return b.used+n <= b.limit
}

// Commit records n bytes as written to the current segment.
func (b *SegmentBudget) Commit(n int64) {
	b.used += n
}

// Reset restores the budget to a freshly opened segment's starting
// point: just the fixed per-segment overhead, no chunk data committed
// yet.
func (b *SegmentBudget) Reset() {
	b.used = FixedOverhead
}

// Used returns the bytes committed so far.
func (b *SegmentBudget) Used() int64 {
	return b.used
}
