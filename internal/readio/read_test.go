package readio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/offsettable"
)

type memSegment struct {
	data []byte
}

func (m *memSegment) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

type fakeRecorder struct {
	recorded []uint32
}

func (f *fakeRecorder) RecordCRCError(chunkIndex uint32) {
	f.recorded = append(f.recorded, chunkIndex)
}

// buildFixture lays out a 2-chunk, 16-byte-per-chunk stream and returns
// its offset table and backing segment bytes.
func buildFixture(t *testing.T, corruptSecondChunk bool) (*offsettable.Table, *memSegment) {
	t.Helper()
	chunk0 := bytes.Repeat([]byte{0xAA}, 16)
	chunk1 := bytes.Repeat([]byte{0xBB}, 16)

	stored0, compressed0, err := chunk.Compress(chunk0, chunk.Options{Level: chunk.LevelNone})
	require.NoError(t, err)
	stored1, compressed1, err := chunk.Compress(chunk1, chunk.Options{Level: chunk.LevelNone})
	require.NoError(t, err)

	if corruptSecondChunk {
		stored1[0] ^= 0xff
	}

	var buf bytes.Buffer
	off0 := int64(buf.Len())
	buf.Write(stored0)
	off1 := int64(buf.Len())
	buf.Write(stored1)

	tbl := offsettable.New()
	tbl.Append(offsettable.Location{Segment: 1, FileOffset: off0, StoredSize: uint32(len(stored0)), Compressed: compressed0})
	tbl.Append(offsettable.Location{Segment: 1, FileOffset: off1, StoredSize: uint32(len(stored1)), Compressed: compressed1})

	return tbl, &memSegment{data: buf.Bytes()}
}

func TestReadSequentialAcrossChunks(t *testing.T) {
	tbl, seg := buildFixture(t, false)
	open := func(uint16) (io.ReaderAt, error) { return seg, nil }
	r := New(tbl, 16, 32, open, false, nil)

	out := make([]byte, 32)
	n, err := io.ReadFull(r, out)
	require.NoError(t, err)
	require.Equal(t, 32, n)
	require.Equal(t, bytes.Repeat([]byte{0xAA}, 16), out[:16])
	require.Equal(t, bytes.Repeat([]byte{0xBB}, 16), out[16:])
}

func TestSeekThenReadMidChunk(t *testing.T) {
	tbl, seg := buildFixture(t, false)
	open := func(uint16) (io.ReaderAt, error) { return seg, nil }
	r := New(tbl, 16, 32, open, false, nil)

	_, err := r.Seek(20, io.SeekStart)
	require.NoError(t, err)

	out := make([]byte, 8)
	n, err := io.ReadFull(r, out)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, bytes.Repeat([]byte{0xBB}, 8), out)
}

func TestReadWipesOnCRCErrorWhenEnabled(t *testing.T) {
	tbl, seg := buildFixture(t, true)
	open := func(uint16) (io.ReaderAt, error) { return seg, nil }
	rec := &fakeRecorder{}
	r := New(tbl, 16, 32, open, true, rec)

	out := make([]byte, 32)
	n, err := io.ReadFull(r, out)
	require.NoError(t, err)
	require.Equal(t, 32, n)
	require.Equal(t, bytes.Repeat([]byte{0xAA}, 16), out[:16])
	require.Equal(t, bytes.Repeat([]byte{0}, 16), out[16:]) // wiped, not propagated

	require.Equal(t, []uint32{1}, rec.recorded)
}

func TestReadReturnsBogusBytesWhenWipeDisabled(t *testing.T) {
	tbl, seg := buildFixture(t, true)
	open := func(uint16) (io.ReaderAt, error) { return seg, nil }
	rec := &fakeRecorder{}
	r := New(tbl, 16, 32, open, false, rec)

	_, err := r.Seek(16, io.SeekStart)
	require.NoError(t, err)
	out := make([]byte, 16)
	n, err := io.ReadFull(r, out)
	require.NoError(t, err) // a CRC mismatch is never fatal, wiped or not
	require.Equal(t, 16, n)

	want := bytes.Repeat([]byte{0xBB}, 16)
	want[0] = 0x44 // the flipped byte, returned as-is rather than aborting
	require.Equal(t, want, out)

	require.Equal(t, []uint32{1}, rec.recorded)
}

func TestSeekOutOfRange(t *testing.T) {
	tbl, seg := buildFixture(t, false)
	open := func(uint16) (io.ReaderAt, error) { return seg, nil }
	r := New(tbl, 16, 32, open, false, nil)

	_, err := r.Seek(1000, io.SeekStart)
	require.Error(t, err)
}
