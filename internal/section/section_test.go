package section

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/errs"
)

func TestDescriptorRoundTrip(t *testing.T) {
	d := Descriptor{Type: TypeTable, NextOffset: 4096, Size: 2048}
	buf, err := d.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, DescriptorSize)

	var got Descriptor
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, d, got)

	// Re-marshaling the parsed descriptor must be byte-identical.
	buf2, err := got.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, buf, buf2)
}

func TestDescriptorChecksumMismatch(t *testing.T) {
	d := Descriptor{Type: TypeVolume, NextOffset: 13, Size: 1128}
	buf, err := d.MarshalBinary()
	require.NoError(t, err)
	buf[0] ^= 0xff

	var got Descriptor
	err = got.UnmarshalBinary(buf)
	require.ErrorIs(t, err, errs.ErrSectionChecksumMismatch)
}

func TestDescriptorTypeTooLong(t *testing.T) {
	d := Descriptor{Type: Type(bytes.Repeat([]byte("x"), 17))}
	_, err := d.MarshalBinary()
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestWalkStopsAtDone(t *testing.T) {
	buf := &bytes.Buffer{}
	writeDesc := func(typ Type, next, size uint64) int64 {
		off := int64(buf.Len())
		d := Descriptor{Type: typ, NextOffset: next, Size: size}
		b, err := d.MarshalBinary()
		require.NoError(t, err)
		buf.Write(b)
		return off
	}

	volOff := writeDesc(TypeVolume, 0, DescriptorSize)
	doneOff := writeDesc(TypeDone, 0, DescriptorSize)
	// Patch volume's next-offset now that we know done's offset.
	data := buf.Bytes()
	patched := Descriptor{Type: TypeVolume, NextOffset: uint64(doneOff), Size: DescriptorSize}
	patchedBuf, err := patched.MarshalBinary()
	require.NoError(t, err)
	copy(data[volOff:volOff+DescriptorSize], patchedBuf)

	r := bytes.NewReader(data)
	entries, err := Walk(r, int64(len(data)), volOff)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, TypeVolume, entries[0].Type)
	require.Equal(t, TypeDone, entries[1].Type)
}

func TestWalkDetectsCycle(t *testing.T) {
	buf := &bytes.Buffer{}
	d := Descriptor{Type: TypeTable, NextOffset: 0, Size: DescriptorSize}
	b, err := d.MarshalBinary()
	require.NoError(t, err)
	buf.Write(b)

	r := bytes.NewReader(buf.Bytes())
	_, err = Walk(r, int64(buf.Len()), 0)
	// next_offset == own offset (0) is the terminal convention, not a cycle:
	// this should succeed with one entry, not error.
	require.NoError(t, err)

	// A genuine cycle: two sections pointing at each other without "done".
	buf2 := &bytes.Buffer{}
	a := Descriptor{Type: TypeTable, NextOffset: DescriptorSize, Size: DescriptorSize}
	ab, _ := a.MarshalBinary()
	buf2.Write(ab)
	bb2 := Descriptor{Type: TypeTable2, NextOffset: 0, Size: DescriptorSize}
	bb, _ := bb2.MarshalBinary()
	buf2.Write(bb)

	r2 := bytes.NewReader(buf2.Bytes())
	_, err = Walk(r2, int64(buf2.Len()), 0)
	require.ErrorIs(t, err, errs.ErrChainCorrupt)
}
