package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/format"
)

func TestAddTracksFirstAndLast(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Add(Descriptor{Number: 1, Path: "case.E01"}))
	require.NoError(t, tbl.Add(Descriptor{Number: 2, Path: "case.E02"}))
	require.NoError(t, tbl.Add(Descriptor{Number: 3, Path: "case.E03"}))

	first, ok := tbl.Get(1)
	require.True(t, ok)
	require.True(t, first.IsFirst)
	require.False(t, first.IsLast)

	middle, _ := tbl.Get(2)
	require.False(t, middle.IsFirst)
	require.False(t, middle.IsLast)

	last, ok := tbl.Last()
	require.True(t, ok)
	require.Equal(t, uint16(3), last.Number)
	require.True(t, last.IsLast)
	require.False(t, last.IsFirst)
}

func TestAddRejectsDuplicateNumber(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Add(Descriptor{Number: 1}))
	err := tbl.Add(Descriptor{Number: 1})
	require.Error(t, err)
}

func TestBuildPathAndBaseRoundTrip(t *testing.T) {
	path, err := BuildPath("/evidence/case001", format.EnCase5, 1)
	require.NoError(t, err)
	require.Equal(t, "/evidence/case001.E01", path)

	base := BaseFromFirstSegment(path)
	require.Equal(t, "/evidence/case001", base)

	path100, err := BuildPath(base, format.EnCase5, 100)
	require.NoError(t, err)
	require.Equal(t, "/evidence/case001.EAA", path100)
}

func TestSectionOrderFirstAndOnlySegment(t *testing.T) {
	d := Descriptor{Number: 1, IsFirst: true, IsLast: true}
	order := SectionOrder(d, format.EnCase5)

	require.Equal(t, SectionHeader, order[0])
	require.Equal(t, SectionVolume, order[1])
	require.Contains(t, order, SectionDone)
	require.Contains(t, order, SectionHash)
	require.NotContains(t, order, SectionNext)
}

func TestSectionOrderMiddleSegment(t *testing.T) {
	d := Descriptor{Number: 2, IsFirst: false, IsLast: false}
	order := SectionOrder(d, format.EnCase5)

	require.NotContains(t, order, SectionHeader)
	require.NotContains(t, order, SectionVolume)
	require.Contains(t, order, SectionNext)
	require.NotContains(t, order, SectionDone)
}

func TestSectionOrderEWFXLastSegmentHasDigest(t *testing.T) {
	d := Descriptor{Number: 1, IsFirst: true, IsLast: true}
	order := SectionOrder(d, format.EWFX)

	require.Contains(t, order, SectionHeader2)
	require.Contains(t, order, SectionXHeader)
	require.Contains(t, order, SectionDigest)
	require.Contains(t, order, SectionXHash)
	require.NotContains(t, order, SectionHash)
}
