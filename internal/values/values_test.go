package values

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetPreservesOrderAndIndex(t *testing.T) {
	tbl := New()
	tbl.Set("case_number", "2026-001")
	tbl.Set("examiner_name", "J. Doe")
	tbl.Set("case_number", "2026-002") // overwrite, order unchanged

	require.Equal(t, 2, tbl.Count())
	id0, ok := tbl.IdentifierAt(0)
	require.True(t, ok)
	require.Equal(t, "case_number", id0)

	v, ok := tbl.Get("case_number")
	require.True(t, ok)
	require.Equal(t, "2026-002", v)
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := New()
	tbl.Set("case_number", "2026-001")
	clone := tbl.Clone()
	clone.Set("case_number", "mutated")

	v, _ := tbl.Get("case_number")
	require.Equal(t, "2026-001", v)
	cv, _ := clone.Get("case_number")
	require.Equal(t, "mutated", cv)
}

func TestCopyInto(t *testing.T) {
	src := New()
	src.Set("examiner_name", "A")
	src.Set("notes", "hello")

	dst := New()
	dst.Set("case_number", "keep-me")
	CopyInto(dst, src)

	v, ok := dst.Get("case_number")
	require.True(t, ok)
	require.Equal(t, "keep-me", v)

	v, ok = dst.Get("examiner_name")
	require.True(t, ok)
	require.Equal(t, "A", v)
}
