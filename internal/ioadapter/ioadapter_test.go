package ioadapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAppendReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.E01")

	w, err := CreateWrite(path)
	require.NoError(t, err)

	off1, err := w.Append([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, int64(0), off1)

	off2, err := w.Append([]byte(" world"))
	require.NoError(t, err)
	require.Equal(t, int64(5), off2)
	require.Equal(t, int64(11), w.Size())
	require.NoError(t, w.Close())

	r, err := OpenRead(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(11), r.Size())

	buf := make([]byte, 11)
	n, err := r.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))
}

func TestTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.E01")
	w, err := CreateWrite(path)
	require.NoError(t, err)
	_, err = w.Append([]byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, w.Truncate(5))
	require.Equal(t, int64(5), w.Size())
	require.NoError(t, w.Close())

	r, err := OpenRead(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(5), r.Size())
}
