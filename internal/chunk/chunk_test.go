package chunk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/errs"
)

func TestRoundTripUncompressed(t *testing.T) {
	raw := make([]byte, 32*512)
	rand.New(rand.NewSource(0x1234)).Read(raw)

	stored, compressed, err := Compress(raw, Options{Level: LevelNone})
	require.NoError(t, err)
	require.False(t, compressed)
	require.Equal(t, len(raw)+4, len(stored))

	got, err := Decompress(stored, len(raw), compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestRoundTripCompressedIncompressibleData(t *testing.T) {
	raw := make([]byte, 64*512)
	rand.New(rand.NewSource(42)).Read(raw)

	// Random data never shrinks under deflate; the "never expand" fallback
	// must still produce a byte-identical round trip.
	stored, compressed, err := Compress(raw, Options{Level: LevelBest})
	require.NoError(t, err)
	require.False(t, compressed)

	got, err := Decompress(stored, len(raw), compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestRoundTripCompressedZeroChunk(t *testing.T) {
	raw := make([]byte, 64*512)

	stored, compressed, err := Compress(raw, Options{Level: LevelFast, CompressEmptyBlock: true})
	require.NoError(t, err)
	require.True(t, compressed)
	require.Less(t, len(stored), len(raw))

	got, err := Decompress(stored, len(raw), compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestRoundTripCompressibleText(t *testing.T) {
	raw := make([]byte, 8192)
	for i := range raw {
		raw[i] = byte('a' + i%5)
	}

	stored, compressed, err := Compress(raw, Options{Level: LevelBest})
	require.NoError(t, err)
	require.True(t, compressed)
	require.Less(t, len(stored), len(raw))

	got, err := Decompress(stored, len(raw), compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestDecompressDetectsCRCMismatch(t *testing.T) {
	raw := []byte("some chunk bytes")
	stored, compressed, err := Compress(raw, Options{Level: LevelNone})
	require.NoError(t, err)

	stored[0] ^= 0xff // flip a byte inside the raw payload
	_, err = Decompress(stored, len(raw), compressed)
	require.ErrorIs(t, err, errs.ErrChunkCorrupt)
}
