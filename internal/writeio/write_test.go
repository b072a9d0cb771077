package writeio

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
)

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	require.Equal(t, Fresh, m.State())
	require.NoError(t, m.RequireBefore(HeaderEmitted))

	require.NoError(t, m.EmitHeader())
	require.Error(t, m.RequireBefore(HeaderEmitted))

	require.NoError(t, m.BeginWriting())
	require.NoError(t, m.BeginWriting()) // idempotent while Writing
	require.NoError(t, m.Finalize())
	require.Equal(t, Finalized, m.State())
}

func TestMachineEmptyImageFinalizesFromHeaderEmitted(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.EmitHeader())
	require.NoError(t, m.Finalize())
	require.Equal(t, Finalized, m.State())
}

func TestMachineRejectsIllegalTransitions(t *testing.T) {
	m := NewMachine()
	require.ErrorIs(t, m.BeginWriting(), errs.ErrInvalidState)
	require.ErrorIs(t, m.Finalize(), errs.ErrInvalidState)

	require.NoError(t, m.EmitHeader())
	require.ErrorIs(t, m.EmitHeader(), errs.ErrInvalidState)
}

func TestCompressParallelPreservesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	raws := make([][]byte, 64)
	for i := range raws {
		buf := make([]byte, 256)
		rng.Read(buf)
		raws[i] = buf
	}

	results, err := CompressParallel(context.Background(), raws, chunk.Options{Level: chunk.LevelNone})
	require.NoError(t, err)
	require.Len(t, results, len(raws))

	for i, res := range results {
		require.Equal(t, i, res.Index)
		decoded, err := chunk.Decompress(res.Stored, len(raws[i]), res.Compressed)
		require.NoError(t, err)
		require.True(t, bytes.Equal(raws[i], decoded))
	}
}

func TestSegmentBudget(t *testing.T) {
	b := NewSegmentBudget(2000)
	require.Equal(t, int64(FixedOverhead), b.Used()) // pre-charged before any chunk is committed
	require.True(t, b.Fits(2500))                     // first chunk always fits, even an oversized one
	b.Commit(900)
	require.False(t, b.Fits(900))
	require.True(t, b.Fits(700))
	b.Reset()
	require.Equal(t, int64(FixedOverhead), b.Used())
}
