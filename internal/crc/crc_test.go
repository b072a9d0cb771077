package crc

import (
	"hash/adler32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeMatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	require.Equal(t, adler32.Checksum(data), Compute(data))
}

func TestStreamingMatchesCompute(t *testing.T) {
	data := []byte("EVF chunk payload used to exercise streaming checksum accumulation")
	s := NewStreaming()
	_, err := s.Write(data[:10])
	require.NoError(t, err)
	_, err = s.Write(data[10:])
	require.NoError(t, err)
	require.Equal(t, Compute(data), s.Sum32())
}

func TestStreamingReset(t *testing.T) {
	s := NewStreaming()
	_, _ = s.Write([]byte("abc"))
	s.Reset()
	_, _ = s.Write([]byte("xyz"))
	require.Equal(t, Compute([]byte("xyz")), s.Sum32())
}
