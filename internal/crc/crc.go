// Package crc computes the Adler-32 checksum EWF uses both for section
// descriptor checksums and, on an uncompressed chunk, the trailing 4-byte
// per-chunk CRC.
package crc

import (
	"hash"
	"hash/adler32"
)

// Compute returns the Adler-32 checksum of b.
func Compute(b []byte) uint32 {
	return adler32.Checksum(b)
}

// Streaming accumulates a checksum over successive writes, for callers
// building up a section payload incrementally before it is known whether
// the whole buffer is available at once.
type Streaming struct {
	h hash.Hash32
}

// NewStreaming returns a Streaming checksum in its initial state.
func NewStreaming() *Streaming {
	return &Streaming{h: adler32.New()}
}

// Write folds p into the running checksum. It never returns an error.
func (s *Streaming) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// Sum32 returns the checksum of everything written so far.
func (s *Streaming) Sum32() uint32 {
	return s.h.Sum32()
}

// Reset returns the checksum to its initial state.
func (s *Streaming) Reset() {
	s.h.Reset()
}
