// Package errs holds the sentinel error taxonomy shared by every layer of
// the container: chunk codec, section I/O, offset table, segment layout,
// read/write pipelines and the handle. Call sites wrap these with
// fmt.Errorf("...: %w", errs.ErrX) so errors.Is keeps working while the
// message still carries section type, segment number or chunk index.
package errs

import "errors"

var (
	// ErrInvalidArgument is returned for caller-side misuse: nil pointers,
	// too-small buffers, out-of-range indices, negative offsets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when an operation is not allowed in the
	// handle's current write state.
	ErrInvalidState = errors.New("invalid write state")

	// ErrIO wraps a byte I/O adapter failure.
	ErrIO = errors.New("i/o failure")

	// ErrSignatureMismatch means the file does not carry the EWF signature.
	ErrSignatureMismatch = errors.New("not an EWF file")

	// ErrChainCorrupt covers cyclic section chains, out-of-bounds
	// next-offsets, and unknown required sections.
	ErrChainCorrupt = errors.New("section chain corrupt")

	// ErrSectionChecksumMismatch means a section descriptor's Adler-32
	// did not validate.
	ErrSectionChecksumMismatch = errors.New("section checksum mismatch")

	// ErrChunkCorrupt means a chunk's CRC did not match on read, or the
	// compressed stream failed to inflate.
	ErrChunkCorrupt = errors.New("chunk corrupt")

	// ErrBackupDisagrees is a warning-class condition: table and table2
	// both validate but disagree. Never returned as a fatal error.
	ErrBackupDisagrees = errors.New("table and table2 disagree")

	// ErrFormatUnsupported means the volume section names a format this
	// implementation cannot produce on write.
	ErrFormatUnsupported = errors.New("format unsupported for write")

	// ErrAlreadySet means a set-once field was written a second time.
	ErrAlreadySet = errors.New("field already set")
)
