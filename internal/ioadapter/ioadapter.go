// Package ioadapter wraps the plain *os.File handles the teacher repo
// opens directly (os.Open/os.Create plus Seek+Read, see ewf.go's
// ReadSection/ParseVolume) in a small io.ReaderAt/io.WriterAt adapter.
// Segment files commonly exceed 2GiB; every offset here is int64 so large
// files are handled the same way as small ones, with no separate code
// path.
package ioadapter

import (
	"fmt"
	"io"
	"os"

	"github.com/arcanefs/goewf/internal/errs"
)

// File is a single open segment file, read-only or read-write depending
// on how it was opened.
type File struct {
	f    *os.File
	size int64
}

// OpenRead opens an existing segment file for reading.
func OpenRead(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioadapter: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ioadapter: stat %s: %w", path, err)
	}
	return &File{f: f, size: info.Size()}, nil
}

// CreateWrite creates a new segment file for writing, truncating any
// existing file at path.
func CreateWrite(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ioadapter: create %s: %w", path, err)
	}
	return &File{f: f}, nil
}

// Size returns the current file size.
func (f *File) Size() int64 {
	return f.size
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > f.size {
		return 0, fmt.Errorf("ioadapter: read at %d: %w", off, errs.ErrInvalidArgument)
	}
	return f.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt, extending the tracked size when the
// write reaches past the current end of file.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.f.WriteAt(p, off)
	if end := off + int64(n); end > f.size {
		f.size = end
	}
	return n, err
}

// Append writes p at the current end of file and returns the offset it
// was written at.
func (f *File) Append(p []byte) (int64, error) {
	off := f.size
	n, err := f.WriteAt(p, off)
	if err != nil {
		return 0, fmt.Errorf("ioadapter: append: %w", err)
	}
	if n != len(p) {
		return 0, fmt.Errorf("ioadapter: append: short write (%d of %d bytes): %w", n, len(p), errs.ErrIO)
	}
	return off, nil
}

// Truncate shrinks or extends the file to the given size.
func (f *File) Truncate(size int64) error {
	if err := f.f.Truncate(size); err != nil {
		return fmt.Errorf("ioadapter: truncate: %w", err)
	}
	f.size = size
	return nil
}

// Sync flushes the file to stable storage.
func (f *File) Sync() error {
	return f.f.Sync()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

var (
	_ io.ReaderAt = (*File)(nil)
	_ io.WriterAt = (*File)(nil)
)
