// Package ewf reads and writes the Expert Witness Compression Format
// (EWF/.E01), the segmented, chunk-compressed disk image container format
// EnCase, FTK, and libewf-based tools use for forensic disk acquisitions.
//
// A Handle is the entry point: Open an existing segment set for reading,
// or New for writing a fresh one. Media parameters and header values are
// set through Handle's setters before the first Write; after that they
// are frozen, matching libewf's own write lifecycle
// (original_source/libewf/libewf_file.c's libewf_set_* family). Hash
// values can still be set until Finalize.
package ewf
