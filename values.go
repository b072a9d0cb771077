package ewf

import (
	"fmt"
	"strconv"
	"time"

	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/values"
	"github.com/arcanefs/goewf/internal/writeio"
)

// dateHeaderIdentifiers are the header identifiers ParseHeaderValues
// reformats; every other identifier is copied through unchanged.
var dateHeaderIdentifiers = []string{"acquiry_date", "system_date"}

// HeaderValue returns the header value for identifier (case_number,
// examiner_name, ...), if set (libewf_get_header_value).
func (h *Handle) HeaderValue(identifier string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.header.Get(identifier)
}

// SetHeaderValue sets a header value. Only legal before the header
// section has been written (libewf_set_header_value).
func (h *Handle) SetHeaderValue(identifier, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	h.header.Set(identifier, value)
	return nil
}

// HeaderValueCount returns the number of header values set
// (libewf_get_amount_of_header_values).
func (h *Handle) HeaderValueCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.header.Count()
}

// HeaderValueIdentifierAt returns the identifier at the given stable
// index (libewf_get_header_value_identifier).
func (h *Handle) HeaderValueIdentifierAt(index int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.header.IdentifierAt(index)
}

// HashValue returns a hash value (md5, sha1), if set
// (libewf_get_hash_value). Hash values are only fully known once
// Finalize has run a write Handle, or for a read Handle once the hash
// section has been parsed.
func (h *Handle) HashValue(identifier string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hash.Get(identifier)
}

// SetHashValue sets a hash value directly, bypassing the normal
// Finalize-computed digest. Used for a pre-computed hash supplied by the
// caller (libewf_set_hash_value), or when importing a value from a
// companion file.
func (h *Handle) SetHashValue(identifier, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := requireHashIdentifier(identifier); err != nil {
		return err
	}
	if identifier == "md5" {
		if h.md5Set {
			return fmt.Errorf("ewf: md5 hash value already set: %w", errs.ErrAlreadySet)
		}
		h.md5Set = true
	}
	if h.mode == modeWrite {
		if err := h.write.RequireBefore(writeio.Finalized); err != nil {
			return err
		}
	}
	h.hash.Set(identifier, value)
	return nil
}

// CopyHeaderValues copies every header value from src into h, preserving
// src's order for any identifier h doesn't already hold
// (libewf_copy_header_values). Only legal before the header section has
// been written.
func (h *Handle) CopyHeaderValues(src *Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.guardSettable(); err != nil {
		return err
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	values.CopyInto(h.header, src.header)
	return nil
}

// ParseHeaderValues returns h's header values as a plain map, reformatting
// every date-valued identifier (acquiry_date, system_date) through
// dateFormat (libewf_parse_header_values). Header dates are stored on the
// wire as decimal Unix-epoch-seconds strings; dateFormat is a Go reference
// time layout (time.Layout) applied to render them. A value that isn't a
// recognized date identifier, or that fails to parse as an integer, is
// copied through unchanged.
func (h *Handle) ParseHeaderValues(dateFormat string) (map[string]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, h.header.Count())
	for _, id := range h.header.Identifiers() {
		v, _ := h.header.Get(id)
		out[id] = v
	}
	for _, id := range dateHeaderIdentifiers {
		v, ok := out[id]
		if !ok {
			continue
		}
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[id] = time.Unix(sec, 0).UTC().Format(dateFormat)
	}
	return out, nil
}

// ParseHashValues returns h's hash values as a plain map
// (libewf_parse_hash_values). Hash values carry no date fields, so unlike
// ParseHeaderValues there's nothing to reformat.
func (h *Handle) ParseHashValues() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, h.hash.Count())
	for _, id := range h.hash.Identifiers() {
		v, _ := h.hash.Get(id)
		out[id] = v
	}
	return out
}

// hashIdentifierValid reports whether identifier is one of the
// recognized hash algorithms this container format carries.
func hashIdentifierValid(identifier string) bool {
	for _, id := range values.DefaultHashIdentifiers {
		if id == identifier {
			return true
		}
	}
	return false
}

// requireHashIdentifier returns an error for an identifier Finalize's
// digest computation doesn't know how to produce.
func requireHashIdentifier(identifier string) error {
	if !hashIdentifierValid(identifier) {
		return fmt.Errorf("ewf: unrecognized hash identifier %q: %w", identifier, errs.ErrInvalidArgument)
	}
	return nil
}
