package writeio

import (
	"fmt"

	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/offsettable"
)

// DeltaOverlay records chunk replacements written to a delta segment file
// (conventionally .d01), layered on top of an otherwise immutable base
// image: libewf's write-delta mode never touches the original evidence
// segments, only ever appends replacement chunks to the delta file and
// records which base chunk index each one overrides.
type DeltaOverlay struct {
	overrides map[int]offsettable.Location
}

// NewDeltaOverlay returns an empty overlay.
func NewDeltaOverlay() *DeltaOverlay {
	return &DeltaOverlay{overrides: make(map[int]offsettable.Location)}
}

// Replace records that chunk index is now served from loc (a location
// inside the delta segment) instead of the base image.
func (d *DeltaOverlay) Replace(index int, loc offsettable.Location) {
	d.overrides[index] = loc
}

// Resolve returns the overriding location for index, if the delta
// overlay has one; the caller falls back to the base offset table
// otherwise.
func (d *DeltaOverlay) Resolve(index int) (offsettable.Location, bool) {
	loc, ok := d.overrides[index]
	return loc, ok
}

// Count returns how many chunks the overlay currently overrides.
func (d *DeltaOverlay) Count() int {
	return len(d.overrides)
}

// ApplyTo merges the overlay onto base, returning a new offset table
// where every overridden index resolves to the delta segment and every
// other index is unchanged. base is not mutated.
func ApplyTo(base *offsettable.Table, overlay *DeltaOverlay) (*offsettable.Table, error) {
	out := offsettable.New()
	for i := 0; i < base.Len(); i++ {
		loc, ok := base.At(i)
		if !ok {
			return nil, fmt.Errorf("writeio: base offset table missing index %d: %w", i, errs.ErrInvalidArgument)
		}
		if override, has := overlay.Resolve(i); has {
			loc = override
		}
		out.Append(loc)
	}
	return out, nil
}
