package decode

import (
	"fmt"

	"github.com/roach88/propmig/internal/wire"
)

// FindTag scans the property list at the cursor for a field called name,
// skipping each value by its recorded size. The cursor is restored before
// FindTag returns, whatever the outcome.
//
// A non-nil error means the scan hit malformed input before finding the
// field; the list is treated as ending there and found is false.
func FindTag(r *wire.Reader, name string) (tag wire.Tag, found bool, err error) {
	mark := wire.Mark(r)
	defer func() {
		if rerr := mark.Restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	for r.Remaining() > 0 {
		t, err := wire.ReadTag(r)
		if err != nil {
			return wire.Tag{}, false, err
		}
		if t.IsEnd() {
			return wire.Tag{}, false, nil
		}
		if t.Name == name {
			return t, true, nil
		}
		next := r.Tell() + int64(t.Size)
		if next > r.Len() {
			return wire.Tag{}, false, fmt.Errorf("%w: %q", ErrFieldOverrun, t.Name)
		}
		if err := r.Seek(next); err != nil {
			return wire.Tag{}, false, err
		}
	}
	return wire.Tag{}, false, nil
}
