package object

import (
	"fmt"
	"log/slog"

	"github.com/roach88/propmig/internal/decode"
	"github.com/roach88/propmig/internal/wire"
)

// Emitter supplies the defaults a save compares fields against. An open
// save scope is an Emitter whose version field default is SavingSentinel,
// so the version is always written.
type Emitter interface {
	ShadowDefault(field string) (v uint64, ok bool)
}

// Save writes inst as a property list in field declaration order. Fields
// equal to their default are skipped; emit, which may be nil, overrides the
// class default for the fields it shadows.
func Save(w *wire.Writer, inst *Instance, emit Emitter) error {
	structs := inst.class.catalog.structs
	for _, f := range inst.class.fields {
		if isDefault(inst, f.Name, emit) {
			continue
		}
		if err := WriteProperty(w, f.Type.Tag(f.Name), inst.fields[f.Name], structs); err != nil {
			return fmt.Errorf("save %s.%s: %w", inst.class.name, f.Name, err)
		}
	}
	wire.WriteEnd(w)
	return nil
}

func isDefault(inst *Instance, field string, emit Emitter) bool {
	if emit != nil {
		if shadow, ok := emit.ShadowDefault(field); ok {
			v, isUint := inst.Uint64(field)
			return isUint && v == shadow
		}
	}
	return inst.IsDefault(field)
}

// Load reads a property list into inst. Fields whose name and type match a
// declared field are assigned; everything else is skipped by its size.
// dec supplies struct layouts and reference resolution; nil uses the
// catalog's layouts and leaves references unresolved.
//
// Malformed input (an invalid tag name, a size running past the stream, or
// a short read) ends the list: the fields read so far are kept, a warning
// is logged and Load returns nil. Other decode errors are returned.
func Load(r *wire.Reader, inst *Instance, dec *decode.Decoder) error {
	if dec == nil {
		dec = &decode.Decoder{Structs: inst.class.catalog.structs}
	}
	stop := func(field string, err error) error {
		if !decode.IsTruncation(err) {
			return fmt.Errorf("load %s%s: %w", inst.class.name, field, err)
		}
		logger := dec.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Property list ended early",
			"class", inst.class.name,
			"archive", r.Name(),
			"offset", r.Tell(),
			"error", err)
		return nil
	}

	for {
		if r.Remaining() == 0 {
			return stop("", fmt.Errorf("list has no terminator: %w", wire.ErrShortBuffer))
		}
		tag, err := wire.ReadTag(r)
		if err != nil {
			return stop("", err)
		}
		if tag.IsEnd() {
			return nil
		}
		end := r.Tell() + int64(tag.Size)
		if end > r.Len() {
			return stop("."+tag.Name, fmt.Errorf("%w: %q", decode.ErrFieldOverrun, tag.Name))
		}

		if f, ok := inst.class.Spec(tag.Name); ok && f.Type.Matches(tag) {
			p, err := dec.DecodeField(r, tag)
			if err != nil {
				return stop("."+tag.Name, err)
			}
			inst.fields[tag.Name] = p
		}
		if err := r.Seek(end); err != nil {
			return err
		}
	}
}
