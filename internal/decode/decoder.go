// Package decode turns a tagged property stream into a prop.Tree without
// knowing the schema that wrote it.
//
// Decoding is driven entirely by the type tags in the stream. Every field
// carries its encoded size, so the decoder can always re-synchronize on the
// next field and never guesses at byte counts. Malformed input ends the
// current list early and the fields read so far are kept.
package decode

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/propmig/internal/metrics"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

// DefaultMaxDepth bounds struct nesting.
const DefaultMaxDepth = 64

// Resolver maps a reference-table index to an object descriptor: a
// prop.ObjectImport for objects not yet loaded, or a prop.ObjectHandle.
type Resolver interface {
	ResolveObject(index int32) (prop.Value, error)
}

// Decoder decodes property lists. The zero value is usable: it knows the
// default struct catalogue, resolves no references and logs to slog.Default.
type Decoder struct {
	Structs  *prop.StructRegistry
	Resolver Resolver
	Logger   *slog.Logger
	MaxDepth int

	// Owner names the object being decoded in log lines.
	Owner string
}

// Report describes how a DecodeRoot call ended.
type Report struct {
	Fields    int      // properties decoded, at every depth
	Truncated bool     // some list ended before its terminator
	Reason    error    // why the first truncation happened
	Unknown   []string // fields kept without a value because of an unknown tag
	Skipped   []string // fields dropped because their value did not decode
}

func (rep *Report) truncate(err error) {
	if !rep.Truncated {
		rep.Reason = err
	}
	rep.Truncated = true
}

var defaultStructs = prop.DefaultStructs()

func (d *Decoder) structs() *prop.StructRegistry {
	if d.Structs != nil {
		return d.Structs
	}
	return defaultStructs
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Decoder) maxDepth() int {
	if d.MaxDepth > 0 {
		return d.MaxDepth
	}
	return DefaultMaxDepth
}

// DecodeRoot decodes the property list starting at the cursor. It never
// fails: problems end the list early and are described in the Report.
// On return the cursor sits after the last field consumed.
func (d *Decoder) DecodeRoot(r *wire.Reader) (prop.Tree, Report) {
	start := time.Now()
	var rep Report
	tree := d.decodeList(r, 0, &rep)

	metrics.DecodeDuration.Observe(time.Since(start).Seconds())
	outcome := "complete"
	if rep.Truncated {
		outcome = "truncated"
	}
	metrics.RecordsDecoded.WithLabelValues(outcome).Inc()
	return tree, rep
}

// DecodeField decodes the value of one field whose tag has already been
// read. The cursor must be at the start of the value.
func (d *Decoder) DecodeField(r *wire.Reader, tag wire.Tag) (*prop.Property, error) {
	if kind, ok := unsupported(tag); ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownKind, kind, tag.Name)
	}
	var rep Report
	p := prop.NewProperty(tag)
	if err := d.decodeValue(r, tag, p, false, 0, &rep); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Decoder) decodeList(r *wire.Reader, depth int, rep *Report) prop.Tree {
	tree := prop.Tree{}
	for {
		if r.Remaining() == 0 {
			rep.truncate(fmt.Errorf("list has no terminator: %w", wire.ErrShortBuffer))
			return tree
		}

		tag, err := wire.ReadTag(r)
		if err != nil {
			d.logger().Warn("Invalid tag name",
				"struct", d.Owner,
				"archive", r.Name(),
				"offset", r.Tell(),
				"error", err)
			rep.truncate(err)
			return tree
		}
		if tag.IsEnd() {
			return tree
		}

		start := r.Tell()
		end := start + int64(tag.Size)
		if end > r.Len() {
			rep.truncate(fmt.Errorf("%w: %q needs %d bytes at offset %d", ErrFieldOverrun, tag.Name, tag.Size, start))
			return tree
		}

		if kind, ok := unsupported(tag); ok {
			d.logger().Warn("Unknown property type, value skipped",
				"struct", d.Owner,
				"archive", r.Name(),
				"property", tag.Name,
				"type", kind.String())
			metrics.UnknownTags.WithLabelValues(string(kind)).Inc()
			tree.Set(prop.NewProperty(tag))
			rep.Unknown = append(rep.Unknown, tag.Name)
			rep.Fields++
		} else {
			p := prop.NewProperty(tag)
			if err := d.decodeValue(r, tag, p, false, depth, rep); err != nil {
				d.logger().Warn("Property value did not decode, skipped",
					"struct", d.Owner,
					"archive", r.Name(),
					"property", tag.Name,
					"error", err)
				rep.Skipped = append(rep.Skipped, tag.Name)
			} else {
				tree.Set(p)
				rep.Fields++
			}
		}

		if r.Tell() != end {
			d.logger().Debug("Resynchronizing after property",
				"property", tag.Name,
				"consumed", r.Tell()-start,
				"size", tag.Size)
		}
		// end is within the stream, checked above
		_ = r.Seek(end)
	}
}

// unsupported returns the first kind in tag that cannot be decoded.
// Container elements must be known non-container kinds.
func unsupported(tag wire.Tag) (wire.Kind, bool) {
	if !tag.Type.Known() {
		return tag.Type, true
	}
	switch tag.Type {
	case wire.KindArray, wire.KindSet:
		if !elementKind(tag.InnerType) {
			return tag.InnerType, true
		}
	case wire.KindMap:
		if !elementKind(tag.InnerType) {
			return tag.InnerType, true
		}
		if !elementKind(tag.ValueType) {
			return tag.ValueType, true
		}
	}
	return "", false
}

func elementKind(k wire.Kind) bool {
	return k.Known() && !k.IsContainer()
}

// decodeValue reads one value described by tag and appends it to p.
// isKey routes the value to p.Keys and is inherited by container elements.
func (d *Decoder) decodeValue(r *wire.Reader, tag wire.Tag, p *prop.Property, isKey bool, depth int, rep *Report) error {
	switch tag.Type {
	case wire.KindStruct:
		return d.decodeStruct(r, tag, p, isKey, depth, rep)

	case wire.KindArray:
		n, err := r.ReadCount()
		if err != nil {
			return fmt.Errorf("array count: %w", err)
		}
		return d.decodeElements(r, tag.Element(tag.InnerType), n, p, isKey, depth, rep)

	case wire.KindSet:
		elem := tag.Element(tag.InnerType)
		if err := d.discardElements(r, elem, depth); err != nil {
			return fmt.Errorf("set removals: %w", err)
		}
		n, err := r.ReadCount()
		if err != nil {
			return fmt.Errorf("set count: %w", err)
		}
		return d.decodeElements(r, elem, n, p, isKey, depth, rep)

	case wire.KindMap:
		keyTag := tag.Element(tag.InnerType)
		valTag := tag.MapValue()
		if err := d.discardElements(r, keyTag, depth); err != nil {
			return fmt.Errorf("map removals: %w", err)
		}
		n, err := r.ReadCount()
		if err != nil {
			return fmt.Errorf("map count: %w", err)
		}
		for i := 0; i < n; i++ {
			if err := d.decodeValue(r, keyTag, p, true, depth, rep); err != nil {
				return fmt.Errorf("map key %d: %w", i, err)
			}
			if err := d.decodeValue(r, valTag, p, false, depth, rep); err != nil {
				return fmt.Errorf("map value %d: %w", i, err)
			}
		}
		return nil

	case wire.KindObject:
		index, err := r.ReadInt32()
		if err != nil {
			return err
		}
		if d.Resolver == nil || index == 0 {
			p.Append(prop.ObjectHandle{Index: index}, isKey)
			return nil
		}
		v, err := d.Resolver.ResolveObject(index)
		if err != nil {
			return fmt.Errorf("object reference %d: %w", index, err)
		}
		p.Append(v, isKey)
		return nil

	case wire.KindSoftObject:
		path, err := r.ReadString()
		if err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil { // sub-path
			return err
		}
		p.Append(prop.Name(path), isKey)
		return nil

	case wire.KindBool:
		if !tag.InContainer {
			p.Append(prop.Bool(tag.BoolVal), isKey)
			return nil
		}
		b, err := r.ReadBool()
		if err != nil {
			return err
		}
		p.Append(prop.Bool(b), isKey)
		return nil

	case wire.KindStr, wire.KindName:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		p.Append(prop.Name(s), isKey)
		return nil
	}

	v, err := readScalar(r, tag.Type)
	if err != nil {
		return err
	}
	p.Append(v, isKey)
	return nil
}

func (d *Decoder) decodeStruct(r *wire.Reader, tag wire.Tag, p *prop.Property, isKey bool, depth int, rep *Report) error {
	if codec, ok := d.structs().Lookup(tag.StructName); ok {
		v, err := codec.Decode(r)
		if err != nil {
			return fmt.Errorf("struct %s: %w", tag.StructName, err)
		}
		p.Append(v, isKey)
		return nil
	}
	if depth >= d.maxDepth() {
		return fmt.Errorf("%w: %d levels at %s", ErrTooDeep, depth, tag.Name)
	}
	sub := d.decodeList(r, depth+1, rep)
	p.Append(sub, isKey)
	if isKey {
		p.HasKeyTrees = true
	} else {
		p.HasValueTrees = true
	}
	return nil
}

func (d *Decoder) decodeElements(r *wire.Reader, elem wire.Tag, n int, p *prop.Property, isKey bool, depth int, rep *Report) error {
	for i := 0; i < n; i++ {
		if err := d.decodeValue(r, elem, p, isKey, depth, rep); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// discardElements reads a counted element list into a scratch property
// that is dropped. Sets and maps prefix their live elements with such a
// list of removals, which only matters to delta loads.
func (d *Decoder) discardElements(r *wire.Reader, elem wire.Tag, depth int) error {
	n, err := r.ReadCount()
	if err != nil {
		return err
	}
	var scratch prop.Property
	var rep Report
	return d.decodeElements(r, elem, n, &scratch, false, depth, &rep)
}

func readScalar(r *wire.Reader, kind wire.Kind) (prop.Value, error) {
	switch kind {
	case wire.KindInt8:
		v, err := r.ReadInt8()
		return prop.Int8(v), err
	case wire.KindInt16:
		v, err := r.ReadInt16()
		return prop.Int16(v), err
	case wire.KindInt:
		v, err := r.ReadInt32()
		return prop.Int32(v), err
	case wire.KindInt64:
		v, err := r.ReadInt64()
		return prop.Int64(v), err
	case wire.KindByte:
		v, err := r.ReadUint8()
		return prop.UInt8(v), err
	case wire.KindUInt16:
		v, err := r.ReadUint16()
		return prop.UInt16(v), err
	case wire.KindUInt32:
		v, err := r.ReadUint32()
		return prop.UInt32(v), err
	case wire.KindUInt64:
		v, err := r.ReadUint64()
		return prop.UInt64(v), err
	case wire.KindFloat:
		v, err := r.ReadFloat32()
		return prop.Float(v), err
	case wire.KindDouble:
		v, err := r.ReadFloat64()
		return prop.Double(v), err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// IsTruncation reports whether err describes an early end of a list rather
// than a bad value.
func IsTruncation(err error) bool {
	return errors.Is(err, wire.ErrShortBuffer) || errors.Is(err, wire.ErrInvalidName) || errors.Is(err, ErrFieldOverrun)
}
