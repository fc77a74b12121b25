package prop

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/propmig/internal/wire"
)

// StructCodec reads and writes one fixed binary struct shape.
type StructCodec struct {
	Decode func(r *wire.Reader) (Value, error)
	Encode func(w *wire.Writer, v Value) error
}

// StructRegistry maps struct type names to codecs. Structs without a codec
// are decoded as nested trees. Safe for concurrent use.
type StructRegistry struct {
	mu     sync.RWMutex
	codecs map[string]StructCodec
}

// NewStructRegistry returns an empty registry.
func NewStructRegistry() *StructRegistry {
	return &StructRegistry{codecs: make(map[string]StructCodec)}
}

// DefaultStructs returns a registry holding the built-in catalogue:
// Box, Vector2D, IntPoint, Vector, Color, Plane and LinearColor.
func DefaultStructs() *StructRegistry {
	reg := NewStructRegistry()
	reg.mustRegister("Box", StructCodec{Decode: decodeBox, Encode: encodeBox})
	reg.mustRegister("Vector2D", StructCodec{Decode: decodeVector2D, Encode: encodeVector2D})
	reg.mustRegister("IntPoint", StructCodec{Decode: decodeIntPoint, Encode: encodeIntPoint})
	reg.mustRegister("Vector", StructCodec{Decode: decodeVectorValue, Encode: encodeVector})
	reg.mustRegister("Color", StructCodec{Decode: decodeColor, Encode: encodeColor})
	reg.mustRegister("Plane", StructCodec{Decode: decodePlane, Encode: encodePlane})
	reg.mustRegister("LinearColor", StructCodec{Decode: decodeLinearColor, Encode: encodeLinearColor})
	return reg
}

// Register adds a codec for name. Registering a name twice is an error.
func (r *StructRegistry) Register(name string, c StructCodec) error {
	if !wire.ValidName(name) {
		return fmt.Errorf("register struct: %w: %q", wire.ErrInvalidName, name)
	}
	if c.Decode == nil {
		return fmt.Errorf("register struct %q: nil decoder", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[name]; exists {
		return fmt.Errorf("register struct %q: already registered", name)
	}
	r.codecs[name] = c
	return nil
}

func (r *StructRegistry) mustRegister(name string, c StructCodec) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// Lookup returns the codec for name.
func (r *StructRegistry) Lookup(name string) (StructCodec, bool) {
	if r == nil {
		return StructCodec{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// Names returns the registered struct names in sorted order.
func (r *StructRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readFloats(r *wire.Reader, dst ...*float32) error {
	for _, d := range dst {
		v, err := r.ReadFloat32()
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

func writeFloats(w *wire.Writer, vs ...float32) {
	for _, v := range vs {
		w.WriteFloat32(v)
	}
}

func readVector(r *wire.Reader) (Vector, error) {
	var v Vector
	err := readFloats(r, &v.X, &v.Y, &v.Z)
	return v, err
}

func decodeVectorValue(r *wire.Reader) (Value, error) {
	return readVector(r)
}

func encodeVector(w *wire.Writer, v Value) error {
	vec, ok := v.(Vector)
	if !ok {
		return encodeMismatch("Vector", v)
	}
	writeFloats(w, vec.X, vec.Y, vec.Z)
	return nil
}

func decodeBox(r *wire.Reader) (Value, error) {
	var b Box
	var err error
	if b.Min, err = readVector(r); err != nil {
		return nil, err
	}
	if b.Max, err = readVector(r); err != nil {
		return nil, err
	}
	if b.IsValid, err = r.ReadBool(); err != nil {
		return nil, err
	}
	return b, nil
}

func encodeBox(w *wire.Writer, v Value) error {
	b, ok := v.(Box)
	if !ok {
		return encodeMismatch("Box", v)
	}
	writeFloats(w, b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	w.WriteBool(b.IsValid)
	return nil
}

func decodeVector2D(r *wire.Reader) (Value, error) {
	var v Vector2D
	err := readFloats(r, &v.X, &v.Y)
	return v, err
}

func encodeVector2D(w *wire.Writer, v Value) error {
	vec, ok := v.(Vector2D)
	if !ok {
		return encodeMismatch("Vector2D", v)
	}
	writeFloats(w, vec.X, vec.Y)
	return nil
}

func decodeIntPoint(r *wire.Reader) (Value, error) {
	x, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	y, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	return IntPoint{X: x, Y: y}, nil
}

func encodeIntPoint(w *wire.Writer, v Value) error {
	p, ok := v.(IntPoint)
	if !ok {
		return encodeMismatch("IntPoint", v)
	}
	w.WriteInt32(p.X)
	w.WriteInt32(p.Y)
	return nil
}

func decodeColor(r *wire.Reader) (Value, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	return Color{B: b[0], G: b[1], R: b[2], A: b[3]}, nil
}

func encodeColor(w *wire.Writer, v Value) error {
	c, ok := v.(Color)
	if !ok {
		return encodeMismatch("Color", v)
	}
	w.WriteBytes([]byte{c.B, c.G, c.R, c.A})
	return nil
}

func decodePlane(r *wire.Reader) (Value, error) {
	var p Plane
	err := readFloats(r, &p.X, &p.Y, &p.Z, &p.W)
	return p, err
}

func encodePlane(w *wire.Writer, v Value) error {
	p, ok := v.(Plane)
	if !ok {
		return encodeMismatch("Plane", v)
	}
	writeFloats(w, p.X, p.Y, p.Z, p.W)
	return nil
}

func decodeLinearColor(r *wire.Reader) (Value, error) {
	var c LinearColor
	err := readFloats(r, &c.R, &c.G, &c.B, &c.A)
	return c, err
}

func encodeLinearColor(w *wire.Writer, v Value) error {
	c, ok := v.(LinearColor)
	if !ok {
		return encodeMismatch("LinearColor", v)
	}
	writeFloats(w, c.R, c.G, c.B, c.A)
	return nil
}

func encodeMismatch(want string, got Value) error {
	return fmt.Errorf("encode %s: got %s value", want, KindName(got))
}
