package object

import (
	"fmt"

	"github.com/roach88/propmig/internal/decode"
	"github.com/roach88/propmig/internal/refs"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/wire"
)

// Record is an opened record file.
type Record struct {
	Header wire.Header
	Refs   *refs.Table

	// Body is positioned at the start of the property stream.
	Body *wire.Reader
}

// OpenRecord parses the header and reference table of a record file.
// name identifies the record in logs and unresolved export descriptors.
func OpenRecord(data []byte, name string) (*Record, error) {
	r := wire.NewReader(data, name)
	h, err := wire.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	table, err := refs.ReadTable(r, name)
	if err != nil {
		return nil, err
	}
	return &Record{Header: h, Refs: table, Body: r}, nil
}

// Decoder returns a decoder that resolves references through the record's
// table.
func (rec *Record) Decoder(cat *Catalog) *decode.Decoder {
	d := &decode.Decoder{Resolver: rec.Refs}
	if cat != nil {
		d.Structs = cat.structs
	}
	return d
}

// SaveRecord encodes inst as a record file inside a saving scope, so the
// version field is always written. table may be nil.
func SaveRecord(name string, inst *Instance, table *refs.Table, opts ...scope.Option) ([]byte, error) {
	if table == nil {
		table = &refs.Table{}
	}
	w := wire.NewWriter(name)
	wire.WriteHeader(w, inst.class.name)
	refs.WriteTable(w, table)

	opts = append(opts, scope.WithVersionField(inst.class.versionField))
	sc, err := scope.Begin(inst, w, nil, opts...)
	if err != nil {
		return nil, err
	}
	if err := Save(w, inst, sc); err != nil {
		sc.Abort()
		return nil, err
	}
	if _, err := sc.End(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// LoadRecord loads rec into a new instance of the class named in its
// header, running handler through a migration scope when the record is
// outdated.
func LoadRecord(rec *Record, cat *Catalog, handler scope.Handler[*Instance], opts ...scope.Option) (*Instance, scope.Outcome, error) {
	cls, ok := cat.Class(rec.Header.Class)
	if !ok {
		return nil, scope.Outcome{}, fmt.Errorf("%w: class %q", ErrUnknownClass, rec.Header.Class)
	}
	return LoadRecordAs(rec, cls, handler, opts...)
}

// LoadRecordAs is LoadRecord with an explicit class, for loading a record
// into a class that was renamed or replaced.
func LoadRecordAs(rec *Record, cls *Class, handler scope.Handler[*Instance], opts ...scope.Option) (*Instance, scope.Outcome, error) {
	inst := cls.New()
	dec := rec.Decoder(cls.catalog)
	opts = append(opts, scope.WithVersionField(cls.versionField), scope.WithDecoder(dec))
	out, err := scope.Run(inst, rec.Body, handler, func() error {
		return Load(rec.Body, inst, dec)
	}, opts...)
	if err != nil {
		return nil, out, err
	}
	return inst, out, nil
}
