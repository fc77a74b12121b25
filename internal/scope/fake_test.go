package scope

import (
	"errors"
	"fmt"

	"github.com/roach88/propmig/internal/wire"
)

// monster is a hand-written record type used to exercise the scope without
// the schema-driven object package.
type monster struct {
	class   *monsterClass
	Health  int32
	Name    string
	Version uint64
}

func (m *monster) Class() Class { return m.class }

type monsterClass struct {
	name         string
	versionField string // empty means the class has no version field
	def          *monster
}

func newMonsterClass(name string, code uint64) *monsterClass {
	c := &monsterClass{name: name, versionField: DefaultVersionField}
	c.def = &monster{class: c, Health: 100, Name: "", Version: code}
	return c
}

func (c *monsterClass) Name() string    { return c.name }
func (c *monsterClass) Default() Object { return c.def }

func (c *monsterClass) Field(name string) (Field, bool) {
	if c.versionField == "" || name != c.versionField {
		return nil, false
	}
	return versionField{name: name}, true
}

func (c *monsterClass) newMonster() *monster {
	m := *c.def
	return &m
}

type versionField struct{ name string }

func (f versionField) Name() string { return f.name }

func (f versionField) Uint64(obj Object) (uint64, bool) {
	m, ok := obj.(*monster)
	if !ok {
		return 0, false
	}
	return m.Version, true
}

func (f versionField) SetUint64(obj Object, v uint64) error {
	m, ok := obj.(*monster)
	if !ok {
		return fmt.Errorf("not a monster: %T", obj)
	}
	m.Version = v
	return nil
}

// emitter is the part of a save scope the serializer consults.
type emitter interface {
	ForceEmit(field string) bool
}

// saveMonster is a delta serializer: fields equal to the class default are
// skipped unless the scope forces them.
func saveMonster(w *wire.Writer, m *monster, sc emitter) {
	def := m.class.def
	force := func(name string) bool { return sc != nil && sc.ForceEmit(name) }

	if m.Health != def.Health || force("Health") {
		f := wire.BeginField(w, wire.Tag{Name: "Health", Type: wire.KindInt})
		w.WriteInt32(m.Health)
		_ = f.End()
	}
	if m.Name != def.Name || force("Name") {
		f := wire.BeginField(w, wire.Tag{Name: "Name", Type: wire.KindStr})
		w.WriteString(m.Name)
		_ = f.End()
	}
	vf := m.class.versionField
	if vf != "" && (m.Version != def.Version || force(vf)) {
		f := wire.BeginField(w, wire.Tag{Name: vf, Type: wire.KindUInt64})
		w.WriteUint64(m.Version)
		_ = f.End()
	}
	wire.WriteEnd(w)
}

// loadMonster is the normal loader: known fields are assigned, everything
// else is skipped by size.
func loadMonster(r *wire.Reader, m *monster) error {
	for {
		tag, err := wire.ReadTag(r)
		if err != nil {
			return err
		}
		if tag.IsEnd() {
			return nil
		}
		end := r.Tell() + int64(tag.Size)
		switch {
		case tag.Name == "Health" && tag.Type == wire.KindInt:
			m.Health, err = r.ReadInt32()
		case tag.Name == "Name" && tag.Type == wire.KindStr:
			m.Name, err = r.ReadString()
		case tag.Name == m.class.versionField && tag.Type == wire.KindUInt64:
			m.Version, err = r.ReadUint64()
		}
		if err != nil {
			return err
		}
		if err := r.Seek(end); err != nil {
			return err
		}
	}
}

// writerOnly is a loading archive that cannot be rewound and decoded.
type writerOnly struct{}

func (writerOnly) Tell() int64      { return 0 }
func (writerOnly) Seek(int64) error { return errors.New("no seek") }
func (writerOnly) IsLoading() bool  { return true }
func (writerOnly) Name() string     { return "writer-only" }
