// Package migrate applies migrations to stored records.
//
// Rules are the declarative migrations a schema can express: field renames,
// type changes between compatible kinds, and defaults for fields an old
// record never carried. Rules.Handler turns them into a scope.Handler.
// Runner walks a record store and upgrades every outdated record.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/wire"
)

// Rules is the declarative migration of one class.
type Rules struct {
	// Rename maps an old field name to the field that replaces it.
	Rename map[string]string

	// Defaults gives values for fields the old record did not carry.
	Defaults map[string]any
}

// IsZero reports whether r does nothing beyond type coercion.
func (r Rules) IsZero() bool {
	return len(r.Rename) == 0 && len(r.Defaults) == 0
}

// Handler returns a migration handler applying r. Old fields that match
// their declaration were already assigned by the normal loader and are
// left alone. Renamed fields and fields whose type changed are converted
// through their plain form. Fields the class no longer declares are dropped.
func (r Rules) Handler(logger *slog.Logger) scope.Handler[*object.Instance] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(inst *object.Instance, tree prop.Tree, asset, code uint64) error {
		cls := inst.Schema()
		covered := make(map[string]bool, len(tree))

		for _, name := range tree.SortedNames() {
			p := tree[name]
			target, renamed := r.Rename[name]
			if !renamed {
				target = name
			}
			spec, ok := cls.Spec(target)
			if !ok || target == cls.VersionField() {
				continue
			}
			covered[target] = true

			if !renamed && object.TypeOf(p) == spec.Type {
				continue
			}
			if !p.HasValue() && !spec.Type.Kind.IsContainer() {
				// kept without a value after an unknown tag
				continue
			}
			if err := coerce(inst, spec, p); err != nil {
				return fmt.Errorf("migrate %s.%s to %s: %w", cls.Name(), name, target, err)
			}
			logger.Debug("Field migrated",
				"class", cls.Name(),
				"from", name,
				"to", target,
				"type", spec.Type.String(),
				"asset_version", asset,
				"code_version", code)
		}

		for _, name := range sortedKeys(r.Defaults) {
			if covered[name] {
				continue
			}
			if err := inst.Set(name, r.Defaults[name]); err != nil {
				return fmt.Errorf("migrate %s default %s: %w", cls.Name(), name, err)
			}
		}
		return nil
	}
}

// coerce assigns p to the field described by spec, converting between
// compatible kinds.
func coerce(inst *object.Instance, spec object.FieldSpec, p *prop.Property) error {
	if object.TypeOf(p) == spec.Type {
		return inst.Set(spec.Name, p)
	}
	plain := object.FromProperty(p)
	err := inst.Set(spec.Name, plain)
	if err == nil {
		return nil
	}
	switch spec.Type.Kind {
	case wire.KindStr, wire.KindName:
		if !p.Type.IsContainer() && p.HasValue() {
			return inst.Set(spec.Name, fmt.Sprint(plain))
		}
	}
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
