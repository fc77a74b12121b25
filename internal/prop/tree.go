package prop

import (
	"slices"
	"strings"
)

// Tree maps field names to decoded properties. A Tree held as a Value is
// owned by the Property it sits in.
type Tree map[string]*Property

func (Tree) propValue() {}

// Get returns the named property, or nil.
func (t Tree) Get(name string) *Property {
	return t[name]
}

// Set stores p under p.Name. A later field with the same name replaces an
// earlier one.
func (t Tree) Set(p *Property) {
	t[p.Name] = p
}

// SortedNames returns field names in byte order for deterministic iteration.
func (t Tree) SortedNames() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves a dotted path such as "Stats.Health" through nested
// struct trees, following the first value at each step.
func (t Tree) Lookup(path string) (*Property, bool) {
	cur := t
	parts := strings.Split(path, ".")
	for i, part := range parts {
		p, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return p, true
		}
		next, ok := p.FirstValue().(Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// WalkFunc is called for every property visited by Walk. path is the dotted
// path of the property from the root tree. Returning false stops the walk.
type WalkFunc func(path string, p *Property) bool

// Walk visits every property in name order, recursing into nested trees
// held in keys or values. Map key trees are visited as "path[key]".
func (t Tree) Walk(fn WalkFunc) {
	t.walk("", fn)
}

func (t Tree) walk(prefix string, fn WalkFunc) bool {
	for _, name := range t.SortedNames() {
		p := t[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if !fn(path, p) {
			return false
		}
		if p.HasKeyTrees {
			for _, k := range p.Keys {
				if sub, ok := k.(Tree); ok && !sub.walk(path+"[key]", fn) {
					return false
				}
			}
		}
		if p.HasValueTrees {
			for _, v := range p.Values {
				if sub, ok := v.(Tree); ok && !sub.walk(path, fn) {
					return false
				}
			}
		}
	}
	return true
}

// Count returns the number of properties in t, including nested trees.
func (t Tree) Count() int {
	n := 0
	t.Walk(func(string, *Property) bool {
		n++
		return true
	})
	return n
}

// Clone returns a deep copy of t. Use it to keep data past a handler call.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for name, p := range t {
		out[name] = p.Clone()
	}
	return out
}

// Release empties t and every tree nested in it. A handler that held on to
// the tree after its scope closed sees it empty rather than stale.
func (t Tree) Release() {
	for name, p := range t {
		p.release()
		delete(t, name)
	}
}
