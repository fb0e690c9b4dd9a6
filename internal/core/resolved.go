package core

import (
	"github.com/armon/go-radix"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

type mapEntry struct {
	path     domain.GamePath
	target   domain.ReplacementTarget
	owner    string
	priority int
	rank     int // Position of the owning mod in resolution order
}

// ResolvedMap is the immutable game path to replacement mapping of one resolution pass
type ResolvedMap struct {
	entries map[domain.GamePath]*mapEntry
	tree    *radix.Tree
}

func newResolvedMap(entries map[domain.GamePath]*mapEntry) *ResolvedMap {
	tree := radix.New()
	for p, e := range entries {
		tree.Insert(p.String(), e)
	}
	return &ResolvedMap{entries: entries, tree: tree}
}

// Lookup returns the replacement for a game path
func (m *ResolvedMap) Lookup(p domain.GamePath) (domain.ReplacementTarget, bool) {
	if m == nil {
		return domain.ReplacementTarget{}, false
	}
	e, ok := m.entries[p]
	if !ok {
		return domain.ReplacementTarget{}, false
	}
	return e.target, true
}

// Owner returns the ID of the mod that owns a game path
func (m *ResolvedMap) Owner(p domain.GamePath) (string, bool) {
	if m == nil {
		return "", false
	}
	e, ok := m.entries[p]
	if !ok {
		return "", false
	}
	return e.owner, true
}

// Len returns the number of redirected paths
func (m *ResolvedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Paths returns all redirected paths in sorted order
func (m *ResolvedMap) Paths() []domain.GamePath {
	if m == nil {
		return nil
	}
	out := make([]domain.GamePath, 0, len(m.entries))
	m.tree.Walk(func(_ string, v interface{}) bool {
		out = append(out, v.(*mapEntry).path)
		return false
	})
	return out
}

// WalkPrefix calls fn for every redirected path starting with prefix, in sorted order.
// Returning false from fn stops the walk.
func (m *ResolvedMap) WalkPrefix(prefix string, fn func(domain.GamePath, domain.ReplacementTarget) bool) {
	if m == nil {
		return
	}
	m.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		e := v.(*mapEntry)
		return !fn(e.path, e.target)
	})
}

// Equal reports whether two maps redirect the same paths to the same targets and owners
func (m *ResolvedMap) Equal(o *ResolvedMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m == nil || o == nil {
		return true
	}
	for p, e := range m.entries {
		oe, ok := o.entries[p]
		if !ok || oe.target != e.target || oe.owner != e.owner {
			return false
		}
	}
	return true
}
