package registry

import (
	"reflect"
	"slices"
	"strings"
)

// Entry is anything that declares the exact request type it handles.
type Entry interface {
	RequestType() reflect.Type
}

// Registry indexes entries by their declared request type. It is built once
// and only read afterwards, so it is safe for concurrent use.
type Registry[E Entry] struct {
	byType map[reflect.Type][]E
	types  []reflect.Type
	size   int
}

// New indexes entries, preserving their relative order per request type.
// Entries declaring a nil request type are skipped.
func New[E Entry](entries []E) *Registry[E] {
	r := &Registry[E]{byType: make(map[reflect.Type][]E, len(entries))}
	for _, entry := range entries {
		t := entry.RequestType()
		if t == nil {
			continue
		}
		if _, seen := r.byType[t]; !seen {
			r.types = append(r.types, t)
		}
		r.byType[t] = append(r.byType[t], entry)
		r.size++
	}
	slices.SortFunc(r.types, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return r
}

// Match returns the entries whose declared type is identical to t, in
// registration order. A value type and its pointer type never match each
// other. The returned slice is a copy.
func (r *Registry[E]) Match(t reflect.Type) []E {
	if r == nil || t == nil {
		return nil
	}
	return slices.Clone(r.byType[t])
}

// Count returns how many entries declare t without copying them.
func (r *Registry[E]) Count(t reflect.Type) int {
	if r == nil || t == nil {
		return 0
	}
	return len(r.byType[t])
}

// Types lists every declared request type sorted by name.
func (r *Registry[E]) Types() []reflect.Type {
	if r == nil {
		return nil
	}
	return slices.Clone(r.types)
}

// Len returns the number of indexed entries.
func (r *Registry[E]) Len() int {
	if r == nil {
		return 0
	}
	return r.size
}
