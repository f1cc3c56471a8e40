package resolver

import (
	"reflect"

	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	"github.com/drblury/mediator/internal/runtime/registry"
)

// Candidate is a registry entry that can be named in ambiguity errors.
type Candidate interface {
	registry.Entry
	Name() string
}

// SingleResolver finds the one handler for a command or query type.
type SingleResolver[E Candidate] struct {
	kind     handlers.Kind
	registry *registry.Registry[E]
	cache    *Cache[E]
}

func NewSingleResolver[E Candidate](kind handlers.Kind, reg *registry.Registry[E], cache *Cache[E]) *SingleResolver[E] {
	if cache == nil {
		cache = NewCache[E](true)
	}
	return &SingleResolver[E]{kind: kind, registry: reg, cache: cache}
}

// Resolve returns the handler registered for the dynamic type of request.
func (r *SingleResolver[E]) Resolve(request any) (E, error) {
	if request == nil {
		var zero E
		return zero, errspkg.InvalidRequest(r.kind.String(), handlers.TypeName(nil), "request is nil")
	}
	return r.ResolveType(reflect.TypeOf(request))
}

// ResolveType returns the single handler declaring t. Zero matches yield a
// not-found error and several matches an ambiguity error; neither is cached.
func (r *SingleResolver[E]) ResolveType(t reflect.Type) (E, error) {
	return r.cache.Get(t, func() (E, error) {
		var zero E
		matches := r.registry.Match(t)
		switch len(matches) {
		case 0:
			return zero, errspkg.NotFound(r.kind.String(), handlers.TypeName(t))
		case 1:
			return matches[0], nil
		default:
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = m.Name()
			}
			return zero, errspkg.Ambiguous(r.kind.String(), handlers.TypeName(t), names)
		}
	})
}

// Verify resolves every registered type and reports the first ambiguity.
func (r *SingleResolver[E]) Verify() error {
	for _, t := range r.registry.Types() {
		if _, err := r.ResolveType(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *SingleResolver[E]) CacheStats() CacheStats { return r.cache.Stats() }

// FanOutResolver finds every subscriber of an event type.
type FanOutResolver[E Candidate] struct {
	registry   *registry.Registry[E]
	cache      *Cache[[]E]
	allowEmpty bool
}

// NewFanOutResolver returns an event resolver. With allowEmpty an event type
// without subscribers resolves to an empty list instead of a not-found error.
func NewFanOutResolver[E Candidate](reg *registry.Registry[E], cache *Cache[[]E], allowEmpty bool) *FanOutResolver[E] {
	if cache == nil {
		cache = NewCache[[]E](true)
	}
	return &FanOutResolver[E]{registry: reg, cache: cache, allowEmpty: allowEmpty}
}

// Resolve returns the subscribers for the dynamic type of event in
// registration order. The returned slice is shared and must not be modified.
func (r *FanOutResolver[E]) Resolve(event any) ([]E, error) {
	if event == nil {
		return nil, errspkg.InvalidRequest(handlers.KindEvent.String(), handlers.TypeName(nil), "event is nil")
	}
	return r.ResolveType(reflect.TypeOf(event))
}

func (r *FanOutResolver[E]) ResolveType(t reflect.Type) ([]E, error) {
	return r.cache.Get(t, func() ([]E, error) {
		matches := r.registry.Match(t)
		if len(matches) == 0 {
			if r.allowEmpty {
				return []E{}, nil
			}
			return nil, errspkg.NotFound(handlers.KindEvent.String(), handlers.TypeName(t))
		}
		return matches, nil
	})
}

func (r *FanOutResolver[E]) CacheStats() CacheStats { return r.cache.Stats() }
