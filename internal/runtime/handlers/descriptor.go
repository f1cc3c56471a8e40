package handlers

import (
	"context"
	"fmt"
	"reflect"

	errspkg "github.com/drblury/mediator/internal/runtime/errors"
)

// Invoker calls a handler with a request whose dynamic type has already been
// matched against the handler's declared request type.
type Invoker func(ctx context.Context, request any) (result any, events []Event, err error)

// Descriptor is a handler together with the request type it declares. The
// request type is fixed when the descriptor is built and never changes.
type Descriptor struct {
	kind        Kind
	name        string
	requestType reflect.Type
	resultType  reflect.Type
	invoke      Invoker
	err         error
}

// ForCommand describes a command handler returning R.
func ForCommand[C Command, R any](h CommandHandler[C, R]) Descriptor {
	d := newDescriptor[C](KindCommand, h)
	d.resultType = reflect.TypeFor[R]()
	if d.err == nil {
		d.invoke = func(ctx context.Context, request any) (any, []Event, error) {
			cmd, err := assertRequest[C](KindCommand, request)
			if err != nil {
				return nil, nil, err
			}
			result, err := h.Handle(ctx, cmd)
			if err != nil {
				return nil, nil, err
			}
			return result, nil, nil
		}
	}
	return d
}

// ForSimpleCommand describes a command handler without a result.
func ForSimpleCommand[C Command](h SimpleCommandHandler[C]) Descriptor {
	d := newDescriptor[C](KindCommand, h)
	if d.err == nil {
		d.invoke = func(ctx context.Context, request any) (any, []Event, error) {
			cmd, err := assertRequest[C](KindCommand, request)
			if err != nil {
				return nil, nil, err
			}
			return nil, nil, h.Handle(ctx, cmd)
		}
	}
	return d
}

// ForEmittingCommand describes a command handler that returns follow-up events.
func ForEmittingCommand[C Command, R any](h EmittingCommandHandler[C, R]) Descriptor {
	d := newDescriptor[C](KindCommand, h)
	d.resultType = reflect.TypeFor[R]()
	if d.err == nil {
		d.invoke = func(ctx context.Context, request any) (any, []Event, error) {
			cmd, err := assertRequest[C](KindCommand, request)
			if err != nil {
				return nil, nil, err
			}
			result, events, err := h.Handle(ctx, cmd)
			if err != nil {
				return nil, nil, err
			}
			return result, events, nil
		}
	}
	return d
}

// ForQuery describes a query handler returning R.
func ForQuery[Q Query, R any](h QueryHandler[Q, R]) Descriptor {
	d := newDescriptor[Q](KindQuery, h)
	d.resultType = reflect.TypeFor[R]()
	if d.err == nil {
		d.invoke = func(ctx context.Context, request any) (any, []Event, error) {
			query, err := assertRequest[Q](KindQuery, request)
			if err != nil {
				return nil, nil, err
			}
			result, err := h.Handle(ctx, query)
			if err != nil {
				return nil, nil, err
			}
			return result, nil, nil
		}
	}
	return d
}

// ForEvent describes an event subscriber.
func ForEvent[E Event](h EventHandler[E]) Descriptor {
	d := newDescriptor[E](KindEvent, h)
	if d.err == nil {
		d.invoke = func(ctx context.Context, request any) (any, []Event, error) {
			event, err := assertRequest[E](KindEvent, request)
			if err != nil {
				return nil, nil, err
			}
			return nil, nil, h.Handle(ctx, event)
		}
	}
	return d
}

func newDescriptor[T any](kind Kind, handler any) Descriptor {
	requestType := reflect.TypeFor[T]()
	d := Descriptor{
		kind:        kind,
		requestType: requestType,
		name:        fmt.Sprintf("%T", handler),
	}
	switch {
	case handler == nil:
		d.err = fmt.Errorf("%w: %s handler for %s", errspkg.ErrHandlerRequired, kind, TypeName(requestType))
	case requestType.Kind() == reflect.Interface:
		d.err = fmt.Errorf("%w: %s handler %s declares interface %s", errspkg.ErrAbstractRequestType, kind, d.name, TypeName(requestType))
	}
	return d
}

func assertRequest[T any](kind Kind, request any) (T, error) {
	typed, ok := request.(T)
	if !ok {
		var zero T
		return zero, errspkg.InvalidRequest(kind.String(), TypeName(reflect.TypeOf(request)),
			fmt.Sprintf("handler expects %s", TypeName(reflect.TypeFor[T]())))
	}
	return typed, nil
}

// Named returns a copy of the descriptor reporting name in errors, logs and stats.
func (d Descriptor) Named(name string) Descriptor {
	if name != "" {
		d.name = name
	}
	return d
}

func (d Descriptor) Kind() Kind { return d.kind }

func (d Descriptor) Name() string { return d.name }

// RequestType is the exact type the handler accepts.
func (d Descriptor) RequestType() reflect.Type { return d.requestType }

// ResultType is nil for simple commands and events.
func (d Descriptor) ResultType() reflect.Type { return d.resultType }

// Simple reports whether the descriptor is a command handler without a result.
func (d Descriptor) Simple() bool { return d.kind == KindCommand && d.resultType == nil }

// Validate reports problems detected while the descriptor was built.
func (d Descriptor) Validate() error {
	if d.err != nil {
		return d.err
	}
	if d.requestType == nil {
		return errspkg.ErrRequestTypeRequired
	}
	if d.invoke == nil {
		return fmt.Errorf("%w: %s", errspkg.ErrHandlerRequired, d.name)
	}
	return nil
}

// Invoke runs the handler. Handler errors are returned as-is.
func (d Descriptor) Invoke(ctx context.Context, request any) (any, []Event, error) {
	if d.invoke == nil {
		return nil, nil, d.Validate()
	}
	return d.invoke(ctx, request)
}

// Set is the collection of handlers a mediator is built from.
type Set struct {
	Commands []Descriptor
	Queries  []Descriptor
	Events   []Descriptor
}

// Add appends descriptors to the collection matching their kind, keeping order.
func (s *Set) Add(descriptors ...Descriptor) *Set {
	for _, d := range descriptors {
		switch d.kind {
		case KindCommand:
			s.Commands = append(s.Commands, d)
		case KindQuery:
			s.Queries = append(s.Queries, d)
		case KindEvent:
			s.Events = append(s.Events, d)
		}
	}
	return s
}

// Len returns the total number of descriptors.
func (s Set) Len() int {
	return len(s.Commands) + len(s.Queries) + len(s.Events)
}
