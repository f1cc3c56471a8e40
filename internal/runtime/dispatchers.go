package runtime

import (
	"context"
	"reflect"

	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
)

// CommandDispatcher sends commands to their handler.
type CommandDispatcher interface {
	// Dispatch returns the result of the command's handler.
	Dispatch(ctx context.Context, cmd handlers.Command) (any, error)
	// DispatchSimple dispatches one or more commands in order and discards
	// their results. It returns the first error.
	DispatchSimple(ctx context.Context, cmd handlers.Command, more ...handlers.Command) error
}

// QueryDispatcher sends queries to their handler.
type QueryDispatcher interface {
	Dispatch(ctx context.Context, query handlers.Query) (any, error)
}

// EventEmitter publishes events to their subscribers.
type EventEmitter interface {
	// Emit delivers each event to all of its subscribers, one event after the
	// other. It returns the first error.
	Emit(ctx context.Context, event handlers.Event, more ...handlers.Event) error
}

type commandDispatcher struct{ m *Mediator }

type queryDispatcher struct{ m *Mediator }

type eventEmitter struct{ m *Mediator }

// Commands returns the command facade of m.
func (m *Mediator) Commands() CommandDispatcher { return commandDispatcher{m: m} }

// Queries returns the query facade of m.
func (m *Mediator) Queries() QueryDispatcher { return queryDispatcher{m: m} }

// Events returns the event facade of m.
func (m *Mediator) Events() EventEmitter { return eventEmitter{m: m} }

func (d commandDispatcher) Dispatch(ctx context.Context, cmd handlers.Command) (any, error) {
	return d.m.MediateCommand(ctx, cmd)
}

func (d commandDispatcher) DispatchSimple(ctx context.Context, cmd handlers.Command, more ...handlers.Command) error {
	cmds := append([]handlers.Command{cmd}, more...)
	return d.m.runBatch(handlers.KindCommand, len(cmds), func(i int) (string, error) {
		_, err := d.m.MediateCommand(ctx, cmds[i])
		return handlers.RequestName(handlers.KindCommand, cmds[i]), err
	})
}

func (d queryDispatcher) Dispatch(ctx context.Context, query handlers.Query) (any, error) {
	return d.m.MediateQuery(ctx, query)
}

func (e eventEmitter) Emit(ctx context.Context, event handlers.Event, more ...handlers.Event) error {
	if len(more) == 0 {
		return e.m.MediateEvent(ctx, event)
	}
	return e.m.emitAll(ctx, append([]handlers.Event{event}, more...))
}

// DispatchCommand dispatches cmd and asserts the result to R. When a command
// succeeded but its follow-up events failed, the typed result is returned
// together with the error.
func DispatchCommand[R any](ctx context.Context, d CommandDispatcher, cmd handlers.Command) (R, error) {
	result, err := d.Dispatch(ctx, cmd)
	return typedResult[R](handlers.KindCommand, cmd, result, err)
}

// DispatchQuery dispatches query and asserts the result to R.
func DispatchQuery[R any](ctx context.Context, d QueryDispatcher, query handlers.Query) (R, error) {
	result, err := d.Dispatch(ctx, query)
	return typedResult[R](handlers.KindQuery, query, result, err)
}

func typedResult[R any](kind handlers.Kind, request, result any, err error) (R, error) {
	var zero R
	if result == nil {
		if err != nil || nillable(reflect.TypeFor[R]()) {
			return zero, err
		}
		return zero, errspkg.ResultTypeMismatch(kind.String(), handlers.TypeName(reflect.TypeOf(request)), typeLabel(reflect.TypeFor[R]()), result)
	}
	typed, ok := result.(R)
	if !ok {
		if err != nil {
			return zero, err
		}
		return zero, errspkg.ResultTypeMismatch(kind.String(), handlers.TypeName(reflect.TypeOf(request)), typeLabel(reflect.TypeFor[R]()), result)
	}
	return typed, err
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
