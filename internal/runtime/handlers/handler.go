package handlers

import "context"

// CommandHandler handles one concrete command type and returns its result.
type CommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// SimpleCommandHandler handles a command that produces no result.
type SimpleCommandHandler[C Command] interface {
	Handle(ctx context.Context, cmd C) error
}

// EmittingCommandHandler handles a command and returns the events that should
// be emitted once it succeeded.
type EmittingCommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, []Event, error)
}

// QueryHandler handles one concrete query type.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// EventHandler subscribes to one concrete event type.
type EventHandler[E Event] interface {
	Handle(ctx context.Context, event E) error
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f CommandHandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// SimpleCommandHandlerFunc adapts a function to SimpleCommandHandler.
type SimpleCommandHandlerFunc[C Command] func(ctx context.Context, cmd C) error

func (f SimpleCommandHandlerFunc[C]) Handle(ctx context.Context, cmd C) error {
	return f(ctx, cmd)
}

// EmittingCommandHandlerFunc adapts a function to EmittingCommandHandler.
type EmittingCommandHandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, []Event, error)

func (f EmittingCommandHandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, []Event, error) {
	return f(ctx, cmd)
}

// QueryHandlerFunc adapts a function to QueryHandler.
type QueryHandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f QueryHandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[E Event] func(ctx context.Context, event E) error

func (f EventHandlerFunc[E]) Handle(ctx context.Context, event E) error {
	return f(ctx, event)
}
