// Package mediator is an in-process mediator for commands, queries and events.
//
// Callers hand typed requests to a dispatcher without knowing which handler
// serves them. Commands and queries have exactly one handler, resolved by the
// exact Go type of the request; events fan out to every subscriber in
// registration order. A missing handler and a duplicate handler are reported
// as distinct MediatorError categories, and handler errors are returned
// unchanged.
//
// Handlers are declared with the generic For* helpers, which fix the request
// type at compile time, and collected in a HandlerSet:
//
//	var set mediator.HandlerSet
//	set.Add(
//		mediator.ForCommand(mediator.CommandHandlerFunc[CreateOrder, OrderID](createOrder)),
//		mediator.ForEvent(mediator.EventHandlerFunc[OrderPlaced](sendEmail)),
//	)
//
//	m := mediator.NewMediator(&mediator.Config{Name: "orders"}, logger, set, mediator.Dependencies{})
//	id, err := mediator.DispatchCommand[OrderID](ctx, m.Commands(), CreateOrder{SKU: "book"})
//
// Resolutions are cached per request type, so the registry is only scanned
// once per type. The cache can be switched off with Config.DisableResolutionCache
// without changing any outcome.
//
// # Middleware
//
// Every dispatch runs through a middleware chain. The default chain carries a
// correlation ID into nested dispatches and, when enabled in Config, logs
// dispatches, records OpenTelemetry spans and Prometheus metrics. Custom
// middleware and DispatchHooks are added via Dependencies.
//
// # Follow-up events
//
// An EmittingCommandHandler returns the events its command caused. They are
// emitted through the normal event path once the command succeeded.
//
// # Forwarding
//
// NewEventForwarder builds an event subscriber that republishes events on a
// Watermill publisher, for programs that also need events outside the process.
// The mediator itself never leaves the process.
package mediator
