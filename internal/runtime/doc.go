/*
Package runtime implements the in-process mediator behind the public mediator package.

# Architecture Overview

A Mediator routes three kinds of requests to handlers registered for their
exact Go type:

  - Commands change state and have exactly one handler.
  - Queries read state and have exactly one handler.
  - Events announce facts and are delivered to every subscriber, in
    registration order.

Handlers are registered as descriptors built with the generic For* helpers of
the handlers sub-package. A descriptor fixes the request type at compile time,
so matching is an identity comparison of reflect.Type values: no subtype,
interface or pointer/value matching takes place.

# Package Structure

## Mediator (mediator.go)

The Mediator wires together:
  - One registry and resolver per request kind
  - A resolution cache per kind
  - The middleware chain
  - Per-handler statistics

## Dispatchers (dispatchers.go)

CommandDispatcher, QueryDispatcher and EventEmitter are the narrow facades
callers use. DispatchCommand and DispatchQuery assert results to a type.

## Middleware (middleware.go, metrics.go, hooks.go)

Every dispatch passes through the middleware chain before resolution:
  - CorrelationID: carries a correlation ID through nested dispatches
  - LogDispatches: debug logging of each dispatch
  - Tracer: OpenTelemetry spans
  - Metrics: Prometheus counters and histograms
  - Recoverer: converts handler panics into errors (opt-in)
  - DispatchHooks: lifecycle callbacks

## Stats & Monitoring (models.go, stats_http.go)

Per-handler invocation counts, latency percentiles, throughput and error
breakdown, served as JSON by StatsHandler.

## Forwarding (forwarder.go)

EventForwarder republishes events on a Watermill publisher as an ordinary
event subscriber.

# Sub-packages

  - config/: Mediator configuration with validation
  - errors/: Sentinel errors and MediatorError
  - handlers/: Request markers, handler interfaces and descriptors
  - registry/: Type-indexed handler registry
  - resolver/: Single and fan-out resolvers with the resolution cache
  - ids/: ULID generation for dispatch and correlation IDs
  - jsoncodec/: JSON encoding
  - logging/: Logger interface and adapters
  - metadata/: Dispatch metadata carried in the context
*/
package runtime
