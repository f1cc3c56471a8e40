package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	idspkg "github.com/drblury/mediator/internal/runtime/ids"
	loggingpkg "github.com/drblury/mediator/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
)

// Dispatch describes one request travelling through the middleware chain.
type Dispatch struct {
	ID          string
	Kind        handlers.Kind
	Name        string
	Request     any
	RequestType string
	Metadata    metadatapkg.Metadata
	StartedAt   time.Time
}

// HandlerFunc mediates a dispatch: it resolves the handlers and invokes them.
type HandlerFunc func(ctx context.Context, d *Dispatch) (any, error)

// HandlerMiddleware decorates a HandlerFunc. Middleware must return the
// errors it receives unchanged so callers can compare them by identity.
type HandlerMiddleware func(HandlerFunc) HandlerFunc

// MiddlewareBuilder constructs a middleware for the given mediator. Returning a
// nil middleware skips the registration.
type MiddlewareBuilder func(*Mediator) (HandlerMiddleware, error)

// MiddlewareRegistration names a middleware and how to obtain it.
type MiddlewareRegistration struct {
	Name       string
	Middleware HandlerMiddleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the standard chain used by the mediator
// constructor. The first entry is the outermost.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogDispatchMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
	}
}

// CorrelationIDMiddleware makes sure every dispatch carries a correlation ID.
// Nested dispatches made from a handler's context inherit it.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Middleware: func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, d *Dispatch) (any, error) {
				if d.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
					d.Metadata = d.Metadata.With(metadatapkg.KeyCorrelationID, idspkg.NewCorrelationID())
				}
				d.Metadata = d.Metadata.With(metadatapkg.KeyDispatchID, d.ID)
				return next(metadatapkg.NewContext(ctx, d.Metadata), d)
			}
		},
	}
}

// LogDispatchMiddleware logs each dispatch at debug level when
// Config.LogDispatches is set. A nil logger uses the mediator's logger.
func LogDispatchMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_dispatches",
		Builder: func(m *Mediator) (HandlerMiddleware, error) {
			if !m.conf.LogDispatches {
				return nil, nil
			}
			l := logger
			if l == nil {
				l = m.logger
			}
			if l == nil {
				return nil, errors.New("log dispatches middleware requires a logger")
			}
			return logDispatchMiddleware(l), nil
		},
	}
}

func logDispatchMiddleware(logger loggingpkg.ServiceLogger) HandlerMiddleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, d *Dispatch) (any, error) {
			log := logger.With(loggingpkg.LogFields{
				"dispatch_id":    d.ID,
				"kind":           d.Kind.String(),
				"request":        d.Name,
				"request_type":   d.RequestType,
				"correlation_id": d.Metadata.Get(metadatapkg.KeyCorrelationID),
			})
			log.Debug("Dispatching request", nil)

			result, err := next(ctx, d)
			fields := loggingpkg.LogFields{"duration_ms": time.Since(d.StartedAt).Milliseconds()}
			if err != nil {
				fields["error"] = err.Error()
				log.Debug("Dispatch failed", fields)
				return result, err
			}
			log.Debug("Dispatch completed", fields)
			return result, nil
		}
	}
}

// TracerMiddleware wraps each dispatch in an OpenTelemetry span when
// Config.TracingEnabled is set.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(m *Mediator) (HandlerMiddleware, error) {
			if !m.conf.TracingEnabled {
				return nil, nil
			}
			return tracerMiddleware(m.tracerProvider.Tracer(instrumentationName), m.conf.Name), nil
		},
	}
}

const instrumentationName = "github.com/drblury/mediator"

func tracerMiddleware(tracer trace.Tracer, mediatorName string) HandlerMiddleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, d *Dispatch) (any, error) {
			ctx, span := tracer.Start(ctx,
				fmt.Sprintf("mediator.%s %s", d.Kind, d.Name),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("mediator.name", mediatorName),
					attribute.String("mediator.kind", d.Kind.String()),
					attribute.String("mediator.request", d.Name),
					attribute.String("mediator.request_type", d.RequestType),
					attribute.String("mediator.dispatch_id", d.ID),
					attribute.String("mediator.correlation_id", d.Metadata.Get(metadatapkg.KeyCorrelationID)),
				),
			)
			defer span.End()

			result, err := next(ctx, d)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}

// PanicError is returned by the recoverer middleware in place of a panic.
type PanicError struct {
	Value      any
	Stacktrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", errspkg.ErrHandlerPanicked, e.Value)
}

func (e *PanicError) Unwrap() error {
	return errspkg.ErrHandlerPanicked
}

// RecovererMiddleware converts handler panics into a *PanicError. It is not
// part of the default chain; add it through Dependencies.Middlewares.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Middleware: func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, d *Dispatch) (result any, err error) {
				defer func() {
					if r := recover(); r != nil {
						result = nil
						err = &PanicError{Value: r, Stacktrace: string(debug.Stack())}
					}
				}()
				return next(ctx, d)
			}
		},
	}
}

// HooksMiddleware invokes the dispatch lifecycle hooks.
func HooksMiddleware(hooks DispatchHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "dispatch_hooks",
		Builder: func(m *Mediator) (HandlerMiddleware, error) {
			if hooks.isZero() {
				return nil, nil
			}
			return dispatchHooksMiddleware(hooks, m.errorClassifier), nil
		},
	}
}

// buildMiddleware resolves a registration against the mediator.
func (m *Mediator) buildMiddleware(reg MiddlewareRegistration) (HandlerMiddleware, error) {
	switch {
	case reg.Middleware != nil:
		return reg.Middleware, nil
	case reg.Builder != nil:
		return reg.Builder(m)
	default:
		return nil, errors.New("middleware registration requires Middleware or Builder")
	}
}

// chain wraps core so that the first middleware runs outermost.
func chain(core HandlerFunc, middlewares []HandlerMiddleware) HandlerFunc {
	h := core
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
