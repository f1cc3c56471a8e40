package runtime

import (
	"context"
	"time"

	"github.com/drblury/mediator/internal/runtime/handlers"
	loggingpkg "github.com/drblury/mediator/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
)

// DispatchContext provides information about a dispatch to hooks.
type DispatchContext struct {
	// DispatchID uniquely identifies the dispatch.
	DispatchID string
	// CorrelationID is shared by a dispatch and everything it triggers.
	CorrelationID string
	Kind          handlers.Kind
	// Name is the label the request declares, e.g. its CommandName.
	Name        string
	RequestType string
	Metadata    metadatapkg.Metadata
	Context     context.Context
	StartedAt   time.Time
	// Duration is only set in OnDispatchDone and OnDispatchError.
	Duration time.Duration
	// Category classifies the error passed to OnDispatchError.
	Category ErrorCategory
}

// DispatchHooks defines callbacks for the dispatch lifecycle.
// All hooks are optional; nil hooks are not called.
type DispatchHooks struct {
	// OnDispatchStart is called before resolution and invocation.
	OnDispatchStart func(ctx DispatchContext)

	// OnDispatchDone is called when the dispatch succeeded.
	OnDispatchDone func(ctx DispatchContext)

	// OnDispatchError is called with the error the dispatch returned.
	OnDispatchError func(ctx DispatchContext, err error)
}

// Merge combines two DispatchHooks. The hooks from other run after those of h.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnDispatchStart: chainHooks(h.OnDispatchStart, other.OnDispatchStart),
		OnDispatchDone:  chainHooks(h.OnDispatchDone, other.OnDispatchDone),
		OnDispatchError: chainErrorHooks(h.OnDispatchError, other.OnDispatchError),
	}
}

func (h DispatchHooks) isZero() bool {
	return h.OnDispatchStart == nil && h.OnDispatchDone == nil && h.OnDispatchError == nil
}

func chainHooks(a, b func(DispatchContext)) func(DispatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(DispatchContext, error)) func(DispatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func dispatchHooksMiddleware(hooks DispatchHooks, classifier ErrorClassifier) HandlerMiddleware {
	if classifier == nil {
		classifier = defaultErrorClassifier
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, d *Dispatch) (any, error) {
			dc := DispatchContext{
				DispatchID:    d.ID,
				CorrelationID: d.Metadata.Get(metadatapkg.KeyCorrelationID),
				Kind:          d.Kind,
				Name:          d.Name,
				RequestType:   d.RequestType,
				Metadata:      d.Metadata,
				Context:       ctx,
				StartedAt:     time.Now(),
			}

			if hooks.OnDispatchStart != nil {
				hooks.OnDispatchStart(dc)
			}

			result, err := next(ctx, d)
			dc.Duration = time.Since(dc.StartedAt)

			if err != nil {
				if hooks.OnDispatchError != nil {
					dc.Category = classifier(err)
					hooks.OnDispatchError(dc, err)
				}
			} else if hooks.OnDispatchDone != nil {
				hooks.OnDispatchDone(dc)
			}

			return result, err
		}
	}
}

// LoggingHooks returns hooks that log the dispatch lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	fields := func(ctx DispatchContext) loggingpkg.LogFields {
		return loggingpkg.LogFields{
			"dispatch_id":    ctx.DispatchID,
			"correlation_id": ctx.CorrelationID,
			"kind":           ctx.Kind.String(),
			"request":        ctx.Name,
		}
	}
	return DispatchHooks{
		OnDispatchStart: func(ctx DispatchContext) {
			logger.Info("Dispatch started", fields(ctx))
		},
		OnDispatchDone: func(ctx DispatchContext) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Info("Dispatch completed", f)
		},
		OnDispatchError: func(ctx DispatchContext, err error) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			f["category"] = string(ctx.Category)
			logger.Error("Dispatch failed", err, f)
		},
	}
}

// MetricsHooks returns hooks that forward lifecycle events to counters owned by the caller.
func MetricsHooks(onStart, onDone, onError func(kind handlers.Kind, name string)) DispatchHooks {
	return DispatchHooks{
		OnDispatchStart: func(ctx DispatchContext) {
			if onStart != nil {
				onStart(ctx.Kind, ctx.Name)
			}
		},
		OnDispatchDone: func(ctx DispatchContext) {
			if onDone != nil {
				onDone(ctx.Kind, ctx.Name)
			}
		},
		OnDispatchError: func(ctx DispatchContext, _ error) {
			if onError != nil {
				onError(ctx.Kind, ctx.Name)
			}
		},
	}
}

// AlertingHooks returns hooks that call alertFunc for every failed dispatch.
func AlertingHooks(alertFunc func(ctx DispatchContext, err error)) DispatchHooks {
	return DispatchHooks{
		OnDispatchError: alertFunc,
	}
}
