package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/drblury/mediator/internal/runtime/config"
	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	idspkg "github.com/drblury/mediator/internal/runtime/ids"
	loggingpkg "github.com/drblury/mediator/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
	"github.com/drblury/mediator/internal/runtime/registry"
	"github.com/drblury/mediator/internal/runtime/resolver"
)

// Dependencies holds the optional collaborators of a Mediator.
type Dependencies struct {
	// Middlewares are appended after the default chain and the hooks.
	Middlewares []MiddlewareRegistration
	// DisableDefaultMiddlewares skips the default chain.
	DisableDefaultMiddlewares bool
	// Hooks are installed right after the default chain.
	Hooks DispatchHooks
	// MetricsRegistry receives the dispatch metrics. A private registry is
	// created when nil.
	MetricsRegistry *prometheus.Registry
	// TracerProvider defaults to the global OpenTelemetry provider.
	TracerProvider  trace.TracerProvider
	ErrorClassifier ErrorClassifier
}

// ResolutionStats reports the resolution caches per request kind.
type ResolutionStats struct {
	Commands resolver.CacheStats `json:"commands"`
	Queries  resolver.CacheStats `json:"queries"`
	Events   resolver.CacheStats `json:"events"`
}

// Mediator routes commands and queries to their single handler and events to
// every subscriber. Its registries and middleware chain are fixed at
// construction, so it is safe for concurrent use.
type Mediator struct {
	conf   configpkg.Config
	logger loggingpkg.ServiceLogger

	commands *resolver.SingleResolver[*binding]
	queries  *resolver.SingleResolver[*binding]
	events   *resolver.FanOutResolver[*binding]

	handlers    []*HandlerInfo
	pipeline    HandlerFunc
	middlewares []string

	metricsRegistry *prometheus.Registry
	tracerProvider  trace.TracerProvider
	errorClassifier ErrorClassifier
}

// binding is a descriptor registered on a mediator, together with its stats.
type binding struct {
	handlers.Descriptor
	info       *HandlerInfo
	classifier ErrorClassifier
}

func (b *binding) invoke(ctx context.Context, request any) (result any, events []handlers.Event, err error) {
	stats := b.info.Stats
	stats.onInvokeStart()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stats.onInvokeFinish(time.Since(start), errspkg.ErrHandlerPanicked, b.classifier)
			panic(r)
		}
		stats.onInvokeFinish(time.Since(start), err, b.classifier)
	}()
	return b.Invoke(ctx, request)
}

// NewMediator constructs a Mediator and panics on invalid input, mirroring
// how a misconfigured program should fail at startup.
func NewMediator(conf *configpkg.Config, log loggingpkg.ServiceLogger, set handlers.Set, deps Dependencies) *Mediator {
	m, err := TryNewMediator(conf, log, set, deps)
	if err != nil {
		panic(err)
	}
	return m
}

// TryNewMediator is NewMediator returning the construction error.
func TryNewMediator(conf *configpkg.Config, log loggingpkg.ServiceLogger, set handlers.Set, deps Dependencies) (*Mediator, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	c := conf.WithDefaults()
	log.Info("Creating mediator", loggingpkg.LogFields{
		"name":     c.Name,
		"commands": len(set.Commands),
		"queries":  len(set.Queries),
		"events":   len(set.Events),
		"config":   c,
	})

	m := &Mediator{
		conf:            c,
		logger:          log,
		metricsRegistry: deps.MetricsRegistry,
		tracerProvider:  deps.TracerProvider,
		errorClassifier: deps.ErrorClassifier,
	}
	if m.metricsRegistry == nil {
		m.metricsRegistry = prometheus.NewRegistry()
	}
	if m.tracerProvider == nil {
		m.tracerProvider = otel.GetTracerProvider()
	}
	if m.errorClassifier == nil {
		m.errorClassifier = defaultErrorClassifier
	}

	commands, err := m.bind(handlers.KindCommand, set.Commands)
	if err != nil {
		return nil, err
	}
	queries, err := m.bind(handlers.KindQuery, set.Queries)
	if err != nil {
		return nil, err
	}
	events, err := m.bind(handlers.KindEvent, set.Events)
	if err != nil {
		return nil, err
	}

	caching := !c.DisableResolutionCache
	m.commands = resolver.NewSingleResolver(handlers.KindCommand, registry.New(commands), resolver.NewCache[*binding](caching))
	m.queries = resolver.NewSingleResolver(handlers.KindQuery, registry.New(queries), resolver.NewCache[*binding](caching))
	m.events = resolver.NewFanOutResolver(registry.New(events), resolver.NewCache[[]*binding](caching), c.AllowUnhandledEvents)

	if err := m.buildPipeline(deps); err != nil {
		return nil, err
	}

	if c.EagerValidation {
		if err := m.Verify(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mediator) bind(kind handlers.Kind, descriptors []handlers.Descriptor) ([]*binding, error) {
	bindings := make([]*binding, 0, len(descriptors))
	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%s handler %d: %w", kind, i, err)
		}
		if d.Kind() != kind {
			return nil, fmt.Errorf("%w: %s handler %s registered as %s", errspkg.ErrKindMismatch, d.Kind(), d.Name(), kind)
		}
		info := newHandlerInfo(d, newHandlerStats())
		m.handlers = append(m.handlers, info)
		bindings = append(bindings, &binding{Descriptor: d, info: info, classifier: m.errorClassifier})
	}
	return bindings, nil
}

func (m *Mediator) buildPipeline(deps Dependencies) error {
	var registrations []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		registrations = append(registrations, DefaultMiddlewares()...)
	}
	registrations = append(registrations, HooksMiddleware(deps.Hooks))
	registrations = append(registrations, deps.Middlewares...)

	var middlewares []HandlerMiddleware
	for _, reg := range registrations {
		name := reg.Name
		if name == "" {
			name = "anonymous_middleware"
		}
		mw, err := m.buildMiddleware(reg)
		if err != nil {
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
		if mw == nil {
			continue
		}
		middlewares = append(middlewares, mw)
		m.middlewares = append(m.middlewares, name)
	}

	m.pipeline = chain(m.handle, middlewares)
	return nil
}

// Verify reports ambiguous command and query registrations without
// dispatching anything.
func (m *Mediator) Verify() error {
	return errors.Join(m.commands.Verify(), m.queries.Verify())
}

// MediateCommand resolves the single handler for cmd and returns its result.
// Handler errors are returned unchanged.
func (m *Mediator) MediateCommand(ctx context.Context, cmd handlers.Command) (any, error) {
	return m.mediate(ctx, handlers.KindCommand, cmd)
}

// MediateQuery resolves the single handler for query and returns its result.
func (m *Mediator) MediateQuery(ctx context.Context, query handlers.Query) (any, error) {
	return m.mediate(ctx, handlers.KindQuery, query)
}

// MediateEvent delivers event to every subscriber in registration order and
// stops at the first subscriber error, which is returned unchanged.
func (m *Mediator) MediateEvent(ctx context.Context, event handlers.Event) error {
	_, err := m.mediate(ctx, handlers.KindEvent, event)
	return err
}

func (m *Mediator) mediate(ctx context.Context, kind handlers.Kind, request any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	d := &Dispatch{
		ID:          idspkg.NewDispatchID(),
		Kind:        kind,
		Request:     request,
		RequestType: handlers.TypeName(reflect.TypeOf(request)),
		Metadata:    metadatapkg.FromContext(ctx),
		StartedAt:   time.Now(),
	}
	d.Name = handlers.RequestName(kind, request)
	if d.Name == "" {
		d.Name = d.RequestType
	}
	return m.pipeline(ctx, d)
}

// handle is the innermost HandlerFunc: resolution and invocation.
func (m *Mediator) handle(ctx context.Context, d *Dispatch) (any, error) {
	switch d.Kind {
	case handlers.KindCommand:
		return m.handleCommand(ctx, d.Request)
	case handlers.KindQuery:
		b, err := m.queries.Resolve(d.Request)
		if err != nil {
			return nil, err
		}
		result, _, err := b.invoke(ctx, d.Request)
		if err != nil {
			return nil, err
		}
		return result, nil
	case handlers.KindEvent:
		return nil, m.handleEvent(ctx, d.Request)
	default:
		return nil, errspkg.InvalidRequest(d.Kind.String(), d.RequestType, "unknown request kind")
	}
}

func (m *Mediator) handleCommand(ctx context.Context, cmd any) (any, error) {
	b, err := m.commands.Resolve(cmd)
	if err != nil {
		return nil, err
	}
	result, events, err := b.invoke(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		if err := m.emitAll(ctx, events); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (m *Mediator) handleEvent(ctx context.Context, event any) error {
	subscribers, err := m.events.Resolve(event)
	if err != nil {
		return err
	}
	for _, b := range subscribers {
		if _, _, err := b.invoke(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// emitAll mediates events one after another following the batch policy.
func (m *Mediator) emitAll(ctx context.Context, events []handlers.Event) error {
	return m.runBatch(handlers.KindEvent, len(events), func(i int) (string, error) {
		return handlers.RequestName(handlers.KindEvent, events[i]), m.MediateEvent(ctx, events[i])
	})
}

// runBatch runs n items in order. Every item runs unless AbortBatchOnError is
// set; the first error is returned unchanged and later ones are logged.
func (m *Mediator) runBatch(kind handlers.Kind, n int, run func(i int) (string, error)) error {
	var first error
	for i := range n {
		name, err := run(i)
		if err == nil {
			continue
		}
		if first == nil {
			first = err
			if m.conf.AbortBatchOnError {
				return first
			}
			continue
		}
		m.logger.Error("Batch item failed", err, loggingpkg.LogFields{
			"kind":    kind.String(),
			"index":   i,
			"request": name,
		})
	}
	return first
}

// Name returns the configured mediator name.
func (m *Mediator) Name() string { return m.conf.Name }

// Config returns a copy of the effective configuration.
func (m *Mediator) Config() configpkg.Config { return m.conf }

// Logger returns the mediator's logger.
func (m *Mediator) Logger() loggingpkg.ServiceLogger { return m.logger }

// Handlers lists every registered handler in registration order: commands,
// then queries, then events.
func (m *Mediator) Handlers() []*HandlerInfo {
	return slices.Clone(m.handlers)
}

// Middlewares lists the names of the active middlewares, outermost first.
func (m *Mediator) Middlewares() []string {
	return slices.Clone(m.middlewares)
}

// CacheStats reports the resolution caches.
func (m *Mediator) CacheStats() ResolutionStats {
	return ResolutionStats{
		Commands: m.commands.CacheStats(),
		Queries:  m.queries.CacheStats(),
		Events:   m.events.CacheStats(),
	}
}

func (m *Mediator) cacheStats(kind handlers.Kind) resolver.CacheStats {
	switch kind {
	case handlers.KindCommand:
		return m.commands.CacheStats()
	case handlers.KindQuery:
		return m.queries.CacheStats()
	default:
		return m.events.CacheStats()
	}
}
